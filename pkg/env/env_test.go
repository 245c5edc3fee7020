package env

import "testing"

func TestLookupPrefersFirstSetKey(t *testing.T) {
	t.Setenv("STAYREG_TEST_PRIMARY", "")
	t.Setenv("STAYREG_TEST_SECONDARY", "console")

	if got := Lookup("json", "STAYREG_TEST_PRIMARY", "STAYREG_TEST_SECONDARY"); got != "console" {
		t.Fatalf("expected secondary key, got %q", got)
	}

	t.Setenv("STAYREG_TEST_PRIMARY", "text")
	if got := Lookup("json", "STAYREG_TEST_PRIMARY", "STAYREG_TEST_SECONDARY"); got != "text" {
		t.Fatalf("expected primary key, got %q", got)
	}
}

func TestLookupFallsBackOnBlank(t *testing.T) {
	t.Setenv("STAYREG_TEST_BLANK", "   ")
	if got := Lookup("json", "STAYREG_TEST_BLANK"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := Lookup("json"); got != "json" {
		t.Fatalf("expected fallback without keys, got %q", got)
	}
}
