package enums

import "fmt"

// CreditEntryType classifies rows of the credit journal.
type CreditEntryType string

const (
	CreditEntryTypeMint       CreditEntryType = "mint"
	CreditEntryTypeSettlement CreditEntryType = "settlement"
)

var validCreditEntryTypes = []CreditEntryType{
	CreditEntryTypeMint,
	CreditEntryTypeSettlement,
}

// IsValid reports whether the value matches the canonical credit entry enum.
func (t CreditEntryType) IsValid() bool {
	for _, candidate := range validCreditEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseCreditEntryType converts raw input into CreditEntryType.
func ParseCreditEntryType(value string) (CreditEntryType, error) {
	for _, candidate := range validCreditEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit entry type %q", value)
}
