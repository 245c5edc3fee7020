package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
)

type fakeLock struct {
	acquired     bool
	err          error
	releases     int
	acquisitions int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquisitions++
	if f.err != nil {
		return false, f.err
	}
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestCron(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestServiceRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	lock := &fakeLock{}
	service := newTestCron(t, lock, failure, success)

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job once, got success=%d failure=%d", success.runs, failure.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}
}

func TestServiceRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "audit"}
	lock := &fakeLock{acquired: true}
	service := newTestCron(t, lock, job)

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("job must not run without the lock")
	}
	if lock.releases != 0 {
		t.Fatalf("lock held elsewhere must not be released")
	}
}

func TestServiceRunCycleReportsFailedJobs(t *testing.T) {
	failure := &testJob{name: "ledger-audit", err: errors.New("drift")}
	service := newTestCron(t, &fakeLock{}, failure, &testJob{name: "outbox-backlog"})

	report, err := service.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if report.Ran != 2 || len(report.Failed) != 1 || report.Failed[0] != "ledger-audit" {
		t.Fatalf("unexpected report %+v", report)
	}

	report, err = newTestCron(t, &fakeLock{acquired: true}, failure).RunCycle(context.Background())
	if err != nil || !report.Skipped || report.Ran != 0 {
		t.Fatalf("expected skipped cycle, got %+v err=%v", report, err)
	}
}

func TestServiceRunOnceReportsLockError(t *testing.T) {
	service := newTestCron(t, &fakeLock{err: errors.New("redis down")}, &testJob{name: "audit"})
	if err := service.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected lock error")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "audit"}
	service := newTestCron(t, &fakeLock{}, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the initial cycle to run, got %d", job.runs)
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})}); err == nil {
		t.Fatalf("expected error without lock")
	}
}
