package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/eventpass/eventpass-backend/pkg/logger"
)

type stubLock struct {
	held     bool
	acquires int
	releases int
}

func (l *stubLock) Acquire(context.Context) (bool, error) {
	l.acquires++
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *stubLock) Release(context.Context) error {
	l.releases++
	l.held = false
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func cronServiceForTest(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	healthy := &countingJob{name: "healthy"}
	broken := &countingJob{name: "broken", err: errors.New("boom")}
	lock := &stubLock{}
	service := cronServiceForTest(t, lock, broken, healthy)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if broken.runs != 1 {
		t.Fatalf("broken job should still run once, ran %d", broken.runs)
	}
	if healthy.runs != 1 {
		t.Fatalf("healthy job should run after a failing one, ran %d", healthy.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("lock should be released after the cycle, releases=%d", lock.releases)
	}
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "solo"}
	service := cronServiceForTest(t, &stubLock{held: true}, job)

	if err := service.runCycle(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("jobs must not run without the lock, ran %d", job.runs)
	}
}

func TestRunCycleSurfacesLockError(t *testing.T) {
	service := cronServiceForTest(t, failingLock{}, &countingJob{name: "solo"})

	if err := service.runCycle(context.Background()); err == nil {
		t.Fatal("expected lock acquire error")
	}
}

type failingLock struct{}

func (failingLock) Acquire(context.Context) (bool, error) {
	return false, errors.New("redis down")
}

func (failingLock) Release(context.Context) error { return nil }
