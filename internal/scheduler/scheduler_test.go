package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduleOnceRuns(t *testing.T) {
	s := New(nil)
	done := make(chan struct{})
	s.ScheduleOnce(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("one-shot did not run")
	}
	s.Wait()
}

func TestStopCancelsPendingOneShot(t *testing.T) {
	s := New(nil)
	var ran atomic.Bool
	s.ScheduleOnce(time.Hour, func() { ran.Store(true) })
	s.Stop()
	s.Wait()
	if ran.Load() {
		t.Fatalf("expected pending one-shot to be cancelled")
	}

	s.ScheduleOnce(time.Millisecond, func() { ran.Store(true) })
	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Fatalf("expected calls after Stop to be dropped")
	}
}

func TestScheduleRecurringRepeatsAndSurvivesErrors(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	var runs atomic.Int32
	s.ScheduleRecurring(ctx, "test", 5*time.Millisecond, func(context.Context) error {
		runs.Add(1)
		return errors.New("boom")
	})

	deadline := time.After(time.Second)
	for runs.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 runs, got %d", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	s.Wait()
}

func TestRecoverFromPanic(t *testing.T) {
	s := New(nil)
	done := make(chan struct{})
	s.ScheduleOnce(time.Millisecond, func() {
		defer close(done)
		panic("bad job")
	})
	<-done
	s.Wait()
}
