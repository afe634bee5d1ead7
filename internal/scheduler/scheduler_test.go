package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"
)

func testScheduler(t *testing.T, spec string, job Job) *Scheduler {
	t.Helper()
	s, err := New(spec, job, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return s
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("not a cron line", nil, log.New(io.Discard, "", 0)); err == nil {
		t.Fatal("want parse error for a bad spec")
	}
}

func TestNextFollowsExpression(t *testing.T) {
	s := testScheduler(t, "0 * * * *", nil)
	at := time.Date(2026, 1, 2, 3, 15, 30, 0, time.UTC)
	want := time.Date(2026, 1, 2, 4, 0, 0, 0, time.UTC)
	if got := s.Next(at); !got.Equal(want) {
		t.Fatalf("got next %s, want %s", got, want)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	calls := 0
	s := testScheduler(t, "* * * * *", func(ctx context.Context) error {
		calls++
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("job ran %d times before the first tick", calls)
	}
}

func TestRunFiresJobThenStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	job := func(context.Context) error {
		calls++
		cancel()
		return nil
	}
	// Seven-field spec with seconds, so the first tick arrives quickly.
	s := testScheduler(t, "* * * * * * *", job)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("got %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop after the job cancelled the context")
	}
	if calls != 1 {
		t.Fatalf("job ran %d times, want 1", calls)
	}
}
