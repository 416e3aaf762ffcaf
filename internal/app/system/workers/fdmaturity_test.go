package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeMaturer struct {
	mu    sync.Mutex
	calls []time.Time
	err   error
}

func (f *fakeMaturer) MatureDue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

func (f *fakeMaturer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestFDMaturity_SweepUsesClock(t *testing.T) {
	fake := &fakeMaturer{}
	w := NewFDMaturity(fake, zap.NewNop(), time.Hour)
	fixed := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	n, err := w.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 2 {
		t.Errorf("Sweep = %d, want 2", n)
	}
	if len(fake.calls) != 1 || !fake.calls[0].Equal(fixed) {
		t.Errorf("calls = %v", fake.calls)
	}
}

func TestFDMaturity_SweepError(t *testing.T) {
	fake := &fakeMaturer{err: errors.New("boom")}
	w := NewFDMaturity(fake, zap.NewNop(), time.Hour)
	if _, err := w.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	// The background pass logs and carries on.
	w.sweep()
}

func TestFDMaturity_StartStop(t *testing.T) {
	fake := &fakeMaturer{}
	w := NewFDMaturity(fake, zap.NewNop(), 10*time.Millisecond)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for fake.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()

	if fake.count() < 2 {
		t.Fatalf("sweeps = %d, want at least 2", fake.count())
	}
	after := fake.count()
	time.Sleep(30 * time.Millisecond)
	if fake.count() != after {
		t.Error("worker kept sweeping after Stop")
	}
}
