package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []*domain.LoginEvent
}

func (r *recordingRepo) Append(_ context.Context, e *domain.LoginEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingRepo) FindSince(context.Context, string, time.Time) ([]domain.LoginEvent, error) {
	return nil, nil
}

func (r *recordingRepo) CountByDay(context.Context, string, time.Time) ([]ports.DayCount, error) {
	return nil, nil
}

func (r *recordingRepo) CountByNetwork(context.Context, string, time.Time) ([]ports.BucketCount, error) {
	return nil, nil
}

func (r *recordingRepo) CountByDevice(context.Context, string, time.Time) ([]ports.BucketCount, error) {
	return nil, nil
}

func (r *recordingRepo) FindSuspicious(context.Context, string, time.Time, int64) ([]domain.LoginEvent, error) {
	return nil, nil
}

func (r *recordingRepo) snapshot() []*domain.LoginEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.LoginEvent(nil), r.events...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestDispatcher_AppendsEvents(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(2, repo, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for i := 0; i < 10; i++ {
		d.Record(&domain.LoginEvent{AccountID: fmt.Sprintf("acc_%d", i), Kind: domain.EventLoginSuccess})
	}

	waitFor(t, func() bool { return len(repo.snapshot()) == 10 })
}

func TestDispatcher_PreservesPerAccountOrder(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(4, repo, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	const n = 50
	for i := 0; i < n; i++ {
		d.Record(&domain.LoginEvent{
			AccountID: "acc_1",
			Kind:      domain.EventLoginSuccess,
			Detail:    map[string]string{"seq": fmt.Sprintf("%03d", i)},
		})
	}

	waitFor(t, func() bool { return len(repo.snapshot()) == n })

	prev := ""
	for _, e := range repo.snapshot() {
		if e.Detail["seq"] <= prev && prev != "" {
			t.Fatalf("per-account order broken: %s after %s", e.Detail["seq"], prev)
		}
		prev = e.Detail["seq"]
	}
}

func TestDispatcher_ShardIsDeterministic(t *testing.T) {
	d := NewDispatcher(4, &recordingRepo{}, zerolog.Nop())

	for _, id := range []string{"acc_1", "acc_2", "some-longer-account-id"} {
		first := d.shardIndex(id)
		for i := 0; i < 5; i++ {
			if got := d.shardIndex(id); got != first {
				t.Fatalf("shard for %s not stable: %d vs %d", id, first, got)
			}
		}
	}
}

func TestDispatcher_DropsWhenNotStarted(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(1, repo, zerolog.Nop())

	// Without workers running, the buffer absorbs then drops; Record must
	// never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			d.Record(&domain.LoginEvent{AccountID: "acc_1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Record blocked on a full buffer")
	}
}
