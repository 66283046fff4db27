package queue

import (
	"context"
	"hash/fnv"

	"github.com/rs/zerolog"

	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher appends login events off the request path. Events are routed to
// a fixed set of workers by consistent hashing on the account id, so the
// per-account append order matches the order logins happened in.
type Dispatcher struct {
	workers []chan *domain.LoginEvent
	events  ports.AnalyticsRepository
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, events ports.AnalyticsRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan *domain.LoginEvent, numWorkers),
		events:  events,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan *domain.LoginEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Record implements ports.LoginEventRecorder. The append is best-effort: a
// full worker buffer drops the event with a warning instead of stalling the
// login that produced it.
func (d *Dispatcher) Record(e *domain.LoginEvent) {
	select {
	case d.workers[d.shardIndex(e.AccountID)] <- e:
	default:
		d.log.Warn().Str("account_id", e.AccountID).Str("kind", string(e.Kind)).Msg("event buffer full, dropping login event")
	}
}

// shardIndex maps an account id deterministically to a worker index.
func (d *Dispatcher) shardIndex(accountID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan *domain.LoginEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := d.events.Append(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("account_id", event.AccountID).
					Int("worker_id", id).
					Msg("login event append failed")
			}
		}
	}
}
