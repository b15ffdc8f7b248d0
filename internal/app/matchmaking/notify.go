//go:generate go run go.uber.org/mock/mockgen -source=notify.go -destination=../mocks/mock_notifier.go -package=mocks

package matchmaking

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"anonchat/internal/app/user"
	"anonchat/internal/pkg/logx"
)

// EventKind identifies a lifecycle event pushed to a user.
type EventKind string

const (
	EventPartnerFound EventKind = "partner_found"
	EventPartnerLeft  EventKind = "partner_left"
)

// ErrRecipientUnreachable is returned by a Notifier that knows retrying cannot help,
// for example because the user has no live connection.
var ErrRecipientUnreachable = errors.New("matchmaking: recipient unreachable")

// Notifier delivers lifecycle events to users. Implementations may fail independently of the
// directory; a failure never affects state.
type Notifier interface {
	Notify(ctx context.Context, id user.ID, kind EventKind) error
}

// Event is one queued notification.
type Event struct {
	UserID user.ID
	Kind   EventKind
}

// DispatcherConfig tunes the notification side channel.
type DispatcherConfig struct {
	// Workers is the number of goroutines draining the queue. Each user is always served by the
	// same worker, so a user's events are delivered in the order they were dispatched.
	Workers int

	// QueueSize bounds the number of pending events, split evenly across workers. A full worker
	// queue drops new events for the users it serves.
	QueueSize int

	// MaxRetries is the number of redeliveries after the first failed attempt.
	MaxRetries uint64

	// BaseDelay is the first backoff delay; it doubles on every retry.
	BaseDelay time.Duration

	// Timeout bounds one event's delivery including all retries.
	Timeout time.Duration
}

// DefaultDispatcherConfig returns the settings used by the server.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:    4,
		QueueSize:  1024,
		MaxRetries: 3,
		BaseDelay:  50 * time.Millisecond,
		Timeout:    5 * time.Second,
	}
}

// Dispatcher delivers events asynchronously with retries. Callers never block on delivery.
type Dispatcher struct {
	notifier Notifier
	cfg      DispatcherConfig
	queues   []chan Event

	// mu guards closed so that Dispatch never sends on a closed queue.
	mu     sync.RWMutex
	closed bool

	wg     sync.WaitGroup
	logger zerolog.Logger
}

// NewDispatcher starts cfg.Workers goroutines delivering through notifier.
func NewDispatcher(notifier Notifier, cfg DispatcherConfig) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	d := &Dispatcher{
		notifier: notifier,
		cfg:      cfg,
		queues:   make([]chan Event, cfg.Workers),
		logger:   logx.Component("Dispatcher"),
	}

	perWorker := max(1, (cfg.QueueSize+cfg.Workers-1)/cfg.Workers)

	d.wg.Add(cfg.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan Event, perWorker)
		go d.work(d.queues[i])
	}

	return d
}

// Dispatch queues an event and reports whether it was accepted.
func (d *Dispatcher) Dispatch(id user.ID, kind EventKind) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queueFor(id) <- Event{UserID: id, Kind: kind}:
		return true
	default:
		d.logger.Warn().Str("user_id", id.String()).Str("kind", string(kind)).Msg("Notification queue full, event dropped.")
		return false
	}
}

// Close stops accepting events and waits until every queued event has been handled.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// queueFor returns the queue of the worker that owns id.
func (d *Dispatcher) queueFor(id user.ID) chan<- Event {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return d.queues[h.Sum32()%uint32(len(d.queues))]
}

func (d *Dispatcher) work(queue <-chan Event) {
	defer d.wg.Done()

	for ev := range queue {
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()

	attempts := 0
	backoff := retry.WithMaxRetries(d.cfg.MaxRetries, retry.NewExponential(d.cfg.BaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++

		err := d.notifier.Notify(ctx, ev.UserID, ev.Kind)
		if err == nil || errors.Is(err, ErrRecipientUnreachable) {
			return err
		}
		return retry.RetryableError(err)
	})

	log := d.logger.With().Str("user_id", ev.UserID.String()).Str("kind", string(ev.Kind)).Int("attempts", attempts).Logger()

	switch {
	case err == nil:
		log.Debug().Msg("Notification delivered.")
	case errors.Is(err, ErrRecipientUnreachable):
		log.Debug().Msg("Recipient offline, notification skipped.")
	default:
		log.Warn().Err(err).Msg("Notification failed after retries.")
	}
}
