package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/metrics"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/clock"
)

// DefaultKey is the process-wide key the draft is stored under
const DefaultKey = "land_form_data"

// MaxRetryDelay caps the backoff between retries of a failed write
const MaxRetryDelay = time.Minute

// Producer returns the draft to persist. It is invoked at write time, not at
// schedule time, so the latest state is always what gets written.
type Producer func() *Draft

// PersisterConfig configures a Persister
type PersisterConfig struct {
	Key          string
	Window       time.Duration
	WriteTimeout time.Duration
}

// Persister owns the debounced write schedule for one draft key
type Persister struct {
	store     Store
	key       string
	timeout   time.Duration
	debouncer *Debouncer
	logger    *zap.Logger
	metrics   *metrics.Metrics
	clock     clock.Clock

	// writeMu serializes store writes, deletes and clears
	writeMu sync.Mutex

	stateMu  sync.Mutex
	producer Producer
	dirty    bool
	epoch    uint64
	failures int
}

// NewPersister creates a persister over store
func NewPersister(store Store, cfg PersisterConfig, c clock.Clock, logger *zap.Logger, m *metrics.Metrics) *Persister {
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultDebounceWindow
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}

	return &Persister{
		store:     store,
		key:       cfg.Key,
		timeout:   cfg.WriteTimeout,
		debouncer: NewDebouncer(c, cfg.Window),
		logger:    logger.With(zap.String("component", "draft_persister")),
		metrics:   m,
		clock:     c,
	}
}

// Key returns the storage key
func (p *Persister) Key() string {
	return p.key
}

// Schedule records producer as the source of the next write and re-arms
// the debounce timer.
func (p *Persister) Schedule(producer Producer) {
	p.stateMu.Lock()
	p.producer = producer
	p.dirty = true
	epoch := p.epoch
	p.stateMu.Unlock()

	p.arm(epoch, p.debouncer.Window())
}

// arm schedules a write for epoch after delay. A failed write re-arms itself
// with a doubled delay until it succeeds or the epoch moves on.
func (p *Persister) arm(epoch uint64, delay time.Duration) {
	p.debouncer.TriggerAfter(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.write(ctx, epoch); err != nil {
			retry := p.retryDelay(epoch)
			p.logger.Error("Failed to persist draft",
				zap.String("key", p.key),
				zap.Duration("retry_in", retry),
				zap.Error(err),
			)
			if retry > 0 {
				p.arm(epoch, retry)
			}
		}
	})
}

// retryDelay records a failure and returns the backoff for the next attempt,
// or zero when nothing is left to write.
func (p *Persister) retryDelay(epoch uint64) time.Duration {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	if p.epoch != epoch || !p.dirty {
		return 0
	}
	p.failures++

	delay := p.debouncer.Window()
	for i := 0; i < p.failures && delay < MaxRetryDelay; i++ {
		delay *= 2
	}
	if delay > MaxRetryDelay {
		delay = MaxRetryDelay
	}
	return delay
}

// CancelPending drops a scheduled write without performing it
func (p *Persister) CancelPending() {
	p.debouncer.Cancel()

	p.stateMu.Lock()
	p.dirty = false
	p.stateMu.Unlock()
}

// Pending reports whether a write is waiting on the debounce window
func (p *Persister) Pending() bool {
	return p.debouncer.Pending()
}

// Flush performs any scheduled write immediately
func (p *Persister) Flush(ctx context.Context) error {
	p.debouncer.Cancel()

	p.stateMu.Lock()
	epoch := p.epoch
	p.stateMu.Unlock()

	return p.write(ctx, epoch)
}

func (p *Persister) write(ctx context.Context, epoch uint64) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.stateMu.Lock()
	if p.epoch != epoch || !p.dirty || p.producer == nil {
		p.stateMu.Unlock()
		return nil
	}
	producer := p.producer
	p.dirty = false
	p.stateMu.Unlock()

	start := p.clock.Now()
	data, err := EncodeSnapshot(producer())
	if err == nil {
		err = p.store.Save(ctx, p.key, data)
	}
	p.metrics.ObserveFlush(start, err)

	if err != nil {
		p.stateMu.Lock()
		if p.epoch == epoch {
			p.dirty = true
		}
		p.stateMu.Unlock()
		return fmt.Errorf("persist draft: %w", err)
	}

	p.stateMu.Lock()
	p.failures = 0
	p.stateMu.Unlock()

	p.logger.Debug("Draft persisted", zap.String("key", p.key), zap.Int("bytes", len(data)))
	return nil
}

// Restore loads the persisted draft. A missing snapshot yields the empty
// draft; a corrupt or unreadable one yields defaults plus the error, which
// callers log and otherwise ignore.
func (p *Persister) Restore(ctx context.Context) (*Draft, error) {
	data, err := p.store.Load(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		return NewDraft(), nil
	}
	if err != nil {
		return NewDraft(), fmt.Errorf("load draft: %w", err)
	}

	return DecodeSnapshot(data)
}

// Clear cancels any pending write, runs reset and deletes the snapshot.
// Holding the write lock throughout means an in-flight write either lands
// before the delete or is discarded.
func (p *Persister) Clear(ctx context.Context, reset func()) error {
	p.debouncer.Cancel()

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	p.stateMu.Lock()
	p.epoch++
	p.dirty = false
	p.failures = 0
	p.producer = nil
	p.stateMu.Unlock()

	if reset != nil {
		reset()
	}

	if err := p.store.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
