package intake

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
	"land-portal/parcel-portal/parcel-portal-backend/internal/metrics"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/clock"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/workflows"
)

// Config tunes the submission progress display
type Config struct {
	ProgressInterval  time.Duration
	ProgressStep      int
	ProgressCap       int
	ConfirmationDelay time.Duration
}

// DefaultConfig returns the standard progress settings
func DefaultConfig() Config {
	return Config{
		ProgressInterval:  200 * time.Millisecond,
		ProgressStep:      10,
		ProgressCap:       90,
		ConfirmationDelay: 2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ProgressInterval <= 0 {
		c.ProgressInterval = d.ProgressInterval
	}
	if c.ProgressStep <= 0 {
		c.ProgressStep = d.ProgressStep
	}
	if c.ProgressCap <= 0 || c.ProgressCap >= 100 {
		c.ProgressCap = d.ProgressCap
	}
	if c.ConfirmationDelay <= 0 {
		c.ConfirmationDelay = d.ConfirmationDelay
	}
	return c
}

// Listener receives every status change
type Listener func(Status)

// Orchestrator drives one draft session through submission
type Orchestrator struct {
	session   *draft.Session
	transport Transport
	clock     clock.Clock
	cfg       Config
	tracker   *workflows.Tracker
	logger    *zap.Logger
	metrics   *metrics.Metrics

	mu         sync.Mutex
	status     Status
	attempt    uint64
	ticker     clock.Timer
	resetTimer clock.Timer
	listeners  map[int]Listener
	nextID     int
}

// NewOrchestrator creates an orchestrator for session
func NewOrchestrator(session *draft.Session, transport Transport, c clock.Clock, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Orchestrator {
	o := &Orchestrator{
		session:   session,
		transport: transport,
		clock:     c,
		cfg:       cfg.withDefaults(),
		tracker:   workflows.NewTracker(workflows.NewSubmissionStateMachine(), workflows.StateIdle),
		logger:    logger.With(zap.String("component", "intake_orchestrator")),
		metrics:   m,
		listeners: make(map[int]Listener),
	}
	o.status = Status{State: workflows.StateIdle, UpdatedAt: c.Now()}
	return o
}

// Status returns the current submission status
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Subscribe registers fn for status changes and returns its cancel func
func (o *Orchestrator) Subscribe(fn Listener) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

// Submit validates the draft and sends it to intake. Precondition failures
// are reported in the result without touching the network.
func (o *Orchestrator) Submit(ctx context.Context) (*Result, error) {
	if o.session.Closed() {
		return nil, draft.ErrSessionClosed
	}

	// The upload slot is reserved before the draft is read, so a concurrent
	// submit can never send a snapshot taken before another one cleared it.
	// A new submission also ends a pending success confirmation early.
	o.tracker.TransitionFrom(workflows.StateSuccess, workflows.StateIdle)
	if !o.tracker.TransitionFrom(workflows.StateIdle, workflows.StateUploading) {
		return nil, ErrSubmissionInFlight
	}
	o.endConfirmation()

	snapshot := o.session.Snapshot()
	failures := CheckPreconditions(snapshot)
	o.session.ApplyPreconditionErrors(errorMap(failures))
	if len(failures) > 0 {
		o.release(workflows.StateIdle)
		o.metrics.ObserveSubmission(string(OutcomeValidationFailure), time.Time{})
		return &Result{Outcome: OutcomeValidationFailure, Errors: failures}, nil
	}

	attempt := o.beginUpload()
	start := time.Now()

	payload := BuildPayload(snapshot)
	o.logger.Info("Submitting parcel",
		zap.String("title_number", payload.TitleNumber),
		zap.Int("coordinates", len(payload.Coordinates)),
		zap.Float64("area_m2", payload.AreaSquareMeters),
	)

	resp, err := o.transport.Send(ctx, payload)
	o.stopTicker(attempt)

	if o.session.Closed() {
		o.release(workflows.StateIdle)
		o.setStatus(attempt, workflows.StateIdle, 0, OutcomeAbandoned, "")
		o.metrics.ObserveSubmission(string(OutcomeAbandoned), start)
		o.logger.Info("Submission resolved after session closed, result ignored")
		return &Result{Outcome: OutcomeAbandoned}, nil
	}

	if err != nil {
		o.logger.Error("Submission failed", zap.Error(err))
		o.release(workflows.StateIdle)
		o.setStatus(attempt, workflows.StateIdle, 0, OutcomeTransportFailure, SubmitErrorMessage)
		o.metrics.ObserveSubmission(string(OutcomeTransportFailure), start)
		return &Result{Outcome: OutcomeTransportFailure, Message: SubmitErrorMessage}, nil
	}

	if err := o.session.Clear(ctx); err != nil && !errors.Is(err, draft.ErrSessionClosed) {
		o.logger.Warn("Failed to clear draft after submission", zap.Error(err))
	}

	o.release(workflows.StateSuccess)
	o.setStatus(attempt, workflows.StateSuccess, 100, OutcomeSuccess, "")
	o.armReset(attempt)
	o.metrics.ObserveSubmission(string(OutcomeSuccess), start)
	o.logger.Info("Parcel submitted", zap.String("title_number", payload.TitleNumber))

	return &Result{Outcome: OutcomeSuccess, Response: resp}, nil
}

// AllowedTransitions lists the submission states reachable from the current one
func (o *Orchestrator) AllowedTransitions() []string {
	return o.tracker.Allowed()
}

// release moves the reserved upload slot out of uploading
func (o *Orchestrator) release(to string) {
	if err := o.tracker.Transition(to); err != nil {
		o.logger.Error("Unexpected submission state", zap.Error(err))
	}
}

// Stop cancels progress and confirmation timers
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempt++
	if o.ticker != nil {
		o.ticker.Stop()
		o.ticker = nil
	}
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
}

// endConfirmation drops a success status whose reset timer has not fired yet
func (o *Orchestrator) endConfirmation() {
	o.mu.Lock()
	if o.status.State != workflows.StateSuccess {
		o.mu.Unlock()
		return
	}
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
	o.status = Status{State: workflows.StateIdle, UpdatedAt: o.clock.Now()}
	status, listeners := o.status, o.listenersLocked()
	o.mu.Unlock()

	notify(listeners, status)
}

func (o *Orchestrator) beginUpload() uint64 {
	o.mu.Lock()
	o.attempt++
	attempt := o.attempt
	if o.resetTimer != nil {
		o.resetTimer.Stop()
		o.resetTimer = nil
	}
	o.status = Status{State: workflows.StateUploading, Progress: 0, UpdatedAt: o.clock.Now()}
	o.ticker = o.clock.AfterFunc(o.cfg.ProgressInterval, func() { o.tick(attempt) })
	status, listeners := o.status, o.listenersLocked()
	o.mu.Unlock()

	notify(listeners, status)
	return attempt
}

func (o *Orchestrator) tick(attempt uint64) {
	o.mu.Lock()
	if o.attempt != attempt || o.status.State != workflows.StateUploading {
		o.mu.Unlock()
		return
	}
	progress := o.status.Progress + o.cfg.ProgressStep
	if progress > o.cfg.ProgressCap {
		progress = o.cfg.ProgressCap
	}
	changed := progress != o.status.Progress
	o.status.Progress = progress
	o.status.UpdatedAt = o.clock.Now()
	o.ticker = o.clock.AfterFunc(o.cfg.ProgressInterval, func() { o.tick(attempt) })
	status, listeners := o.status, o.listenersLocked()
	o.mu.Unlock()

	if changed {
		notify(listeners, status)
	}
}

func (o *Orchestrator) stopTicker(attempt uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt == attempt && o.ticker != nil {
		o.ticker.Stop()
		o.ticker = nil
	}
}

func (o *Orchestrator) armReset(attempt uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.attempt != attempt {
		return
	}
	o.resetTimer = o.clock.AfterFunc(o.cfg.ConfirmationDelay, func() {
		// The tracker may already have left success for a submit that failed
		// validation; the status still belongs to this attempt.
		o.tracker.TransitionFrom(workflows.StateSuccess, workflows.StateIdle)
		o.setStatus(attempt, workflows.StateIdle, 0, "", "")
	})
}

func (o *Orchestrator) setStatus(attempt uint64, state string, progress int, outcome Outcome, message string) {
	o.mu.Lock()
	if o.attempt != attempt {
		o.mu.Unlock()
		return
	}
	o.status = Status{
		State:     state,
		Progress:  progress,
		Outcome:   outcome,
		Message:   message,
		UpdatedAt: o.clock.Now(),
	}
	status, listeners := o.status, o.listenersLocked()
	o.mu.Unlock()

	notify(listeners, status)
}

func (o *Orchestrator) listenersLocked() []Listener {
	out := make([]Listener, 0, len(o.listeners))
	for _, l := range o.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []Listener, status Status) {
	for _, l := range listeners {
		l(status)
	}
}
