// Package orchestrator issues trends fetches, keeps the displayed fetch
// state and drives the optional auto-refresh timer.
//
// Every fetch gets a sequence number when it starts. When it completes, its
// result is applied only if no newer fetch was started in the meantime, so a
// slow response never overwrites a fresher one. The auto-refresh timer is
// identified by a generation counter; disabling or replacing the timer bumps
// the generation, and a tick from an old generation never starts a fetch.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/robertmeta/trends-cli/model"
	"github.com/robertmeta/trends-cli/query"
)

// DefaultTimeout bounds a single fetch attempt.
const DefaultTimeout = 30 * time.Second

// DefaultRefreshInterval is the auto-refresh period used by the CLI.
const DefaultRefreshInterval = time.Minute

// Source fetches a trends result for a query.
type Source interface {
	Fetch(ctx context.Context, q model.Query) (*model.TrendsResult, error)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// WithObserver registers fn to receive every state transition. fn runs while
// the orchestrator is locked and must not call back into it.
func WithObserver(fn func(model.FetchState)) Option {
	return func(o *Orchestrator) {
		o.observer = fn
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// Orchestrator owns the fetch state of one session.
type Orchestrator struct {
	source   Source
	logger   *slog.Logger
	now      func() time.Time
	observer func(model.FetchState)
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	idle     *sync.Cond
	state    model.FetchState
	seq      uint64 // most recently started request
	inflight int
	attempts uint64
	closed   bool

	refreshGen  uint64
	stopRefresh chan struct{}
}

// New creates an Orchestrator reading from source.
func New(source Source, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		source:  source,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
		timeout: DefaultTimeout,
		ctx:     ctx,
		cancel:  cancel,
		state:   model.FetchState{Status: model.StatusIdle},
	}
	o.idle = sync.NewCond(&o.mu)
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns a copy of the current fetch state.
func (o *Orchestrator) State() model.FetchState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Attempts returns how many fetches have been started by FetchNow and the
// auto-refresh timer.
func (o *Orchestrator) Attempts() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts
}

// AutoRefresh reports whether the auto-refresh timer is running.
func (o *Orchestrator) AutoRefresh() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopRefresh != nil
}

// FetchNow starts a fetch for q and returns its sequence number without
// waiting for it. A fetch already in flight is not cancelled, but its result
// is discarded once this one has started. Returns 0 after Close.
func (o *Orchestrator) FetchNow(q model.Query) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return 0
	}
	seq := o.beginLocked()
	go o.run(seq, q)
	return seq
}

// beginLocked records the start of a new fetch. Caller holds o.mu.
func (o *Orchestrator) beginLocked() uint64 {
	o.seq++
	o.attempts++
	o.inflight++

	o.state.Status = model.StatusLoading
	o.state.ErrorMessage = ""
	o.notifyLocked()

	return o.seq
}

func (o *Orchestrator) run(seq uint64, q model.Query) {
	ctx, cancel := context.WithTimeout(o.ctx, o.timeout)
	defer cancel()

	start := o.now()
	o.logger.Debug("fetching trends", "seq", seq, "query", query.Serialize(q))

	result, err := o.source.Fetch(ctx, q)
	if err == nil && result == nil {
		err = model.ErrNoResult
	}
	o.complete(seq, result, err, o.now().Sub(start))
}

func (o *Orchestrator) complete(seq uint64, result *model.TrendsResult, err error, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.inflight--
	defer o.idle.Broadcast()

	if o.closed {
		// The latest attempt was abandoned by Close; leave loading without
		// applying it.
		if seq == o.seq && o.state.Status == model.StatusLoading {
			o.settleLocked()
		}
		return
	}
	if seq != o.seq {
		o.logger.Debug("discarding stale response", "seq", seq, "latest", o.seq)
		return
	}

	if err != nil {
		o.logger.Warn("trends fetch failed", "seq", seq, "error", err, "elapsed", elapsed)
		o.state.Status = model.StatusError
		o.state.ErrorMessage = err.Error()
		o.notifyLocked()
		return
	}

	fetchedAt := o.now()
	o.state = model.FetchState{
		Status:        model.StatusSuccess,
		Result:        result,
		LastFetchedAt: &fetchedAt,
	}
	o.logger.Info("trends fetched", "seq", seq, "topics", len(result.Topics), "elapsed", elapsed)
	o.notifyLocked()
}

// settleLocked returns a loading state to the last displayed outcome.
func (o *Orchestrator) settleLocked() {
	if o.state.Result != nil {
		o.state.Status = model.StatusSuccess
	} else {
		o.state.Status = model.StatusIdle
	}
	o.notifyLocked()
}

func (o *Orchestrator) notifyLocked() {
	if o.observer != nil {
		o.observer(o.state)
	}
}

// Wait blocks until no fetch is in flight.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.inflight > 0 {
		o.idle.Wait()
	}
}

// SetAutoRefresh starts or stops the recurring fetch of q. Enabling replaces
// any running timer. Once a disabling call returns no further tick starts a
// fetch; a fetch started by an earlier tick still completes normally.
func (o *Orchestrator) SetAutoRefresh(enabled bool, interval time.Duration, q model.Query) error {
	if enabled && interval <= 0 {
		return model.ErrInvalidInterval
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopRefreshLocked()
	if !enabled || o.closed {
		o.logger.Debug("auto refresh disabled")
		return nil
	}

	stop := make(chan struct{})
	o.stopRefresh = stop
	go o.refreshLoop(o.refreshGen, stop, interval, q)

	o.logger.Debug("auto refresh enabled", "interval", interval, "query", query.Serialize(q))
	return nil
}

// stopRefreshLocked invalidates the running timer. Caller holds o.mu.
func (o *Orchestrator) stopRefreshLocked() {
	o.refreshGen++
	if o.stopRefresh != nil {
		close(o.stopRefresh)
		o.stopRefresh = nil
	}
}

func (o *Orchestrator) refreshLoop(gen uint64, stop <-chan struct{}, interval time.Duration, q model.Query) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !o.tick(gen, q) {
				return
			}
		}
	}
}

// tick starts a fetch if gen is still the current timer generation.
func (o *Orchestrator) tick(gen uint64, q model.Query) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.refreshGen || o.closed {
		return false
	}
	seq := o.beginLocked()
	go o.run(seq, q)
	return true
}

// Dismiss clears a displayed error. The cached result and the query are not
// touched.
func (o *Orchestrator) Dismiss() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state.ErrorMessage == "" {
		return
	}
	o.state.ErrorMessage = ""
	if o.state.Status == model.StatusError {
		o.settleLocked()
		return
	}
	o.notifyLocked()
}

// ExportSnapshot fetches q independently of the displayed state and returns
// the result as an indented JSON bundle. When the source kept the response
// body, the bundle is that body re-indented, so fields the result type does
// not model survive.
func (o *Orchestrator) ExportSnapshot(ctx context.Context, q model.Query) (*model.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	result, err := o.source.Fetch(ctx, q)
	if err != nil {
		o.logger.Warn("snapshot fetch failed", "error", err)
		return nil, err
	}
	if result == nil {
		return nil, model.ErrNoResult
	}

	data, err := encodeBundle(result)
	if err != nil {
		return nil, &model.SerializationError{Err: err}
	}

	now := o.now()
	return &model.Snapshot{
		Name:      model.SnapshotName(q.Location(), now),
		Filename:  model.SnapshotFilename(q.Location(), now),
		Geo:       q.Location(),
		Language:  q.Language(),
		Query:     query.Serialize(q),
		FetchedAt: now,
		Result:    result,
		Data:      data,
	}, nil
}

func encodeBundle(result *model.TrendsResult) ([]byte, error) {
	if len(result.Raw) == 0 {
		return json.MarshalIndent(result, "", "  ")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result.Raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close stops auto refresh, cancels in-flight fetches and waits for them.
// Results arriving after Close are dropped; a state left in loading falls
// back to success or idle.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.stopRefreshLocked()
	o.mu.Unlock()

	o.cancel()
	o.Wait()
}
