package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
	"github.com/haneul-dev/addrsearch/internal/search/classify"
)

// State is the controller's position in the search lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateDebouncing State = "debouncing"
	StateInFlight   State = "inFlight"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Options configures a Controller. All fields are optional.
type Options struct {
	// Enabled gates all dispatching; a disabled controller settles to Idle.
	// Defaults to true.
	Enabled *bool

	// Size is the requested result count per search. Defaults to 10.
	Size int

	// Mode selects the provider index. Defaults to ModeAddress.
	Mode domain.SearchMode

	// OnSuccess is invoked with the final result set of the most recent
	// dispatch. Never invoked for superseded dispatches.
	OnSuccess func([]domain.AddressResult)

	// OnError is invoked with classified failures. Cancellations are
	// suppressed; they reach the state machine but not this callback.
	OnError func(*classify.SearchError)
}

// Snapshot is the externally visible controller state.
type Snapshot struct {
	State   State
	Query   string
	Results []domain.AddressResult
	Err     *classify.SearchError
}

// Controller is the debounced search state machine:
//
//	Idle -> Debouncing -> InFlight -> Succeeded | Failed | Cancelled
//
// At most one dispatch is logically current; a new query cancels the pending
// timer and the in-flight context of the previous one, so out-of-order
// completions can never overwrite newer state.
type Controller struct {
	pipeline *Pipeline
	opts     Options
	enabled  bool

	mu      sync.Mutex
	state   State
	query   string
	results []domain.AddressResult
	err     *classify.SearchError
	timer   *time.Timer
	cancel  context.CancelFunc
	gen     uint64
}

// NewController creates a controller over a pipeline. The pipeline should be
// built with SingleFlight on and a dedicated proxy client.
func NewController(p *Pipeline, opts Options) *Controller {
	if opts.Size <= 0 {
		opts.Size = maxResults
	}
	if opts.Mode == "" {
		opts.Mode = domain.ModeAddress
	}
	enabled := true
	if opts.Enabled != nil {
		enabled = *opts.Enabled
	}
	return &Controller{
		pipeline: p,
		opts:     opts,
		enabled:  enabled,
		state:    StateIdle,
	}
}

// SetQuery feeds a raw input change into the controller. The trimmed query is
// dispatched after the adaptive debounce delay, raised to the stored
// debounceDelayMs setting when the user configured a slower one; queries
// shorter than 2 runes settle to Idle with empty results and no network
// activity.
func (c *Controller) SetQuery(input string) {
	trimmed := strings.TrimSpace(input)

	c.mu.Lock()
	c.supersedeLocked()
	c.query = trimmed

	if !c.enabled || runeLen(trimmed) < minQueryRunes {
		c.state = StateIdle
		c.results = nil
		c.err = nil
		c.mu.Unlock()
		return
	}

	c.state = StateDebouncing
	gen := c.gen
	delay := debounceDelay(trimmed, c.enabled)
	if floor := c.delayFloor(); floor > delay {
		delay = floor
	}
	c.timer = time.AfterFunc(delay, func() {
		c.dispatch(gen, trimmed)
	})
	c.mu.Unlock()
}

// delayFloor reads the user-configured debounce delay. The setting can only
// slow the adaptive schedule down, never make a tier faster.
func (c *Controller) delayFloor() time.Duration {
	if c.pipeline == nil || c.pipeline.store == nil {
		return 0
	}
	s := c.pipeline.store.Settings(context.Background())
	return time.Duration(s.DebounceDelayMs) * time.Millisecond
}

// supersedeLocked invalidates the current dispatch: stops a pending timer,
// cancels an in-flight context, and bumps the generation so late completions
// are dropped.
func (c *Controller) supersedeLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) dispatch(gen uint64, query string) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = StateInFlight
	c.mu.Unlock()

	out, err := c.pipeline.Run(ctx, query, c.opts.Size, c.opts.Mode)

	c.mu.Lock()
	if c.gen != gen {
		// Superseded while in flight; only the newest dispatch surfaces.
		c.mu.Unlock()
		return
	}
	c.cancel = nil

	var results []domain.AddressResult
	var serr *classify.SearchError
	if err != nil {
		serr = classify.Classify(err)
		if serr.Kind == classify.KindCancelled {
			c.state = StateCancelled
		} else {
			c.state = StateFailed
		}
		c.err = serr
		c.results = nil
	} else {
		c.state = StateSucceeded
		c.results = out.Results
		c.err = nil
		results = out.Results
	}
	c.mu.Unlock()

	if serr != nil {
		if serr.Kind != classify.KindCancelled && c.opts.OnError != nil {
			c.opts.OnError(serr)
		}
		return
	}
	if c.opts.OnSuccess != nil {
		c.opts.OnSuccess(results)
	}
}

// Snapshot returns the current state for subscribers.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:   c.state,
		Query:   c.query,
		Results: c.results,
		Err:     c.err,
	}
}

// Stop cancels any pending or in-flight dispatch and settles to Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked()
	c.state = StateIdle
}
