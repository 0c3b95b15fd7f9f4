package poll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/nkas/pkg/clock"
	"golang.org/x/time/rate"
)

// DefaultClickInterval is the minimum gap between two gated actions. The game does not react
// faster than this.
const DefaultClickInterval = 300 * time.Millisecond

// DefaultPollInterval is the wait between two observations.
const DefaultPollInterval = 100 * time.Millisecond

var (
	// ErrUnbounded is returned by loops that have no way to end besides the context.
	ErrUnbounded = errors.New("poll loop has no exit condition")
	// ErrNoObserver is returned when Observe is nil.
	ErrNoObserver = errors.New("poll loop has no observer")
)

// State is the state of a loop.
type State int

const (
	Polling State = iota
	// Settling means the terminal predicate holds but the confirm timer has not elapsed.
	Settling
	Done
	Escalated
)

func (s State) String() string {
	switch s {
	case Polling:
		return "polling"
	case Settling:
		return "settling"
	case Done:
		return "done"
	case Escalated:
		return "escalated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Reason tells why a loop ended.
type Reason string

const (
	ReasonConfirmed Reason = "confirmed"
	ReasonBudget    Reason = "budget"
	ReasonTimeout   Reason = "timeout"
	ReasonExit      Reason = "exit"
	ReasonEscalated Reason = "escalated"
)

// TimeoutMode selects the confirm-timer based timeout.
type TimeoutMode int

const (
	// TimeoutNone never ends the loop on the confirm timer alone.
	TimeoutNone TimeoutMode = iota
	// TimeoutAlways ends the loop once the confirm timer elapses, even with zero actions.
	TimeoutAlways
	// TimeoutAfterAction ends the loop once the confirm timer elapses after at least one action.
	TimeoutAfterAction
)

// Transition is a guarded reaction: when When matches and the limiters allow it, Action fires.
type Transition[T any] struct {
	Name string
	When func(obs T) bool
	// Interval is the transition's own minimum gap between firings. Zero disables it.
	Interval time.Duration
	// Budget caps the number of firings; reaching it ends the loop. Zero is unlimited.
	Budget int
	// Ungated transitions ignore the loop's click interval.
	Ungated bool
	Action  func(ctx context.Context, obs T) error
}

// Loop is a polling state machine over observations of type T. A Loop holds configuration
// only and may be run any number of times.
type Loop[T any] struct {
	Name        string
	Observe     func(ctx context.Context) (T, error)
	Transitions []Transition[T]

	// Terminal is the condition that, held until the confirm timer elapses, ends the loop.
	Terminal func(obs T) bool
	// Exit ends the loop immediately when it matches.
	Exit func(obs T) bool
	// Escalate ends the loop with the returned error when it is non-nil.
	Escalate func(obs T) error

	Confirm       time.Duration
	ConfirmCount  int
	ClickInterval time.Duration
	PollInterval  time.Duration
	Timeout       TimeoutMode

	Clock  clock.Clock
	Logger *slog.Logger
}

// Result summarizes a finished or interrupted run.
type Result struct {
	State      State
	Reason     Reason
	Iterations int
	// Actions counts firings per transition name.
	Actions map[string]int
	Elapsed time.Duration
}

// Total returns the number of actions fired.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Actions {
		n += c
	}
	return n
}

// Run observes, then polls until the loop ends or ctx is done.
func (l Loop[T]) Run(ctx context.Context) (Result, error) {
	return l.run(ctx, nil)
}

// RunFrom uses obs as the first observation instead of capturing a new one.
func (l Loop[T]) RunFrom(ctx context.Context, obs T) (Result, error) {
	return l.run(ctx, &obs)
}

type guard[T any] struct {
	Transition[T]
	limiter *rate.Limiter
}

func (l Loop[T]) run(ctx context.Context, first *T) (Result, error) {
	if l.Observe == nil {
		return Result{}, ErrNoObserver
	}
	if !l.bounded() {
		return Result{}, fmt.Errorf("%w: %s", ErrUnbounded, l.Name)
	}

	c := l.Clock
	if c == nil {
		c = clock.System
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("loop", l.Name)
	clickInterval := l.ClickInterval
	if clickInterval == 0 {
		clickInterval = DefaultClickInterval
	}
	pollInterval := l.PollInterval
	if pollInterval == 0 {
		pollInterval = DefaultPollInterval
	}

	guards := make([]guard[T], len(l.Transitions))
	for i, tr := range l.Transitions {
		guards[i] = guard[T]{Transition: tr}
		if tr.Interval > 0 {
			guards[i].limiter = rate.NewLimiter(rate.Every(tr.Interval), 1)
		}
	}

	click := NewTimer(clickInterval, 0, c)
	confirm := NewTimer(l.Confirm, l.ConfirmCount, c).Start()
	started := c.Now()
	res := Result{State: Polling, Actions: make(map[string]int)}
	total := 0
	settling := false

	finish := func(state State, reason Reason) Result {
		res.State = state
		res.Reason = reason
		res.Elapsed = c.Now().Sub(started)
		logger.Info("poll loop finished", "state", state.String(), "reason", string(reason),
			"iterations", res.Iterations, "actions", total, "elapsed", res.Elapsed)
		return res
	}

	for {
		if err := ctx.Err(); err != nil {
			res.Elapsed = c.Now().Sub(started)
			return res, err
		}

		var obs T
		if first != nil {
			obs, first = *first, nil
		} else {
			var err error
			if obs, err = l.Observe(ctx); err != nil {
				res.Elapsed = c.Now().Sub(started)
				return res, err
			}
		}
		res.Iterations++

		// Evaluated once per iteration so the timer's check count advances once.
		clickReady := click.Reached()

		fired := false
		for i := range guards {
			g := &guards[i]
			if !g.Ungated && !clickReady {
				continue
			}
			if g.When == nil || !g.When(obs) {
				continue
			}
			if g.limiter != nil && !g.limiter.AllowN(c.Now(), 1) {
				continue
			}

			res.Actions[g.Name]++
			total++
			logger.Info("transition fired", "transition", g.Name, "count", res.Actions[g.Name], "budget", g.Budget)
			if g.Action != nil {
				if err := g.Action(ctx, obs); err != nil {
					res.Elapsed = c.Now().Sub(started)
					return res, err
				}
			}
			click.Reset()
			confirm.Reset()
			settling = false
			if g.Budget > 0 && res.Actions[g.Name] >= g.Budget {
				logger.Info("transition budget reached", "transition", g.Name)
				return finish(Done, ReasonBudget), nil
			}
			fired = true
			break
		}

		if !fired {
			if l.Escalate != nil {
				if err := l.Escalate(obs); err != nil {
					finish(Escalated, ReasonEscalated)
					return res, err
				}
			}
			if l.Exit != nil && l.Exit(obs) {
				return finish(Done, ReasonExit), nil
			}

			terminal := l.Terminal != nil && l.Terminal(obs)
			// The terminal condition must hold without a gap for the whole confirm window.
			if terminal && !settling {
				confirm.Reset()
			}
			settling = terminal
			timeout := l.Timeout == TimeoutAlways || (l.Timeout == TimeoutAfterAction && total > 0)
			res.State = Polling
			if terminal || timeout {
				reached := confirm.Reached()
				switch {
				case terminal && reached:
					return finish(Done, ReasonConfirmed), nil
				case timeout && reached:
					return finish(Done, ReasonTimeout), nil
				case terminal:
					res.State = Settling
				}
			}
		} else {
			res.State = Polling
		}

		if err := c.Sleep(ctx, pollInterval); err != nil {
			res.Elapsed = c.Now().Sub(started)
			return res, err
		}
	}
}

// bounded reports whether the loop has an exit other than the context.
func (l Loop[T]) bounded() bool {
	if l.Terminal != nil || l.Exit != nil || l.Escalate != nil || l.Timeout == TimeoutAlways {
		return true
	}
	if l.Timeout == TimeoutAfterAction && len(l.Transitions) > 0 {
		return true
	}
	for _, tr := range l.Transitions {
		if tr.Budget > 0 {
			return true
		}
	}
	return false
}
