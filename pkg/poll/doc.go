// Package poll implements the observe, react, decide loop shared by every flow that waits for
// the screen to reach a stable state.
//
// A Loop repeatedly takes an observation and evaluates its guarded transitions in order. The
// first transition whose predicate matches and whose limiters allow it fires its action,
// which resets the loop's click and confirm timers. When nothing fires, the loop ends once the
// terminal predicate has held on every observation for the confirm duration. A single
// observation without it restarts the window.
//
// Within one iteration the exits are evaluated in a fixed priority:
//
//  1. transitions, in order; a transition reaching its budget ends the loop (ReasonBudget)
//  2. Escalate, which ends the loop with its error (state Escalated)
//  3. Exit, which ends the loop at once (ReasonExit)
//  4. Terminal with the confirm timer reached (ReasonConfirmed)
//  5. the Timeout mode with the confirm timer reached (ReasonTimeout)
//
// Example, collecting rewards:
//
//	loop := poll.Loop[*domain.Frame]{
//		Name:    "receive_reward",
//		Observe: dev.Observer(),
//		Transitions: []poll.Transition[*domain.Frame]{
//			{Name: "receive", When: receiveVisible, Budget: 3, Interval: 10 * time.Second, Action: clickReceive},
//		},
//		Terminal:     mainScreen,
//		Confirm:      time.Second,
//		ConfirmCount: 3,
//		Timeout:      poll.TimeoutAfterAction,
//	}
//	res, err := loop.RunFrom(ctx, dev.Image())
package poll
