package poll_test

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/nkas/internal/testutils"
	"github.com/aretw0/nkas/pkg/poll"
)

// A reward page shows RECEIVE until it has been clicked twice, then returns to the main screen.
func ExampleLoop() {
	clicks := 0
	page := func(context.Context) (screen, error) {
		if clicks < 2 {
			return screen{"receive": true}, nil
		}
		return screen{"main": true}, nil
	}

	loop := poll.Loop[screen]{
		Name:    "receive_reward",
		Observe: page,
		Transitions: []poll.Transition[screen]{{
			Name:   "receive",
			When:   visible("receive"),
			Budget: 3,
			Action: func(context.Context, screen) error {
				clicks++
				return nil
			},
		}},
		Terminal:     visible("main"),
		Confirm:      time.Second,
		ConfirmCount: 3,
		Timeout:      poll.TimeoutAfterAction,
		Clock:        testutils.NewFakeClock(),
	}

	res, err := loop.Run(context.Background())
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(res.State, res.Reason, res.Actions["receive"])
	// Output: done confirmed 2
}
