package retry

import "github.com/aretw0/nkas/pkg/domain"

// Hooks observe the policy. Every field is optional.
type Hooks struct {
	OnAttemptFailed func(op string, class domain.FailureClass, attempt int)
	OnReconnect     func(op string)
	OnTakeover      func(op string, class domain.FailureClass)
	OnSuccess       func(op string, attempts int)
}

func (h Hooks) attemptFailed(op string, class domain.FailureClass, attempt int) {
	if h.OnAttemptFailed != nil {
		h.OnAttemptFailed(op, class, attempt)
	}
}

func (h Hooks) reconnect(op string) {
	if h.OnReconnect != nil {
		h.OnReconnect(op)
	}
}

func (h Hooks) takeover(op string, class domain.FailureClass) {
	if h.OnTakeover != nil {
		h.OnTakeover(op, class)
	}
}

func (h Hooks) success(op string, attempts int) {
	if h.OnSuccess != nil {
		h.OnSuccess(op, attempts)
	}
}
