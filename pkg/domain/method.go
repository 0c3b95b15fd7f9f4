package domain

// ControlMethod selects the input backend used by a session.
type ControlMethod string

const (
	// MethodMinitouch injects touches directly through the minitouch socket.
	MethodMinitouch ControlMethod = "minitouch"
	// MethodADB issues "input" shell commands.
	MethodADB ControlMethod = "ADB"
)

// Known reports whether m names a built-in backend.
func (m ControlMethod) Known() bool {
	return m == MethodMinitouch || m == MethodADB
}
