package domain

import (
	"strconv"
	"time"
)

// CommandKind identifies the operation a Command performs.
type CommandKind string

const (
	KindTap      CommandKind = "tap"
	KindSwipe    CommandKind = "swipe"
	KindDrag     CommandKind = "drag"
	KindQuery    CommandKind = "shell-query"
	KindAppStart CommandKind = "app-start"
	KindAppStop  CommandKind = "app-stop"
)

// Default gesture durations.
const (
	DefaultSwipeDuration = 200 * time.Millisecond
	DefaultDragDuration  = 1000 * time.Millisecond
)

// Command is an operation request against the device.
// Fields are unexported so a Command cannot change after construction.
type Command struct {
	kind     CommandKind
	from     Point
	to       Point
	pkg      string
	activity string
	argv     []string
	duration time.Duration
}

// Tap builds a single touch at p.
func Tap(p Point) Command {
	return Command{kind: KindTap, from: p, to: p}
}

// Swipe builds a gesture from p1 to p2 lasting d.
func Swipe(p1, p2 Point, d time.Duration) Command {
	if d <= 0 {
		d = DefaultSwipeDuration
	}
	return Command{kind: KindSwipe, from: p1, to: p2, duration: d}
}

// Drag is a slow swipe: the touch is held long enough for the game to pick items up.
func Drag(p1, p2 Point, d time.Duration) Command {
	if d <= 0 {
		d = DefaultDragDuration
	}
	return Command{kind: KindDrag, from: p1, to: p2, duration: d}
}

// AppStart launches pkg, optionally at a specific activity.
func AppStart(pkg, activity string) Command {
	return Command{kind: KindAppStart, pkg: pkg, activity: activity}
}

// AppStop force-stops pkg.
func AppStop(pkg string) Command {
	return Command{kind: KindAppStop, pkg: pkg}
}

// Query wraps an opaque shell command whose output is read by the caller.
func Query(argv ...string) Command {
	return Command{kind: KindQuery, argv: append([]string(nil), argv...)}
}

func (c Command) Kind() CommandKind       { return c.kind }
func (c Command) From() Point             { return c.from }
func (c Command) To() Point               { return c.to }
func (c Command) Package() string         { return c.pkg }
func (c Command) Activity() string        { return c.activity }
func (c Command) Duration() time.Duration { return c.duration }

// Args renders the command as an Android shell argv.
func (c Command) Args() []string {
	switch c.kind {
	case KindTap:
		return []string{"input", "tap", itoa(c.from.X), itoa(c.from.Y)}
	case KindSwipe, KindDrag:
		return []string{"input", "swipe",
			itoa(c.from.X), itoa(c.from.Y), itoa(c.to.X), itoa(c.to.Y),
			itoa(int(c.duration / time.Millisecond))}
	case KindAppStart:
		if c.activity == "" {
			return []string{"monkey", "-p", c.pkg, "-c", "android.intent.category.LAUNCHER", "1"}
		}
		return []string{"am", "start", "-n", c.pkg + "/" + c.activity}
	case KindAppStop:
		return []string{"am", "force-stop", c.pkg}
	case KindQuery:
		return append([]string(nil), c.argv...)
	}
	return nil
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
