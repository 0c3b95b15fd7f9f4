package minitouch

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/nkas/pkg/domain"
)

// Banner is the header minitouch writes on every new connection.
type Banner struct {
	Version     int
	MaxContacts int
	MaxX        int
	MaxY        int
	MaxPressure int
	PID         int
}

// readBanner consumes header lines up to and including the "$ pid" line.
func readBanner(r *bufio.Reader) (Banner, error) {
	var b Banner
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return b, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch line[0] {
		case 'v':
			if _, err := fmt.Sscanf(line, "v %d", &b.Version); err != nil {
				return b, fmt.Errorf("version line %q: %w", line, err)
			}
		case '^':
			if _, err := fmt.Sscanf(line, "^ %d %d %d %d", &b.MaxContacts, &b.MaxX, &b.MaxY, &b.MaxPressure); err != nil {
				return b, fmt.Errorf("limits line %q: %w", line, err)
			}
		case '$':
			if _, err := fmt.Sscanf(line, "$ %d", &b.PID); err != nil {
				return b, fmt.Errorf("pid line %q: %w", line, err)
			}
			return b, nil
		}
	}
}

// script accumulates minitouch commands and the time they take on the device.
type script struct {
	sb       strings.Builder
	pressure int
	delay    time.Duration
}

func (s *script) down(p domain.Point) *script {
	fmt.Fprintf(&s.sb, "d 0 %d %d %d\n", p.X, p.Y, s.pressure)
	return s
}

func (s *script) move(p domain.Point) *script {
	fmt.Fprintf(&s.sb, "m 0 %d %d %d\n", p.X, p.Y, s.pressure)
	return s
}

func (s *script) up() *script {
	s.sb.WriteString("u 0\n")
	return s
}

func (s *script) commit() *script {
	s.sb.WriteString("c\n")
	return s
}

func (s *script) wait(d time.Duration) *script {
	ms := int(d / time.Millisecond)
	if ms <= 0 {
		return s
	}
	fmt.Fprintf(&s.sb, "w %d\n", ms)
	s.delay += d
	return s
}

func (s *script) String() string {
	return s.sb.String()
}

// interpolate returns the points strictly after from up to and including to,
// one per step.
func interpolate(from, to domain.Point, steps int) []domain.Point {
	if steps < 1 {
		steps = 1
	}
	pts := make([]domain.Point, 0, steps)
	for i := 1; i <= steps; i++ {
		pts = append(pts, domain.Point{
			X: from.X + (to.X-from.X)*i/steps,
			Y: from.Y + (to.Y-from.Y)*i/steps,
		})
	}
	return pts
}
