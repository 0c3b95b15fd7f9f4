package control

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/aretw0/nkas/pkg/domain"
)

// Locator is anything with a click position: a Point, a button asset, a match result.
type Locator interface {
	Location() domain.Point
}

// ParsePoint normalizes coordinates to an integer Point.
// It accepts two scalars (x, y) or one paired value: Point, Locator, [2]int, [2]float64,
// or a slice of at least two numbers. Floats are truncated. Pixels are never negative.
func ParsePoint(v ...any) (domain.Point, error) {
	switch len(v) {
	case 2:
		x, err := toInt(v[0])
		if err != nil {
			return domain.Point{}, err
		}
		y, err := toInt(v[1])
		if err != nil {
			return domain.Point{}, err
		}
		return onScreen(domain.Point{X: x, Y: y})
	case 1:
		p, err := pairOf(v[0])
		if err != nil {
			return domain.Point{}, err
		}
		return onScreen(p)
	}
	return domain.Point{}, fmt.Errorf("%w: expected (x, y) or a pair, got %d values", domain.ErrInvalidCoordinates, len(v))
}

// Locate returns the click position of target. A nil target is invalid.
func Locate(target Locator) (domain.Point, error) {
	if isNil(target) {
		return domain.Point{}, fmt.Errorf("%w: nil target", domain.ErrInvalidCoordinates)
	}
	return onScreen(target.Location())
}

func onScreen(p domain.Point) (domain.Point, error) {
	if p.X < 0 || p.Y < 0 {
		return domain.Point{}, fmt.Errorf("%w: negative pixel %s", domain.ErrInvalidCoordinates, p)
	}
	return p, nil
}

// isNil catches both a nil interface and an interface holding a nil pointer.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func pairOf(v any) (domain.Point, error) {
	switch p := v.(type) {
	case domain.Point:
		return p, nil
	case *domain.Point:
		if p != nil {
			return *p, nil
		}
	case Locator:
		if !isNil(p) {
			return p.Location(), nil
		}
	case [2]int:
		return domain.Point{X: p[0], Y: p[1]}, nil
	case [2]float64:
		return ParsePoint(p[0], p[1])
	case []int:
		if len(p) >= 2 {
			return domain.Point{X: p[0], Y: p[1]}, nil
		}
	case []float64:
		if len(p) >= 2 {
			return ParsePoint(p[0], p[1])
		}
	case []any:
		if len(p) >= 2 {
			return ParsePoint(p[0], p[1])
		}
	}
	return domain.Point{}, fmt.Errorf("%w: %v", domain.ErrInvalidCoordinates, v)
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		if n > math.MaxInt || n < math.MinInt {
			return 0, outOfRange(v)
		}
		return int(n), nil
	case uint:
		if n > math.MaxInt {
			return 0, outOfRange(v)
		}
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, outOfRange(v)
		}
		return int(n), nil
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("%w: %q", domain.ErrInvalidCoordinates, n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %v (%T)", domain.ErrInvalidCoordinates, v, v)
}

func floatToInt(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidCoordinates, f)
	}
	if f >= math.MaxInt || f <= math.MinInt {
		return 0, outOfRange(f)
	}
	return int(f), nil
}

func outOfRange(v any) error {
	return fmt.Errorf("%w: %v out of range", domain.ErrInvalidCoordinates, v)
}
