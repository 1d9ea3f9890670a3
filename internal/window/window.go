// Package window parses the time-window specs that bound the exporter's
// aggregate queries. A spec is an integer followed by a unit: "30d", "24h", "30m".
package window

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned for any spec outside the <digits><d|h|m> grammar.
var ErrInvalidWindow = errors.New("invalid window format")

// Window is a parsed time-window spec. The zero value is not valid; obtain
// windows through Parse.
type Window struct {
	count int
	unit  byte
}

// Parse converts a spec such as "30d" into a Window. The count must be a
// positive integer and the unit one of d (days), h (hours), m (minutes).
func Parse(spec string) (Window, error) {
	if len(spec) < 2 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, spec)
	}

	unit := spec[len(spec)-1]
	switch unit {
	case 'd', 'h', 'm':
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, spec)
	}

	count := 0
	for _, c := range spec[:len(spec)-1] {
		if c < '0' || c > '9' {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, spec)
		}
		count = count*10 + int(c-'0')
		if count > 1<<30 {
			return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, spec)
		}
	}
	if count == 0 {
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidWindow, spec)
	}

	return Window{count: count, unit: unit}, nil
}

// MustParse is Parse for windows known valid at compile time; it panics on error.
func MustParse(spec string) Window {
	w, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return w
}

// Duration returns the window length as a time.Duration.
func (w Window) Duration() time.Duration {
	switch w.unit {
	case 'd':
		return time.Duration(w.count) * 24 * time.Hour
	case 'h':
		return time.Duration(w.count) * time.Hour
	default:
		return time.Duration(w.count) * time.Minute
	}
}

// Interval returns the window as a PostgreSQL interval literal, e.g. "30 days".
func (w Window) Interval() string {
	switch w.unit {
	case 'd':
		return fmt.Sprintf("%d days", w.count)
	case 'h':
		return fmt.Sprintf("%d hours", w.count)
	default:
		return fmt.Sprintf("%d minutes", w.count)
	}
}

// String returns the spec form of the window.
func (w Window) String() string {
	return fmt.Sprintf("%d%c", w.count, w.unit)
}
