// Package slotwindow turns free-text slot labels such as "8–11 AM" into
// concrete delivery windows.
//
// Suppliers type labels by hand, so the parser accepts the spellings seen in
// practice: en/em dashes or hyphens or "to" between the bounds, optional
// minutes, "AM"/"PM" on either or both sides, and 24-hour times. A label that
// carries surrounding words ("Morning 8-11 AM") is accepted as long as it
// contains exactly one range.
package slotwindow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// Window is a delivery window within a single day, in minutes after midnight.
// End is exclusive and always greater than Start.
type Window struct {
	StartMinute int
	EndMinute   int
}

var rangePattern = regexp.MustCompile(
	`(\d{1,2})(?::([0-5]\d))?\s*(am|pm)?\s*(?:-|to)\s*(\d{1,2})(?::([0-5]\d))?\s*(am|pm)?`,
)

var dashReplacer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"‐", "-", // hyphen
	"−", "-", // minus sign
	".", "",
)

// bound is one side of a range before meridiem resolution.
type bound struct {
	hour, minute int
	meridiem     string // "", "am" or "pm"
}

// Parse extracts the window described by label.
// It returns an error wrapping domain.ErrUnparseableSlot when the label holds
// no range, more than one range, or a range that does not move forward in time.
func Parse(label string) (Window, error) {
	s := dashReplacer.Replace(strings.ToLower(strings.TrimSpace(label)))

	matches := rangePattern.FindAllStringSubmatch(s, -1)
	if len(matches) != 1 {
		return Window{}, unparseable(label)
	}
	m := matches[0]

	left, err := newBound(m[1], m[2], m[3])
	if err != nil {
		return Window{}, unparseable(label)
	}
	right, err := newBound(m[4], m[5], m[6])
	if err != nil {
		return Window{}, unparseable(label)
	}

	start, end, ok := resolve(left, right)
	if !ok || end <= start {
		return Window{}, unparseable(label)
	}
	return Window{StartMinute: start, EndMinute: end}, nil
}

// On places the window on day in loc and returns its start and end instants.
func (w Window) On(day time.Time, loc *time.Location) (start, end time.Time) {
	y, mo, d := day.Date()
	start = time.Date(y, mo, d, w.StartMinute/60, w.StartMinute%60, 0, 0, loc)
	end = time.Date(y, mo, d, w.EndMinute/60, w.EndMinute%60, 0, 0, loc)
	return start, end
}

// String renders the window as "08:00-11:00".
func (w Window) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.StartMinute/60, w.StartMinute%60, w.EndMinute/60, w.EndMinute%60)
}

func newBound(hour, minute, meridiem string) (bound, error) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return bound{}, err
	}
	b := bound{hour: h, meridiem: meridiem}
	if minute != "" {
		if b.minute, err = strconv.Atoi(minute); err != nil {
			return bound{}, err
		}
	}
	return b, nil
}

// resolve converts both bounds to minutes after midnight.
// A side without a meridiem inherits the other side's; when that would put the
// start at or after the end, the start flips to AM ("11–2 PM") or the end
// flips to PM ("10 AM–1").
func resolve(left, right bound) (int, int, bool) {
	switch {
	case left.meridiem == "" && right.meridiem == "":
		start, okStart := clock24(left)
		end, okEnd := clock24(right)
		return start, end, okStart && okEnd

	case left.meridiem == "":
		end, okEnd := clock12(right, right.meridiem)
		if !okEnd {
			return 0, 0, false
		}
		if start, ok := clock12(left, right.meridiem); ok && start < end {
			return start, end, true
		}
		start, ok := clock12(left, "am")
		return start, end, ok

	case right.meridiem == "":
		start, okStart := clock12(left, left.meridiem)
		if !okStart {
			return 0, 0, false
		}
		if end, ok := clock12(right, left.meridiem); ok && start < end {
			return start, end, true
		}
		end, ok := clock12(right, "pm")
		return start, end, ok
	}

	start, okStart := clock12(left, left.meridiem)
	end, okEnd := clock12(right, right.meridiem)
	return start, end, okStart && okEnd
}

func clock12(b bound, meridiem string) (int, bool) {
	if b.hour < 1 || b.hour > 12 {
		return 0, false
	}
	h := b.hour % 12
	if meridiem == "pm" {
		h += 12
	}
	return h*60 + b.minute, true
}

// clock24 accepts 0:00 through 24:00; 24:00 is only meaningful as an end.
func clock24(b bound) (int, bool) {
	if b.hour > 24 || (b.hour == 24 && b.minute != 0) {
		return 0, false
	}
	return b.hour*60 + b.minute, true
}

func unparseable(label string) error {
	return fmt.Errorf("%w: %q", domain.ErrUnparseableSlot, label)
}
