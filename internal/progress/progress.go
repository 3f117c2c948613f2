package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Unit describes what Current and Total count.
type Unit int

const (
	// Bytes counts transferred bytes.
	Bytes Unit = iota
	// Microseconds counts media time processed by the remuxer.
	Microseconds
)

// Update is one progress observation.
type Update struct {
	Action  string
	Current int64
	Total   int64
	Unit    Unit
}

// Percent returns completion in [0,100], or -1 when the total is unknown.
func (u Update) Percent() float64 {
	if u.Total <= 0 {
		return -1
	}
	pct := float64(u.Current) / float64(u.Total) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// Reporter receives progress updates from long-running operations.
type Reporter interface {
	Report(Update)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Update)

// Report calls f(u).
func (f ReporterFunc) Report(u Update) { f(u) }

// Nop discards every update.
var Nop Reporter = ReporterFunc(func(Update) {})

// Throttle forwards at most one update per interval. The interval starts when
// the throttle is created so a fast operation never produces an edit.
type Throttle struct {
	mu       sync.Mutex
	next     Reporter
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// NewThrottle wraps next so it sees at most one update per interval.
func NewThrottle(next Reporter, interval time.Duration) *Throttle {
	return newThrottle(next, interval, time.Now)
}

func newThrottle(next Reporter, interval time.Duration, now func() time.Time) *Throttle {
	if next == nil {
		next = Nop
	}
	return &Throttle{next: next, interval: interval, now: now, last: now()}
}

// Report forwards u when the interval has elapsed since the last forwarded update.
func (t *Throttle) Report(u Update) {
	t.mu.Lock()
	now := t.now()
	if now.Sub(t.last) < t.interval {
		t.mu.Unlock()
		return
	}
	t.last = now
	t.mu.Unlock()
	t.next.Report(u)
}

const barWidth = 20

// Bar renders a fixed-width text bar for pct in [0,100].
func Bar(pct float64) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(barWidth * pct / 100)
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
}

// Render formats u as a three-line chat message.
func Render(u Update) string {
	action := strings.TrimSpace(u.Action)
	if action == "" {
		action = "Processing"
	}
	pct := u.Percent()
	if pct < 0 {
		return fmt.Sprintf("%s... %s", action, formatAmount(u.Current, u.Unit))
	}
	return fmt.Sprintf("%s... %.1f%%\n%s\n%s / %s", action, pct, Bar(pct), formatAmount(u.Current, u.Unit), formatAmount(u.Total, u.Unit))
}

func formatAmount(v int64, unit Unit) string {
	if v < 0 {
		v = 0
	}
	switch unit {
	case Microseconds:
		return (time.Duration(v) * time.Microsecond).Truncate(time.Second).String()
	default:
		return humanize.IBytes(uint64(v))
	}
}
