package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// GateClosure is a market's daily gate-closure time-of-day, kept as a cron
// schedule so the next closure instant can be computed in any location.
type GateClosure struct {
	spec     string
	minutes  int
	schedule cron.Schedule
}

// ParseGateClosure parses "HH:MM".
func ParseGateClosure(hhmm string) (*GateClosure, error) {
	mins, err := parseHHMM(hhmm)
	if err != nil {
		return nil, err
	}
	spec := fmt.Sprintf("%d %d * * *", mins%60, mins/60)
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("gate closure %q: %w", hhmm, err)
	}
	return &GateClosure{spec: spec, minutes: mins, schedule: sched}, nil
}

func (g *GateClosure) String() string {
	return fmt.Sprintf("%02d:%02d", g.minutes/60, g.minutes%60)
}

// Minutes is the closure time as minutes after midnight.
func (g *GateClosure) Minutes() int { return g.minutes }

// Next returns the first closure instant at or after t, in t's location.
func (g *GateClosure) Next(t time.Time) time.Time {
	return g.schedule.Next(t.Add(-time.Second))
}

// OpenToday reports whether today's closure (in t's location) has not passed yet.
func (g *GateClosure) OpenToday(t time.Time) bool {
	return sameDate(g.Next(t), t)
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	var h, m int
	if _, err := fmt.Sscanf(parts[0], "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &m); err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// dateBefore reports whether a's calendar date is earlier than b's, both
// read in a's location.
func dateBefore(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
