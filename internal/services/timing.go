package services

import (
	"fmt"
	"route-planning-service/internal/domain"
	"strconv"
	"strings"
)

const secondsPerDay = 24 * 60 * 60

// Convert an "HH:MM" or "HH:MM:SS" wall-clock string into seconds since midnight, modulo 24h.
func TimeToSeconds(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("time to seconds: invalid time %q", s)
	}

	limits := []int{-1, 59, 59}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (limits[i] >= 0 && n > limits[i]) {
			return 0, fmt.Errorf("time to seconds: invalid time %q", s)
		}
		vals[i] = n
	}

	return wrapDay(vals[0]*3600 + vals[1]*60 + vals[2]), nil
}

// Format seconds since midnight as "HH:MM:SS", wrapping in both directions at 24h.
func SecondsToTime(sec int) string {
	sec = wrapDay(sec)
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, (sec%3600)/60, sec%60)
}

func wrapDay(sec int) int {
	return ((sec % secondsPerDay) + secondsPerDay) % secondsPerDay
}

// Visit-ordered stops and the oracle legs that connect them.
type TimingInput struct {
	Stops                []*domain.Booking
	LegSeconds           []int
	TotalDurationSeconds int
	// True when the origin is the first stop itself, so there is no approach leg.
	DepartsFromFirstStop bool
	ReturnToStart        bool
}

// Advisory schedule for a route. Empty strings mean the time could not be derived.
type Timing struct {
	PlannedStart string
	PlannedEnd   string
}

// One stop of the per-booking schedule written back after planning.
type StopTime struct {
	BookingID string
	StopOrder int
	StartTime string
	EndTime   string
	Fixed     bool
}

// Derives planned route times from fixed appointment windows and leg durations.
type TimingReconciler struct {
	DefaultServiceMinutes int
	DayStartTime          string
}

// Back-compute the departure from the first fixed appointment and forward-compute the finish.
//
// Planned start is the first stop's fixed start minus the approach leg; no fixed
// start means no planned start. Planned end is the last stop's fixed start plus its
// service time, plus the closing leg only when the route returns to its origin.
// Without a fixed last start the end falls back to start + total route duration.
func (r TimingReconciler) Reconcile(in TimingInput) Timing {
	var out Timing
	if len(in.Stops) == 0 {
		return out
	}

	startSec, hasStart := -1, false
	if first := in.Stops[0]; first.ScheduledStartTime != "" {
		if fixed, err := TimeToSeconds(first.ScheduledStartTime); err == nil {
			startSec = fixed - r.approachLeg(in)
			hasStart = true
			out.PlannedStart = SecondsToTime(startSec)
		}
	}

	last := in.Stops[len(in.Stops)-1]
	if last.ScheduledStartTime != "" {
		if fixed, err := TimeToSeconds(last.ScheduledStartTime); err == nil {
			end := fixed + last.ServiceMinutes(r.DefaultServiceMinutes)*60
			if in.ReturnToStart && len(in.LegSeconds) > 0 {
				end += in.LegSeconds[len(in.LegSeconds)-1]
			}
			out.PlannedEnd = SecondsToTime(end)
			return out
		}
	}

	if hasStart {
		out.PlannedEnd = SecondsToTime(startSec + in.TotalDurationSeconds)
	}
	return out
}

func (r TimingReconciler) approachLeg(in TimingInput) int {
	if in.DepartsFromFirstStop || len(in.LegSeconds) == 0 {
		return 0
	}
	return in.LegSeconds[0]
}

// Travel time into the stop at visit position i.
func (r TimingReconciler) legInto(in TimingInput, i int) int {
	idx := i
	if in.DepartsFromFirstStop {
		if i == 0 {
			return 0
		}
		idx = i - 1
	}
	if idx < len(in.LegSeconds) {
		return in.LegSeconds[idx]
	}
	return 0
}

// Lay out per-stop start/end times.
//
// The clock starts at plannedStart (or the configured day start), advances by each
// leg, and rounds arrivals and finishes up to the next quarter hour. Stops with a
// fixed start keep it and the clock continues from their end.
func (r TimingReconciler) ScheduleStops(in TimingInput, plannedStart string) []StopTime {
	startAt := plannedStart
	if startAt == "" {
		startAt = r.DayStartTime
	}
	cursor, err := TimeToSeconds(startAt)
	if err != nil {
		cursor = 8 * 3600
	}

	out := make([]StopTime, 0, len(in.Stops))
	for i, b := range in.Stops {
		cursor += r.legInto(in, i)

		st := StopTime{BookingID: b.ID, StopOrder: i + 1}
		start := roundUpQuarter(cursor)
		if b.ScheduledStartTime != "" {
			if fixed, err := TimeToSeconds(b.ScheduledStartTime); err == nil {
				start = fixed
				st.Fixed = true
			}
		}
		end := roundUpQuarter(start + b.ServiceMinutes(r.DefaultServiceMinutes)*60)

		st.StartTime = SecondsToTime(start)
		st.EndTime = SecondsToTime(end)
		out = append(out, st)
		cursor = end
	}
	return out
}

func roundUpQuarter(sec int) int {
	const quarter = 15 * 60
	if rem := sec % quarter; rem != 0 {
		return sec + quarter - rem
	}
	return sec
}
