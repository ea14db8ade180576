// Package sla implements the SLA compliance core: business-calendar
// arithmetic, policy resolution, deadline calculation, compliance state
// transitions, and breach-risk scoring. Everything here is pure in-memory
// computation; persistence and event wiring live in the service layer.
package sla

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// maxProjectionDays bounds the forward day-walk when projecting deadlines.
// A policy whose calendar never accumulates the requested budget within this
// horizon (for example an empty business-days set) yields no deadline.
const maxProjectionDays = 3700

// ParseClock parses a "HH:MM" local time-of-day string. Policy validation
// rejects malformed values at save time.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time-of-day %q", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}

func clockOrZero(value string) (int, int) {
	hour, minute, err := ParseClock(value)
	if err != nil {
		return 0, 0
	}
	return hour, minute
}

// businessWindow returns the policy's business-hours window for the calendar
// day containing day (which must be midnight in the policy location).
func businessWindow(day time.Time, p *domain.SLAPolicy, loc *time.Location) (time.Time, time.Time) {
	sh, sm := clockOrZero(p.BusinessHoursStart)
	eh, em := clockOrZero(p.BusinessHoursEnd)
	y, m, d := day.Date()
	return time.Date(y, m, d, sh, sm, 0, 0, loc), time.Date(y, m, d, eh, em, 0, 0, loc)
}

// EffectiveHoursBetween converts the calendar interval [start, end] into
// elapsed effective hours under the policy's availability rules. For 24x7
// policies this is raw wall-clock hours; otherwise only time inside the
// business-hours window on business days counts. The result is never
// negative and is 0 whenever start >= end.
func EffectiveHoursBetween(start, end time.Time, p *domain.SLAPolicy) float64 {
	if !end.After(start) {
		return 0
	}
	if p.Is24x7 {
		return end.Sub(start).Hours()
	}

	loc := p.Location()
	start = start.In(loc)
	end = end.In(loc)

	total := 0.0
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	for ; day.Before(end); day = day.AddDate(0, 0, 1) {
		if !p.WorksOn(day.Weekday()) {
			continue
		}
		winStart, winEnd := businessWindow(day, p, loc)
		if !winEnd.After(winStart) {
			continue
		}
		from := winStart
		if start.After(from) {
			from = start
		}
		until := winEnd
		if end.Before(until) {
			until = end
		}
		if until.After(from) {
			total += until.Sub(from).Hours()
		}
	}
	return total
}

// AddEffectiveHours projects a deadline forward from start by consuming the
// given budget of effective hours under the policy's availability rules. It
// returns the instant at which the budget is exhausted and true, or the zero
// time and false when the policy's calendar can never accumulate the budget
// (misconfigured availability, surfaced as a warning at policy save time).
//
// A non-positive budget returns start unchanged: the deadline is already due.
func AddEffectiveHours(start time.Time, hours float64, p *domain.SLAPolicy) (time.Time, bool) {
	if hours <= 0 {
		return start, true
	}
	if p.Is24x7 {
		return start.Add(time.Duration(hours * float64(time.Hour))), true
	}

	loc := p.Location()
	start = start.In(loc)
	remaining := hours

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	for i := 0; i < maxProjectionDays; i++ {
		if p.WorksOn(day.Weekday()) {
			winStart, winEnd := businessWindow(day, p, loc)
			from := winStart
			if start.After(from) {
				from = start
			}
			if winEnd.After(from) {
				available := winEnd.Sub(from).Hours()
				if available >= remaining {
					return from.Add(time.Duration(remaining * float64(time.Hour))), true
				}
				remaining -= available
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, false
}
