// Package calendar shapes already-fetched sessions into day/week/month views.
// Bucketing always uses the practice timezone: a session stored near midnight
// UTC can land on a different local day, and the local day is the one the
// therapist sees.
package calendar

import (
	"strings"
	"time"

	"github.com/wellspring-health/practice-scheduler/internal/sessions"
)

// ViewMode selects how wide a calendar view is.
type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

// ParseViewMode maps a wire string onto the view mode set, defaulting to week.
func ParseViewMode(s string) (ViewMode, bool) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewDay:
		return ViewDay, true
	case ViewWeek, ViewMode(""):
		return ViewWeek, true
	case ViewMonth:
		return ViewMonth, true
	default:
		return ViewWeek, false
	}
}

// DayBucket holds one local calendar day of sessions.
type DayBucket struct {
	Date     string             `json:"date"` // "2006-01-02" in the practice timezone
	Sessions []sessions.Session `json:"sessions"`
}

// View is a bucketed calendar range.
type View struct {
	Mode ViewMode    `json:"mode"`
	From time.Time   `json:"from"`
	To   time.Time   `json:"to"`
	Days []DayBucket `json:"days"`
}

// Range expands an anchor instant to the half-open local range the view
// covers: the anchor's day, its Monday-started week, or its month.
func Range(anchor time.Time, mode ViewMode, loc *time.Location) (time.Time, time.Time) {
	local := anchor.In(loc)
	year, month, day := local.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, loc)

	switch mode {
	case ViewDay:
		return midnight, midnight.AddDate(0, 0, 1)
	case ViewMonth:
		first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
		return first, first.AddDate(0, 1, 0)
	default:
		// Week starts Monday.
		offset := (int(midnight.Weekday()) + 6) % 7
		monday := midnight.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 7)
	}
}

// Bucket groups sessions into their local calendar days across [from, to).
// Every day in the range gets a bucket, empty or not, so views render a full
// grid without counting on the data to cover it.
func Bucket(list []sessions.Session, from, to time.Time, loc *time.Location) []DayBucket {
	byDay := make(map[string][]sessions.Session)
	for _, s := range list {
		key := s.ScheduledAt.In(loc).Format("2006-01-02")
		byDay[key] = append(byDay[key], s)
	}

	var days []DayBucket
	fromLocal := from.In(loc)
	start := time.Date(fromLocal.Year(), fromLocal.Month(), fromLocal.Day(), 0, 0, 0, 0, loc)
	for day := start; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		days = append(days, DayBucket{Date: key, Sessions: byDay[key]})
	}
	return days
}

// BuildView is the one-call shape used by the HTTP layer.
func BuildView(list []sessions.Session, anchor time.Time, mode ViewMode, loc *time.Location) View {
	from, to := Range(anchor, mode, loc)
	return View{
		Mode: mode,
		From: from,
		To:   to,
		Days: Bucket(list, from, to, loc),
	}
}
