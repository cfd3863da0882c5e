package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// DateOptions controls how year-less dates are qualified.
type DateOptions struct {
	// Year qualifies MM-DD dates.
	Year int
	// ForceYear rewrites the year of full dates too.
	ForceYear bool
}

// DateGroup is one calendar date of a page with the set times listed for it,
// in source order.
type DateGroup struct {
	Date     string
	SetTimes []string
}

// DroppedSlot is a raw slot that could not be placed on a date.
type DroppedSlot struct {
	Raw    string
	Reason string
}

// NormalizeDates groups slots by calendar date in first-seen order. Slots
// without a date are dropped; slots without a time still make their date
// exist. Times keep source order, repeats included.
func NormalizeDates(slots []DateSlot, opts DateOptions) ([]DateGroup, []DroppedSlot) {
	var groups []DateGroup
	var dropped []DroppedSlot
	index := make(map[string]int)

	for _, slot := range slots {
		date, err := qualifyDate(slot.Date, opts)
		if err != nil {
			dropped = append(dropped, DroppedSlot{Raw: slot.Date, Reason: err.Error()})
			continue
		}

		i, ok := index[date]
		if !ok {
			i = len(groups)
			index[date] = i
			groups = append(groups, DateGroup{Date: date, SetTimes: []string{}})
		}

		t := strings.TrimSpace(slot.Time)
		if t == "" {
			continue
		}
		groups[i].SetTimes = append(groups[i].SetTimes, t)
	}

	return groups, dropped
}

// qualifyDate turns "MM-DD" or "YYYY-MM-DD" into a validated YYYY-MM-DD.
func qualifyDate(raw string, opts DateOptions) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("missing date")
	}

	parts := strings.Split(raw, "-")
	switch len(parts) {
	case 2:
		if opts.Year <= 0 {
			return "", fmt.Errorf("date %q has no year and no target year is set", raw)
		}
		raw = fmt.Sprintf("%04d-%s", opts.Year, raw)
	case 3:
		if opts.ForceYear && opts.Year > 0 {
			raw = fmt.Sprintf("%04d-%s-%s", opts.Year, parts[1], parts[2])
		}
	default:
		return "", fmt.Errorf("unrecognised date %q", raw)
	}

	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("invalid date %q", raw)
	}
	return d.Format(dateLayout), nil
}

// DateRange returns the smallest and largest non-empty raw dates across pages,
// compared as strings.
func DateRange(pages []EventPage) (earliest, latest string) {
	for _, page := range pages {
		for _, slot := range page.Slots {
			if slot.Date == "" {
				continue
			}
			if earliest == "" || slot.Date < earliest {
				earliest = slot.Date
			}
			if latest == "" || slot.Date > latest {
				latest = slot.Date
			}
		}
	}
	return earliest, latest
}
