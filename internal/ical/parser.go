// Package ical parses iCal/ICS feed text into normalized events.
//
// The parser is deliberately minimal: OTA feeds (Airbnb, Booking.com, VRBO)
// ship flat VEVENT lists without recurrence, so there is no RRULE expansion,
// no VTIMEZONE handling and no parameter interpretation. Malformed events
// are skipped rather than failing the whole feed.
package ical

import (
	"strings"
	"time"
)

// DefaultTitle is used when a VEVENT carries no SUMMARY.
const DefaultTitle = "(No title)"

// Event is a single normalized calendar event. Start and End are always
// UTC instants.
type Event struct {
	UID         *string
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Location    *string
	Description *string
	Status      *string
}

// Parse extracts events from raw iCal text. Events appear in document
// order. A VEVENT block missing DTSTART or DTEND, or whose date values do
// not parse, is dropped; sibling blocks are unaffected. Parse never fails.
func Parse(text string) []Event {
	lines := unfold(splitLines(text))

	var events []Event
	var props map[string]string
	inEvent := false

	for _, line := range lines {
		switch {
		case line == "BEGIN:VEVENT":
			inEvent = true
			props = make(map[string]string)

		case line == "END:VEVENT":
			if inEvent {
				if ev, ok := buildEvent(props); ok {
					events = append(events, ev)
				}
			}
			inEvent = false
			props = nil

		case inEvent:
			colon := strings.Index(line, ":")
			if colon < 0 {
				continue
			}
			key := line[:colon]
			// Parameters such as ;TZID=... are discarded, not interpreted.
			if semi := strings.Index(key, ";"); semi >= 0 {
				key = key[:semi]
			}
			// Last write wins for repeated keys within a block.
			props[key] = line[colon+1:]
		}
	}

	return events
}

// splitLines breaks text into physical lines with trailing CR/LF removed.
// Leading whitespace is preserved so folding markers survive.
func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines
}

// unfold reconstructs logical lines: a physical line starting with a space
// or tab continues the previous logical line with exactly one leading
// whitespace character stripped (RFC 5545 §3.1).
func unfold(lines []string) []string {
	unfolded := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if len(unfolded) > 0 {
				unfolded[len(unfolded)-1] += line[1:]
			}
			continue
		}
		unfolded = append(unfolded, line)
	}
	return unfolded
}

// buildEvent assembles an Event from a block's property map. It reports
// false when the block must be dropped.
func buildEvent(props map[string]string) (Event, bool) {
	startVal := props["DTSTART"]
	endVal := props["DTEND"]
	if startVal == "" || endVal == "" {
		return Event{}, false
	}

	start, err := parseDateTime(startVal)
	if err != nil {
		return Event{}, false
	}
	end, err := parseDateTime(endVal)
	if err != nil {
		return Event{}, false
	}

	// All-day is decided by the DTSTART shape alone; the DTEND shape is
	// not re-checked.
	allDay := len(startVal) == 8 && !strings.Contains(startVal, "T")

	title := props["SUMMARY"]
	if title == "" {
		title = DefaultTitle
	}

	return Event{
		UID:         optional(props, "UID"),
		Title:       title,
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Location:    optional(props, "LOCATION"),
		Description: optional(props, "DESCRIPTION"),
		Status:      optional(props, "STATUS"),
	}, true
}

// parseDateTime converts an iCal date or date-time value to a UTC instant.
//
// Values without a trailing Z carry no zone information; they are treated
// as if they were already UTC. Feeds using local-time conventions will
// therefore display shifted times. This matches the upstream aggregation
// behavior and is intentional, not a bug to fix here.
func parseDateTime(value string) (time.Time, error) {
	switch {
	case strings.HasSuffix(value, "Z"):
		return time.Parse("20060102T150405Z", value)
	case strings.Contains(value, "T"):
		return time.Parse("20060102T150405", value)
	default:
		return time.Parse("20060102", value)
	}
}

func optional(props map[string]string, key string) *string {
	if v, ok := props[key]; ok {
		return &v
	}
	return nil
}
