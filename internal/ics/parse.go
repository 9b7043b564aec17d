package ics

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "swintt/internal/log"
)

// DecodedEvent is a VEVENT read back from a calendar document.
type DecodedEvent struct {
	UID string

	Summary     string
	Description string
	Location    string

	Start time.Time
	End   time.Time

	RawRRule string
	Until    time.Time // zero when RawRRule is empty or has no UNTIL

	Alarms int
}

// Decode parses an iCalendar document into its events. Text values come
// back unescaped from golang-ical. A VEVENT without UID is logged and
// skipped; the others are still returned.
func Decode(body []byte) ([]DecodedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty document")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	events := make([]DecodedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := decodeVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent decode failed", perr)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeVEvent(ve *ical.VEvent) (DecodedEvent, error) {
	var out DecodedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return out, fmt.Errorf("DTEND: %w", err)
	}
	out.Start = start.UTC()
	out.End = end.UTC()

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RawRRule = p.Value
		r, rerr := rrule.StrToRRule(p.Value)
		if rerr != nil {
			return out, fmt.Errorf("RRULE: %w", rerr)
		}
		out.Until = r.OrigOptions.Until.UTC()
	}

	for _, sub := range ve.Components {
		if _, ok := sub.(*ical.VAlarm); ok {
			out.Alarms++
		}
	}

	return out, nil
}
