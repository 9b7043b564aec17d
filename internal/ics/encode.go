package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"swintt/internal/id"
)

const (
	ProductID = "-//Swinburne Timetable//ICS Generator//EN"
	uidDomain = "swinburne-timetable"

	// reminderTrigger fires the display alarm 15 minutes before each class.
	reminderTrigger = "-PT15M"
)

// Builder accumulates events into a VCALENDAR document. It is append-only
// and not safe for concurrent use.
type Builder struct {
	cal    *ical.Calendar
	events int
	now    func() time.Time
	newUID func() (string, error)
}

// Option customizes a Builder.
type Option func(*Builder)

// WithClock sets the source of DTSTAMP values.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithUIDFunc replaces the UID generator.
func WithUIDFunc(f func() (string, error)) Option {
	return func(b *Builder) { b.newUID = f }
}

func NewBuilder(opts ...Option) *Builder {
	cal := ical.NewCalendar()
	cal.SetProductId(ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)

	b := &Builder{
		cal: cal,
		now: time.Now,
		newUID: func() (string, error) {
			return id.NewUID(uidDomain)
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddEvent appends one VEVENT. description, location and rrule are
// optional; rrule is the value part only ("FREQ=WEEKLY;UNTIL=...").
// Every event carries a display reminder 15 minutes before start.
func (b *Builder) AddEvent(title, description, location string, start, end time.Time, rrule string) error {
	uid, err := b.newUID()
	if err != nil {
		return err
	}

	ev := b.cal.AddEvent(uid)
	ev.SetDtStampTime(b.now().UTC())
	ev.SetStartAt(start.UTC())
	ev.SetEndAt(end.UTC())
	ev.SetProperty(ical.ComponentPropertySummary, normalizeText(title))
	if description != "" {
		ev.SetProperty(ical.ComponentPropertyDescription, normalizeText(description))
	}
	if location != "" {
		ev.SetProperty(ical.ComponentPropertyLocation, normalizeText(location))
	}
	if rrule != "" {
		ev.AddRrule(rrule)
	}

	alarm := ev.AddAlarm()
	alarm.SetAction(ical.ActionDisplay)
	alarm.SetTrigger(reminderTrigger)
	alarm.SetProperty(ical.ComponentPropertyDescription, "Reminder")

	b.events++
	return nil
}

// Build serializes the calendar. ok is false, and the document nil, when no
// event was added: an empty calendar is never produced.
func (b *Builder) Build() (doc []byte, ok bool) {
	if b.events == 0 {
		return nil, false
	}
	return []byte(b.cal.Serialize()), true
}

// newlines maps CRLF and lone CR to LF. golang-ical escapes TEXT values
// on serialization but only knows about LF.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeText(s string) string {
	return newlines.Replace(s)
}
