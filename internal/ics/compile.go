package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "swintt/internal/log"
	"swintt/internal/model"
	"swintt/internal/schedule"
)

// Compile turns one (session, fragment) pair into a weekly-recurring event.
//
//   - The first occurrence is on the fragment's start date in year, at the
//     session's start/end clock time (seconds dropped) in loc.
//   - An end month earlier than the start month means the range crosses
//     New Year, so the last date falls in year+1.
//   - Until is 00:00 UTC of the day after the last date, so an occurrence
//     on the last date itself is never cut off.
//
// Both dates must exist in their year (see datesExist); 02/29 is otherwise
// normalized by time.Date to 03/01.
func Compile(s model.Session, frag model.DescriptionFragment, title string, year int, loc *time.Location) model.CompiledEvent {
	if loc == nil {
		loc = time.Local
	}

	day := func(h, m int) time.Time {
		return time.Date(year, frag.Start.Month, frag.Start.Day, h, m, 0, 0, loc)
	}
	start := day(s.Start.Hour(), s.Start.Minute())
	end := day(s.End.Hour(), s.End.Minute())

	until := time.Date(endYear(frag, year), frag.End.Month, frag.End.Day+1, 0, 0, 0, 0, time.UTC)

	return model.CompiledEvent{
		Title:       title,
		Description: s.Description,
		Location:    frag.Location,
		Start:       start,
		End:         end,
		Until:       until,
	}
}

func endYear(frag model.DescriptionFragment, year int) int {
	if frag.End.Month < frag.Start.Month {
		return year + 1
	}
	return year
}

// datesExist reports whether both dates of frag are real calendar dates
// when compiled in year. Only 02/29 outside a leap year fails.
func datesExist(frag model.DescriptionFragment, year int) bool {
	return dateExists(year, frag.Start) && dateExists(endYear(frag, year), frag.End)
}

func dateExists(year int, d model.MonthDay) bool {
	t := time.Date(year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
	return t.Month() == d.Month && t.Day() == d.Day
}

// Rule returns the RRULE value of e, e.g. "FREQ=WEEKLY;UNTIL=20250411T000000Z".
// The weekday is implied by DTSTART.
func Rule(e model.CompiledEvent) string {
	opt := rrule.ROption{Freq: rrule.WEEKLY, Until: e.Until}
	return opt.RRuleString()
}

// Occurrences lists every start time of e up to its Until bound.
func Occurrences(e model.CompiledEvent) ([]time.Time, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: e.Start,
		Until:   e.Until,
	})
	if err != nil {
		return nil, fmt.Errorf("ics: build rule for %q: %w", e.Title, err)
	}
	return r.All(), nil
}

// Compiler compiles sessions for one generation run and keeps the duration
// statistics of everything it produced.
type Compiler struct {
	year int
	loc  *time.Location

	events     int
	totalHours float64
	slots      map[weeklySlot]float64
}

// weeklySlot identifies one recurring class time regardless of how many
// date ranges it is split into.
type weeklySlot struct {
	title   string
	weekday time.Weekday
	start   string
	end     string
}

func NewCompiler(year int, loc *time.Location) *Compiler {
	if loc == nil {
		loc = time.Local
	}
	return &Compiler{
		year:  year,
		loc:   loc,
		slots: make(map[weeklySlot]float64),
	}
}

// CompileSession parses s's description and compiles one event per date
// range fragment. A description without fragments yields no events, and a
// fragment naming 02/29 in a non-leap year is skipped.
func (c *Compiler) CompileSession(s model.Session) []model.CompiledEvent {
	parsed := schedule.ParseDescription(s.Description)
	if len(parsed.Fragments) == 0 {
		appLog.Debug("description has no date ranges", "description", s.Description)
		return nil
	}

	out := make([]model.CompiledEvent, 0, len(parsed.Fragments))
	for _, frag := range parsed.Fragments {
		if !datesExist(frag, c.year) {
			appLog.Warn("date range does not exist in this year; skipped",
				"description", s.Description, "year", c.year,
				"start", fmt.Sprintf("%02d/%02d", frag.Start.Month, frag.Start.Day),
				"end", fmt.Sprintf("%02d/%02d", frag.End.Month, frag.End.Day))
			continue
		}
		ev := Compile(s, frag, parsed.Title, c.year, c.loc)
		c.record(ev)
		out = append(out, ev)
	}
	return out
}

func (c *Compiler) record(ev model.CompiledEvent) {
	h := ev.Hours()
	c.events++
	c.totalHours += h
	key := weeklySlot{
		title:   ev.Title,
		weekday: ev.Start.Weekday(),
		start:   ev.Start.Format("15:04"),
		end:     ev.End.Format("15:04"),
	}
	c.slots[key] = h
}

// Events is the number of events compiled so far.
func (c *Compiler) Events() int {
	return c.events
}

// TotalHours sums end-start over every compiled event. A class split into
// two date ranges counts twice.
func (c *Compiler) TotalHours() float64 {
	return c.totalHours
}

// WeeklyHours sums end-start over distinct weekly slots (same title,
// weekday and clock times), i.e. the hours of a typical teaching week.
func (c *Compiler) WeeklyHours() float64 {
	var total float64
	for _, h := range c.slots {
		total += h
	}
	return total
}
