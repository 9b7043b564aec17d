// Package generate runs the timetable pipeline: selection validation,
// row filtering, description parsing, recurrence compilation and calendar
// encoding.
package generate

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"swintt/internal/ics"
	appLog "swintt/internal/log"
	"swintt/internal/model"
	"swintt/internal/schedule"
	"swintt/internal/source"
)

var (
	// ErrNoCourses is returned when a request names no course at all.
	ErrNoCourses = errors.New("please select at least one course")

	// ErrNothingToExport is returned by Export and WriteFile for a result
	// with no events.
	ErrNothingToExport = errors.New("no events to export; check your course and group selections")
)

// Course is the loaded rows of one selected course.
type Course = source.Course

// Request describes one generation run.
type Request struct {
	Courses []Course

	// Selections maps a course code to its chosen groups. Only
	// IncludedGroups is read; the available groups are always derived from
	// the course's rows.
	Selections map[string]model.GroupSelection

	// Now fixes the year of every compiled event and the DTSTAMP value.
	// Zero means time.Now().
	Now time.Time

	// Location is the zone the rows' wall-clock times are in. Nil means
	// time.Local.
	Location *time.Location

	// FilenamePrefix starts the suggested filename; empty means
	// "swinburne-timetable".
	FilenamePrefix string

	// UID replaces the event UID generator.
	UID func() (string, error)
}

// Result is the outcome of Run.
type Result struct {
	// Document is the encoded calendar; nil when Empty.
	Document []byte
	Empty    bool

	// Classes is the number of rows kept after group filtering and read
	// successfully. Skipped rows are not included.
	Classes int
	// Events is the number of VEVENTs, one per (row, date range).
	Events int
	// Skipped counts kept rows whose timestamps could not be read.
	Skipped int

	TotalHours  float64
	WeeklyHours float64

	Filename string
}

// plan is everything compiled for a request, before encoding.
type plan struct {
	classes  int
	skipped  int
	events   []model.CompiledEvent
	compiler *ics.Compiler
}

// Run validates the selections and builds the calendar. A selection error
// is returned as *schedule.SelectionError. Zero events is not an error:
// the result is marked Empty.
func Run(req Request) (Result, error) {
	p, err := compile(req)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Classes:     p.classes,
		Skipped:     p.skipped,
		Events:      p.compiler.Events(),
		TotalHours:  p.compiler.TotalHours(),
		WeeklyHours: p.compiler.WeeklyHours(),
		Filename:    Filename(req.FilenamePrefix, req.Courses),
	}

	opts := []ics.Option{ics.WithClock(func() time.Time { return now(req) })}
	if req.UID != nil {
		opts = append(opts, ics.WithUIDFunc(req.UID))
	}
	b := ics.NewBuilder(opts...)
	for _, ev := range p.events {
		if err := b.AddEvent(ev.Title, ev.Description, ev.Location, ev.Start, ev.End, ics.Rule(ev)); err != nil {
			return Result{}, fmt.Errorf("generate: encode %q: %w", ev.Title, err)
		}
	}

	doc, ok := b.Build()
	if !ok {
		res.Empty = true
		appLog.Info("nothing to export", "courses", len(req.Courses), "classes", res.Classes)
		return res, nil
	}
	res.Document = doc

	appLog.Info("timetable generated",
		"courses", len(req.Courses),
		"classes", res.Classes,
		"events", res.Events,
		"weekly_hours", res.WeeklyHours,
		"filename", res.Filename,
	)
	return res, nil
}

func compile(req Request) (plan, error) {
	if len(req.Courses) == 0 {
		return plan{}, ErrNoCourses
	}

	codes := make([]string, 0, len(req.Courses))
	selections := make(map[string]model.GroupSelection, len(req.Courses))
	for _, c := range req.Courses {
		codes = append(codes, c.Code)
		selections[c.Code] = model.GroupSelection{
			AvailableGroups: schedule.BuildCatalog(c.Code, c.Rows),
			IncludedGroups:  req.Selections[c.Code].IncludedGroups,
		}
	}
	if err := schedule.ValidateSelections(codes, selections); err != nil {
		return plan{}, err
	}

	loc := req.Location
	if loc == nil {
		loc = time.Local
	}
	p := plan{compiler: ics.NewCompiler(now(req).Year(), loc)}

	for _, c := range req.Courses {
		for _, row := range schedule.FilterRows(c.Code, c.Rows, selections[c.Code]) {
			s, err := row.Validate(loc)
			if err != nil {
				p.skipped++
				appLog.Debug("skipping unreadable row", "course", c.Code, "description", row.EventDescription, "err", err)
				continue
			}
			p.classes++
			p.events = append(p.events, p.compiler.CompileSession(s)...)
		}
	}
	return p, nil
}

// Events compiles req like Run and returns the events unencoded.
func Events(req Request) ([]model.CompiledEvent, error) {
	p, err := compile(req)
	if err != nil {
		return nil, err
	}
	return p.events, nil
}

func now(req Request) time.Time {
	if req.Now.IsZero() {
		return time.Now()
	}
	return req.Now
}

// Slot is one weekly class as shown in the preview.
type Slot struct {
	Title    string
	Location string
	Start    time.Time // first occurrence
	End      time.Time
	Ranges   int // number of date ranges the slot recurs over
	Weeks    int // number of dated occurrences across all ranges
}

// Day holds the slots falling on one weekday, earliest first.
type Day struct {
	Weekday time.Weekday
	Slots   []Slot
}

// Week compiles req like Run but returns the selected classes grouped by
// weekday (Monday first) instead of a calendar document.
func Week(req Request) ([]Day, error) {
	p, err := compile(req)
	if err != nil {
		return nil, err
	}

	type key struct {
		title, location string
		weekday         time.Weekday
		start, end      string
	}
	index := make(map[key]int)
	byDay := make(map[time.Weekday][]Slot)

	for _, ev := range p.events {
		occ, err := ics.Occurrences(ev)
		if err != nil {
			return nil, err
		}
		k := key{
			title:    ev.Title,
			location: ev.Location,
			weekday:  ev.Start.Weekday(),
			start:    ev.Start.Format("15:04"),
			end:      ev.End.Format("15:04"),
		}
		if i, ok := index[k]; ok {
			slot := &byDay[k.weekday][i]
			slot.Ranges++
			slot.Weeks += len(occ)
			if ev.Start.Before(slot.Start) {
				slot.Start, slot.End = ev.Start, ev.End
			}
			continue
		}
		index[k] = len(byDay[k.weekday])
		byDay[k.weekday] = append(byDay[k.weekday], Slot{
			Title:    ev.Title,
			Location: ev.Location,
			Start:    ev.Start,
			End:      ev.End,
			Ranges:   1,
			Weeks:    len(occ),
		})
	}

	days := make([]Day, 0, len(byDay))
	for i := 1; i <= 7; i++ {
		wd := time.Weekday(i % 7)
		slots, ok := byDay[wd]
		if !ok {
			continue
		}
		sort.SliceStable(slots, func(a, b int) bool {
			sa, sb := slots[a].Start.Format("15:04"), slots[b].Start.Format("15:04")
			if sa != sb {
				return sa < sb
			}
			return slots[a].Title < slots[b].Title
		})
		days = append(days, Day{Weekday: wd, Slots: slots})
	}
	return days, nil
}
