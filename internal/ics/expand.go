package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "swintt/internal/log"
	"swintt/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 500
)

// ExpandConfig controls how compiled events are expanded into occurrences.
type ExpandConfig struct {
	// DisplayLocation is the timezone occurrences are converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd define the inclusive window. A zero RangeEnd
	// means no upper bound other than each event's Until.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps each series. If zero,
	// defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the expanded occurrences, sorted by start time.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// Truncated lists titles of events that hit MaxOccurrencesPerEvent.
	Truncated []string
}

// Expand materializes the weekly series of every event within the window.
func Expand(events []model.CompiledEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if !cfg.RangeEnd.IsZero() && cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	all := make([]model.Occurrence, 0)
	for _, ev := range events {
		occ, hitCap, err := expandEvent(ev, cfg)
		if err != nil {
			appLog.Error("expand: failed to build rule", err, "title", ev.Title)
			continue
		}
		if hitCap {
			result.Truncated = append(result.Truncated, ev.Title)
			appLog.Warn("expand: truncated occurrences due to cap",
				"title", ev.Title,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
		all = append(all, occ...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Before(all[j].Start)
	})
	result.Occurrences = all
	return result, nil
}

func expandEvent(ev model.CompiledEvent, cfg ExpandConfig) ([]model.Occurrence, bool, error) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: ev.Start,
		Until:   ev.Until,
	})
	if err != nil {
		return nil, false, err
	}

	var set rrule.Set
	set.RRule(r)

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := ev.Until
	if !cfg.RangeEnd.IsZero() && cfg.RangeEnd.Before(rangeEnd) {
		rangeEnd = cfg.RangeEnd
	}
	times := set.Between(rangeStart, rangeEnd.In(ev.Start.Location()), true)

	hitCap := false
	if len(times) > cfg.MaxOccurrencesPerEvent {
		times = times[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]model.Occurrence, 0, len(times))
	for _, start := range times {
		local := start.In(cfg.DisplayLocation)
		out = append(out, model.Occurrence{
			InstanceKey: local.Format(time.RFC3339),
			Title:       ev.Title,
			Description: ev.Description,
			Location:    ev.Location,
			Start:       local,
			End:         start.Add(dur).In(cfg.DisplayLocation),
		})
	}
	return out, hitCap, nil
}
