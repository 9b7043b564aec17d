package schedule

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"swintt/internal/model"
)

var rangePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})\s+to\s+(\d{1,2})/(\d{1,2})`)

// ParseDescription splits a description into its title and the
// (room, date range) fragments that follow it. Range strings that are not
// of the form "M/D to M/D", or that name an impossible date, are dropped.
func ParseDescription(desc string) model.ParsedDescription {
	segments := strings.Split(desc, ";")
	out := model.ParsedDescription{
		Title:     strings.TrimSpace(segments[0]),
		Fragments: make([]model.DescriptionFragment, 0),
	}

	for _, seg := range segments[1:] {
		location, tail, found := strings.Cut(seg, "-")
		if !found {
			continue
		}
		location = strings.TrimSpace(location)

		for _, rs := range strings.Split(tail, ",") {
			start, end, ok := parseRange(rs)
			if !ok {
				continue
			}
			out.Fragments = append(out.Fragments, model.DescriptionFragment{
				Location: location,
				Start:    start,
				End:      end,
			})
		}
	}
	return out
}

func parseRange(s string) (start, end model.MonthDay, ok bool) {
	m := rangePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return start, end, false
	}
	if start, ok = monthDay(m[1], m[2]); !ok {
		return start, end, false
	}
	if end, ok = monthDay(m[3], m[4]); !ok {
		return start, end, false
	}
	return start, end, true
}

func monthDay(ms, ds string) (model.MonthDay, bool) {
	month, err := strconv.Atoi(ms)
	if err != nil || month < 1 || month > 12 {
		return model.MonthDay{}, false
	}
	day, err := strconv.Atoi(ds)
	if err != nil || day < 1 || day > daysIn(time.Month(month)) {
		return model.MonthDay{}, false
	}
	return model.MonthDay{Month: time.Month(month), Day: day}, true
}

// daysIn is the longest the month can be in any year.
func daysIn(m time.Month) int {
	if m == time.February {
		return 29
	}
	return time.Date(2001, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
