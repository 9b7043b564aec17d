package schedule

import (
	"sort"
	"strconv"
	"strings"

	"swintt/internal/model"
)

// BuildCatalog derives the selectable (non-lecture) groups of courseCode
// from its rows. Each group id appears once; the first row seen for an id
// wins. The result is sorted by type class, then numeric group number, so
// "TU1-2" precedes "TU1-10".
func BuildCatalog(courseCode string, rows []model.SessionRecord) []model.Group {
	groups := make([]model.Group, 0)
	seen := make(map[string]struct{})

	for _, row := range rows {
		if !strings.Contains(row.EventDescription, courseCode) {
			continue
		}
		c, ok := Classify(row.EventDescription)
		if !ok || c.IsLecture() {
			continue
		}
		id := c.GroupID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		groups = append(groups, model.Group{
			ID:          id,
			Type:        c.SessionType,
			Number:      c.GroupNumber,
			Description: c.SessionType + " Group " + c.GroupNumber,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if ac, bc := a.TypeClass(), b.TypeClass(); ac != bc {
			return ac < bc
		}
		if c := compareNumeric(a.Number, b.Number); c != 0 {
			return c < 0
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	})
	return groups
}

// TypeClasses lists the distinct type classes of groups in catalog order.
func TypeClasses(groups []model.Group) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, g := range groups {
		tc := g.TypeClass()
		if _, ok := seen[tc]; ok {
			continue
		}
		seen[tc] = struct{}{}
		out = append(out, tc)
	}
	return out
}

func compareNumeric(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	if aerr != nil || berr != nil {
		return strings.Compare(a, b)
	}
	switch {
	case an < bn:
		return -1
	case an > bn:
		return 1
	default:
		return 0
	}
}
