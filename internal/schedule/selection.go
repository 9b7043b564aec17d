package schedule

import (
	"fmt"
	"sort"
	"strings"

	"swintt/internal/model"
)

// SelectionGap names one course/type class whose selection is not usable.
type SelectionGap struct {
	Course    string
	TypeClass string
	// Selected holds the conflicting ids when more than one group of the
	// same type class was included; empty for a missing selection.
	Selected []string
}

func (g SelectionGap) String() string {
	label := model.TypeLabel(g.TypeClass) + " group"
	if len(g.Selected) > 0 {
		return fmt.Sprintf("%s: only one %s allowed (got %s)", g.Course, label, strings.Join(g.Selected, ", "))
	}
	return fmt.Sprintf("%s: %s", g.Course, label)
}

// SelectionError reports every gap found by ValidateSelections.
type SelectionError struct {
	Gaps []SelectionGap
}

func (e *SelectionError) Error() string {
	lines := make([]string, 0, len(e.Gaps))
	for _, g := range e.Gaps {
		lines = append(lines, g.String())
	}
	return "please select required groups: " + strings.Join(lines, "; ")
}

// ValidateSelections checks that every course with selectable groups has
// exactly one included group per type class. Courses without available
// groups need no selection. courses fixes the reporting order.
func ValidateSelections(courses []string, selections map[string]model.GroupSelection) error {
	var gaps []SelectionGap

	for _, course := range courses {
		sel, ok := selections[course]
		if !ok || len(sel.AvailableGroups) == 0 {
			continue
		}

		chosen := make(map[string][]string)
		for _, id := range sel.IncludedGroups {
			tc := model.GroupTypeClass(id)
			chosen[tc] = append(chosen[tc], id)
		}

		for _, tc := range TypeClasses(sel.AvailableGroups) {
			ids := chosen[tc]
			switch {
			case len(ids) == 0:
				gaps = append(gaps, SelectionGap{Course: course, TypeClass: tc})
			case len(ids) > 1:
				sorted := append([]string(nil), ids...)
				sort.Strings(sorted)
				gaps = append(gaps, SelectionGap{Course: course, TypeClass: tc, Selected: sorted})
			}
		}
	}

	if len(gaps) > 0 {
		return &SelectionError{Gaps: gaps}
	}
	return nil
}

// Select returns sel with groupID as the only included group of its type
// class, mirroring a radio-button choice. sel itself is not modified.
func Select(sel model.GroupSelection, groupID string) model.GroupSelection {
	tc := model.GroupTypeClass(groupID)
	out := model.GroupSelection{
		AvailableGroups: sel.AvailableGroups,
		IncludedGroups:  make([]string, 0, len(sel.IncludedGroups)+1),
	}
	for _, id := range sel.IncludedGroups {
		if model.GroupTypeClass(id) != tc {
			out.IncludedGroups = append(out.IncludedGroups, id)
		}
	}
	out.IncludedGroups = append(out.IncludedGroups, groupID)
	return out
}
