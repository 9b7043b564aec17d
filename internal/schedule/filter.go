package schedule

import (
	"strings"

	"swintt/internal/model"
)

// Include decides whether a row belongs in the generated calendar.
//
//   - rows that do not mention courseCode are excluded;
//   - rows whose description cannot be classified are kept, since there is
//     nothing to filter them on;
//   - lectures are always kept;
//   - tutorials, labs and other groups are kept only when selected.
func Include(desc, courseCode string, sel model.GroupSelection) bool {
	if !strings.Contains(desc, courseCode) {
		return false
	}
	c, ok := Classify(desc)
	if !ok {
		return true
	}
	if c.IsLecture() {
		return true
	}
	return sel.Includes(c.GroupID())
}

// FilterRows returns the rows of one course that Include keeps, in input
// order.
func FilterRows(courseCode string, rows []model.SessionRecord, sel model.GroupSelection) []model.SessionRecord {
	out := make([]model.SessionRecord, 0, len(rows))
	for _, row := range rows {
		if Include(row.EventDescription, courseCode, sel) {
			out = append(out, row)
		}
	}
	return out
}
