// Package schedule recovers scheduling structure from the free-text
// descriptions of class-schedule rows and decides which rows a student's
// group selection keeps.
//
// Descriptions follow an informal convention, for example
//
//	COS10003 - TU1 - 01, Colin Tan; G401 - 03/06 to 04/10, 04/24 to 05/29
//
// where the part before the first ';' names the course, session type and
// group, and every later ';' segment is "<room> - <date ranges>".
package schedule

import (
	"regexp"

	"swintt/internal/model"
)

var classifyPattern = regexp.MustCompile(`(?P<code>[A-Z0-9]+) - (?P<type>[A-Z]+\d+) - (?P<group>\d+)`)

var (
	codeIdx  = classifyPattern.SubexpIndex("code")
	typeIdx  = classifyPattern.SubexpIndex("type")
	groupIdx = classifyPattern.SubexpIndex("group")
)

// Classify extracts the course code, session type and group number from a
// description. ok is false when the description does not follow the
// "<CODE> - <TYPE><N> - <GROUP>" convention.
func Classify(desc string) (c model.ClassifiedSession, ok bool) {
	m := classifyPattern.FindStringSubmatch(desc)
	if m == nil {
		return model.ClassifiedSession{}, false
	}
	return model.ClassifiedSession{
		CourseCode:  m[codeIdx],
		SessionType: m[typeIdx],
		GroupNumber: m[groupIdx],
	}, true
}
