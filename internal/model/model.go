package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SessionRecord is one row exactly as the upstream class-schedule service
// returns it. Times are local wall-clock timestamps without a zone.
type SessionRecord struct {
	EventDescription string `json:"EventDescription"`
	EventDate        string `json:"EventDate"`
	EventStartTime   string `json:"EventStartTime"`
	EventEndTime     string `json:"EventEndTime"`
}

// Session is a SessionRecord whose timestamps have been parsed in the data
// source's location. Only hour and minute of Start/End are used downstream.
type Session struct {
	Description string
	Start       time.Time
	End         time.Time
}

var ErrEmptyDescription = errors.New("empty event description")

// localLayouts are tried in order when parsing row timestamps.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Validate parses r into a Session. loc is the zone the upstream timestamps
// are expressed in; nil means time.Local.
func (r SessionRecord) Validate(loc *time.Location) (Session, error) {
	if loc == nil {
		loc = time.Local
	}
	desc := strings.TrimSpace(r.EventDescription)
	if desc == "" {
		return Session{}, ErrEmptyDescription
	}

	if _, err := parseLocal(r.EventDate, loc); err != nil {
		return Session{}, fmt.Errorf("EventDate: %w", err)
	}
	start, err := parseLocal(r.EventStartTime, loc)
	if err != nil {
		return Session{}, fmt.Errorf("EventStartTime: %w", err)
	}
	end, err := parseLocal(r.EventEndTime, loc)
	if err != nil {
		return Session{}, fmt.Errorf("EventEndTime: %w", err)
	}

	return Session{
		Description: r.EventDescription,
		Start:       start,
		End:         end,
	}, nil
}

func parseLocal(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	var lastErr error
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, v, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ClassifiedSession is the course/type/group triple recovered from a
// description such as "COS10003 - TU1 - 01, ...".
type ClassifiedSession struct {
	CourseCode  string
	SessionType string // e.g. "TU1"
	GroupNumber string // e.g. "01"
}

func (c ClassifiedSession) GroupID() string {
	return c.SessionType + "-" + c.GroupNumber
}

func (c ClassifiedSession) TypeClass() string {
	return TypeClass(c.SessionType)
}

func (c ClassifiedSession) IsLecture() bool {
	return c.TypeClass() == LectureClass
}

// LectureClass is the type class shared by every lecture session type.
const LectureClass = "LE"

// TypeClass strips trailing digits from a session type: "TU1" -> "TU".
func TypeClass(sessionType string) string {
	return strings.TrimRight(sessionType, "0123456789")
}

// GroupTypeClass returns the type class of a group id such as "TU1-01".
func GroupTypeClass(groupID string) string {
	typ, _, _ := strings.Cut(groupID, "-")
	return TypeClass(typ)
}

// TypeLabel is the human name of a type class.
func TypeLabel(typeClass string) string {
	switch typeClass {
	case "TU":
		return "Tutorial"
	case "LA":
		return "Lab"
	case "LE":
		return "Lecture"
	default:
		return typeClass
	}
}

// Group is one selectable tutorial/lab section of a course.
type Group struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Number      string `json:"number"`
	Description string `json:"description"`
}

func (g Group) TypeClass() string {
	return TypeClass(g.Type)
}

// GroupSelection is the per-course selection state owned by the caller.
// AvailableGroups comes from the catalog builder, IncludedGroups from the
// student; the generator only reads it.
type GroupSelection struct {
	AvailableGroups []Group  `json:"availableGroups"`
	IncludedGroups  []string `json:"includedGroups"`
}

// Includes reports whether groupID was selected.
func (s GroupSelection) Includes(groupID string) bool {
	for _, id := range s.IncludedGroups {
		if id == groupID {
			return true
		}
	}
	return false
}

// MonthDay is a calendar date without a year.
type MonthDay struct {
	Month time.Month
	Day   int
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d/%02d", int(md.Month), md.Day)
}

// DescriptionFragment is one contiguous active date range, with its room,
// parsed out of a description.
type DescriptionFragment struct {
	Location string
	Start    MonthDay
	End      MonthDay
}

// ParsedDescription is everything the description parser recovers.
type ParsedDescription struct {
	Title     string
	Fragments []DescriptionFragment
}

// CompiledEvent is one weekly-recurring calendar event. Start and End are
// the first occurrence; Until is the exclusive recurrence bound (00:00 UTC
// of the day after the last active date).
type CompiledEvent struct {
	Title       string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Until       time.Time
}

// Hours is the scheduled length of one occurrence.
func (e CompiledEvent) Hours() float64 {
	return e.End.Sub(e.Start).Hours()
}

// Occurrence is one dated instance of a CompiledEvent.
type Occurrence struct {
	// InstanceKey identifies the occurrence within its series, derived
	// from the start time.
	InstanceKey string

	Title       string
	Description string
	Location    string

	// Start / End are in the display location.
	Start time.Time
	End   time.Time
}
