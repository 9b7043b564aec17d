package model

import (
	"errors"
	"testing"
	"time"
)

func TestSessionRecordValidate(t *testing.T) {
	loc := time.FixedZone("MYT", 8*3600)
	rec := SessionRecord{
		EventDescription: "COS10003 - TU1 - 01, Tutor; G401 - 03/06 to 04/10",
		EventDate:        "2025-03-06T00:00:00",
		EventStartTime:   "2025-03-06T10:30:00",
		EventEndTime:     "2025-03-06T12:30:00",
	}

	s, err := rec.Validate(loc)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if s.Start.Hour() != 10 || s.Start.Minute() != 30 {
		t.Fatalf("unexpected start %v", s.Start)
	}
	if s.Start.Location() != loc {
		t.Fatalf("expected start in %v, got %v", loc, s.Start.Location())
	}
	if s.Description != rec.EventDescription {
		t.Fatalf("description changed: %q", s.Description)
	}
}

func TestSessionRecordValidateRejects(t *testing.T) {
	good := SessionRecord{
		EventDescription: "X",
		EventDate:        "2025-03-06T00:00:00",
		EventStartTime:   "2025-03-06T10:30:00",
		EventEndTime:     "2025-03-06T12:30:00",
	}

	empty := good
	empty.EventDescription = "   "
	if _, err := empty.Validate(time.UTC); !errors.Is(err, ErrEmptyDescription) {
		t.Fatalf("expected ErrEmptyDescription, got %v", err)
	}

	badStart := good
	badStart.EventStartTime = "ten thirty"
	if _, err := badStart.Validate(time.UTC); err == nil {
		t.Fatal("expected error for unparseable start time")
	}

	missingEnd := good
	missingEnd.EventEndTime = ""
	if _, err := missingEnd.Validate(time.UTC); err == nil {
		t.Fatal("expected error for missing end time")
	}
}

func TestTypeClass(t *testing.T) {
	tests := map[string]string{
		"TU1":  "TU",
		"LA12": "LA",
		"LE1":  "LE",
		"SE":   "SE",
		"":     "",
	}
	for in, want := range tests {
		if got := TypeClass(in); got != want {
			t.Errorf("TypeClass(%q) = %q, want %q", in, got, want)
		}
	}
	if got := GroupTypeClass("LA2-03"); got != "LA" {
		t.Errorf("GroupTypeClass = %q, want LA", got)
	}
}

func TestClassifiedSession(t *testing.T) {
	c := ClassifiedSession{CourseCode: "COS10003", SessionType: "TU1", GroupNumber: "01"}
	if c.GroupID() != "TU1-01" {
		t.Fatalf("GroupID = %q", c.GroupID())
	}
	if c.IsLecture() {
		t.Fatal("tutorial reported as lecture")
	}
	lec := ClassifiedSession{SessionType: "LE1", GroupNumber: "01"}
	if !lec.IsLecture() {
		t.Fatal("LE1 not reported as lecture")
	}
}

func TestCompiledEventHours(t *testing.T) {
	start := time.Date(2025, 3, 6, 10, 30, 0, 0, time.UTC)
	e := CompiledEvent{Start: start, End: start.Add(90 * time.Minute)}
	if e.Hours() != 1.5 {
		t.Fatalf("Hours = %v, want 1.5", e.Hours())
	}
}
