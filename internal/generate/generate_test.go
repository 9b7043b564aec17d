package generate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"swintt/internal/model"
	"swintt/internal/schedule"
)

var kuching = time.FixedZone("Asia/Kuching", 8*60*60)

func rec(desc, start, end string) model.SessionRecord {
	return model.SessionRecord{
		EventDescription: desc,
		EventDate:        "2025-01-01T00:00:00",
		EventStartTime:   "2025-01-01T" + start + ":00",
		EventEndTime:     "2025-01-01T" + end + ":00",
	}
}

func cos10003() Course {
	return Course{
		Code: "COS10003",
		Term: "2025_S1",
		Rows: []model.SessionRecord{
			rec("COS10003 - LE1 - 01, Prof X; R1 - 03/03 to 06/02", "08:30", "10:30"),
			rec("COS10003 - TU1 - 01, Tutor A; G401 - 03/06 to 04/10, 04/24 to 05/29", "10:30", "12:30"),
			rec("COS10003 - TU1 - 02, Tutor B; G401 - 03/06 to 04/10, 04/24 to 05/29", "14:30", "16:30"),
		},
	}
}

func request(courses ...Course) Request {
	n := 0
	return Request{
		Courses:  courses,
		Now:      time.Date(2025, time.February, 20, 9, 0, 0, 0, time.UTC),
		Location: kuching,
		UID: func() (string, error) {
			n++
			return fmt.Sprintf("uid-%d@test", n), nil
		},
	}
}

func TestRunFiltersToSelectedGroup(t *testing.T) {
	req := request(cos10003())
	req.Selections = map[string]model.GroupSelection{
		"COS10003": {IncludedGroups: []string{"TU1-01"}},
	}

	res, err := Run(req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Empty || res.Document == nil {
		t.Fatal("expected a document")
	}
	if res.Classes != 2 || res.Events != 3 {
		t.Fatalf("classes/events = %d/%d, want 2/3", res.Classes, res.Events)
	}
	if res.TotalHours != 6 || res.WeeklyHours != 4 {
		t.Fatalf("total/weekly hours = %v/%v, want 6/4", res.TotalHours, res.WeeklyHours)
	}

	doc := string(res.Document)
	if got := strings.Count(doc, "BEGIN:VEVENT"); got != 3 {
		t.Fatalf("expected 3 VEVENTs, got %d", got)
	}
	if got := strings.Count(doc, "BEGIN:VALARM"); got != 3 {
		t.Fatalf("expected 3 VALARMs, got %d", got)
	}
	if strings.Contains(doc, "TU1 - 02") {
		t.Fatal("unselected group leaked into the calendar")
	}
	if !strings.Contains(doc, "20250303T003000Z") {
		t.Fatal("lecture start missing")
	}
	if !strings.Contains(doc, "UNTIL=20250603T000000Z") {
		t.Fatal("lecture until missing")
	}
	if res.Filename != "swinburne-timetable-COS10003.ics" {
		t.Fatalf("Filename = %q", res.Filename)
	}
}

func TestRunRequiresSelection(t *testing.T) {
	_, err := Run(request(cos10003()))
	var selErr *schedule.SelectionError
	if !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
	if len(selErr.Gaps) != 1 || selErr.Gaps[0].Course != "COS10003" || selErr.Gaps[0].TypeClass != "TU" {
		t.Fatalf("unexpected gaps: %+v", selErr.Gaps)
	}
	if !strings.Contains(err.Error(), "COS10003: Tutorial group") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestRunRejectsConflictingSelection(t *testing.T) {
	req := request(cos10003())
	req.Selections = map[string]model.GroupSelection{
		"COS10003": {IncludedGroups: []string{"TU1-01", "TU1-02"}},
	}
	var selErr *schedule.SelectionError
	if _, err := Run(req); !errors.As(err, &selErr) {
		t.Fatalf("expected SelectionError, got %v", err)
	}
}

func TestRunNoCourses(t *testing.T) {
	if _, err := Run(Request{}); !errors.Is(err, ErrNoCourses) {
		t.Fatalf("expected ErrNoCourses, got %v", err)
	}
}

func TestRunEmptyResult(t *testing.T) {
	course := Course{
		Code: "COS10003",
		Rows: []model.SessionRecord{
			rec("COS10003 orientation, no dates", "09:00", "10:00"),
			rec("MTH10001 - LE1 - 01; A1 - 03/03 to 06/02", "09:00", "10:00"),
		},
	}
	res, err := Run(request(course))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Empty || res.Document != nil {
		t.Fatal("expected empty result")
	}
	if res.Classes != 1 || res.Events != 0 {
		t.Fatalf("classes/events = %d/%d", res.Classes, res.Events)
	}

	var buf bytes.Buffer
	if err := Export(&buf, res); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("Export: expected ErrNothingToExport, got %v", err)
	}
	if _, err := WriteFile(filepath.Join(t.TempDir(), "x.ics"), res); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("WriteFile: expected ErrNothingToExport, got %v", err)
	}
}

func TestRunSkipsUnreadableRows(t *testing.T) {
	course := Course{
		Code: "COS10003",
		Rows: []model.SessionRecord{
			rec("COS10003 - LE1 - 01; R1 - 03/03 to 06/02", "08:30", "10:30"),
			{EventDescription: "COS10003 - LE1 - 02; R2 - 03/04 to 06/03", EventStartTime: "soon"},
		},
	}
	res, err := Run(request(course))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Classes != 1 || res.Events != 1 || res.Skipped != 1 {
		t.Fatalf("classes/events/skipped = %d/%d/%d, want 1/1/1", res.Classes, res.Events, res.Skipped)
	}
	if got := Summary(res); !strings.Contains(got, "with 1 classes") {
		t.Fatalf("skipped rows counted in summary: %q", got)
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		courses []Course
		want    string
	}{
		{
			name:    "single term",
			courses: []Course{{Code: "cos10003", Term: "2025_S1"}, {Code: "MTH10001", Term: "2025_S1"}},
			want:    "swinburne-timetable-COS10003-MTH10001.ics",
		},
		{
			name:    "multi term",
			courses: []Course{{Code: "COS10003", Term: "2025_S1"}, {Code: "MTH10001", Term: "2025_S2"}},
			want:    "swinburne-timetable-2025_S1_COS10003-2025_S2_MTH10001.ics",
		},
		{
			name:    "custom prefix",
			prefix:  "my classes",
			courses: []Course{{Code: "COS10003"}},
			want:    "my_classes-COS10003.ics",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.prefix, tt.courses); got != tt.want {
				t.Fatalf("Filename = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteFileAndExport(t *testing.T) {
	req := request(cos10003())
	req.Selections = map[string]model.GroupSelection{"COS10003": {IncludedGroups: []string{"TU1-02"}}}
	res, err := Run(req)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	dir := t.TempDir()
	path, err := WriteFile(dir, res)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if path != filepath.Join(dir, res.Filename) {
		t.Fatalf("path = %q", path)
	}
	body, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(body, res.Document) {
		t.Fatalf("file content mismatch: %v", err)
	}

	var buf bytes.Buffer
	if err := Export(&buf, res); err != nil || !bytes.Equal(buf.Bytes(), res.Document) {
		t.Fatalf("export mismatch: %v", err)
	}
}

func TestSummary(t *testing.T) {
	got := Summary(Result{Classes: 3, WeeklyHours: 4.5})
	if !strings.Contains(got, "with 3 classes") || !strings.Contains(got, "4.5 hours") {
		t.Fatalf("Summary = %q", got)
	}
}

func TestWeek(t *testing.T) {
	req := request(cos10003())
	req.Selections = map[string]model.GroupSelection{"COS10003": {IncludedGroups: []string{"TU1-01"}}}

	days, err := Week(req)
	if err != nil {
		t.Fatalf("week: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Weekday != time.Monday || days[1].Weekday != time.Thursday {
		t.Fatalf("days = %v, %v", days[0].Weekday, days[1].Weekday)
	}
	tut := days[1].Slots
	if len(tut) != 1 || tut[0].Ranges != 2 || tut[0].Location != "G401" {
		t.Fatalf("unexpected tutorial slots: %+v", tut)
	}
	if tut[0].Start.Month() != time.March || tut[0].Start.Day() != 6 {
		t.Fatalf("first occurrence = %v", tut[0].Start)
	}
	// Six Thursdays in each of the two ranges.
	if tut[0].Weeks != 12 {
		t.Fatalf("tutorial weeks = %d, want 12", tut[0].Weeks)
	}
	// Mondays 03/03 through 06/02 inclusive.
	if lec := days[0].Slots; len(lec) != 1 || lec[0].Weeks != 14 {
		t.Fatalf("unexpected lecture slots: %+v", lec)
	}
}
