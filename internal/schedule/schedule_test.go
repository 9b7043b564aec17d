package schedule

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"swintt/internal/model"
)

func row(desc string) model.SessionRecord {
	return model.SessionRecord{
		EventDescription: desc,
		EventDate:        "2025-03-03T00:00:00",
		EventStartTime:   "2025-03-03T08:30:00",
		EventEndTime:     "2025-03-03T10:30:00",
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		desc string
		want model.ClassifiedSession
	}{
		{
			"COS10003 - TU1 - 01, Colin Tan; G401 - 03/06 to 04/10",
			model.ClassifiedSession{CourseCode: "COS10003", SessionType: "TU1", GroupNumber: "01"},
		},
		{
			"COS10003 - LE1 - 01, Prof X; R1 - 03/03 to 06/02",
			model.ClassifiedSession{CourseCode: "COS10003", SessionType: "LE1", GroupNumber: "01"},
		},
		{
			"ENG20009 - LA12 - 107",
			model.ClassifiedSession{CourseCode: "ENG20009", SessionType: "LA12", GroupNumber: "107"},
		},
	}

	for _, tt := range tests {
		got, ok := Classify(tt.desc)
		if !ok {
			t.Fatalf("Classify(%q): expected match", tt.desc)
		}
		if got != tt.want {
			t.Errorf("Classify(%q) = %+v, want %+v", tt.desc, got, tt.want)
		}
	}
}

func TestClassifyNoMatch(t *testing.T) {
	for _, desc := range []string{
		"",
		"Orientation week; Hall - 02/24 to 02/28",
		"COS10003 - TU - 01",
		"COS10003 - 1 - 01",
		"cos10003 - tu1 - 01",
		"COS10003-TU1-01",
	} {
		if c, ok := Classify(desc); ok {
			t.Errorf("Classify(%q) = %+v, expected no match", desc, c)
		}
	}
}

func TestBuildCatalogSortsNumerically(t *testing.T) {
	rows := []model.SessionRecord{
		row("COS10003 - TU1 - 10, A; G401 - 03/06 to 04/10"),
		row("COS10003 - TU1 - 2, B; G402 - 03/06 to 04/10"),
		row("COS10003 - LA1 - 1, C; L1 - 03/06 to 04/10"),
		row("COS10003 - LE1 - 01, Prof X; R1 - 03/03 to 06/02"),
	}

	got := BuildCatalog("COS10003", rows)
	ids := make([]string, 0, len(got))
	for _, g := range got {
		ids = append(ids, g.ID)
	}
	want := []string{"LA1-1", "TU1-2", "TU1-10"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("catalog order = %v, want %v", ids, want)
	}
	if got[1].Description != "TU1 Group 2" {
		t.Fatalf("unexpected description %q", got[1].Description)
	}
}

func TestBuildCatalogDeduplicatesAndIsIdempotent(t *testing.T) {
	rows := []model.SessionRecord{
		row("COS10003 - TU1 - 01, A; G401 - 03/06 to 04/10"),
		row("COS10003 - TU1 - 01, A; G401 - 03/06 to 04/10"),
		row("COS10003 - TU1 - 02, B; G402 - 03/06 to 04/10"),
		row("MTH10001 - TU1 - 03, other course"),
		row("not a structured description COS10003"),
	}

	first := BuildCatalog("COS10003", rows)
	if len(first) != 2 {
		t.Fatalf("expected 2 groups, got %d: %+v", len(first), first)
	}
	second := BuildCatalog("COS10003", append(rows, rows...))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("catalog changed under repeated input:\n%+v\n%+v", first, second)
	}
}

func TestBuildCatalogExcludesLectures(t *testing.T) {
	rows := []model.SessionRecord{
		row("COS10003 - LE1 - 01, Prof X; R1 - 03/03 to 06/02"),
		row("COS10003 - LE2 - 02, Prof Y; R2 - 03/03 to 06/02"),
	}
	got := BuildCatalog("COS10003", rows)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil catalog, got %#v", got)
	}
	if empty := BuildCatalog("COS10003", nil); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty catalog for no rows, got %#v", empty)
	}
}

func TestInclude(t *testing.T) {
	sel := model.GroupSelection{IncludedGroups: []string{"TU1-01"}}

	tests := []struct {
		name string
		desc string
		want bool
	}{
		{"other course", "MTH10001 - TU1 - 01, X", false},
		{"unclassified", "COS10003 special session; R1 - 03/03 to 03/03", true},
		{"lecture", "COS10003 - LE1 - 01, Prof X", true},
		{"selected tutorial", "COS10003 - TU1 - 01, A", true},
		{"unselected tutorial", "COS10003 - TU1 - 02, B", false},
		{"unselected lab", "COS10003 - LA1 - 01, C", false},
	}
	for _, tt := range tests {
		if got := Include(tt.desc, "COS10003", sel); got != tt.want {
			t.Errorf("%s: Include = %v, want %v", tt.name, got, tt.want)
		}
	}

	// Lectures are kept whatever the selection says.
	if !Include("COS10003 - LE1 - 01, Prof X", "COS10003", model.GroupSelection{}) {
		t.Fatal("lecture dropped with empty selection")
	}
}

func TestFilterRows(t *testing.T) {
	rows := []model.SessionRecord{
		row("COS10003 - LE1 - 01, Prof X; R1 - 03/03 to 06/02"),
		row("COS10003 - TU1 - 01, A; G401 - 03/06 to 04/10"),
		row("COS10003 - TU1 - 02, B; G402 - 03/06 to 04/10"),
	}
	got := FilterRows("COS10003", rows, model.GroupSelection{IncludedGroups: []string{"TU1-02"}})
	if len(got) != 2 || !strings.Contains(got[1].EventDescription, "TU1 - 02") {
		t.Fatalf("unexpected filtered rows: %+v", got)
	}
}

func TestParseDescription(t *testing.T) {
	got := ParseDescription("COS10003 - TU1 - 01, Colin Tan; G401 - 03/06 to 04/10, 04/24 to 05/29")

	if got.Title != "COS10003 - TU1 - 01, Colin Tan" {
		t.Fatalf("title = %q", got.Title)
	}
	want := []model.DescriptionFragment{
		{Location: "G401", Start: model.MonthDay{Month: time.March, Day: 6}, End: model.MonthDay{Month: time.April, Day: 10}},
		{Location: "G401", Start: model.MonthDay{Month: time.April, Day: 24}, End: model.MonthDay{Month: time.May, Day: 29}},
	}
	if !reflect.DeepEqual(got.Fragments, want) {
		t.Fatalf("fragments = %+v, want %+v", got.Fragments, want)
	}
}

func TestParseDescriptionMultipleSegments(t *testing.T) {
	got := ParseDescription("COS10003 - LA1 - 01; ATC101 - 3/3 to 3/31; ATC205 - 4/7 to 5/26")
	if len(got.Fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %+v", got.Fragments)
	}
	if got.Fragments[0].Location != "ATC101" || got.Fragments[1].Location != "ATC205" {
		t.Fatalf("unexpected locations: %+v", got.Fragments)
	}
	if got.Fragments[0].Start != (model.MonthDay{Month: time.March, Day: 3}) {
		t.Fatalf("unexpected start %v", got.Fragments[0].Start)
	}
}

func TestParseDescriptionDropsMalformedRanges(t *testing.T) {
	tests := []struct {
		desc string
		want int
	}{
		{"COS10003 - TU1 - 01, A", 0},
		{"COS10003 - TU1 - 01; G401", 0},
		{"COS10003 - TU1 - 01; G401 - TBA", 0},
		{"COS10003 - TU1 - 01; G401 - 13/01 to 14/02, 03/06 to 04/10", 1},
		{"COS10003 - TU1 - 01; G401 - 02/30 to 03/10, 04/31 to 05/02", 0},
		{"COS10003 - TU1 - 01; G401 - 03/06 until 04/10, 04/24 to 05/29", 1},
	}
	for _, tt := range tests {
		got := ParseDescription(tt.desc)
		if len(got.Fragments) != tt.want {
			t.Errorf("ParseDescription(%q): %d fragments, want %d (%+v)", tt.desc, len(got.Fragments), tt.want, got.Fragments)
		}
	}
}

func TestValidateSelections(t *testing.T) {
	available := []model.Group{
		{ID: "LA1-01", Type: "LA1", Number: "01"},
		{ID: "TU1-01", Type: "TU1", Number: "01"},
		{ID: "TU1-02", Type: "TU1", Number: "02"},
	}
	selections := map[string]model.GroupSelection{
		"COS10003": {AvailableGroups: available, IncludedGroups: []string{"TU1-01"}},
		"MTH10001": {AvailableGroups: nil},
		"ENG10001": {AvailableGroups: available, IncludedGroups: []string{"TU1-01", "TU1-02", "LA1-01"}},
	}

	err := ValidateSelections([]string{"COS10003", "MTH10001", "ENG10001"}, selections)
	var se *SelectionError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SelectionError, got %v", err)
	}
	if len(se.Gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %+v", se.Gaps)
	}
	if se.Gaps[0].Course != "COS10003" || se.Gaps[0].TypeClass != "LA" {
		t.Fatalf("unexpected first gap %+v", se.Gaps[0])
	}
	if se.Gaps[0].String() != "COS10003: Lab group" {
		t.Fatalf("unexpected gap text %q", se.Gaps[0].String())
	}
	if se.Gaps[1].Course != "ENG10001" || len(se.Gaps[1].Selected) != 2 {
		t.Fatalf("unexpected conflict gap %+v", se.Gaps[1])
	}

	selections["COS10003"] = Select(selections["COS10003"], "LA1-01")
	selections["ENG10001"] = Select(selections["ENG10001"], "TU1-02")
	if err := ValidateSelections([]string{"COS10003", "MTH10001", "ENG10001"}, selections); err != nil {
		t.Fatalf("expected valid selections, got %v", err)
	}
}

func TestSelectReplacesSameTypeClass(t *testing.T) {
	sel := model.GroupSelection{IncludedGroups: []string{"TU1-01", "LA1-02"}}
	got := Select(sel, "TU1-03")
	want := []string{"LA1-02", "TU1-03"}
	if !reflect.DeepEqual(got.IncludedGroups, want) {
		t.Fatalf("IncludedGroups = %v, want %v", got.IncludedGroups, want)
	}
	if !reflect.DeepEqual(sel.IncludedGroups, []string{"TU1-01", "LA1-02"}) {
		t.Fatalf("input selection modified: %v", sel.IncludedGroups)
	}
}
