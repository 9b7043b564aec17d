// Package source loads class-schedule rows for courses, from a local
// directory of "<CODE>_timetable.json" files or over HTTP, and keeps them
// in memory for the web server.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	appLog "swintt/internal/log"
	"swintt/internal/model"
)

// envelope is the upstream response shape: {"DataList": [...]}.
type envelope struct {
	DataList []model.SessionRecord `json:"DataList"`
}

// Course is one course's rows as loaded from a source.
type Course struct {
	Code string
	Term string
	Rows []model.SessionRecord
}

// Ref names a course to load and the term it was picked from.
type Ref struct {
	Code string `json:"code"`
	Term string `json:"term,omitempty"`
}

// Dropped records a course whose rows could not be loaded.
type Dropped struct {
	Code string
	Err  error
}

// Loader fetches the rows of one course.
type Loader interface {
	Load(ctx context.Context, code string) ([]model.SessionRecord, error)
}

// Decode parses a timetable payload. A payload with no DataList, or an
// empty one, is not an error: the course simply has no rows.
func Decode(body []byte) ([]model.SessionRecord, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("source: decode timetable: %w", err)
	}
	if env.DataList == nil {
		return []model.SessionRecord{}, nil
	}
	return env.DataList, nil
}

// Dir loads "<dir>/<CODE>_timetable.json".
type Dir string

func (d Dir) Path(code string) string {
	return filepath.Join(string(d), code+"_timetable.json")
}

func (d Dir) Load(_ context.Context, code string) ([]model.SessionRecord, error) {
	if code == "" {
		return nil, errors.New("source: course code is empty")
	}
	body, err := os.ReadFile(d.Path(code))
	if err != nil {
		return nil, fmt.Errorf("source: read %s: %w", code, err)
	}
	return Decode(body)
}

// Load fetches and decodes one course over HTTP.
func (f *Fetcher) Load(ctx context.Context, code string) ([]model.SessionRecord, error) {
	res, err := f.FetchCourse(ctx, code)
	if err != nil {
		return nil, err
	}
	return Decode(res.Body)
}

// LoadCourses loads every requested course. A course that fails to load
// is dropped and reported; the rest are returned in request order.
func LoadCourses(ctx context.Context, l Loader, refs []Ref) ([]Course, []Dropped) {
	courses := make([]Course, 0, len(refs))
	var dropped []Dropped

	for _, ref := range refs {
		rows, err := l.Load(ctx, ref.Code)
		if err != nil {
			appLog.Error("could not load timetable; course removed", err, "course", ref.Code)
			dropped = append(dropped, Dropped{Code: ref.Code, Err: err})
			continue
		}
		courses = append(courses, Course{Code: ref.Code, Term: ref.Term, Rows: rows})
	}
	return courses, dropped
}
