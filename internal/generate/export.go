package generate

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultPrefix = "swinburne-timetable"

var upper = cases.Upper(language.Und)

// Filename suggests "<prefix>-<CODE>-<CODE>.ics". When the courses come
// from more than one term each token becomes "<TERM>_<CODE>". The name is
// advisory only.
func Filename(prefix string, courses []Course) string {
	if prefix == "" {
		prefix = defaultPrefix
	}

	terms := make(map[string]struct{})
	for _, c := range courses {
		terms[strings.TrimSpace(c.Term)] = struct{}{}
	}
	multiTerm := len(terms) > 1

	parts := []string{prefix}
	for _, c := range courses {
		token := upper.String(strings.TrimSpace(c.Code))
		if multiTerm && strings.TrimSpace(c.Term) != "" {
			token = upper.String(strings.TrimSpace(c.Term)) + "_" + token
		}
		parts = append(parts, token)
	}
	return sanitize(strings.Join(parts, "-")) + ".ics"
}

// sanitize keeps the name safe as a single path element.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}

// Export writes the calendar document of res to w.
func Export(w io.Writer, res Result) error {
	if res.Empty || len(res.Document) == 0 {
		return ErrNothingToExport
	}
	_, err := w.Write(res.Document)
	return err
}

// WriteFile writes the calendar to path. An empty path, or a path naming an
// existing directory, uses res.Filename. The written path is returned.
func WriteFile(path string, res Result) (string, error) {
	if res.Empty || len(res.Document) == 0 {
		return "", ErrNothingToExport
	}
	if path == "" {
		path = res.Filename
	} else if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, res.Filename)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, res.Document, 0o644); err != nil {
		return "", fmt.Errorf("generate: write %s: %w", path, err)
	}
	return path, nil
}

// Summary is the one-line report shown after a successful export, e.g.
// "Timetable generated with 3 classes. Estimated study hours per week: 4.5 hours".
func Summary(res Result) string {
	p := message.NewPrinter(language.English)
	hours := math.Round(res.WeeklyHours*10) / 10
	return p.Sprintf("Timetable generated with %d classes. Estimated study hours per week: %v hours", res.Classes, hours)
}
