package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"swintt/internal/generate"
	"swintt/internal/ics"
	"swintt/internal/model"
	"swintt/internal/schedule"
)

var (
	colorCyan = lipgloss.Color("#00FFFF")
	colorGray = lipgloss.Color("#666666")

	headingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Width(13)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)
)

// renderGroups prints a course's catalog grouped by type class.
func renderGroups(w io.Writer, code string, groups []model.Group) {
	fmt.Fprintln(w, headingStyle.Render(code))
	if len(groups) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no tutorial or lab groups; lectures only"))
		return
	}
	for _, tc := range schedule.TypeClasses(groups) {
		fmt.Fprintln(w, "  "+labelStyle.Render(model.TypeLabel(tc)+" groups"))
		for _, g := range groups {
			if g.TypeClass() != tc {
				continue
			}
			fmt.Fprintf(w, "    %-8s %s\n", g.ID, dimStyle.Render(g.Description))
		}
	}
}

// renderWeek prints the selected classes by weekday, earliest first.
func renderWeek(w io.Writer, days []generate.Day) {
	if len(days) == 0 {
		fmt.Fprintln(w, dimStyle.Render("No classes selected."))
		return
	}
	for i, d := range days {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headingStyle.Render(d.Weekday.String()))
		for _, s := range d.Slots {
			when := timeStyle.Render(s.Start.Format("15:04") + "-" + s.End.Format("15:04"))
			line := "  " + when + " " + s.Title
			if s.Location != "" {
				line += " " + dimStyle.Render("@ "+s.Location)
			}
			var notes []string
			if s.Weeks > 0 {
				notes = append(notes, fmt.Sprintf("%d weeks", s.Weeks))
			}
			if s.Ranges > 1 {
				notes = append(notes, fmt.Sprintf("%d date ranges", s.Ranges))
			}
			if len(notes) > 0 {
				line += " " + dimStyle.Render("("+strings.Join(notes, ", ")+")")
			}
			fmt.Fprintln(w, line)
		}
	}
}

// renderDecoded prints the events of a decoded calendar.
func renderDecoded(w io.Writer, events []ics.DecodedEvent, loc *time.Location) {
	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("%d events", len(events))))
	for _, ev := range events {
		start := ev.Start.In(loc)
		fmt.Fprintf(w, "  %s %s-%s %s\n",
			start.Format("Mon 2006-01-02"),
			start.Format("15:04"),
			ev.End.In(loc).Format("15:04"),
			strings.ReplaceAll(ev.Summary, "\n", " "),
		)
		var details []string
		if ev.Location != "" {
			details = append(details, "@ "+ev.Location)
		}
		if !ev.Until.IsZero() {
			details = append(details, "weekly until "+ev.Until.Format("2006-01-02"))
		}
		if len(details) > 0 {
			fmt.Fprintln(w, "    "+dimStyle.Render(strings.Join(details, ", ")))
		}
	}
}
