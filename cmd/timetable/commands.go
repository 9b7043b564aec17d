package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"swintt/internal/generate"
	"swintt/internal/ics"
	appLog "swintt/internal/log"
	"swintt/internal/model"
	"swintt/internal/schedule"
	"swintt/internal/source"
	"swintt/internal/web"
)

// courseList collects -course values: "COS10003", "COS10003@2025_S1" or a
// comma-separated list of either.
type courseList []source.Ref

func (c *courseList) String() string {
	parts := make([]string, 0, len(*c))
	for _, r := range *c {
		parts = append(parts, r.Code)
	}
	return strings.Join(parts, ",")
}

func (c *courseList) Set(v string) error {
	for _, tok := range strings.Split(v, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		code, term, _ := strings.Cut(tok, "@")
		*c = append(*c, source.Ref{
			Code: strings.ToUpper(strings.TrimSpace(code)),
			Term: strings.TrimSpace(term),
		})
	}
	return nil
}

// groupFlags collects -group CODE=GROUP values. A later choice of the same
// type class replaces the earlier one.
type groupFlags map[string]model.GroupSelection

func (g groupFlags) String() string {
	var parts []string
	for code, sel := range g {
		for _, id := range sel.IncludedGroups {
			parts = append(parts, code+"="+id)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (g groupFlags) Set(v string) error {
	code, id, ok := strings.Cut(v, "=")
	code = strings.ToUpper(strings.TrimSpace(code))
	id = strings.ToUpper(strings.TrimSpace(id))
	if !ok || code == "" || id == "" {
		return fmt.Errorf("want CODE=GROUP (e.g. COS10003=TU1-01), got %q", v)
	}
	g[code] = schedule.Select(g[code], id)
	return nil
}

// selectionFlags are shared by generate and preview.
type selectionFlags struct {
	courses courseList
	groups  groupFlags
}

func (sf *selectionFlags) register(fs *flag.FlagSet) {
	sf.groups = groupFlags{}
	fs.Var(&sf.courses, "course", "Course code, CODE@TERM, or a comma-separated list (repeatable)")
	fs.Var(sf.groups, "group", "Selected group as CODE=GROUP, e.g. COS10003=TU1-01 (repeatable)")
}

// request loads the selected courses and builds the generation request.
// Courses that cannot be loaded are reported and left out.
func (sf *selectionFlags) request(ctx context.Context, env *cliEnv) (generate.Request, error) {
	if len(sf.courses) == 0 {
		return generate.Request{}, generate.ErrNoCourses
	}
	loc, err := env.cfg.Location()
	if err != nil {
		return generate.Request{}, err
	}

	courses, dropped := source.LoadCourses(ctx, env.loader, sf.courses)
	for _, d := range dropped {
		fmt.Fprintf(env.stdout, "Could not load timetable for %s; course removed.\n", d.Code)
	}
	if len(courses) == 0 {
		return generate.Request{}, errors.New("no timetable could be loaded")
	}

	return generate.Request{
		Courses:        courses,
		Selections:     sf.groups,
		Location:       loc,
		FilenamePrefix: env.cfg.FilenamePrefix,
	}, nil
}

func runGroups(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("groups", flag.ContinueOnError)
	var courses courseList
	fs.Var(&courses, "course", "Course code (repeatable)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if len(courses) == 0 {
		fmt.Fprintln(fs.Output(), "groups: -course is required")
		return errUsage
	}

	loaded, dropped := source.LoadCourses(ctx, env.loader, courses)
	for _, d := range dropped {
		fmt.Fprintf(env.stdout, "Could not load timetable for %s; course removed.\n", d.Code)
	}
	for _, c := range loaded {
		renderGroups(env.stdout, c.Code, schedule.BuildCatalog(c.Code, c.Rows))
	}
	if len(loaded) == 0 {
		return errors.New("no timetable could be loaded")
	}
	return nil
}

func runGenerate(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	var sf selectionFlags
	sf.register(fs)
	out := fs.String("out", "", "Output file or directory (default: suggested filename)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	req, err := sf.request(ctx, env)
	if err != nil {
		return err
	}
	res, err := generate.Run(req)
	if err != nil {
		return err
	}
	if res.Empty {
		fmt.Fprintln(env.stdout, "No events to export. Please check your course and group selections.")
		return nil
	}

	path, err := generate.WriteFile(*out, res)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.stdout, generate.Summary(res))
	fmt.Fprintln(env.stdout, "Written to", path)
	return nil
}

func runPreview(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	var sf selectionFlags
	sf.register(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	req, err := sf.request(ctx, env)
	if err != nil {
		return err
	}
	days, err := generate.Week(req)
	if err != nil {
		return err
	}
	renderWeek(env.stdout, days)
	return nil
}

func runInspect(_ context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	in := fs.String("in", "", "Path to an .ics file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *in == "" {
		fmt.Fprintln(fs.Output(), "inspect: -in is required")
		return errUsage
	}

	body, err := os.ReadFile(*in)
	if err != nil {
		return err
	}
	events, err := ics.Decode(body)
	if err != nil {
		return err
	}
	loc, err := env.cfg.Location()
	if err != nil {
		return err
	}
	renderDecoded(env.stdout, events, loc)
	return nil
}

func runServe(ctx context.Context, env *cliEnv, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", "", "HTTP listen address (overrides config if set)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *listen != "" {
		env.cfg.Listen = *listen
	}

	store := source.NewStore(env.loader)
	if err := store.Schedule(env.cfg.RefreshCron); err != nil {
		return err
	}
	defer store.Stop()

	appLog.Info("timetable server starting", "version", version, "timezone", env.cfg.Timezone)
	return web.StartServer(ctx, env.cfg, store)
}
