package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"swintt/internal/config"
	appLog "swintt/internal/log"
	"swintt/internal/source"
)

const version = "0.1.0"

// globalFlags are parsed before the subcommand name.
type globalFlags struct {
	configPath string
	logLevel   string
}

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *cliEnv, args []string) error
}

// cliEnv is what every subcommand runs against.
type cliEnv struct {
	cfg    *config.Config
	loader source.Loader
	stdout io.Writer
}

var commands = []command{
	{name: "groups", summary: "list the tutorial/lab groups of a course", run: runGroups},
	{name: "generate", summary: "write the selected classes to an .ics file", run: runGenerate},
	{name: "preview", summary: "show the selected classes by weekday", run: runPreview},
	{name: "inspect", summary: "list the events of an .ics file", run: runInspect},
	{name: "serve", summary: "start the HTTP API", run: runServe},
}

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("timetable", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var gf globalFlags
	fs.StringVar(&gf.configPath, "config", "./config.yaml", "Path to config file")
	fs.StringVar(&gf.logLevel, "log-level", "", "debug, info, warn or error (overrides config if set)")
	fs.Usage = func() { usage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		usage(stderr, fs)
		return 2
	}

	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", fs.Arg(0))
		usage(stderr, fs)
		return 2
	}

	appLog.SetOutput(stderr)
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", gf.configPath)
		return 1
	}
	if gf.logLevel != "" {
		cfg.LogLevel = gf.logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))

	appLog.Debug("effective config",
		"command", cmd.name,
		"timezone", cfg.Timezone,
		"data_dir", cfg.DataDir,
		"source_url", cfg.SourceURL,
		"refresh", cfg.RefreshCron,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	env := &cliEnv{cfg: cfg, loader: newLoader(cfg), stdout: stdout}
	if err := cmd.run(ctx, env, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

// newLoader reads timetables over HTTP when a source URL is configured and
// from the data directory otherwise.
func newLoader(cfg *config.Config) source.Loader {
	if cfg.SourceURL != "" {
		return source.NewFetcher(cfg.SourceURL, cfg.CacheDir)
	}
	return source.Dir(cfg.DataDir)
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, "timetable %s\n\nUsage: timetable [flags] <command> [command flags]\n\nCommands:\n", version)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w, "\nFlags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
