package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/alnah/go-mdcompose"
	"github.com/alnah/go-mdcompose/internal/config"
	"github.com/alnah/go-mdcompose/internal/hints"
)

// session is one invocation: parsed flags, environment and the project it
// loaded.
type session struct {
	flags      *cliFlags
	env        *Environment
	configPath string // loaded project file, empty for the built-in pairs
	cfg        *config.Config
}

// runMain runs mdcompose with args (without the program name) and returns
// the process exit code.
func runMain(args []string, env *Environment) int {
	flags, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v\n", err)
		fmt.Fprintln(env.Stderr, "Run 'mdcompose --help' for usage.")
		return exitCodeFor(err)
	}

	if flags.help {
		printUsage(env.Stdout)
		return ExitSuccess
	}
	if flags.version {
		fmt.Fprintf(env.Stdout, "mdcompose %s\n", Version)
		return ExitSuccess
	}

	warnUnknownEnvVars(env.Stderr)

	ctx, stop := notifyContext(context.Background())
	defer stop()

	s := &session{flags: flags, env: env}
	if err := s.run(ctx); err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, s.hint(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// run loads the project and runs the selected mode.
func (s *session) run(ctx context.Context) error {
	envCfg := loadEnvConfig()

	if err := s.loadConfig(envCfg.ConfigPath); err != nil {
		return err
	}

	if s.flags.printConfig {
		data, err := config.Marshal(s.cfg)
		if err != nil {
			return err
		}
		_, err = s.env.Stdout.Write(data)
		return err
	}

	opts, err := s.composerOptions(envCfg)
	if err != nil {
		return err
	}
	composer := mdcompose.New(opts...)
	pairs := s.pairs()

	switch {
	case s.flags.check:
		results, err := composer.Check(ctx, pairs)
		if err != nil {
			return err
		}
		s.printResults(results)
		return nil

	case s.flags.watch:
		if !s.flags.quiet {
			fmt.Fprintf(s.env.Stdout, "Watching %d document(s), press Ctrl+C to stop\n", len(pairs))
		}
		return mdcompose.Watch(ctx, composer, pairs, mdcompose.WatchOptions{
			OnBuild: func(results []mdcompose.Result, err error) {
				if err != nil {
					fmt.Fprintf(s.env.Stderr, "error: %v%s\n", err, s.hint(err))
					return
				}
				s.printResults(results)
			},
		})

	default:
		results, err := composer.Compose(ctx, pairs)
		if err != nil {
			return err
		}
		s.printResults(results)
		return nil
	}
}

// loadConfig picks the project file: --config, then MDCOMPOSE_CONFIG, then a
// default file name in the working directory, then the built-in pairs.
func (s *session) loadConfig(envPath string) error {
	path := s.flags.config
	if path == "" {
		path = envPath
	}

	if path == "" {
		wd, err := s.env.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		found, err := config.Discover(wd)
		if err != nil {
			if !errors.Is(err, config.ErrConfigNotFound) {
				return err
			}
			s.cfg = config.DefaultConfig()
			s.cfg.BaseDir = wd
			return nil
		}
		path = found
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	s.cfg = cfg
	s.configPath = path
	return nil
}

// pairs converts the configured documents into composer pairs, resolving
// paths against the project directory.
func (s *session) pairs() []mdcompose.Pair {
	pairs := make([]mdcompose.Pair, 0, len(s.cfg.Documents))
	for _, d := range s.cfg.Documents {
		pairs = append(pairs, mdcompose.Pair{
			Source: s.cfg.Resolve(d.Source),
			Output: s.cfg.Resolve(d.Output),
			TOC:    d.TOC,
			HTML:   s.cfg.Resolve(d.HTML),
		})
	}
	return pairs
}

// composerOptions maps flags, environment and project file onto composer
// options. Precedence: flags > environment > project file > defaults.
func (s *session) composerOptions(envCfg *envConfig) ([]mdcompose.Option, error) {
	workers := s.cfg.Workers
	if envCfg.Workers > 0 {
		workers = envCfg.Workers
	}
	if s.flags.workersSet {
		workers = s.flags.workers
	}
	tocOpts, err := s.tocOptions()
	if err != nil {
		return nil, err
	}

	opts := []mdcompose.Option{
		mdcompose.WithWorkers(workers),
		mdcompose.WithIncludeOptions(mdcompose.IncludeOptions{
			ResolveFrom: s.cfg.Resolve(s.cfg.Include.ResolveFrom),
			Allow:       s.cfg.Include.Allow,
			AllowBase:   s.cfg.BaseDir,
			RebaseLinks: s.cfg.Include.RebaseEnabled(),
		}),
		mdcompose.WithTOCOptions(tocOpts),
	}

	if s.flags.verbose {
		logger := slog.New(slog.NewTextHandler(s.env.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, mdcompose.WithLogger(logger))
	}
	return opts, nil
}

// tocOptions compiles the project's TOC settings.
func (s *session) tocOptions() (mdcompose.TOCOptions, error) {
	opts := mdcompose.DefaultTOCOptions()
	toc := s.cfg.TOC

	if toc.Heading != "" {
		re, err := regexp.Compile(toc.Heading)
		if err != nil {
			return opts, fmt.Errorf("%w: toc.heading: %v", config.ErrInvalidConfig, err)
		}
		opts.Heading = re
	}
	if toc.Skip != "" {
		re, err := regexp.Compile(toc.Skip)
		if err != nil {
			return opts, fmt.Errorf("%w: toc.skip: %v", config.ErrInvalidConfig, err)
		}
		opts.Skip = re
	}
	if toc.MaxDepth != 0 {
		opts.MaxDepth = toc.MaxDepth
	}
	opts.Ordered = toc.Ordered
	opts.Tight = toc.TightEnabled()
	return opts, nil
}

// printResults reports each pair on stdout.
func (s *session) printResults(results []mdcompose.Result) {
	if s.flags.quiet {
		return
	}

	changed := 0
	for _, r := range results {
		if r.Changed {
			changed++
		}

		output := s.display(r.Output)
		switch {
		case s.flags.verbose:
			fmt.Fprintf(s.env.Stdout, "%s -> %s (%d bytes, %d includes, %v)\n",
				s.display(r.Source), output, r.Bytes, len(r.Includes), r.Duration.Round(time.Millisecond))
		case s.flags.check:
			fmt.Fprintf(s.env.Stdout, "Up to date %s\n", output)
		case r.Changed:
			fmt.Fprintf(s.env.Stdout, "Composed %s\n", output)
		default:
			fmt.Fprintf(s.env.Stdout, "Unchanged %s\n", output)
		}
	}

	if !s.flags.check && len(results) > 1 {
		fmt.Fprintf(s.env.Stdout, "\n%d composed, %d unchanged\n", changed, len(results)-changed)
	}
}

// display shortens path relative to the project directory when possible.
func (s *session) display(path string) string {
	if s.cfg == nil || s.cfg.BaseDir == "" {
		return path
	}
	rel, err := filepath.Rel(s.cfg.BaseDir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// hint returns an actionable suffix for err, or "".
func (s *session) hint(err error) string {
	var stale *mdcompose.StaleError
	var cycle *mdcompose.CircularIncludeError

	switch {
	case errors.As(err, &stale):
		return hints.ForStale()
	case errors.As(err, &cycle):
		return hints.ForCircularInclude()
	case errors.Is(err, mdcompose.ErrIncludeNotAllowed):
		var allow []string
		if s.cfg != nil {
			allow = s.cfg.Include.Allow
		}
		return hints.ForIncludeNotAllowed(allow)
	case errors.Is(err, mdcompose.ErrIncludeResolution):
		return hints.ForIncludeResolution()
	case errors.Is(err, mdcompose.ErrNotFound):
		return hints.ForNotFound(s.configPath)
	case errors.Is(err, mdcompose.ErrWrite):
		return hints.ForWrite()
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	}
	return ""
}
