package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/projdock/internal/config"
	"github.com/harrison/projdock/internal/launcher"
	"github.com/harrison/projdock/internal/logger"
	"github.com/harrison/projdock/internal/models"
	"github.com/harrison/projdock/internal/scanner"
	"github.com/harrison/projdock/internal/store"
	"github.com/harrison/projdock/internal/telemetry"
)

// newOpener builds the launcher; tests replace it to capture launches
var newOpener = func(log logger.Logger) *launcher.Opener {
	return launcher.New(log)
}

// app is the per-invocation state shared by the subcommands
type app struct {
	cfg        *config.Config
	home       string
	configPath string

	out      io.Writer
	errOut   io.Writer
	colorize bool

	console *logger.ConsoleLogger
	fileLog *logger.FileLogger
	log     logger.Logger

	store     *store.Store
	telemetry *telemetry.Recorder
	opener    *launcher.Opener
}

// loadApp reads configuration and persistent flags. The database is opened
// on first use by openStore.
func loadApp(cmd *cobra.Command) (*app, error) {
	flags := cmd.Flags()

	home, err := config.GetHome()
	if err != nil {
		return nil, err
	}

	configPath, _ := flags.GetString("config")
	if configPath == "" {
		configPath = filepath.Join(home, config.FileName)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	var overrides config.FlagOverrides
	if flags.Changed("db") {
		db, _ := flags.GetString("db")
		overrides.DBPath = &db
	}
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		overrides.LogLevel = &level
	}
	if verbose, _ := flags.GetBool("verbose"); verbose && overrides.LogLevel == nil {
		level := "debug"
		overrides.LogLevel = &level
	}
	cfg.MergeWithFlags(overrides)
	cfg.ResolvePaths(home)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	a := &app{
		cfg:        cfg,
		home:       home,
		configPath: configPath,
		out:        cmd.OutOrStdout(),
		errOut:     cmd.ErrOrStderr(),
	}
	a.colorize = logger.IsTerminal(a.out) && !color.NoColor
	a.console = logger.NewConsoleLogger(a.errOut, cfg.LogLevel)

	a.log = a.console
	if fl, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel); err != nil {
		a.console.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
	} else {
		a.fileLog = fl
		a.log = logger.Multi(a.console, fl)
	}
	a.opener = newOpener(a.log)
	return a, nil
}

// openStore opens the database and the telemetry recorder
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := store.NewStore(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.telemetry = telemetry.NewRecorder(ctx, st, a.log, a.cfg.Telemetry.Enabled, a.cfg.Telemetry.KeepDays)
	a.log.LogDebug(fmt.Sprintf("database: %s", a.cfg.DBPath))
	return st, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.LogWarn(fmt.Sprintf("close database: %v", err))
		}
	}
	if a.fileLog != nil {
		a.fileLog.Close()
	}
}

// record stores a telemetry event when the database is open
func (a *app) record(ctx context.Context, name string, payload map[string]any) {
	a.telemetry.Record(ctx, name, payload)
}

// withApp wraps a RunE body with app setup and teardown
func withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}

// withStore is withApp with the database already opened
func withStore(fn func(cmd *cobra.Command, args []string, a *app, st *store.Store) error) func(*cobra.Command, []string) error {
	return withApp(func(cmd *cobra.Command, args []string, a *app) error {
		st, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		return fn(cmd, args, a, st)
	})
}

// resolveProject finds a stored project by the number a user typed
func (a *app) resolveProject(ctx context.Context, st *store.Store, number string) (*models.Project, error) {
	p, err := st.FindProjectByNumber(ctx, number)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no project numbered %q (run \"projdock scan\" to refresh)", number)
	}
	return p, err
}

// documentOptions maps the documents config onto scanner options
func (a *app) documentOptions() scanner.DocumentOptions {
	opts := scanner.DefaultDocumentOptions()
	opts.Extensions = a.cfg.Documents.Extensions
	opts.ExcludeDirs = a.cfg.Documents.ExcludeDirs
	opts.MaxDepth = a.cfg.Documents.MaxDepth
	opts.IncludeOther = a.cfg.Documents.IncludeOther
	if len(a.cfg.RevitFolderNames) > 0 {
		opts.RevitFolderNames = a.cfg.RevitFolderNames
	}
	if len(a.cfg.Disciplines) > 0 {
		aliases := make(map[models.Discipline][]string, len(a.cfg.Disciplines))
		for name, list := range a.cfg.Disciplines {
			if d, ok := models.ParseDiscipline(name); ok {
				aliases[d] = list
			}
		}
		opts.DisciplineAliases = aliases
	}
	return opts
}

// openProject opens a project folder and counts the launch
func (a *app) openProject(ctx context.Context, st *store.Store, p *models.Project) error {
	if err := a.opener.Open(ctx, p.Path); err != nil {
		return err
	}
	if err := st.RecordLaunch(ctx, p.ID); err != nil {
		return fmt.Errorf("record launch: %w", err)
	}
	a.record(ctx, telemetry.EventOpenProject, map[string]any{"number": p.FullNumber})
	a.log.LogInfo(fmt.Sprintf("opened %s", p.DisplayName()))
	return nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
