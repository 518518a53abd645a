package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/haricheung/taskrank/internal/api"
	"github.com/haricheung/taskrank/internal/config"
	"github.com/haricheung/taskrank/internal/journal"
	"github.com/haricheung/taskrank/internal/logging"
	"github.com/haricheung/taskrank/internal/ui"
	"github.com/haricheung/taskrank/internal/workflow"
)

// errReported marks a failure the display has already shown to the user.
var errReported = errors.New("reported")

type rootOptions struct {
	configPath string
	baseURL    string
	journalDir string
	verbose    bool
}

// app is one wired session: config, logger, service client, controller and display.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	client  *api.Client
	journal *journal.Journal
	ctrl    *workflow.Controller
	display *ui.Display
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "taskrank",
		Short:         "Rank tasks by priority using a remote scoring service",
		Long:          "taskrank submits tasks to a scoring service and shows them ranked by priority.\nRun without arguments for an interactive session.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			return a.runREPL(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "YAML config file (default $TASKRANK_CONFIG or ./"+config.DefaultFile+")")
	pf.StringVar(&opts.baseURL, "base-url", "", "scoring service base URL, e.g. http://127.0.0.1:8000/api/tasks")
	pf.StringVar(&opts.journalDir, "journal-dir", "", "write a JSONL journal of service requests to this directory")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log every request at debug level")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newSuggestCmd(opts),
		newStrategiesCmd(opts),
	)
	return root
}

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	var (
		strategy string
		useAI    bool
	)
	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Analyze a JSON array of tasks from a file or stdin",
		Example: `  taskrank analyze tasks.json
  echo '[{"title":"Fix login bug","due_date":"2025-11-30","estimated_hours":3,"importance":8}]' | taskrank analyze -`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			text, err := readSource(src, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strategy") {
				if err := a.ctrl.SetStrategy(strategy); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("ai") {
				a.ctrl.SetUseAI(useAI)
			}
			a.ctrl.SetJSON(text)

			ctx, cancel := interruptible(cmd.Context())
			defer cancel()
			return a.analyze(ctx)
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "", "scoring strategy (see 'taskrank strategies')")
	cmd.Flags().BoolVar(&useAI, "ai", false, "ask the service for AI-assisted scoring")
	return cmd
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest",
		Short: "Show the service's standing suggestions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			ctx, cancel := interruptible(cmd.Context())
			defer cancel()
			return a.suggest(ctx)
		},
	}
}

func newStrategiesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "strategies",
		Short: "List the configured scoring strategies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			a.printStrategies()
			return nil
		},
	}
}

// newApp resolves configuration and wires a session for cmd.
func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.journalDir != "" {
		cfg.JournalDir = opts.journalDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, opts.verbose)
	if err != nil {
		return nil, err
	}
	base, err := cfg.ResolveBaseURL()
	if err != nil {
		return nil, err
	}
	journalDir, err := cfg.JournalPath()
	if err != nil {
		return nil, err
	}
	var j *journal.Journal
	if journalDir != "" {
		if j, err = journal.Open(journalDir, base, log); err != nil {
			return nil, err
		}
		log.WithField("path", j.Path()).Debug("taskrank: journaling requests")
	}
	client := api.New(base, api.WithLogger(log), api.WithJournal(j))

	ctrl, err := workflow.New(client, workflow.Settings{
		Strategies: cfg.Strategies,
		Strategy:   cfg.DefaultStrategy,
		UseAI:      cfg.UseAI,
	})
	if err != nil {
		_ = j.Close()
		return nil, err
	}

	out := cmd.OutOrStdout()
	width, animate := terminalInfo(out)
	display := ui.New(out, width, animate)
	ctrl.Observe(display.Handle)

	log.WithFields(logrus.Fields{
		"session_id": j.ID(),
		"base_url":   client.BaseURL(),
		"strategy":   cfg.DefaultStrategy,
		"use_ai":     cfg.UseAI,
	}).Debug("taskrank: session ready")

	return &app{cfg: cfg, log: log, client: client, journal: j, ctrl: ctrl, display: display, out: out}, nil
}

func (a *app) close() {
	if err := a.journal.Close(); err != nil {
		a.log.WithError(err).Warn("taskrank: close journal")
	}
}

// terminalInfo reports the card width and whether the spinner may animate.
func terminalInfo(out io.Writer) (int, bool) {
	f, ok := out.(*os.File)
	if !ok || !readline.IsTerminal(int(f.Fd())) {
		return ui.DefaultWidth, false
	}
	w := readline.GetScreenWidth()
	if w <= 0 {
		w = ui.DefaultWidth
	}
	return w, true
}

func (a *app) analyze(ctx context.Context) error {
	a.display.SetBusyLabel(fmt.Sprintf("analyzing with %q...", a.ctrl.Strategy()))
	if err := a.ctrl.Submit(ctx); err != nil {
		return errReported
	}
	if a.ctrl.Presentation().Error != "" {
		return errReported
	}
	return nil
}

func (a *app) suggest(ctx context.Context) error {
	a.display.SetBusyLabel("fetching suggestions...")
	a.ctrl.FetchSuggestions(ctx)
	if a.ctrl.Presentation().Error != "" {
		return errReported
	}
	return nil
}

func (a *app) printStrategies() {
	for _, s := range a.ctrl.Strategies() {
		mark := " "
		if s == a.ctrl.Strategy() {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %s\n", mark, s)
	}
}

// readSource reads a JSON draft from path, or from stdin when path is "-".
func readSource(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		if stdin == nil {
			return "", errors.New("stdin is not available here")
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(strings.TrimSpace(path))
	if err != nil {
		return "", fmt.Errorf("read tasks: %w", err)
	}
	return string(data), nil
}
