package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/haricheung/taskrank/internal/tasks"
	"github.com/haricheung/taskrank/internal/ui"
)

// errAborted ends a multi-step prompt early (Ctrl-C or EOF).
var errAborted = errors.New("aborted")

// prompter asks the user for one line of input.
type prompter interface {
	Prompt(label string) (string, error)
}

type rlPrompter struct{ rl *readline.Instance }

func (p rlPrompter) Prompt(label string) (string, error) {
	p.rl.SetPrompt(label)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
		return "", errAborted
	}
	return line, err
}

const helpText = `commands:
  mode [form|json]      show or switch the input mode
  add                   enter one task field by field (form mode)
  tasks                 list manual tasks and the JSON draft
  json [text]           set the JSON draft; without text, read lines until "."
  load <file>           read the JSON draft from a file
  strategy [name]       show or choose the scoring strategy
  ai [on|off]           show or toggle AI-assisted scoring
  analyze               submit the active mode's tasks
  suggest               fetch the service's standing suggestions
  reset                 clear tasks, draft and results
  help                  show this help
  exit, quit            leave`

func (a *app) prompt() string {
	return fmt.Sprintf("taskrank[%s]> ", a.ctrl.Mode())
}

func (a *app) completer() *readline.PrefixCompleter {
	modes := make([]readline.PrefixCompleterInterface, 0, len(tasks.Modes))
	for _, m := range tasks.Modes {
		modes = append(modes, readline.PcItem(string(m)))
	}
	strategies := make([]readline.PrefixCompleterInterface, 0)
	for _, s := range a.ctrl.Strategies() {
		strategies = append(strategies, readline.PcItem(s))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("mode", modes...),
		readline.PcItem("add"),
		readline.PcItem("tasks"),
		readline.PcItem("json"),
		readline.PcItem("load", readline.PcItemDynamic(listFiles)),
		readline.PcItem("strategy", strategies...),
		readline.PcItem("ai", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("analyze"),
		readline.PcItem("suggest"),
		readline.PcItem("reset"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
}

func listFiles(string) []string {
	matches, _ := filepath.Glob("*.json")
	return matches
}

func historyPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	dir = filepath.Join(dir, "taskrank")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

func (a *app) runREPL(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          a.prompt(),
		HistoryFile:     historyPath(),
		AutoComplete:    a.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintf(a.out, "taskrank: prioritizing against %s (type 'help' for commands)\n", a.client.BaseURL())
	p := rlPrompter{rl: rl}

	for ctx.Err() == nil {
		rl.SetPrompt(a.prompt())
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := a.exec(ctx, p, line); quit {
			return nil
		}
	}
	return nil
}

// parseLine splits an input line into a lower-cased command and its argument text.
func parseLine(line string) (string, string) {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// parseOnOff accepts on/off and the forms strconv.ParseBool knows.
func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes", "y":
		return true, nil
	case "off", "no", "n":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
	return b, nil
}

// exec runs one REPL command. It reports true when the session should end.
func (a *app) exec(ctx context.Context, p prompter, line string) bool {
	name, arg := parseLine(line)
	switch name {
	case "":
	case "exit", "quit":
		return true
	case "help", "?":
		fmt.Fprintln(a.out, helpText)
	case "mode":
		a.cmdMode(arg)
	case "add":
		a.cmdAdd(p)
	case "tasks":
		a.cmdTasks()
	case "json":
		a.cmdJSON(p, arg)
	case "load":
		a.cmdLoad(arg)
	case "strategy":
		a.cmdStrategy(arg)
	case "ai":
		a.cmdAI(arg)
	case "analyze":
		reqCtx, cancel := interruptible(ctx)
		_ = a.analyze(reqCtx)
		cancel()
	case "suggest":
		reqCtx, cancel := interruptible(ctx)
		_ = a.suggest(reqCtx)
		cancel()
	case "reset":
		a.ctrl.Reset()
		fmt.Fprintln(a.out, "cleared")
	default:
		a.errorf("unknown command %q (try 'help')", name)
	}
	return false
}

func (a *app) errorf(format string, args ...any) {
	fmt.Fprintf(a.out, "error: "+format+"\n", args...)
}

func (a *app) cmdMode(arg string) {
	if arg == "" {
		fmt.Fprintf(a.out, "mode: %s\n", a.ctrl.Mode())
		return
	}
	m, err := tasks.ParseMode(arg)
	if err != nil {
		a.errorf("%v", err)
		return
	}
	if err := a.ctrl.SwitchMode(m); err != nil {
		a.errorf("%v", err)
	}
}

var formFields = []struct {
	label string
	set   func(*tasks.FormInput, string)
}{
	{"  title: ", func(in *tasks.FormInput, v string) { in.Title = v }},
	{"  due date (YYYY-MM-DD): ", func(in *tasks.FormInput, v string) { in.DueDate = v }},
	{"  estimated hours: ", func(in *tasks.FormInput, v string) { in.EstimatedHours = v }},
	{fmt.Sprintf("  importance 1-10 [%d]: ", tasks.DefaultImportance), func(in *tasks.FormInput, v string) { in.Importance = v }},
	{"  depends on (ids, comma separated): ", func(in *tasks.FormInput, v string) { in.Dependencies = v }},
}

// cmdAdd collects one form entry. A rejected entry is reported by the display
// as a notice and the next add starts from blank fields.
func (a *app) cmdAdd(p prompter) {
	var in tasks.FormInput
	for _, f := range formFields {
		v, err := p.Prompt(f.label)
		if err != nil {
			fmt.Fprintln(a.out, "add cancelled")
			return
		}
		f.set(&in, v)
	}
	task, err := a.ctrl.AddManualTask(in)
	if err != nil {
		return
	}
	fmt.Fprintf(a.out, "added #%d\n", task.ID)
	fmt.Fprintln(a.out, ui.ManualPreview(a.ctrl.ManualTasks()))
	if a.ctrl.Mode() != tasks.ModeForm {
		fmt.Fprintln(a.out, "(switch with 'mode form' to analyze manual tasks)")
	}
}

func (a *app) cmdTasks() {
	fmt.Fprintln(a.out, "manual tasks:")
	fmt.Fprintln(a.out, ui.ManualPreview(a.ctrl.ManualTasks()))
	draft := strings.TrimSpace(a.ctrl.JSONDraft())
	if draft == "" {
		fmt.Fprintln(a.out, "json draft: (empty)")
		return
	}
	fmt.Fprintf(a.out, "json draft: %d bytes\n%s\n", len(draft), draft)
}

// cmdJSON sets the draft from arg, or from following lines up to a lone ".".
func (a *app) cmdJSON(p prompter, arg string) {
	if arg != "" {
		a.ctrl.SetJSON(arg)
		return
	}
	var lines []string
	for {
		line, err := p.Prompt("... ")
		if err != nil {
			fmt.Fprintln(a.out, "json cancelled")
			return
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	a.ctrl.SetJSON(strings.Join(lines, "\n"))
}

func (a *app) cmdLoad(arg string) {
	if arg == "" {
		a.errorf("load needs a file path")
		return
	}
	text, err := readSource(arg, nil)
	if err != nil {
		a.errorf("%v", err)
		return
	}
	a.ctrl.SetJSON(text)
	fmt.Fprintf(a.out, "loaded %d bytes from %s\n", len(text), arg)
}

func (a *app) cmdStrategy(arg string) {
	if arg == "" {
		a.printStrategies()
		return
	}
	if err := a.ctrl.SetStrategy(arg); err != nil {
		a.errorf("%v", err)
	}
}

func (a *app) cmdAI(arg string) {
	if arg == "" {
		fmt.Fprintf(a.out, "ai: %t\n", a.ctrl.UseAI())
		return
	}
	on, err := parseOnOff(arg)
	if err != nil {
		a.errorf("%v", err)
		return
	}
	a.ctrl.SetUseAI(on)
}
