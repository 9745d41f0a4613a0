// Package shell implements the interactive multi-router command loop.
// One typed command resolves through a prefix trie, possibly abbreviated,
// and dispatches to a handler that receives the entire line. The loop is
// strictly single-threaded and cooperative: it blocks only while reading
// the next line, and all asynchronous work rides on the agent client's
// goroutines behind the fan-out executor.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"github.com/routerlab/mrcli/internal/broker"
	"github.com/routerlab/mrcli/internal/errors"
	"github.com/routerlab/mrcli/internal/fanout"
	"github.com/routerlab/mrcli/internal/fields"
	"github.com/routerlab/mrcli/internal/logger"
	"github.com/routerlab/mrcli/internal/output"
	"github.com/routerlab/mrcli/internal/targets"
	"github.com/routerlab/mrcli/internal/trie"
)

// EOFSentinel is dispatched when the input stream ends, exactly like
// typed input. The menu maps it to the exit handler.
const EOFSentinel = "__EOF__"

const promptPrefix = "mr.cli"

// Handler executes one command line. A true return stops the loop.
type Handler func(line string) bool

// Options configures a Shell.
type Options struct {
	// Stdout receives all shell output. Defaults to os.Stdout.
	Stdout io.Writer
	// Interactive marks loop-driven use: banners, mode-change echoes,
	// and the csv raw-text fallback are enabled. One-shot runs leave
	// this false.
	Interactive bool
	// Extractor backs the csv output mode. Nil marks csv unavailable
	// for the whole session.
	Extractor fields.Extractor
	// Targets seeds the session target set. Specs carrying the regex
	// marker are expanded immediately.
	Targets []string
	// HistoryFile, when set, persists readline history.
	HistoryFile string
}

// Shell is the interactive loop and its collaborators.
type Shell struct {
	client    broker.Client
	session   *Session
	resolver  *targets.Resolver
	executor  *fanout.Executor
	renderers *output.Registry
	completer *Completer

	menu     map[string]Handler
	docs     map[string]string
	registry *trie.Trie

	w           *output.SyncWriter
	rl          *readline.Instance
	historyFile string
	interactive bool
	lastLine    string
	log         logger.Logger

	// PreHook runs on each raw line before dispatch; identity by default.
	PreHook func(line string) string
	// PostHook runs on each handler result; identity by default.
	PostHook func(stop bool, line string) bool
}

// New creates a shell bound to an agent client.
func New(client broker.Client, opts Options) *Shell {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	s := &Shell{
		client:      client,
		session:     NewSession(),
		resolver:    targets.NewResolver(client),
		executor:    fanout.New(client),
		w:           output.NewSyncWriter(stdout),
		historyFile: opts.HistoryFile,
		interactive: opts.Interactive,
		log:         logger.NewEnvLogger("[shell]"),
		PreHook:     func(line string) string { return line },
		PostHook:    func(stop bool, line string) bool { return stop },
	}

	s.renderers = output.NewRegistry()
	s.renderers.Register(output.NewTextRenderer(s.w))
	s.renderers.Register(output.NewBufferedTextRenderer(s.w, s.session.Buffers))
	s.renderers.Register(output.NewCSVRenderer(
		s.w, opts.Extractor, s.session.DeviceType, opts.Interactive))

	s.buildMenu()
	s.completer = NewCompleter(s.registry, s.docs, map[string]bool{EOFSentinel: true})

	if len(opts.Targets) > 0 {
		resolved, errs := s.resolver.Expand(
			context.Background(), targets.ParseSpecs(opts.Targets), false)
		for _, err := range errs {
			s.printErr(err)
		}
		s.session.Targets = resolved
	}

	return s
}

// Session exposes the session state, mainly for tests and the CLI layer.
func (s *Shell) Session() *Session {
	return s.session
}

// buildMenu registers the command handlers and their help text.
func (s *Shell) buildMenu() {
	s.menu = map[string]Handler{
		"exit":      s.doExit,
		"quit":      s.doExit,
		"help":      s.doHelp,
		EOFSentinel: s.doExit,
		"counters":  s.doCounters,
		"cmd":       s.doCmd,
		"output":    s.doOutput,
		"targets":   s.doTargets,
		"timeout":   s.doTimeout,
		"matches":   s.doMatches,
	}
	s.docs = commandDocs

	s.registry = trie.New()
	for name := range s.menu {
		s.registry.Insert(name)
	}
}

// Dispatch interprets one line as though it had been typed at the
// prompt, returning true when the loop should stop. An empty line
// re-dispatches the last non-empty command exactly once.
func (s *Shell) Dispatch(line string) bool {
	line = s.PreHook(line)
	stop := s.dispatch(line)
	return s.PostHook(stop, line)
}

func (s *Shell) dispatch(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if strings.TrimSpace(trimmed) == "" {
		if s.lastLine == "" {
			return false
		}
		// Single re-dispatch; the saved line is never empty so this
		// cannot recurse further.
		return s.invoke(s.lastLine)
	}

	s.lastLine = trimmed
	return s.invoke(trimmed)
}

func (s *Shell) invoke(line string) bool {
	firstToken := strings.Fields(line)[0]
	name, ok := s.registry.Resolve(firstToken)
	if !ok {
		s.unknown(line)
		return false
	}
	return s.menu[name](line)
}

// unknown handles lines whose first token matches no registered command.
func (s *Shell) unknown(line string) {
	s.w.Printf("Error: Unknown command: %s. Try \"help\".\n", line)
}

// interrupted handles Ctrl-C at the prompt. With requests outstanding
// it cancels them all, once, and keeps the loop alive; otherwise it
// stops the loop.
func (s *Shell) interrupted() bool {
	return !s.cancelOutstanding()
}

// cancelOutstanding cancels every in-flight request, reporting whether
// any were outstanding.
func (s *Shell) cancelOutstanding() bool {
	if s.client.Counters().Outstanding() == 0 {
		return false
	}
	s.w.Printf("\nCancelling all requests.\n")
	s.client.KillAll()
	return true
}

// dispatchInterruptible runs one dispatch while watching for SIGINT.
// Readline translates the signal to ErrInterrupt only while a read is
// in progress; during handler execution the terminal is cooked and the
// signal would otherwise kill the process. Cancelling the outstanding
// requests completes them, which unblocks the fan-out wait and lets
// the dispatch finish normally.
func (s *Shell) dispatchInterruptible(line string) bool {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)

	done := make(chan bool, 1)
	go func() { done <- s.Dispatch(line) }()

	for {
		select {
		case stop := <-done:
			return stop
		case <-sigc:
			s.cancelOutstanding()
		}
	}
}

// Run drives the interactive loop until a handler stops it or input
// ends. It owns the readline instance for the duration.
func (s *Shell) Run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     s.historyFile,
		AutoComplete:    s.completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot initialize the terminal", "")
	}
	s.rl = rl
	defer func() {
		rl.Close()
		s.rl = nil
	}()

	for {
		line, err := rl.Readline()
		switch err {
		case nil:
		case readline.ErrInterrupt:
			if s.interrupted() {
				return nil
			}
			continue
		case io.EOF:
			line = EOFSentinel
		default:
			return errors.WrapWithCode(err, errors.ErrInput, "Cannot read input", "")
		}

		if listing, ok := s.helpQuery(line); ok {
			s.w.Printf("%s", listing)
			continue
		}

		if s.dispatchInterruptible(line) {
			return nil
		}
		rl.SetPrompt(s.prompt())
	}
}

// RunOnce executes a single command non-interactively: optional output
// mode first (so capability rejection applies), then the fan-out.
func (s *Shell) RunOnce(command, mode string) {
	if mode != "" && mode != output.DefaultMode {
		s.doOutput("output " + mode)
	}
	s.doCmd("cmd " + command)
}

// helpQuery reports whether the line is an inline help request: a lone
// command prefix ending in ?, with no arguments. Lines carrying
// arguments always dispatch, since ? is ordinary text in device
// commands and regular expressions.
func (s *Shell) helpQuery(line string) (string, bool) {
	q := strings.TrimSpace(line)
	if !strings.HasSuffix(q, "?") {
		return "", false
	}
	if strings.ContainsAny(strings.TrimSuffix(q, "?"), " \t") {
		return "", false
	}
	return s.completer.HelpListing(q), true
}

func (s *Shell) prompt() string {
	return fmt.Sprintf("%s [t: %d] > ", promptPrefix, len(s.session.Targets))
}

func (s *Shell) printErr(err error) {
	s.w.Printf("%s", err.Error())
}
