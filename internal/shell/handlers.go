package shell

import (
	"context"
	"strconv"
	"strings"

	"github.com/routerlab/mrcli/internal/output"
	"github.com/routerlab/mrcli/internal/targets"
)

// commandDocs holds the help text per command. The first line is the
// short description used in listings and completion annotations.
var commandDocs = map[string]string{
	"cmd": `Executes a command on all targets.

  > cmd show version | i IOS

  > cmd show int desc | i up.*up`,
	"counters": `Displays the agent request counters.`,
	"exit":     `Exits the shell.`,
	"quit":     `Exits the shell.`,
	"help":     `Displays help, for a command if supplied.`,
	"matches": `Displays devices on the agent matching a regexp.

All regexes are anchored to the beginning of the device name.

  > matches ^ar1.*
  Matching device names (1): ar1.mel`,
	"output": `Sets the current output mode.

  > output text      [default]

  > output buffered

  > output csv       [requires field-extraction parsers]`,
	"targets": `Displays or sets the list of target devices commands go to.

To display the current targets, supply no arguments.

Regular expressions are allowed in the target list when prefixed
with ^ to identify them as such.

  > targets ^ar1.*
  Targets changed to: ar1.mel, ar1.syd

  > targets br1.mel,cr2.syd
  Targets changed to: br1.mel, cr2.syd

  > targets
  Current targets [2]: br1.mel, cr2.syd`,
	"timeout": `Displays or sets the timeout, in seconds.

With no argument, displays the current timeout. To set it, supply
an integer or floating point value no smaller than 1.0.

  > timeout 5.0
  Timeout is 5.0 seconds.

  > timeout 0.5
  Error: 1 second is the minimum timeout.
  Timeout is 5.0 seconds.`,
}

func (s *Shell) doExit(_ string) bool {
	return true
}

func (s *Shell) doCounters(_ string) bool {
	s.w.Printf("%s\n", s.client.Counters())
	return false
}

func (s *Shell) doCmd(line string) bool {
	args := strings.Fields(line)
	if len(args) < 2 {
		s.w.Printf("Error: cmd requires a command to execute.\n")
		return false
	}
	command := strings.Join(args[1:], " ")

	if len(s.session.Targets) == 0 {
		s.w.Printf("There are no targets.\n")
		return false
	}

	renderer, ok := s.renderers.Get(s.session.Mode)
	if !ok {
		// Mode invariant: the session mode is always a registered key.
		renderer, _ = s.renderers.Get(output.DefaultMode)
	}

	// csv needs device types; fill the cache before the batch, quietly.
	if renderer.Name() == output.ModeCSV {
		if _, err := s.session.LoadDeviceInfo(context.Background(), s.client, false); err != nil {
			s.log.Warn("device info load failed: %v", err)
		}
	}

	if err := s.executor.Run(
		s.session.Targets, command, s.session.TimeoutDuration(), renderer.Render); err != nil {
		s.printErr(err)
	}
	return false
}

func (s *Shell) doOutput(line string) bool {
	args := strings.Fields(line)
	switch {
	case len(args) == 1:
		s.w.Printf("Error: Output command requires a mode. %q is the default.\n",
			output.DefaultMode)
	case len(args) > 2:
		s.w.Printf("Error: Output modes are a single word only.\n")
	default:
		mode := args[1]
		renderer, ok := s.renderers.Get(mode)
		if !ok {
			s.w.Printf("Error: Unknown output mode. Available: %s.\n",
				strings.Join(s.renderers.Names(), ", "))
			return false
		}
		if err := renderer.Available(); err != nil {
			// Capability missing: the previous mode stays active.
			s.printErr(err)
			return false
		}
		s.session.Mode = mode
		if s.interactive {
			s.w.Printf("Changed to output mode: %s\n", mode)
		}
		if mode == output.ModeCSV {
			s.pollDevices()
		}
	}
	return false
}

// pollDevices warms the device-info cache for csv rendering, announcing
// the inventory size on the first fill.
func (s *Shell) pollDevices() {
	had := s.session.DeviceCount()
	n, err := s.session.LoadDeviceInfo(context.Background(), s.client, false)
	if err != nil {
		s.printErr(err)
		return
	}
	if s.interactive && had == 0 && n > 0 {
		s.w.Printf("Agent polled for %d devices\n", n)
	}
}

func (s *Shell) doTargets(line string) bool {
	args := strings.Fields(line)
	if len(args) < 2 {
		// Read-only display; never mutates the session.
		if len(s.session.Targets) == 0 {
			s.w.Printf("There are no targets.\n")
		} else {
			s.w.Printf("Current targets [%d]: %s\n",
				len(s.session.Targets), s.session.TargetsString())
		}
		return false
	}

	resolved, errs := s.resolver.Expand(
		context.Background(), targets.ParseSpecs(args[1:]), false)
	for _, err := range errs {
		s.printErr(err)
	}
	s.session.Targets = resolved
	s.w.Printf("Targets changed to: %s\n", s.session.TargetsString())
	return false
}

func (s *Shell) doTimeout(line string) bool {
	args := strings.Fields(line)
	if len(args) >= 2 {
		seconds, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			s.w.Printf("Error: The value %q must be float or integer.\n", args[1])
			return false
		}
		if err := s.session.SetTimeout(seconds); err != nil {
			s.w.Printf("Error: 1 second is the minimum timeout.\n")
		}
	}
	s.w.Printf("Timeout is %.1f seconds.\n", s.session.Timeout)
	return false
}

func (s *Shell) doMatches(line string) bool {
	args := strings.Fields(line)
	if len(args) < 2 {
		return false
	}

	resolved, errs := s.resolver.Expand(
		context.Background(), targets.ParseSpecs(args[1:]), true)
	// Failed specs report their error; the rest still resolve.
	for _, err := range errs {
		s.printErr(err)
	}
	if len(resolved) == 0 {
		s.w.Printf("No targets matched your query.\n")
		return false
	}
	s.w.Printf("Matching device names (%d): %s\n",
		len(resolved), strings.Join(resolved, ", "))
	return false
}
