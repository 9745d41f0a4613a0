package shell

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/routerlab/mrcli/internal/broker"
	brokertest "github.com/routerlab/mrcli/internal/broker/testing"
	"github.com/routerlab/mrcli/internal/fields"
	"github.com/stretchr/testify/assert"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func newTestShell(t *testing.T, opts Options) (*Shell, *brokertest.FakeClient, *bytes.Buffer) {
	t.Helper()
	fc := brokertest.NewFakeClient()
	fc.AddDevice("ar1.mel", "cisco", "mel output")
	fc.AddDevice("ar1.syd", "cisco", "syd output")
	fc.AddDevice("br1.mel", "juniper", "br1 output")

	var buf bytes.Buffer
	opts.Stdout = &buf
	return New(fc, opts), fc, &buf
}

func TestDispatch_FullCommandName(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	stop := s.Dispatch("timeout")

	assert.False(t, stop)
	assert.Equal(t, "Timeout is 90.0 seconds.\n", buf.String())
}

func TestDispatch_AbbreviatedCommand(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("ti 5")

	assert.Equal(t, "Timeout is 5.0 seconds.\n", buf.String())
	assert.Equal(t, 5.0, s.Session().Timeout)
}

func TestDispatch_TieBreakPrefersShorterName(t *testing.T) {
	// "c" matches both cmd and counters; cmd is shorter and wins.
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("c")

	assert.Contains(t, buf.String(), "cmd requires a command")
}

func TestDispatch_TieBreakLexicographicAmongEqualLengths(t *testing.T) {
	// "t" matches targets and timeout, both 7 runes; targets sorts first.
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("t")

	assert.Equal(t, "There are no targets.\n", buf.String())
}

func TestDispatch_UnknownCommandKeepsLoopAlive(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	stop := s.Dispatch("frobnicate everything")

	assert.False(t, stop)
	assert.Contains(t, buf.String(), `Unknown command: frobnicate everything. Try "help".`)
}

func TestDispatch_EmptyLineRepeatsLastCommandOnce(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("timeout")
	s.Dispatch("")

	want := "Timeout is 90.0 seconds.\nTimeout is 90.0 seconds.\n"
	assert.Equal(t, want, buf.String())
}

func TestDispatch_EmptyLineWithNoHistoryIsQuiet(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	stop := s.Dispatch("   ")

	assert.False(t, stop)
	assert.Empty(t, buf.String())
}

func TestDispatch_EOFSentinelExits(t *testing.T) {
	s, _, _ := newTestShell(t, Options{})

	assert.True(t, s.Dispatch(EOFSentinel))
	assert.True(t, s.Dispatch("exit"))
	assert.True(t, s.Dispatch("quit"))
}

func TestHooks(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	var preSaw, postSaw string
	s.PreHook = func(line string) string {
		preSaw = line
		return "timeout" // rewrite the line before dispatch
	}
	s.PostHook = func(stop bool, line string) bool {
		postSaw = line
		return true // force the loop to stop
	}

	stop := s.Dispatch("anything at all")

	assert.True(t, stop)
	assert.Equal(t, "anything at all", preSaw)
	assert.Equal(t, "timeout", postSaw)
	assert.Contains(t, buf.String(), "Timeout is")
}

func TestTimeout_FloorRejectionKeepsPreviousValue(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("timeout 5.0")
	buf.Reset()

	s.Dispatch("timeout 0.5")

	assert.Equal(t,
		"Error: 1 second is the minimum timeout.\nTimeout is 5.0 seconds.\n",
		buf.String())
	assert.Equal(t, 5.0, s.Session().Timeout)
}

func TestTimeout_NonNumericValue(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("timeout fast")

	assert.Contains(t, buf.String(), `The value "fast" must be float or integer.`)
	assert.Equal(t, DefaultTimeout, s.Session().Timeout)
}

func TestTargets_SetLiteralList(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("targets br1.mel,ar1.syd")

	assert.Equal(t, []string{"br1.mel", "ar1.syd"}, s.Session().Targets)
	assert.Contains(t, buf.String(), "Targets changed to: ar1.syd, br1.mel")
}

func TestTargets_RegexpExpansion(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("targets ^ar1.*")

	assert.ElementsMatch(t, []string{"ar1.mel", "ar1.syd"}, s.Session().Targets)
	assert.Contains(t, buf.String(), "Targets changed to: ar1.mel, ar1.syd")
}

func TestTargets_DisplayIsReadOnly(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})
	s.Dispatch("targets br1.mel")
	buf.Reset()

	s.Dispatch("targets")

	assert.Equal(t, "Current targets [1]: br1.mel\n", buf.String())
	assert.Equal(t, []string{"br1.mel"}, s.Session().Targets)
}

func TestTargets_LookupFailureLeavesOtherSpecsResolved(t *testing.T) {
	s, fc, buf := newTestShell(t, Options{})
	fc.LookupErr = &broker.Error{Message: "agent unreachable"}

	s.Dispatch("targets ^ar1.* br1.mel")

	assert.Contains(t, buf.String(), "Device lookup failed for ^ar1.*")
	assert.Equal(t, []string{"br1.mel"}, s.Session().Targets)
}

func TestMatches(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("matches ^ar1.*")
	assert.Contains(t, buf.String(), "Matching device names (2):")

	buf.Reset()
	s.Dispatch("matches ^xr9.*")
	assert.Equal(t, "No targets matched your query.\n", buf.String())
}

func TestMatches_FailedSpecStillShowsOtherSpecs(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("matches ^[ ^br1.*")

	out := buf.String()
	assert.Contains(t, out, "Device lookup failed for ^[")
	assert.Contains(t, out, "Matching device names (1): br1.mel")
}

func TestOutput_ModeChange(t *testing.T) {
	s, _, buf := newTestShell(t, Options{Interactive: true})

	s.Dispatch("output buffered")

	assert.Equal(t, "buffered", s.Session().Mode)
	assert.Contains(t, buf.String(), "Changed to output mode: buffered")
}

func TestOutput_UnknownMode(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("output yaml")

	assert.Equal(t, "text", s.Session().Mode)
	assert.Contains(t, buf.String(), "Unknown output mode")
}

func TestOutput_UnavailableCollaboratorRejectedOnce(t *testing.T) {
	// No extractor configured: csv is registered but unavailable.
	s, _, buf := newTestShell(t, Options{Interactive: true})

	s.Dispatch("output csv")

	assert.Equal(t, "text", s.Session().Mode, "previous mode must be retained")
	assert.Equal(t, 1, strings.Count(buf.String(), "csv output mode unavailable"))
}

func TestOutput_CSVAvailableWithExtractor(t *testing.T) {
	s, _, buf := newTestShell(t, Options{Interactive: true, Extractor: fields.Builtin()})

	s.Dispatch("output csv")

	assert.Equal(t, "csv", s.Session().Mode)
	assert.Contains(t, buf.String(), "Agent polled for 3 devices")

	// The inventory is cached; switching again does not poll again.
	buf.Reset()
	s.Dispatch("output text")
	s.Dispatch("output csv")
	assert.NotContains(t, buf.String(), "Agent polled")
}

func TestOutput_ArgumentValidation(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("output")
	assert.Contains(t, buf.String(), "requires a mode")

	buf.Reset()
	s.Dispatch("output one two")
	assert.Contains(t, buf.String(), "single word only")
}

func TestCmd_FanOutRendersPerTarget(t *testing.T) {
	s, fc, buf := newTestShell(t, Options{})
	s.Dispatch("targets ar1.mel,ar1.syd")
	buf.Reset()

	s.Dispatch("cmd show version")
	fc.WaitAll()

	out := buf.String()
	assert.Contains(t, out, "ar1.mel:\nmel output\n")
	assert.Contains(t, out, "ar1.syd:\nsyd output\n")
}

func TestCmd_BannedCommandVetoed(t *testing.T) {
	s, fc, buf := newTestShell(t, Options{})
	s.Dispatch("targets ar1.mel")
	buf.Reset()

	s.Dispatch("cmd reload in 5")

	assert.Contains(t, buf.String(), "disallowed")
	assert.Empty(t, fc.Submitted)
}

func TestCmd_NoTargets(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("cmd show version")

	assert.Equal(t, "There are no targets.\n", buf.String())
}

func TestCmd_BufferedModeAccumulates(t *testing.T) {
	s, fc, buf := newTestShell(t, Options{})
	s.Dispatch("targets ar1.mel")
	s.Dispatch("output buffered")
	buf.Reset()

	s.Dispatch("cmd show version")
	fc.WaitAll()

	assert.Empty(t, buf.String(), "buffered successes are not printed")
	assert.Equal(t, []string{"mel output"}, s.Session().Buffers.Get("ar1.mel"))
}

func TestCmd_ModeFrozenAtSubmission(t *testing.T) {
	// The renderer is resolved when the batch is submitted; changing the
	// session mode afterwards must not affect in-flight requests.
	s, fc, buf := newTestShell(t, Options{})
	s.Dispatch("targets ar1.mel")
	buf.Reset()

	s.Dispatch("cmd show version") // text mode at submission
	s.Dispatch("output buffered")
	fc.WaitAll()

	assert.Contains(t, buf.String(), "ar1.mel:\nmel output\n")
	assert.Empty(t, s.Session().Buffers.Get("ar1.mel"))
}

func TestCounters(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("counters")

	assert.Contains(t, buf.String(), "Agent Transport Counters")
}

func TestInterrupted_OutstandingRequestsCancelOnce(t *testing.T) {
	s, fc, buf := newTestShell(t, Options{})
	fc.ForceOutstanding = 2

	stop := s.interrupted()

	assert.False(t, stop, "loop keeps prompting after a cancel")
	assert.Equal(t, 1, fc.KillAllCalls)
	assert.Contains(t, buf.String(), "Cancelling all requests.")
}

func TestInterrupted_IdleExitsCleanly(t *testing.T) {
	s, fc, _ := newTestShell(t, Options{})

	stop := s.interrupted()

	assert.True(t, stop)
	assert.Equal(t, 0, fc.KillAllCalls)
}

func TestDispatch_InterruptDuringFanOutCancels(t *testing.T) {
	// Ctrl-C lands as a raw SIGINT while a fan-out is waiting, since
	// readline only translates it between reads. The dispatch must
	// survive the signal, cancel the batch, and return to the caller.
	s, fc, buf := newTestShell(t, Options{})
	fc.Delays["ar1.mel"] = 5 * time.Second
	fc.Delays["ar1.syd"] = 5 * time.Second
	s.Dispatch("targets ^ar1.*")
	buf.Reset()

	go func() {
		time.Sleep(100 * time.Millisecond)
		p, err := os.FindProcess(os.Getpid())
		if err == nil {
			_ = p.Signal(os.Interrupt)
		}
	}()

	stop := s.dispatchInterruptible("cmd show version")
	fc.WaitAll()

	assert.False(t, stop, "loop keeps prompting after a cancel")
	assert.Equal(t, 1, fc.KillAllCalls)
	assert.Contains(t, buf.String(), "Cancelling all requests.")
}

func TestHelpQuery(t *testing.T) {
	s, _, _ := newTestShell(t, Options{})

	listing, ok := s.helpQuery("t?")
	assert.True(t, ok)
	assert.Contains(t, listing, "targets")
	assert.Contains(t, listing, "timeout")

	_, ok = s.helpQuery("?")
	assert.True(t, ok)

	// Lines with arguments are never help requests.
	_, ok = s.helpQuery("cmd show interfaces | i down?")
	assert.False(t, ok)
	_, ok = s.helpQuery("matches ^ar1.*?")
	assert.False(t, ok)
	_, ok = s.helpQuery("timeout 5")
	assert.False(t, ok)
}

func TestDispatch_CommandTextMayEndInQuestionMark(t *testing.T) {
	s, fc, _ := newTestShell(t, Options{})
	s.Dispatch("targets ar1.mel")

	s.Dispatch("cmd show interfaces | i down?")
	fc.WaitAll()

	if assert.Len(t, fc.Submitted, 1) {
		assert.Equal(t, "show interfaces | i down?",
			fc.Submitted[0].Arguments[broker.ArgCommand])
	}
}

func TestHelp_Listing(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("help")

	out := buf.String()
	assert.Contains(t, out, helpIntroduction)
	assert.Contains(t, out, availCommands)
	for _, name := range []string{"cmd", "targets", "timeout", "output", "matches"} {
		assert.Contains(t, out, name)
	}
	assert.NotContains(t, out, EOFSentinel)
}

func TestHelp_SpecificCommand(t *testing.T) {
	s, _, buf := newTestShell(t, Options{})

	s.Dispatch("help targets")
	assert.Contains(t, buf.String(), "Targets changed to:")

	buf.Reset()
	s.Dispatch("help frobnicate")
	assert.Contains(t, buf.String(), `No help available for "frobnicate"`)
}

func TestNew_SeedTargetsExpandRegexSpecs(t *testing.T) {
	s, _, _ := newTestShell(t, Options{Targets: []string{"^ar1.*", "br1.mel"}})

	assert.ElementsMatch(t,
		[]string{"ar1.mel", "ar1.syd", "br1.mel"}, s.Session().Targets)
}

func TestRunOnce_TextMode(t *testing.T) {
	s, fc, buf := newTestShell(t, Options{Targets: []string{"ar1.mel"}})

	s.RunOnce("show version", "")
	fc.WaitAll()

	assert.Contains(t, buf.String(), "ar1.mel:\nmel output\n")
}

func TestRunOnce_UnavailableCSVFallsBackToText(t *testing.T) {
	s, fc, buf := newTestShell(t, Options{Targets: []string{"ar1.mel"}})

	s.RunOnce("show version", "csv")
	fc.WaitAll()

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "csv output mode unavailable"))
	assert.Contains(t, out, "ar1.mel:\nmel output\n", "prior mode keeps working")
}

func TestPrompt_TracksTargetCount(t *testing.T) {
	s, _, _ := newTestShell(t, Options{})

	assert.Equal(t, "mr.cli [t: 0] > ", s.prompt())

	s.Dispatch("targets ar1.mel,br1.mel")
	assert.Equal(t, "mr.cli [t: 2] > ", s.prompt())
}
