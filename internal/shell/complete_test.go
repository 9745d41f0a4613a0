package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCompleter(t *testing.T) *Completer {
	t.Helper()
	s, _, _ := newTestShell(t, Options{})
	return s.completer
}

func TestCompleter_EmptyBufferOffersEverything(t *testing.T) {
	c := newTestCompleter(t)

	got := c.Candidates("")

	assert.Equal(t, []string{
		"cmd", "counters", "exit", "help", "matches",
		"output", "quit", "targets", "timeout",
	}, got)
	assert.NotContains(t, got, EOFSentinel)
}

func TestCompleter_PrefixNarrowsCandidates(t *testing.T) {
	c := newTestCompleter(t)

	assert.Equal(t, []string{"targets", "timeout"}, c.Candidates("t"))
	assert.Equal(t, []string{"targets"}, c.Candidates("ta"))
	assert.Empty(t, c.Candidates("z"))
}

func TestCompleter_LeadingWhitespaceIgnored(t *testing.T) {
	c := newTestCompleter(t)

	assert.Equal(t, []string{"targets", "timeout"}, c.Candidates("  t"))
}

func TestCompleter_Next(t *testing.T) {
	c := newTestCompleter(t)

	first, ok := c.Next("t", 0)
	require.True(t, ok)
	assert.Equal(t, "targets", first)

	second, ok := c.Next("t", 1)
	require.True(t, ok)
	assert.Equal(t, "timeout", second)

	_, ok = c.Next("t", 2)
	assert.False(t, ok, "candidates are exhaustible")
}

func TestCompleter_HelpListing(t *testing.T) {
	c := newTestCompleter(t)

	listing := c.HelpListing("t?")

	assert.Contains(t, listing, "Matching commands:\n")
	assert.Contains(t, listing, "targets")
	assert.Contains(t, listing, "timeout")
	assert.NotContains(t, listing, "counters")
	// Each row carries the command's one-line description.
	assert.Contains(t, listing, "Displays or sets the timeout, in seconds.")
}

func TestCompleter_HelpListingBareQuestionMark(t *testing.T) {
	c := newTestCompleter(t)

	listing := c.HelpListing("?")

	for _, name := range []string{"cmd", "targets", "timeout", "exit"} {
		assert.Contains(t, listing, name)
	}
}

func TestCompleter_DoReturnsSuffixes(t *testing.T) {
	c := newTestCompleter(t)

	completions, length := c.Do([]rune("ta"), 2)

	require.Len(t, completions, 1)
	assert.Equal(t, "rgets ", string(completions[0]))
	assert.Equal(t, 2, length)
}
