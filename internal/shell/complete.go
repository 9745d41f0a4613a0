package shell

import (
	"fmt"
	"strings"

	"github.com/routerlab/mrcli/internal/trie"
)

// Completer answers line-editing completion queries against the command
// registry. For a fixed buffer the candidate list is stable, so repeated
// polling at increasing indices walks it and then reports exhaustion.
type Completer struct {
	registry *trie.Trie
	docs     map[string]string
	reserved map[string]bool
}

// NewCompleter creates a completer over the registered command names.
// Reserved names (internal sentinels) never appear as candidates.
func NewCompleter(registry *trie.Trie, docs map[string]string, reserved map[string]bool) *Completer {
	return &Completer{registry: registry, docs: docs, reserved: reserved}
}

// Candidates returns the completion candidates for the buffer, in
// lexicographic order. An empty buffer offers every non-reserved
// command; otherwise candidates match the first token as a trie prefix
// and literally start with the whole buffer text.
func (c *Completer) Candidates(buffer string) []string {
	line := strings.TrimLeft(buffer, " \t")
	if line == "" {
		return c.filter(c.registry.Keys(""), "")
	}
	firstToken := strings.Fields(line)[0]
	return c.filter(c.registry.Keys(firstToken), line)
}

// Next returns the state-th candidate for the buffer, or false once the
// candidates are exhausted.
func (c *Completer) Next(buffer string, state int) (string, bool) {
	candidates := c.Candidates(buffer)
	if state < 0 || state >= len(candidates) {
		return "", false
	}
	return candidates[state], true
}

// HelpListing renders the inline command listing shown when the buffer
// ends with the help trigger. Each matching command is annotated with
// its short description.
func (c *Completer) HelpListing(buffer string) string {
	query := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(buffer), "?"))

	var matches []string
	if query == "" {
		matches = c.filter(c.registry.Keys(""), "")
	} else {
		matches = c.filter(c.registry.Keys(strings.Fields(query)[0]), "")
	}

	var b strings.Builder
	b.WriteString("Matching commands:\n")
	for _, name := range matches {
		b.WriteString(fmt.Sprintf("%-30s%s\n", name, shortDoc(c.docs[name])))
	}
	return b.String()
}

// Do implements readline.AutoCompleter. Candidates come back as the
// suffix remaining after what is already typed, each with a trailing
// space.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	buffer := string(line[:pos])
	typed := strings.TrimLeft(buffer, " \t")

	var completions [][]rune
	for _, cand := range c.Candidates(buffer) {
		completions = append(completions, []rune(cand[len(typed):]+" "))
	}
	return completions, len([]rune(typed))
}

// filter drops reserved names and, when prefix is non-empty, names that
// do not literally start with the whole buffer text.
func (c *Completer) filter(names []string, prefix string) []string {
	var out []string
	for _, name := range names {
		if c.reserved[name] {
			continue
		}
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, name)
	}
	return out
}
