// Package fields defines the field-extraction collaborator used by the
// csv output mode. An Extractor turns one device's raw command output
// into ordered field rows, keyed by device type and command. "No parser
// registered" and "the registered parser failed on this input" are
// distinct conditions: the first is a capability gap, the second drives
// the renderer's raw-text fallback.
package fields

import (
	"errors"
	"strings"
)

// ErrNoParser reports that no parser is registered for the device type
// and command combination.
var ErrNoParser = errors.New("no parser registered for this device type and command")

// ParseFunc extracts ordered field rows from raw device output.
// It returns a non-nil error when the output cannot be parsed.
type ParseFunc func(raw string) ([][]string, error)

// Extractor is the collaborator surface the csv renderer consumes.
type Extractor interface {
	// Parse extracts rows for the given device type and command.
	// Returns ErrNoParser when the combination is unknown.
	Parse(deviceType, command, raw string) ([][]string, error)
}

// Registry is a table-driven Extractor.
type Registry struct {
	parsers map[string]ParseFunc
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]ParseFunc)}
}

// Register installs a parser for a device type and command. Commands are
// matched after whitespace normalization.
func (r *Registry) Register(deviceType, command string, fn ParseFunc) {
	r.parsers[key(deviceType, command)] = fn
}

// Parse implements Extractor.
func (r *Registry) Parse(deviceType, command, raw string) ([][]string, error) {
	fn, ok := r.parsers[key(deviceType, command)]
	if !ok {
		return nil, ErrNoParser
	}
	return fn(raw)
}

// Len returns the number of registered parsers.
func (r *Registry) Len() int {
	return len(r.parsers)
}

func key(deviceType, command string) string {
	return deviceType + "\x00" + strings.Join(strings.Fields(command), " ")
}

// Columns is a generic whitespace-table parser: every line splits into
// fields on runs of whitespace, blank lines are skipped, and skipHeader
// drops the leading line. It fails when no line yields at least two
// fields, which is how prose or error text gets rejected.
func Columns(skipHeader bool) ParseFunc {
	return func(raw string) ([][]string, error) {
		var rows [][]string
		for i, line := range strings.Split(raw, "\n") {
			if skipHeader && i == 0 {
				continue
			}
			cols := strings.Fields(line)
			if len(cols) == 0 {
				continue
			}
			rows = append(rows, cols)
		}
		for _, row := range rows {
			if len(row) >= 2 {
				return rows, nil
			}
		}
		return nil, errors.New("output is not tabular")
	}
}

// Builtin returns a registry preloaded with the stock table parsers.
// Callers may register additional parsers on top.
func Builtin() *Registry {
	r := NewRegistry()
	for _, cmd := range []string{"show arp", "show ip arp"} {
		r.Register("cisco", cmd, Columns(true))
	}
	r.Register("juniper", "show arp", Columns(true))
	return r
}
