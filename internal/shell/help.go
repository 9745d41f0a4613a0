package shell

import (
	"fmt"
	"sort"
	"strings"
)

const (
	helpIntroduction = "mrcli command-line interface help."
	availCommands    = "Available commands:"
)

func (s *Shell) doHelp(line string) bool {
	s.w.Printf("%s\n", s.buildHelp(line))
	return false
}

// buildHelp renders the help text, for one command when supplied.
func (s *Shell) buildHelp(line string) string {
	args := strings.Fields(line)
	var result []string
	if len(args) <= 1 {
		result = append(result, helpIntroduction+"\n")
		result = append(result, availCommands)
		for _, name := range sortedCommands(s.docs) {
			result = append(result,
				fmt.Sprintf("%-30s%s", name, shortDoc(s.docs[name])))
		}
	} else {
		doc, ok := s.docs[args[1]]
		if ok {
			result = append(result,
				fmt.Sprintf("Help for %q:\n\n%s\n", args[1], strings.TrimRight(doc, "\n")))
		} else {
			result = append(result, fmt.Sprintf("No help available for %q", args[1]))
		}
	}
	return strings.Join(result, "\n")
}

// shortDoc returns the first line of a command's help text.
func shortDoc(doc string) string {
	if i := strings.IndexByte(doc, '\n'); i >= 0 {
		return doc[:i]
	}
	return doc
}

func sortedCommands(docs map[string]string) []string {
	names := make([]string, 0, len(docs))
	for name := range docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
