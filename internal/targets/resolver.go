// Package targets turns user-supplied target tokens into concrete device
// names. Literal names pass through; tokens carrying the regex marker are
// expanded through the agent's device lookup under a short fixed timeout
// that is independent of the session timeout.
package targets

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/routerlab/mrcli/internal/broker"
	"github.com/routerlab/mrcli/internal/errors"
)

// RegexpMarker prefixes target tokens that are regular expressions.
const RegexpMarker = "^"

// LookupTimeout bounds each devices-matching call. Target expansion is a
// quick inventory query and never waits on the session timeout.
const LookupTimeout = 5 * time.Second

// ParseSpecs splits argument tokens into target specs: each token splits
// again on commas, and empty pieces are dropped.
func ParseSpecs(args []string) []string {
	var specs []string
	for _, arg := range args {
		for _, piece := range strings.Split(arg, ",") {
			if piece != "" {
				specs = append(specs, piece)
			}
		}
	}
	return specs
}

// Resolver expands target specs against the agent inventory.
type Resolver struct {
	client broker.Client
}

// NewResolver creates a resolver backed by the agent client.
func NewResolver(client broker.Client) *Resolver {
	return &Resolver{client: client}
}

// Expand resolves each spec to zero or more device names. Literal specs
// pass through unchanged unless onlyRegexp forces every spec through the
// lookup. A failed lookup contributes an error and no targets, without
// touching the other specs.
func (r *Resolver) Expand(ctx context.Context, specs []string, onlyRegexp bool) ([]string, []error) {
	var resolved []string
	var errs []error

	for _, spec := range specs {
		if !strings.HasPrefix(spec, RegexpMarker) && !onlyRegexp {
			resolved = append(resolved, spec)
			continue
		}

		lookupCtx, cancel := context.WithTimeout(ctx, LookupTimeout)
		matches, err := r.client.DevicesMatching(lookupCtx, spec)
		cancel()
		if err != nil {
			errs = append(errs, errors.Wrap(err, "Device lookup failed for "+spec))
			continue
		}
		sort.Strings(matches)
		resolved = append(resolved, matches...)
	}

	return resolved, errs
}
