// Package fanout issues one command to many targets concurrently through
// the agent and waits for the batch under a shared deadline. Each target
// completes independently: one failure is rendered on its own and never
// aborts or delays its siblings. The only batch-scoped outcomes are the
// banned-command veto, applied before anything is submitted, and the
// shared-deadline timeout, reported exactly once.
package fanout

import (
	"fmt"
	"strings"
	"time"

	"github.com/routerlab/mrcli/internal/broker"
	"github.com/routerlab/mrcli/internal/errors"
	"github.com/routerlab/mrcli/internal/logger"
)

// BannedPrefixes vetoes disruptive operations: reload, reboot, and
// configuration changes. Matched against the start of the command text.
var BannedPrefixes = []string{"rel", "reb", "conf"}

// CheckCommand returns a non-nil error when the command text matches a
// banned prefix. The veto covers the whole fan-out before any request
// is issued.
func CheckCommand(command string) error {
	for _, prefix := range BannedPrefixes {
		if strings.HasPrefix(command, prefix) {
			return errors.New(errors.ErrInput,
				"The command '"+command+"' is disallowed",
				"Disruptive operations cannot be fanned out")
		}
	}
	return nil
}

// Executor submits command batches to the agent.
type Executor struct {
	client broker.Client
	log    logger.Logger
}

// New creates an executor backed by the agent client.
func New(client broker.Client) *Executor {
	return &Executor{
		client: client,
		log:    logger.NewEnvLogger("[fanout]"),
	}
}

// Run fans the command out to every target and blocks until the batch
// completes or the shared deadline elapses. The render function was
// selected by the caller at submission time and is invoked from the
// agent's callback goroutines as each target finishes; deadline-expired
// targets are covered by the single returned timeout error instead of a
// per-target render.
//
// The returned error is the banned-command veto, or the one batch-level
// timeout. Per-target failures are rendered, not returned.
func (e *Executor) Run(targets []string, command string, timeout time.Duration, render func(*broker.Response)) error {
	if err := CheckCommand(command); err != nil {
		return err
	}

	handles := make([]broker.Handle, 0, len(targets))
	for _, target := range targets {
		req := &broker.Request{
			Operation: broker.OpCommand,
			Arguments: map[string]string{
				broker.ArgDeviceName: target,
				broker.ArgCommand:    command,
			},
			Timeout: timeout,
			Callback: func(resp *broker.Response) {
				// The shared-deadline report covers timed-out targets.
				if broker.IsTimeout(resp.Err) {
					return
				}
				render(resp)
			},
		}

		h, err := e.client.Submit(req)
		if err != nil {
			render(&broker.Response{
				Request: req,
				Err:     errors.Wrap(err, "Submit failed for "+target),
			})
			continue
		}
		handles = append(handles, h)
	}

	e.log.Debug("executing %d requests", len(handles))

	if len(handles) == 0 {
		e.client.WaitAll()
		return nil
	}

	for _, h := range handles {
		if err := h.Wait(); err != nil && broker.IsTimeout(err) {
			// One batch-level report; stragglers belong to the agent now.
			return errors.New(errors.ErrTimeout,
				fmt.Sprintf("Request timed out (%.1f s)", timeout.Seconds()), "")
		}
	}
	return nil
}
