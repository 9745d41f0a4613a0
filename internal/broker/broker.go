// Package broker defines the contract mrcli consumes from the remote
// execution agent. The agent runs device commands under its own
// concurrency and delivers results through per-request callbacks; this
// package only describes that surface plus the error kinds callers must
// be able to tell apart. The agent implementation itself lives elsewhere.
package broker

import (
	"context"
	"fmt"
	"time"
)

// Operation names understood by the agent.
const (
	OpCommand         = "command"
	OpDevicesMatching = "devices_matching"
)

// Argument keys used in Request.Arguments.
const (
	ArgDeviceName = "device_name"
	ArgCommand    = "command"
	ArgRegexp     = "regexp"
)

// Request describes one unit of work submitted to the agent.
type Request struct {
	// Operation is the agent method to invoke, e.g. OpCommand.
	Operation string
	// Arguments carries the operation parameters, keyed by the Arg constants.
	Arguments map[string]string
	// Timeout bounds the request's lifetime from submission.
	Timeout time.Duration
	// Callback, when set, is invoked exactly once with the completed
	// response. It runs on the agent client's own goroutines.
	Callback func(*Response)
}

// Target returns the device name argument, or a placeholder when absent.
func (r *Request) Target() string {
	if name, ok := r.Arguments[ArgDeviceName]; ok && name != "" {
		return name
	}
	return "from agent"
}

// Response is the terminal state of a request. Exactly one of Result or
// Err is normally populated; both absent indicates a malformed agent
// response, which renderers report rather than crash on.
type Response struct {
	Request *Request
	// Result holds the raw device output. Valid only when HasResult is true.
	Result    string
	HasResult bool
	// Err is the failure, classified by the error kinds in this package.
	Err error
}

// Handle tracks one submitted request.
type Handle interface {
	// Wait blocks until the request completes or its timeout elapses.
	// It returns a *TimeoutError when the deadline passed first.
	Wait() error
}

// DeviceInfo is the agent's metadata record for one device.
type DeviceInfo struct {
	DeviceType string
	Address    string
	Vendor     string
}

// Counters is a snapshot of the agent client's transport counters.
type Counters struct {
	RequestsTotal  int
	RequestsOK     int
	RequestsError  int
	ResponsesTotal int
	ResponsesOK    int
	ResponsesError int
	BytesReceived  int64

	// Running and Queued describe the in-flight request population, used
	// by the shell to decide whether an interrupt cancels or exits.
	Running int
	Queued  int
}

// Outstanding reports how many requests have not yet completed.
func (c Counters) Outstanding() int {
	return c.Running + c.Queued
}

// String renders the counters in the transport-summary layout shown by
// the shell's counters command.
func (c Counters) String() string {
	return fmt.Sprintf(
		"Agent Transport Counters\n"+
			"[Requests]  total: %-9d ok: %-9d error: %d\n"+
			"[Responses] total: %-9d ok: %-9d error: %-9d data: %s",
		c.RequestsTotal, c.RequestsOK, c.RequestsError,
		c.ResponsesTotal, c.ResponsesOK, c.ResponsesError,
		formatBytes(c.BytesReceived))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// Client is the agent connection consumed by the shell and the fan-out
// executor. Implementations are safe for concurrent use.
type Client interface {
	// Submit queues a request for asynchronous execution.
	Submit(req *Request) (Handle, error)

	// WaitAll blocks until every outstanding request has completed.
	WaitAll()

	// KillAll cancels every outstanding request. Cancelled requests
	// complete with a *CancelledError.
	KillAll()

	// Counters returns a snapshot of the transport counters.
	Counters() Counters

	// DevicesMatching returns the device names matching an anchored
	// regular expression. The context bounds the lookup independently
	// of any session timeout.
	DevicesMatching(ctx context.Context, pattern string) ([]string, error)

	// DevicesInfo returns metadata for devices matching the pattern.
	DevicesInfo(ctx context.Context, pattern string) (map[string]DeviceInfo, error)
}
