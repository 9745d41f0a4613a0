package shell

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/routerlab/mrcli/internal/broker"
	"github.com/routerlab/mrcli/internal/errors"
	"github.com/routerlab/mrcli/internal/output"
)

// DefaultTimeout is the starting per-batch timeout in seconds.
const DefaultTimeout = 90.0

// MinTimeout is the floor for the timeout command. Updates below it are
// rejected and leave the configured value intact.
const MinTimeout = 1.0

// Session is the mutable state one shell instance owns: the target set,
// timeout, output mode, buffered results, and the device-info cache.
// It is mutated only by the loop thread in response to commands; the
// buffer store it embeds is separately safe for callback delivery.
type Session struct {
	// Targets is the current device list, in resolution order.
	Targets []string
	// Timeout is the shared fan-out deadline, in seconds.
	Timeout float64
	// Mode is the active output-mode key.
	Mode string
	// Buffers holds results accumulated by the buffered renderer.
	Buffers *output.BufferStore

	// deviceInfo is the lazily-populated device metadata cache.
	deviceInfo map[string]broker.DeviceInfo
}

// NewSession creates a session with defaults.
func NewSession() *Session {
	return &Session{
		Timeout: DefaultTimeout,
		Mode:    output.DefaultMode,
		Buffers: output.NewBufferStore(),
	}
}

// SetTimeout applies the floor and rejects bad values, leaving the
// previous timeout untouched on error.
func (s *Session) SetTimeout(seconds float64) error {
	if seconds < MinTimeout {
		return errors.New(errors.ErrInput,
			"1 second is the minimum timeout", "")
	}
	s.Timeout = seconds
	return nil
}

// TimeoutDuration returns the timeout as a time.Duration.
func (s *Session) TimeoutDuration() time.Duration {
	return time.Duration(s.Timeout * float64(time.Second))
}

// TargetsString renders the target set sorted and comma separated.
func (s *Session) TargetsString() string {
	sorted := make([]string, len(s.Targets))
	copy(sorted, s.Targets)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}

// DeviceType looks a device's type up in the cache.
func (s *Session) DeviceType(device string) (string, bool) {
	info, ok := s.deviceInfo[device]
	if !ok {
		return "", false
	}
	return info.DeviceType, true
}

// DeviceCount returns the number of cached device records.
func (s *Session) DeviceCount() int {
	return len(s.deviceInfo)
}

// LoadDeviceInfo populates the device-info cache from the agent. The
// cache fills at most once; pass reload to refresh it explicitly.
func (s *Session) LoadDeviceInfo(ctx context.Context, client broker.Client, reload bool) (int, error) {
	if s.deviceInfo != nil && !reload {
		return len(s.deviceInfo), nil
	}
	info, err := client.DevicesInfo(ctx, "^.*$")
	if err != nil {
		return 0, err
	}
	s.deviceInfo = info
	return len(info), nil
}
