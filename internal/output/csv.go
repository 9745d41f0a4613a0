package output

import (
	"sort"
	"strings"

	"github.com/routerlab/mrcli/internal/broker"
	"github.com/routerlab/mrcli/internal/errors"
	"github.com/routerlab/mrcli/internal/fields"
	"github.com/routerlab/mrcli/internal/logger"
)

// unknownDeviceType tags devices missing from the device-info cache.
const unknownDeviceType = "UNKNOWN_DEVICE"

// DeviceTypeFunc resolves a device name to its type, usually backed by
// the session's device-info cache.
type DeviceTypeFunc func(device string) (string, bool)

// CSVRenderer extracts delimited field rows from results using the
// field-extraction collaborator. When extraction fails, interactive
// sessions fall back to raw text; scripted runs suppress the output
// rather than emit a partial machine-readable record.
type CSVRenderer struct {
	w           *SyncWriter
	extractor   fields.Extractor
	deviceType  DeviceTypeFunc
	interactive bool
	log         logger.Logger
}

// NewCSVRenderer creates the csv renderer. A nil extractor marks the
// mode unavailable for the whole session.
func NewCSVRenderer(w *SyncWriter, extractor fields.Extractor, deviceType DeviceTypeFunc, interactive bool) *CSVRenderer {
	return &CSVRenderer{
		w:           w,
		extractor:   extractor,
		deviceType:  deviceType,
		interactive: interactive,
		log:         logger.NewEnvLogger("[csv]"),
	}
}

// Name returns "csv".
func (r *CSVRenderer) Name() string { return ModeCSV }

// Available reports whether the field-extraction collaborator was
// present at startup.
func (r *CSVRenderer) Available() error {
	if r.extractor == nil {
		return errors.New(errors.ErrCapability,
			"csv output mode unavailable",
			"No field-extraction parsers are registered")
	}
	return nil
}

// Render extracts and prints rows, falling back per the interactive flag.
func (r *CSVRenderer) Render(resp *broker.Response) {
	command, ok := resp.Request.Arguments[broker.ArgCommand]
	if !ok {
		r.log.Warn("not a command request, nothing to extract")
		return
	}

	if !resp.HasResult {
		if resp.Err != nil {
			printError(r.w, resp)
		} else {
			printIncomplete(r.w, resp)
		}
		return
	}

	device := resp.Request.Target()
	deviceType := unknownDeviceType
	if dt, ok := r.deviceType(device); ok {
		deviceType = dt
	}

	rows, err := r.extractor.Parse(deviceType, command, resp.Result)
	if err != nil || len(rows) == 0 {
		// No parser, or the parser rejected this output. Interactive use
		// falls back to raw text; scripted use stays silent.
		if r.interactive {
			r.w.Printf("%s:\n%s\n", device, resp.Result)
		}
		return
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, device+","+strings.Join(row, ","))
	}
	sort.Strings(lines)
	for _, line := range lines {
		r.w.Printf("%s\n", line)
	}
}
