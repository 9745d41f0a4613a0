// Package output holds the per-target response renderers. Each renderer
// receives one completed request and decides how to present it: printed
// immediately, appended to a device buffer, or extracted into delimited
// rows. Renderers run on the agent client's callback goroutines, so all
// printing goes through a mutex-guarded writer.
package output

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/routerlab/mrcli/internal/broker"
	"github.com/routerlab/mrcli/internal/ui"
)

// Mode names for the built-in renderers.
const (
	ModeText     = "text"
	ModeBuffered = "buffered"
	ModeCSV      = "csv"
)

// DefaultMode is the renderer selected when none is configured.
const DefaultMode = ModeText

// Renderer presents one completed request.
type Renderer interface {
	// Name returns the mode key used to select this renderer.
	Name() string

	// Available reports whether the renderer can be selected; a non-nil
	// error names the missing collaborator. Fixed at construction.
	Available() error

	// Render presents the response. Safe for concurrent delivery from
	// multiple in-flight requests.
	Render(resp *broker.Response)
}

// Registry holds the renderers by mode name.
type Registry struct {
	renderers map[string]Renderer
}

// NewRegistry creates an empty renderer registry.
func NewRegistry() *Registry {
	return &Registry{renderers: make(map[string]Renderer)}
}

// Register adds a renderer under its mode name.
func (r *Registry) Register(rend Renderer) {
	r.renderers[rend.Name()] = rend
}

// Get returns a renderer by mode name.
func (r *Registry) Get(name string) (Renderer, bool) {
	rend, ok := r.renderers[name]
	return rend, ok
}

// Names returns the registered mode names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.renderers))
	for name := range r.renderers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SyncWriter serializes writes from concurrent response callbacks.
type SyncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter wraps w with a mutex.
func NewSyncWriter(w io.Writer) *SyncWriter {
	return &SyncWriter{w: w}
}

func (s *SyncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Printf writes one formatted message under the lock.
func (s *SyncWriter) Printf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, format, args...)
}

var errorStyle = lipgloss.NewStyle().Foreground(ui.ColorError)

// printError writes the per-target error line. Cancelled requests are
// suppressed: the user already saw their cancellation confirmed.
func printError(w *SyncWriter, resp *broker.Response) {
	if broker.IsCancelled(resp.Err) {
		return
	}
	w.Printf("%s %s [%s] %s\n",
		errorStyle.Render("ERROR:"), resp.Request.Target(), broker.Kind(resp.Err), resp.Err)
}

// printIncomplete reports a response carrying neither result nor error.
// Malformed agent responses land here, not any normal path.
func printIncomplete(w *SyncWriter, resp *broker.Response) {
	w.Printf("%s: Incomplete response from agent.\n", resp.Request.Target())
}
