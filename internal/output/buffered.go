package output

import (
	"sort"
	"sync"

	"github.com/routerlab/mrcli/internal/broker"
)

// BufferStore accumulates raw results per device, in arrival order.
// Appends happen on callback goroutines; reads happen on the loop
// thread, so every access is mutex guarded.
type BufferStore struct {
	mu      sync.Mutex
	buffers map[string][]string
}

// NewBufferStore creates an empty store.
func NewBufferStore() *BufferStore {
	return &BufferStore{buffers: make(map[string][]string)}
}

// Append adds one result to a device's buffer. Results are only ever
// appended, never overwritten.
func (s *BufferStore) Append(device, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[device] = append(s.buffers[device], result)
}

// Get returns a copy of a device's buffered results.
func (s *BufferStore) Get(device string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.buffers[device]))
	copy(out, s.buffers[device])
	return out
}

// Devices returns the buffered device names, sorted.
func (s *BufferStore) Devices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.buffers))
	for name := range s.buffers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BufferedTextRenderer appends successful results to the device buffer
// instead of printing them. Errors still print immediately.
type BufferedTextRenderer struct {
	w     *SyncWriter
	store *BufferStore
}

// NewBufferedTextRenderer creates the buffering renderer.
func NewBufferedTextRenderer(w *SyncWriter, store *BufferStore) *BufferedTextRenderer {
	return &BufferedTextRenderer{w: w, store: store}
}

// Name returns "buffered".
func (r *BufferedTextRenderer) Name() string { return ModeBuffered }

// Available always succeeds.
func (r *BufferedTextRenderer) Available() error { return nil }

// Render buffers the result, or prints the error or incomplete-response
// diagnostic immediately.
func (r *BufferedTextRenderer) Render(resp *broker.Response) {
	switch {
	case resp.HasResult:
		r.store.Append(resp.Request.Target(), resp.Result)
	case resp.Err != nil:
		printError(r.w, resp)
	default:
		printIncomplete(r.w, resp)
	}
}
