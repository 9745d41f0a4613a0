package output

import "github.com/routerlab/mrcli/internal/broker"

// TextRenderer prints each result as it arrives: the target name on its
// own line, then the raw output.
type TextRenderer struct {
	w *SyncWriter
}

// NewTextRenderer creates the immediate text renderer.
func NewTextRenderer(w *SyncWriter) *TextRenderer {
	return &TextRenderer{w: w}
}

// Name returns "text".
func (r *TextRenderer) Name() string { return ModeText }

// Available always succeeds; text needs no collaborator.
func (r *TextRenderer) Available() error { return nil }

// Render prints the result, the error line, or the incomplete-response
// diagnostic.
func (r *TextRenderer) Render(resp *broker.Response) {
	switch {
	case resp.HasResult:
		r.w.Printf("%s:\n%s\n", resp.Request.Target(), resp.Result)
	case resp.Err != nil:
		printError(r.w, resp)
	default:
		printIncomplete(r.w, resp)
	}
}
