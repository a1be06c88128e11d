package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/typhonjs-node-utils/typhonjs-config-resolver/internal/resolver"
)

// RendererOptions configures a Renderer.
type RendererOptions struct {
	NoColor bool
	JSON    bool
}

// Renderer writes human readable (or JSON line) reports.
type Renderer struct {
	opts RendererOptions
	w    io.Writer
	mu   sync.Mutex
}

// NewRenderer returns a Renderer writing to w.
func NewRenderer(w io.Writer, opts RendererOptions) *Renderer {
	if opts.NoColor {
		color.NoColor = true
	}
	return &Renderer{opts: opts, w: w}
}

func (r *Renderer) paint(c *color.Color, format string, args ...any) string {
	if r.opts.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return c.Sprintf(format, args...)
}

func (r *Renderer) jsonLine(v any) {
	b, _ := json.Marshal(v)
	fmt.Fprintln(r.w, string(b))
}

// Chain prints the extends chain of res, parents in precedence order, and
// the files that were read.
func (r *Renderer) Chain(source string, res *resolver.Result) {
	if r.opts.JSON {
		r.jsonLine(map[string]any{"type": "chain", "id": res.ID, "source": source, "chain": res.Chain, "files": res.Files})
		return
	}

	fmt.Fprintln(r.w, r.paint(color.New(color.FgCyan, color.Bold), "%s", source))
	for i, id := range res.Chain {
		branch := "├─"
		if i == len(res.Chain)-1 {
			branch = "└─"
		}
		fmt.Fprintf(r.w, "%s %s %s\n", r.paint(color.New(color.FgHiBlack), "%s", branch),
			r.paint(color.New(color.FgYellow), "%d", i+1), id)
	}
	if len(res.Chain) == 0 {
		fmt.Fprintln(r.w, r.paint(color.New(color.FgHiBlack), "(no extends)"))
	}
	if len(res.Files) > 0 {
		fmt.Fprintln(r.w, r.paint(color.New(color.FgHiBlack), "files: %s", strings.Join(res.Files, ", ")))
	}
}

// Diff prints a line diff with inserted lines green and deleted lines red.
func (r *Renderer) Diff(d Diff) {
	if r.opts.JSON {
		r.jsonLine(map[string]any{"type": "diff", "diff": d.Text, "additions": d.Additions, "deletions": d.Deletions})
		return
	}
	if d.Text == "" {
		fmt.Fprintln(r.w, r.paint(color.New(color.FgHiBlack), "no changes"))
		return
	}
	for _, line := range strings.SplitAfter(d.Text, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(r.w, r.paint(color.New(color.Bold), "%s", line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprint(r.w, r.paint(color.New(color.FgCyan), "%s", line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprint(r.w, r.paint(color.New(color.FgGreen), "%s", line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprint(r.w, r.paint(color.New(color.FgRed), "%s", line))
		default:
			fmt.Fprint(r.w, line)
		}
	}
	fmt.Fprintln(r.w, r.paint(color.New(color.FgHiBlack), "+%d -%d", d.Additions, d.Deletions))
}

// Valid reports a successful validation.
func (r *Renderer) Valid(name string) {
	if r.opts.JSON {
		r.jsonLine(map[string]any{"type": "valid", "name": name})
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.paint(color.New(color.FgGreen, color.Bold), "✓"), name)
}

// Invalid reports a failed validation or resolution.
func (r *Renderer) Invalid(name string, err error) {
	if r.opts.JSON {
		r.jsonLine(map[string]any{"type": "invalid", "name": name, "error": err.Error()})
		return
	}
	fmt.Fprintf(r.w, "%s %s\n", r.paint(color.New(color.FgRed, color.Bold), "✗"), name)
	fmt.Fprintln(r.w, r.paint(color.New(color.FgRed), "  %s", err.Error()))
}

// Changed reports a re-resolution triggered by a file change.
func (r *Renderer) Changed(res *resolver.Result, err error) {
	if err != nil {
		r.Invalid("re-resolve", err)
		return
	}
	fmt.Fprintf(r.w, "%s %s %s\n", r.paint(color.New(color.FgHiBlack), "resolved"),
		r.paint(color.New(color.FgYellow), "%s", res.ID), strings.Join(res.Chain, " → "))
}

// Event writes one JSON encoded bus event as a line. It is safe to call from
// several goroutines.
func (r *Renderer) Event(payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s\n", bytes.TrimSpace(payload))
}
