package report

import (
	"brickcore/internal/config"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
)

// noMarginStyle drops the document margin so output lines up with the
// surrounding CLI text.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer turns outline Markdown into styled terminal output.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewRenderer builds a renderer for cfg.Style ("auto", "dark", "light",
// "notty", ...) wrapping at cfg.Width columns.
func NewRenderer(cfg config.Report) (*Renderer, error) {
	width := cfg.Width
	if width <= 0 {
		width = 100
	}
	style := glamour.WithAutoStyle()
	if s := strings.ToLower(strings.TrimSpace(cfg.Style)); s != "" && s != "auto" {
		style = glamour.WithStandardStyle(s)
	}
	r, err := glamour.NewTermRenderer(
		style,
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("terminal renderer: %w", err)
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int { return r.width }

// Render styles markdown for the terminal.
func (r *Renderer) Render(markdown string) (string, error) {
	return r.renderer.Render(markdown)
}
