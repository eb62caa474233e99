// Package bubbletea provides terminal UIs for collations using the Bubble Tea
// framework: a viewer for the differences of one base document and a
// progress view for a running comparison set.
package bubbletea

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/collate"
	collatelipgloss "github.com/fwojciec/collate/lipgloss"
	"github.com/muesli/termenv"
)

// Model is the Bubble Tea model for viewing a collation one witness at a
// time.
type Model struct {
	collation *collate.Collation
	base      collate.Document
	witnesses []collate.Document // Witnesses present in the collation, by ID
	selected  int

	styles   collate.Styles
	renderer *lipgloss.Renderer
	keymap   KeyMap

	clipboard collate.Clipboard
	status    string // Result of the last copy

	viewport viewport.Model
	ready    bool
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithTheme sets the theme used to color differences.
func WithTheme(t collate.Theme) ModelOption {
	return func(m *Model) {
		m.styles = t.Styles()
	}
}

// WithRenderer sets the lipgloss renderer.
func WithRenderer(r *lipgloss.Renderer) ModelOption {
	return func(m *Model) {
		m.renderer = r
	}
}

// WithKeyMap sets the key bindings.
func WithKeyMap(km KeyMap) ModelOption {
	return func(m *Model) {
		m.keymap = km
	}
}

// WithClipboard enables copying the current reading.
func WithClipboard(cb collate.Clipboard) ModelOption {
	return func(m *Model) {
		m.clipboard = cb
	}
}

// NewModel creates a Model for collation c. docs must contain the base and
// may contain any number of witnesses; witnesses absent from c are ignored.
func NewModel(c *collate.Collation, docs []collate.Document, opts ...ModelOption) Model {
	m := Model{
		collation: c,
		styles:    collatelipgloss.DefaultTheme().Styles(),
		keymap:    DefaultKeyMap(),
	}
	for _, d := range docs {
		if d.ID == c.BaseID {
			m.base = d
		}
	}
	for _, id := range c.WitnessIDs() {
		for _, d := range docs {
			if d.ID == id {
				m.witnesses = append(m.witnesses, d)
			}
		}
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Witness returns the witness currently shown.
func (m Model) Witness() (collate.Document, bool) {
	if len(m.witnesses) == 0 {
		return collate.Document{}, false
	}
	return m.witnesses[m.selected], true
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keymap.NextWitness):
			m.selectWitness(1)
			return m, nil
		case key.Matches(msg, m.keymap.PrevWitness):
			m.selectWitness(-1)
			return m, nil
		case key.Matches(msg, m.keymap.GotoTop):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, m.keymap.GotoBottom):
			m.viewport.GotoBottom()
			return m, nil
		case key.Matches(msg, m.keymap.HalfPageUp):
			m.viewport.HalfPageUp()
			return m, nil
		case key.Matches(msg, m.keymap.HalfPageDown):
			m.viewport.HalfPageDown()
			return m, nil
		}
	case tea.WindowSizeMsg:
		height := max(1, msg.Height-1) // header line
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.SetContent(m.content())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// copyReading copies the current witness reading without styling.
func (m *Model) copyReading() {
	if m.clipboard == nil {
		return
	}
	plain := lipgloss.NewRenderer(io.Discard)
	plain.SetColorProfile(termenv.Ascii)
	if err := m.clipboard.Copy(m.render(plain)); err != nil {
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = "copied"
}

func (m *Model) selectWitness(delta int) {
	if len(m.witnesses) == 0 {
		return
	}
	m.selected = (m.selected + delta + len(m.witnesses)) % len(m.witnesses)
	m.status = ""
	if m.ready {
		m.viewport.SetContent(m.content())
		m.viewport.GotoTop()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.header() + "\n" + m.viewport.View()
}

func (m Model) header() string {
	style := styleFromColorPair(m.styles.Running, m.renderer).Bold(true)
	w, ok := m.Witness()
	if !ok {
		return style.Render(m.base.Name + " (no witnesses)")
	}
	set, _ := m.collation.Witness(w.ID)
	status := fmt.Sprintf("%d differences, %.0f%% similar", len(m.collation.Differences(w.ID)), set.Similarity()*100)
	if m.collation.IsExcluded(w.ID) {
		status = "excluded"
	}
	if m.status != "" {
		status += "  [" + m.status + "]"
	}
	return style.Render(fmt.Sprintf("%s vs %s (%d/%d)  %s",
		m.base.Name, w.Name, m.selected+1, len(m.witnesses), status))
}

func (m Model) content() string {
	return m.render(m.renderer)
}

func (m Model) render(r *lipgloss.Renderer) string {
	w, ok := m.Witness()
	if !ok {
		return m.base.Text
	}
	return renderCollation(renderConfig{
		base:     m.base,
		witness:  w,
		diffs:    m.collation.Differences(w.ID),
		styles:   m.styles,
		renderer: r,
	})
}

// Compile-time interface verification.
var _ collate.Viewer = (*Viewer)(nil)

// Viewer shows collations in a full-screen Bubble Tea TUI.
type Viewer struct {
	opts []ModelOption
}

// NewViewer creates a new Viewer.
func NewViewer(opts ...ModelOption) *Viewer {
	return &Viewer{opts: opts}
}

// View displays collation c and blocks until the user exits.
func (v *Viewer) View(ctx context.Context, c *collate.Collation, docs []collate.Document) error {
	m := NewModel(c, docs, v.opts...)
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
