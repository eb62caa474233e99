package bubbletea

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/collate"
	collatelipgloss "github.com/fwojciec/collate/lipgloss"
)

// Progress messages. A Listener turns collation progress events into these.
type (
	// StartedMsg reports that a document began collating.
	StartedMsg struct{ Doc collate.Document }
	// ProgressMsg reports the completed fraction of the running document.
	ProgressMsg struct {
		Doc      collate.Document
		Fraction float64
	}
	// CompletedMsg reports that a document has a cached collation.
	CompletedMsg struct{ Doc collate.Document }
	// LoadedMsg reports that the collation queue drained.
	LoadedMsg struct{}
	// FailedMsg reports that the loader stopped on an error.
	FailedMsg struct{ Err error }
)

type docState int

const (
	statePending docState = iota
	stateRunning
	stateCompleted
)

const maxBarWidth = 60

// ProgressModel is the Bubble Tea model showing the progress of a
// collation loader: one line per document and a bar for the document being
// collated.
type ProgressModel struct {
	docs     []collate.Document
	states   map[int]docState
	fraction float64 // Of the running document

	bar      progress.Model
	styles   collate.Styles
	renderer *lipgloss.Renderer
	keymap   KeyMap

	quitOnDone bool
	done       bool
	err        error
}

// ProgressOption configures a ProgressModel.
type ProgressOption func(*ProgressModel)

// WithProgressTheme sets the theme for the model.
func WithProgressTheme(t collate.Theme) ProgressOption {
	return func(m *ProgressModel) {
		m.styles = t.Styles()
	}
}

// WithProgressRenderer sets the lipgloss renderer for the model.
func WithProgressRenderer(r *lipgloss.Renderer) ProgressOption {
	return func(m *ProgressModel) {
		m.renderer = r
	}
}

// WithQuitOnDone makes the program exit once the queue drains.
func WithQuitOnDone() ProgressOption {
	return func(m *ProgressModel) {
		m.quitOnDone = true
	}
}

// NewProgressModel creates a ProgressModel for docs, all initially pending.
func NewProgressModel(docs []collate.Document, opts ...ProgressOption) ProgressModel {
	m := ProgressModel{
		docs:   docs,
		states: make(map[int]docState, len(docs)),
		styles: collatelipgloss.DefaultTheme().Styles(),
		keymap: DefaultKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.bar = progress.New(
		progress.WithSolidFill(m.styles.Bar.Foreground),
		progress.WithoutPercentage(),
		progress.WithWidth(maxBarWidth/2),
	)
	if m.styles.Bar.Background != "" {
		m.bar.EmptyColor = m.styles.Bar.Background
	}
	return m
}

// Done reports whether the queue has drained.
func (m ProgressModel) Done() bool {
	return m.done
}

// Err returns the loader failure, if any.
func (m ProgressModel) Err() error {
	return m.err
}

// Completed returns the number of documents with a cached collation.
func (m ProgressModel) Completed() int {
	n := 0
	for _, s := range m.states {
		if s == stateCompleted {
			n++
		}
	}
	return n
}

// Init implements tea.Model.
func (m ProgressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.Quit) {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-40, maxBarWidth))
	case StartedMsg:
		m.states[msg.Doc.ID] = stateRunning
		m.fraction = 0
	case ProgressMsg:
		m.fraction = max(m.fraction, msg.Fraction)
	case CompletedMsg:
		m.states[msg.Doc.ID] = stateCompleted
		m.fraction = 0
	case LoadedMsg:
		m.done = true
		if m.quitOnDone {
			return m, tea.Quit
		}
	case FailedMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m ProgressModel) View() string {
	pending := styleFromColorPair(m.styles.Pending, m.renderer)
	running := styleFromColorPair(m.styles.Running, m.renderer)
	completed := styleFromColorPair(m.styles.Completed, m.renderer)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Collating %d documents: %d/%d done\n\n", len(m.docs), m.Completed(), len(m.docs))
	for _, d := range m.docs {
		switch m.states[d.ID] {
		case stateCompleted:
			sb.WriteString(completed.Render("✓ " + d.Name))
		case stateRunning:
			sb.WriteString(running.Render("▸ " + d.Name))
			fmt.Fprintf(&sb, "  %s %3.0f%%", m.bar.ViewAs(m.fraction), m.fraction*100)
		default:
			sb.WriteString(pending.Render("· " + d.Name))
		}
		sb.WriteByte('\n')
	}
	switch {
	case m.err != nil:
		fmt.Fprintf(&sb, "\nerror: %v\n", m.err)
	case m.done:
		sb.WriteString("\nAll collations ready.\n")
	}
	return sb.String()
}

// Sender delivers messages to a running program. *tea.Program implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// Compile-time interface verification.
var _ collate.ProgressListener = (*Listener)(nil)

// Listener forwards collation progress events to a Bubble Tea program.
type Listener struct {
	sender Sender
}

// NewListener creates a Listener sending to s.
func NewListener(s Sender) *Listener {
	return &Listener{sender: s}
}

// CollationStarted implements collate.ProgressListener.
func (l *Listener) CollationStarted(doc collate.Document) {
	l.sender.Send(StartedMsg{Doc: doc})
}

// UpdateProgress implements collate.ProgressListener.
func (l *Listener) UpdateProgress(doc collate.Document, fraction float64) {
	l.sender.Send(ProgressMsg{Doc: doc, Fraction: fraction})
}

// CollationCompleted implements collate.ProgressListener.
func (l *Listener) CollationCompleted(doc collate.Document) {
	l.sender.Send(CompletedMsg{Doc: doc})
}

// Compile-time interface verification.
var _ collate.ProgressWatcher = (*ProgressViewer)(nil)

// ProgressViewer shows the progress of a loader until it finishes.
type ProgressViewer struct {
	opts        []ProgressOption
	programOpts []tea.ProgramOption
}

// NewProgressViewer creates a ProgressViewer. Program options are passed
// to tea.NewProgram, which lets tests redirect input and output.
func NewProgressViewer(opts []ProgressOption, programOpts ...tea.ProgramOption) *ProgressViewer {
	return &ProgressViewer{opts: opts, programOpts: programOpts}
}

// Watch shows the progress of l over docs. It returns when the queue
// drains, the loader fails or the user quits, and reports the loader
// failure if there was one.
func (v *ProgressViewer) Watch(ctx context.Context, docs []collate.Document, l collate.ProgressSource) error {
	m := NewProgressModel(docs, append([]ProgressOption{WithQuitOnDone()}, v.opts...)...)
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, v.programOpts...)...)

	// Subscribing replays completed documents through p, which only reads
	// messages once it runs.
	subscribed := make(chan func(), 1)
	go func() {
		subscribed <- l.Subscribe(NewListener(p))
		l.OnLoaded(func() { p.Send(LoadedMsg{}) })
		l.Wait()
		if err := l.Err(); err != nil {
			p.Send(FailedMsg{Err: err})
		}
	}()

	final, err := p.Run()
	(<-subscribed)()
	if err != nil {
		return err
	}
	if fm, ok := final.(ProgressModel); ok {
		return fm.Err()
	}
	return nil
}
