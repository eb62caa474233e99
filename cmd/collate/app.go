package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fwojciec/collate"
	"github.com/fwojciec/collate/comparison"
	"github.com/fwojciec/collate/jsonl"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

var (
	// ErrTooFewDocuments is returned when fewer than two documents are given.
	ErrTooFewDocuments = errors.New("at least two documents are needed")
	// ErrViewNeedsBase is returned when the viewer is requested without a base.
	ErrViewNeedsBase = errors.New("--view needs --base")
)

// Options are the per-run inputs of the App.
type Options struct {
	Paths     []string
	MovesPath string   // JSONL move file; new moves are written back to it
	AddMoves  []string // NAME:START-END=NAME:START-END
	Base      string   // Restrict reporting to one base document
	Export    string   // JSONL difference export, "-" for stdout
	View      bool
}

// App encapsulates the application logic for testing.
type App struct {
	Loader    collate.DocumentLoader
	Store     collate.CollationStore
	MoveStore collate.MoveStore
	FS        afero.Fs // Export target
	Builder   *collate.Builder
	Logger    *zap.Logger
	Stdout    io.Writer

	Watcher   collate.ProgressWatcher // Nil collates without a progress view
	Viewer    collate.Viewer
	Listeners []collate.ProgressListener
}

// Run loads the documents, collates every one of them as a base and
// reports, exports or views the result.
func (a *App) Run(ctx context.Context, opts Options) error {
	docs, err := a.Loader.LoadDocuments(ctx, opts.Paths)
	if err != nil {
		return err
	}
	if len(docs) < 2 {
		return ErrTooFewDocuments
	}
	bases, err := selectBases(docs, opts.Base)
	if err != nil {
		return err
	}
	if opts.View && opts.Base == "" {
		return ErrViewNeedsBase
	}
	moves, err := a.loadMoves(docs, opts)
	if err != nil {
		return err
	}

	set := comparison.New(a.Store, a.Builder,
		comparison.WithLogger(a.Logger),
		comparison.WithMoves(moves),
		comparison.WithBackground(a.Watcher != nil),
	)
	defer set.Close()
	for _, l := range a.Listeners {
		defer set.Subscribe(l)()
	}

	if err := set.StartLoader(ctx, docs); err != nil {
		return err
	}
	if a.Watcher != nil {
		if err := a.Watcher.Watch(ctx, docs, set); err != nil {
			return err
		}
	}

	collations := make([]*collate.Collation, 0, len(bases))
	for _, b := range bases {
		c, err := set.GetCollation(ctx, b)
		if err != nil {
			return fmt.Errorf("collation of %s: %w", b.Name, err)
		}
		collations = append(collations, c)
	}

	if err := a.report(docs, collations, moves.Len()); err != nil {
		return err
	}
	if opts.Export != "" {
		if err := a.export(opts.Export, docs, collations); err != nil {
			return err
		}
	}
	if opts.View {
		return a.Viewer.View(ctx, collations[0], docs)
	}
	return nil
}

// loadMoves reads the move file, adds the requested moves and writes the
// file back if anything was added.
func (a *App) loadMoves(docs []collate.Document, opts Options) (*collate.MoveList, error) {
	moves := collate.NewMoveList()
	if opts.MovesPath != "" {
		records, err := a.MoveStore.Load(opts.MovesPath)
		if err != nil {
			return nil, err
		}
		if moves, err = collate.NewMoveListFromRecords(records, docs); err != nil {
			return nil, fmt.Errorf("%s: %w", opts.MovesPath, err)
		}
	}
	if len(opts.AddMoves) == 0 {
		return moves, nil
	}

	byName := make(map[string]collate.Document, len(docs))
	for _, d := range docs {
		byName[d.Name] = d
	}
	for _, decl := range opts.AddMoves {
		a1, a2, err := parseMove(decl, byName)
		if err != nil {
			return nil, err
		}
		m, err := moves.Create(a1, a2, lengthOf(docs, a1.DocID), lengthOf(docs, a2.DocID))
		if err != nil {
			return nil, fmt.Errorf("move %s: %w", decl, err)
		}
		a.Logger.Info("added move", zap.Int("move", m.ID), zap.String("declaration", decl))
	}

	if opts.MovesPath != "" {
		records, err := moves.Records(docs)
		if err != nil {
			return nil, err
		}
		if err := a.MoveStore.Save(opts.MovesPath, records); err != nil {
			return nil, err
		}
	}
	return moves, nil
}

func (a *App) report(docs []collate.Document, collations []*collate.Collation, moves int) error {
	names := make(map[int]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}

	tw := tabwriter.NewWriter(a.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%d documents, %d moves\n", len(docs), moves)
	for _, c := range collations {
		fmt.Fprintf(tw, "%s\n", names[c.BaseID])
		for _, id := range c.WitnessIDs() {
			set, _ := c.Witness(id)
			fmt.Fprintf(tw, "  %s\t%d differences\t%.1f%% similar\n",
				names[id], len(c.Differences(id)), set.Similarity()*100)
		}
	}
	return tw.Flush()
}

func (a *App) export(path string, docs []collate.Document, collations []*collate.Collation) error {
	if path == "-" {
		total, err := writeExport(a.Stdout, docs, collations)
		if err != nil {
			return err
		}
		a.Logger.Info("exported differences", zap.String("path", path), zap.Int("records", total))
		return nil
	}

	if err := a.FS.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := a.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	total, err := writeExport(f, docs, collations)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	a.Logger.Info("exported differences", zap.String("path", path), zap.Int("records", total))
	return nil
}

func writeExport(w io.Writer, docs []collate.Document, collations []*collate.Collation) (int, error) {
	exp := jsonl.NewExporter(w)
	total := 0
	for _, c := range collations {
		n, err := exp.Export(c, docs)
		if err != nil {
			return total, fmt.Errorf("export: %w", err)
		}
		total += n
	}
	return total, nil
}

func selectBases(docs []collate.Document, name string) ([]collate.Document, error) {
	if name == "" {
		return docs, nil
	}
	for _, d := range docs {
		if d.Name == name {
			return []collate.Document{d}, nil
		}
	}
	return nil, &collate.UnknownDocumentError{Name: name}
}

// parseMove parses NAME:START-END=NAME:START-END.
func parseMove(decl string, byName map[string]collate.Document) (collate.Fragment, collate.Fragment, error) {
	left, right, ok := strings.Cut(decl, "=")
	if !ok {
		return collate.Fragment{}, collate.Fragment{}, fmt.Errorf("move %q: want NAME:START-END=NAME:START-END", decl)
	}
	a, err := parseFragment(left, byName)
	if err != nil {
		return collate.Fragment{}, collate.Fragment{}, fmt.Errorf("move %q: %w", decl, err)
	}
	b, err := parseFragment(right, byName)
	if err != nil {
		return collate.Fragment{}, collate.Fragment{}, fmt.Errorf("move %q: %w", decl, err)
	}
	return a, b, nil
}

func parseFragment(s string, byName map[string]collate.Document) (collate.Fragment, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return collate.Fragment{}, fmt.Errorf("fragment %q has no range", s)
	}
	name, span := s[:i], s[i+1:]
	doc, ok := byName[name]
	if !ok {
		return collate.Fragment{}, &collate.UnknownDocumentError{Name: name}
	}
	startText, endText, ok := strings.Cut(span, "-")
	if !ok {
		return collate.Fragment{}, fmt.Errorf("fragment %q: range must be START-END", s)
	}
	start, err := strconv.Atoi(startText)
	if err != nil {
		return collate.Fragment{}, fmt.Errorf("fragment %q: %w", s, err)
	}
	end, err := strconv.Atoi(endText)
	if err != nil {
		return collate.Fragment{}, fmt.Errorf("fragment %q: %w", s, err)
	}
	return collate.Fragment{DocID: doc.ID, Start: start, End: end}, nil
}

func lengthOf(docs []collate.Document, id int) int {
	for _, d := range docs {
		if d.ID == id {
			return d.Len()
		}
	}
	return 0
}

// removeSession deletes a session directory after its store is closed.
func removeSession(dir string, logger *zap.Logger) {
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("removing session directory failed", zap.String("dir", dir), zap.Error(err))
	}
}
