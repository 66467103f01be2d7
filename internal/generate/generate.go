// Package generate runs one generation: it loads and resolves the project
// configuration, diffs the result against the stored snapshot, plans the
// migration, applies the breaking-change gate and saves the new snapshot.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"backforge/internal/config"
	"backforge/internal/core"
	"backforge/internal/diff"
	"backforge/internal/migration"
	"backforge/internal/resolve"
	"backforge/internal/snapshot"
)

const (
	// DefaultRoot is the root document looked up when Options.Root is empty.
	DefaultRoot = "backforge.yaml"
	// DefaultSnapshot is the snapshot location used when neither the options
	// nor the root document name one.
	DefaultSnapshot = ".backforge/snapshot.json"
)

// Options configures a generation run.
type Options struct {
	// FS holds the project files. Root is a path inside it.
	FS   fs.FS
	Root string
	// BaseDir anchors relative snapshot file paths. Empty means the working
	// directory.
	BaseDir string
	// Snapshot overrides the generator.snapshot key of the root document.
	Snapshot string
	// Workers bounds concurrent config file reads.
	Workers       int
	AllowBreaking bool
	// DryRun plans without saving the snapshot.
	DryRun bool
	Out    io.Writer
}

// Result describes a generation run. On a gate failure it still carries the
// graph, the diff and the plan.
type Result struct {
	Graph    *core.SchemaGraph
	Previous *snapshot.Snapshot
	Diff     *diff.SchemaDiff
	Plan     *migration.Plan
	// Saved is the snapshot written by this run, nil when nothing was saved.
	Saved *snapshot.Snapshot
	// Location is the snapshot location that was used.
	Location string
}

// Runner executes generation runs.
type Runner struct {
	options Options
	out     io.Writer
}

// NewRunner returns a Runner for the given options.
func NewRunner(options Options) *Runner {
	out := options.Out
	if out == nil {
		out = io.Discard
	}
	if options.Root == "" {
		options.Root = DefaultRoot
	}
	return &Runner{options: options, out: out}
}

// Run is a shorthand for NewRunner(opts).Run(ctx).
func Run(ctx context.Context, opts Options) (*Result, error) {
	return NewRunner(opts).Run(ctx)
}

func (r *Runner) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

func (r *Runner) println(args ...any) {
	_, _ = fmt.Fprintln(r.out, args...)
}

// Resolve loads and resolves the configuration without touching the
// snapshot. Errors are core.ErrorList values.
func (r *Runner) Resolve(ctx context.Context) (*core.SchemaGraph, error) {
	_, g, err := r.resolve(ctx)
	return g, err
}

func (r *Runner) resolve(ctx context.Context) (*config.Bundle, *core.SchemaGraph, error) {
	if r.options.FS == nil {
		return nil, nil, fmt.Errorf("no project file system configured")
	}
	loader := config.NewLoader(r.options.FS, config.Options{Workers: r.options.Workers})
	b, err := loader.Load(ctx, r.options.Root)
	if err != nil {
		return nil, nil, err
	}
	r.printf("Loaded %d document(s) from %s\n", len(b.Roles()), r.options.Root)

	g, err := resolve.Resolve(b)
	if err != nil {
		return nil, nil, err
	}
	r.printf("Resolved %d table(s) across %d service(s)\n", len(g.Tables), len(g.Services))
	return b, g, nil
}

// Run performs the generation. A plan with unconfirmed breaking operations
// returns UnconfirmedBreakingChange and leaves the snapshot untouched; so does
// a dry run. An unchanged graph keeps the stored snapshot as is.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	b, g, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{Graph: g, Location: r.location(b)}
	store, err := snapshot.Open(ctx, res.Location, projectName(g, r.options.Root))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			r.printf("Failed to close snapshot store: %v\n", cerr)
		}
	}()

	before := &core.SchemaGraph{}
	prev, err := store.Load(ctx)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		r.println("No previous snapshot; planning from an empty schema")
	case err != nil:
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	default:
		res.Previous = prev
		before = prev.Graph
		r.printf("Loaded snapshot %s from %s\n", prev.ID, prev.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	res.Diff = diff.Compare(before, g)
	res.Plan = migration.NewPlan(res.Diff.Operations())
	r.printf("Planned %d operation(s): %d safe, %d breaking\n",
		len(res.Plan.Operations), len(res.Plan.AutoApply()), len(res.Plan.PendingConfirmation()))

	if err := res.Plan.Confirm(r.options.AllowBreaking); err != nil {
		for _, note := range res.Plan.BreakingNotes() {
			r.printf("  - %s\n", note)
		}
		return res, err
	}

	sum, err := snapshot.Checksum(g)
	if err != nil {
		return nil, err
	}
	if prev != nil && prev.Checksum == sum {
		r.println("Schema unchanged; snapshot kept")
		return res, nil
	}
	if r.options.DryRun {
		r.println("Dry run; snapshot not saved")
		return res, nil
	}

	snap, err := snapshot.New(g)
	if err != nil {
		return nil, err
	}
	if err := store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save snapshot: %w", err)
	}
	res.Saved = snap
	r.printf("Saved snapshot %s to %s\n", snap.ID, res.Location)
	return res, nil
}

// location picks the snapshot location: the explicit option, then the
// generator.snapshot key, then DefaultSnapshot. Relative file paths are
// joined to BaseDir.
func (r *Runner) location(b *config.Bundle) string {
	loc := r.options.Snapshot
	if loc == "" {
		if root := b.Root(); root != nil {
			loc = root.Root.Lookup("generator.snapshot").Text()
		}
	}
	if loc == "" {
		loc = DefaultSnapshot
	}
	if l := snapshot.ParseLocation(loc); l.Dialect == "" && !filepath.IsAbs(l.Path) && r.options.BaseDir != "" {
		loc = filepath.Join(r.options.BaseDir, filepath.FromSlash(l.Path))
	}
	return loc
}

// projectName scopes SQL snapshot rows. Projects without a name share the
// root document path as their key.
func projectName(g *core.SchemaGraph, root string) string {
	if g.Settings.Project != "" {
		return g.Settings.Project
	}
	return root
}
