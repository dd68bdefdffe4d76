// Package reconciler drives the schema reconciliation loop.
//
// A reconciliation compares the desired schema with the live database, turns the
// differences into DDL statements, optionally executes them, and repeats until the
// database stops changing. Executing one batch can reveal changes that were not visible
// before (a table created in the first pass gets its keys in the second), so a single
// pass is not guaranteed to be complete.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-extras/go-kit/must"

	"github.com/stokaro/dbreconcile/config"
	"github.com/stokaro/dbreconcile/core/sqlschema"
	"github.com/stokaro/dbreconcile/dbschema/types"
	"github.com/stokaro/dbreconcile/migration/changeset"
	"github.com/stokaro/dbreconcile/migration/migrator"
	"github.com/stokaro/dbreconcile/migration/planner"
	"github.com/stokaro/dbreconcile/migration/schemadiff"
	difftypes "github.com/stokaro/dbreconcile/migration/schemadiff/types"
)

// ErrNoExecutor is returned when execution is requested without a statement executor.
var ErrNoExecutor = errors.New("execution requested but no statement executor configured")

// Reconciler brings a live database in line with a desired schema.
type Reconciler struct {
	source       types.DefinitionSource
	introspector types.SchemaIntrospector
	executor     types.StatementExecutor
	dialect      planner.Dialect
	logger       *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDialect selects the dialect the statements are rendered in. The default is MySQL.
func WithDialect(dialect planner.Dialect) Option {
	return func(r *Reconciler) {
		r.dialect = dialect
	}
}

// New creates a reconciler reading the desired schema from source and the actual
// schema from introspector. The executor is only used by runs with Execute set and
// may be nil otherwise.
func New(source types.DefinitionSource, introspector types.SchemaIntrospector, executor types.StatementExecutor, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:       source,
		introspector: introspector,
		executor:     executor,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.dialect == nil {
		r.dialect = must.Must(planner.GetDialect("mysql"))
	}
	return r
}

// WithLogger sets the logger for the reconciler
func (r *Reconciler) WithLogger(l *slog.Logger) *Reconciler {
	tmp := *r
	tmp.logger = l
	return &tmp
}

// Dialect returns the dialect the statements are rendered in.
func (r *Reconciler) Dialect() planner.Dialect {
	return r.dialect
}

// Reconcile runs passes until the produced statement batch is empty, equals the
// batch of the previous pass, or config.MaxIterations passes have been made.
//
// Every pass that produced a new batch adds a section to the returned report:
//
//	# Iteration 1
//	<the SQL batch when Verbose, a one-line summary otherwise>
//
// Statements rejected by the database are listed as "-- FAILED:" lines and do not
// stop the run. Unparsable definitions, a suspicious batch and introspection failures
// abort the run with an error.
func (r *Reconciler) Reconcile(ctx context.Context, opts config.ReconcileOptions) (string, error) {
	if opts.Execute && r.executor == nil {
		return "", ErrNoExecutor
	}

	desired, err := r.desiredSchema(ctx)
	if err != nil {
		return "", err
	}

	var (
		report   strings.Builder
		previous string
	)
	for iteration := 1; ; iteration++ {
		statements, err := r.plan(ctx, desired, opts)
		if err != nil {
			return "", fmt.Errorf("iteration %d: %w", iteration, err)
		}

		batch := strings.Join(statements, "\n")
		if batch == previous || batch == "" {
			r.logger.Debug("Schema reconciled", "iterations", iteration-1)
			break
		}
		previous = batch

		if err := CheckSyntax(batch); err != nil {
			return "", err
		}

		var execReport *migrator.ExecutionReport
		if opts.Execute {
			execReport = migrator.NewMigrator(r.executor).WithLogger(r.logger).Execute(ctx, statements)
		}

		r.logger.Info("Reconciliation pass", "iteration", iteration, "statements", len(statements), "execute", opts.Execute)
		fmt.Fprintf(&report, "\n# Iteration %d\n%s", iteration, describe(statements, batch, execReport, opts))

		if iteration >= config.MaxIterations {
			r.logger.Warn("Giving up", "iterations", iteration)
			fmt.Fprintf(&report, "\nGiving up after %d iterations.", config.MaxIterations)
			break
		}
	}

	return report.String(), nil
}

// Plan runs a single pass without executing anything and returns the ordered
// statements it would send to the database.
func (r *Reconciler) Plan(ctx context.Context, opts config.ReconcileOptions) ([]string, error) {
	desired, err := r.desiredSchema(ctx)
	if err != nil {
		return nil, err
	}
	return r.plan(ctx, desired, opts)
}

func (r *Reconciler) desiredSchema(ctx context.Context) (*sqlschema.Schema, error) {
	text, err := r.source.Definitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema definitions: %w", err)
	}
	desired, err := sqlschema.Parse(text)
	if err != nil {
		return nil, err
	}
	return planner.TranslateSchema(desired, r.dialect), nil
}

// plan introspects the database and returns the ordered statement batch of one pass.
func (r *Reconciler) plan(ctx context.Context, desired *sqlschema.Schema, opts config.ReconcileOptions) ([]string, error) {
	actual, err := r.introspector.ReadSchema(ctx, opts.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to read database schema: %w", err)
	}

	compareOpts := opts.CompareOptionsOrDefault()
	// Removals are only synthesized for Remove runs, which drop instead of renaming.
	plannerOpts := planner.Options{
		RemovalPrefixDisabled: opts.Remove,
		Dialect:               r.dialect,
	}
	considered := changeset.NewConsideredTypes()

	changes := planner.Synthesize(r.filter(schemadiff.CompareWithOptions(desired, actual, compareOpts), opts), planner.ModeUpdate, plannerOpts)
	if opts.Remove {
		considered.Add(changeset.RemoveTypes...)
		removals := planner.Synthesize(r.filter(schemadiff.CompareWithOptions(actual, desired, compareOpts), opts), planner.ModeRemove, plannerOpts)
		changes.Merge(removals)
	}

	return changeset.Order(changeset.SelectConsideredTypes(changes, considered)), nil
}

func (r *Reconciler) filter(diff *difftypes.Diff, opts config.ReconcileOptions) *difftypes.Diff {
	if opts.AllowKeyModifications {
		return diff
	}
	return schemadiff.RemoveKeyModifications(diff)
}

// describe renders the report text of one pass.
func describe(statements []string, batch string, execReport *migrator.ExecutionReport, opts config.ReconcileOptions) string {
	var b strings.Builder
	switch {
	case opts.Verbose:
		b.WriteString(batch)
	case opts.Execute:
		fmt.Fprintf(&b, "%d statement(s) executed", len(statements))
	default:
		fmt.Fprintf(&b, "%d statement(s) found", len(statements))
	}

	if execReport != nil {
		for _, failed := range execReport.Failed {
			fmt.Fprintf(&b, "\n-- FAILED: %s (%v)", failed.Statement, failed.Err)
		}
	}
	return b.String()
}
