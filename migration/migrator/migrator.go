package migrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/multierr"

	"github.com/stokaro/dbreconcile/dbschema/types"
)

// StatementResult is the outcome of a single executed statement.
type StatementResult struct {
	Statement string `json:"statement"`
	Err       error  `json:"-"`
}

// ExecutionReport summarizes a batch run: which statements succeeded and which failed.
type ExecutionReport struct {
	Succeeded []StatementResult `json:"succeeded"`
	Failed    []StatementResult `json:"failed"`
}

// Total returns the number of statements that were sent to the database.
func (r *ExecutionReport) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// HasFailures reports whether at least one statement failed.
func (r *ExecutionReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// Err combines the errors of all failed statements, each wrapped in an
// *ExecutionError. It returns nil when every statement succeeded.
func (r *ExecutionReport) Err() error {
	var err error
	for _, failed := range r.Failed {
		err = multierr.Append(err, &ExecutionError{Statement: failed.Statement, Err: failed.Err})
	}
	return err
}

// ExecutionError is returned for a statement the database rejected.
type ExecutionError struct {
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute statement %q: %v", e.Statement, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Migrator applies statement batches through a StatementExecutor
type Migrator struct {
	executor types.StatementExecutor
	logger   *slog.Logger
}

// NewMigrator creates a new migrator sending statements to the given executor
func NewMigrator(executor types.StatementExecutor) *Migrator {
	return &Migrator{
		executor: executor,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the migrator
func (m *Migrator) WithLogger(l *slog.Logger) *Migrator {
	tmp := *m
	tmp.logger = l
	return &tmp
}

// Execute sends the statements one by one, in order. A failing statement does not
// stop the batch: later statements may still succeed and the loop converges over
// the next passes. Blank statements are skipped. Cancelling ctx marks the remaining
// statements as failed with the context error.
func (m *Migrator) Execute(ctx context.Context, statements []string) *ExecutionReport {
	report := &ExecutionReport{}

	for i, stmt := range statements {
		if strings.TrimSpace(stmt) == "" {
			continue
		}

		if err := ctx.Err(); err != nil {
			report.Failed = append(report.Failed, StatementResult{Statement: stmt, Err: err})
			continue
		}

		m.logger.Debug("Executing statement", "index", i, "sql", stmt)
		if err := m.executor.ExecuteSQL(ctx, stmt); err != nil {
			m.logger.Warn("Statement failed", "index", i, "sql", stmt, "error", err)
			report.Failed = append(report.Failed, StatementResult{Statement: stmt, Err: err})
			continue
		}
		report.Succeeded = append(report.Succeeded, StatementResult{Statement: stmt})
	}

	m.logger.Info("Executed statements", "succeeded", len(report.Succeeded), "failed", len(report.Failed))

	return report
}
