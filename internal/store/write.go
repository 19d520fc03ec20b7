package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/planir/internal/canonical"
	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/plan"
)

// Run records one pipeline run.
type Run struct {
	ID         string
	Seq        int64    // assigned by WriteRun
	Input      string   // input plan fingerprint, set by WriteRun
	Output     string   // output plan fingerprint, set by WriteRun
	Passes     []string // pass names in order
	Applied    []string // passes that changed the plan, in order
	Iterations int
}

// PutPlan stores op under its fingerprint and returns the fingerprint.
// Uses ON CONFLICT DO NOTHING for idempotency.
func (s *Store) PutPlan(ctx context.Context, op plan.Operator) (string, error) {
	return putPlan(ctx, s.db, op)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putPlan(ctx context.Context, db execer, op plan.Operator) (string, error) {
	data, err := explain.JSON(op)
	if err != nil {
		return "", fmt.Errorf("put plan: %w", err)
	}
	fp := canonical.Hash(explain.DomainPlan, data)

	_, err = db.ExecContext(ctx, `
		INSERT INTO plans (fingerprint, document, nodes)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING
	`, fp, string(data), plan.Count(op))
	if err != nil {
		return "", fmt.Errorf("put plan: %w", err)
	}
	return fp, nil
}

// WriteRun stores the input and output plans and a record of the run
// between them, in one transaction. It returns r with Seq, Input and Output
// filled in. Writing a run id that already exists returns the stored run.
func (s *Store) WriteRun(ctx context.Context, r Run, input, output plan.Operator) (Run, error) {
	passes, err := marshalNames(r.Passes)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	applied, err := marshalNames(r.Applied)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if r.Input, err = putPlan(ctx, tx, input); err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	if r.Output, err = putPlan(ctx, tx, output); err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, input_fp, output_fp, passes, applied, iterations)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.ID, r.Input, r.Output, passes, applied, r.Iterations)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	stored, err := scanRun(tx.QueryRowContext(ctx, `
		SELECT seq, id, input_fp, output_fp, passes, applied, iterations
		FROM runs WHERE id = ?
	`, r.ID))
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return stored, nil
}

func marshalNames(names []string) (string, error) {
	data, err := canonical.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("marshal names: %w", err)
	}
	return string(data), nil
}
