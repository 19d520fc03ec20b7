package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/planfile"
)

// GetPlan decodes the plan stored under fp. Returns an error wrapping
// ErrNotFound if there is none.
func (s *Store) GetPlan(ctx context.Context, fp string) (plan.Operator, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT document FROM plans WHERE fingerprint = ?
	`, fp).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan %s: %w", fp, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", fp, err)
	}

	op, err := planfile.DecodeYAML([]byte(doc), fp)
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", fp, err)
	}
	return op, nil
}

// Runs returns every run, oldest first.
//
// Returns an empty slice (not nil) if the store has no runs.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, input_fp, output_fp, passes, applied, iterations
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Lineage returns the chain of runs that led to the plan fp, oldest first.
// Each step follows the latest run whose output is the current plan and
// continues from that run's input. Runs that left their plan unchanged end
// the chain.
//
// Returns an empty slice if no run produced fp.
func (s *Store) Lineage(ctx context.Context, fp string) ([]Run, error) {
	var chain []Run
	seen := map[string]bool{}
	for !seen[fp] {
		seen[fp] = true
		r, err := scanRun(s.db.QueryRowContext(ctx, `
			SELECT seq, id, input_fp, output_fp, passes, applied, iterations
			FROM runs
			WHERE output_fp = ? AND input_fp <> output_fp
			ORDER BY seq DESC
			LIMIT 1
		`, fp))
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("lineage %s: %w", fp, err)
		}
		chain = append(chain, r)
		fp = r.Input
	}

	// Reverse to oldest first
	out := make([]Run, len(chain))
	for i, r := range chain {
		out[len(chain)-1-i] = r
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var passes, applied string
	err := row.Scan(&r.Seq, &r.ID, &r.Input, &r.Output, &passes, &applied, &r.Iterations)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if r.Passes, err = unmarshalNames(passes); err != nil {
		return Run{}, err
	}
	if r.Applied, err = unmarshalNames(applied); err != nil {
		return Run{}, err
	}
	return r, nil
}

func unmarshalNames(data string) ([]string, error) {
	names := []string{}
	if err := json.Unmarshal([]byte(data), &names); err != nil {
		return nil, fmt.Errorf("unmarshal names: %w", err)
	}
	return names, nil
}
