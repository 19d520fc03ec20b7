package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/planir/internal/explain"
	"github.com/roach88/planir/internal/plan"
	"github.com/roach88/planir/internal/testutil"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fingerprint(t *testing.T, op plan.Operator) string {
	t.Helper()
	fp, err := explain.Fingerprint(op)
	if err != nil {
		t.Fatalf("Fingerprint() failed: %v", err)
	}
	return fp
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	fp, err := s.PutPlan(ctx, testutil.BigOrders())
	if err != nil {
		t.Fatalf("PutPlan() failed: %v", err)
	}
	s.Close()

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err = Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()
	if _, err := s.GetPlan(ctx, fp); err != nil {
		t.Errorf("plan lost after reopening: %v", err)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	if err == nil {
		t.Error("expected error for a path in a missing directory")
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	db.Close()

	if _, err := Open(path); err == nil {
		t.Error("expected error for a newer schema version")
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	// sql.DB.Close is safe to call twice
	if err := s.Close(); err != nil {
		t.Errorf("second Close() failed: %v", err)
	}

	var zero Store
	if err := zero.Close(); err != nil {
		t.Errorf("Close() on a zero store failed: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)
	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
		{"user_version", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(context.Background(), tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestPutPlan_ContentAddressed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.PutPlan(ctx, testutil.BigOrders())
	if err != nil {
		t.Fatalf("PutPlan() failed: %v", err)
	}
	// A structurally equal plan built from fresh nodes
	second, err := s.PutPlan(ctx, testutil.BigOrders())
	if err != nil {
		t.Fatalf("second PutPlan() failed: %v", err)
	}

	if first != second {
		t.Errorf("fingerprints differ: %s vs %s", first, second)
	}
	if want := fingerprint(t, testutil.BigOrders()); first != want {
		t.Errorf("PutPlan() = %s, want %s", first, want)
	}

	var count, nodes int
	if err := s.db.QueryRow("SELECT COUNT(*), MAX(nodes) FROM plans").Scan(&count, &nodes); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("plans = %d, want 1", count)
	}
	if want := plan.Count(testutil.BigOrders()); nodes != want {
		t.Errorf("nodes = %d, want %d", nodes, want)
	}
}

func TestGetPlan_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, op := range []plan.Operator{testutil.BigOrders(), testutil.CustomerTotals(), testutil.Broken()} {
		fp, err := s.PutPlan(ctx, op)
		if err != nil {
			t.Fatalf("PutPlan() failed: %v", err)
		}
		got, err := s.GetPlan(ctx, fp)
		if err != nil {
			t.Fatalf("GetPlan() failed: %v", err)
		}
		if back := fingerprint(t, got); back != fp {
			t.Errorf("decoded plan has fingerprint %s, want %s", back, fp)
		}
	}
}

func TestGetPlan_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetPlan(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPlan() error = %v, want ErrNotFound", err)
	}
}

func TestWriteRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	in := testutil.CustomerTotals()
	out := plan.Standard.Distinct(in)

	got, err := s.WriteRun(ctx, Run{
		ID:         "run-1",
		Passes:     []string{"collapse_distinct", "merge_limits"},
		Applied:    []string{"merge_limits"},
		Iterations: 2,
	}, in, out)
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	if got.Seq != 1 {
		t.Errorf("Seq = %d, want 1", got.Seq)
	}
	if got.Input != fingerprint(t, in) || got.Output != fingerprint(t, out) {
		t.Errorf("Input/Output = %s/%s", got.Input, got.Output)
	}
	if len(got.Passes) != 2 || got.Applied[0] != "merge_limits" || got.Iterations != 2 {
		t.Errorf("stored run = %+v", got)
	}

	if _, err := s.GetPlan(ctx, got.Output); err != nil {
		t.Errorf("output plan not stored: %v", err)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	in := testutil.BigOrders()

	first, err := s.WriteRun(ctx, Run{ID: "run-1", Iterations: 1}, in, in)
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	second, err := s.WriteRun(ctx, Run{ID: "run-1", Iterations: 7}, in, in)
	if err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}
	if second.Seq != first.Seq || second.Iterations != 1 {
		t.Errorf("second write = %+v, want the stored %+v", second, first)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Errorf("Runs() = %d runs, want 1", len(runs))
	}
}

func TestRuns_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.Runs(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("Runs() = %#v, want empty non-nil slice", runs)
	}
}

func TestRuns_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	in := testutil.BigOrders()

	// Ids sort in the opposite order to insertion
	for _, id := range []string{"c", "b", "a"} {
		if _, err := s.WriteRun(ctx, Run{ID: id}, in, in); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "b" || ids[2] != "a" {
		t.Errorf("Runs() order = %v, want [c b a]", ids)
	}
	if runs[0].Passes == nil || runs[0].Applied == nil {
		t.Error("empty name lists decode as nil")
	}
}

func TestLineage(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	o := plan.Standard

	p0 := testutil.CustomerTotals()
	p1 := o.Distinct(p0)
	p2 := o.Limit(p1, testutil.Int(3))

	write := func(id string, in, out plan.Operator) {
		t.Helper()
		if _, err := s.WriteRun(ctx, Run{ID: id}, in, out); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}
	write("r1", p0, p1)
	write("noop", p1, p1)
	write("r2", p1, p2)

	chain, err := s.Lineage(ctx, fingerprint(t, p2))
	if err != nil {
		t.Fatalf("Lineage() failed: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != "r1" || chain[1].ID != "r2" {
		t.Fatalf("Lineage() = %+v, want [r1 r2]", chain)
	}
	if chain[0].Input != fingerprint(t, p0) {
		t.Errorf("chain starts at %s, want the original plan", chain[0].Input)
	}

	none, err := s.Lineage(ctx, fingerprint(t, p0))
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("Lineage(original) = %+v, want empty", none)
	}
}

func TestLineage_Cycle(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	a := testutil.CustomerTotals()
	b := plan.Standard.Distinct(a)

	for _, r := range []struct {
		id      string
		in, out plan.Operator
	}{{"ab", a, b}, {"ba", b, a}} {
		if _, err := s.WriteRun(ctx, Run{ID: r.id}, r.in, r.out); err != nil {
			t.Fatal(err)
		}
	}

	chain, err := s.Lineage(ctx, fingerprint(t, a))
	if err != nil {
		t.Fatalf("Lineage() failed: %v", err)
	}
	if len(chain) != 2 {
		t.Errorf("Lineage() = %d runs, want 2", len(chain))
	}
}
