package storage

import (
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/yapily/ipisp/internal/prefs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}

	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

// TestMigrationsOrdered verifies migrations are applied in ascending numeric order.
func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}

	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}

	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

// TestConnectionPragmas verifies the DSN pragmas reach the connection.
func TestConnectionPragmas(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("reading busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("reading journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestDSN(t *testing.T) {
	mem := dsn(":memory:")
	if !strings.HasPrefix(mem, ":memory:?") {
		t.Errorf("dsn(:memory:) = %q", mem)
	}
	file := dsn("/data")
	if !strings.HasPrefix(file, filepath.Join("/data", "ipisp.db")+"?") {
		t.Errorf("dsn(/data) = %q", file)
	}
	for _, want := range []string{"_txlock=immediate", "_pragma=busy_timeout%285000%29"} {
		if !strings.Contains(file, want) {
			t.Errorf("dsn(/data) = %q, missing %q", file, want)
		}
	}
}

func TestParseMigrationVersion(t *testing.T) {
	v, err := parseMigrationVersion("012_add_index.sql")
	if err != nil || v != 12 {
		t.Errorf("parseMigrationVersion = %d, %v; want 12", v, err)
	}
	if _, err := parseMigrationVersion("add_index.sql"); err == nil {
		t.Error("expected error for a file without a version")
	}
}

// TestNativeRoundTrip writes every native kind and reads it back with its Go type.
func TestNativeRoundTrip(t *testing.T) {
	s := openTestStore(t)

	err := s.Edit().
		PutBool("b", true).
		PutInt("i", math.MinInt64).
		PutDouble("d", 0.1).
		PutString("s", "hello").
		PutStringSet("set", prefs.NewStringSet("y", "x")).
		Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}

	want := map[string]any{
		"b":   true,
		"i":   int64(math.MinInt64),
		"d":   0.1,
		"s":   "hello",
		"set": prefs.NewStringSet("x", "y"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("All() = %#v, want %#v", got, want)
	}
}

// TestEditorOverwriteAndRemove verifies later operations in a batch win and removals apply.
func TestEditorOverwriteAndRemove(t *testing.T) {
	s := openTestStore(t)

	if err := s.Edit().PutStringSet("k", prefs.NewStringSet("a")).PutInt("gone", 1).Commit(); err != nil {
		t.Fatalf("seed Commit: %v", err)
	}
	if err := s.Edit().Remove("k").PutString("k", "encoded").Remove("gone").Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 1 || got["k"] != "encoded" {
		t.Errorf("All() = %#v, want only k=encoded", got)
	}
}

// TestCommitAtomic verifies a failing operation rolls back the whole batch.
func TestCommitAtomic(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.db.Exec(`CREATE TRIGGER reject_poison BEFORE INSERT ON preferences
		WHEN NEW.key = 'poison' BEGIN SELECT RAISE(ABORT, 'poisoned'); END`); err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	err := s.Edit().PutString("first", "x").PutString("poison", "y").Commit()
	if err == nil {
		t.Fatal("expected commit error")
	}

	got, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("partial batch persisted: %#v", got)
	}
}

// TestUnknownKind verifies unreadable rows surface as errors instead of being dropped.
func TestUnknownKind(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.db.Exec(`PRAGMA ignore_check_constraints = ON`); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if _, err := s.db.Exec(`INSERT INTO preferences (key, kind, value, updated_at) VALUES ('x', 'blob', '', '2025-01-01T00:00:00Z')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := s.All(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

// TestPreferencesStoreOnSQLite runs the typed store over SQLite, including a legacy migration.
func TestPreferencesStoreOnSQLite(t *testing.T) {
	s := openTestStore(t)
	p := prefs.NewStore(s)

	if err := s.Edit().PutStringSet("flutter.legacy", prefs.NewStringSet("b", "a")).Commit(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := p.SetDouble("ratio", 2.5); err != nil {
		t.Fatalf("SetDouble: %v", err)
	}
	if err := p.SetStringList("tags", []string{"", "x"}); err != nil {
		t.Fatalf("SetStringList: %v", err)
	}

	all, err := p.GetAll()
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	want := map[string]prefs.Value{
		"flutter.legacy": prefs.StringList{"a", "b"},
		"flutter.ratio":  prefs.Double(2.5),
		"flutter.tags":   prefs.StringList{"", "x"},
	}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("GetAll() = %#v, want %#v", all, want)
	}

	var kind string
	if err := s.db.QueryRow("SELECT kind FROM preferences WHERE key = 'flutter.legacy'").Scan(&kind); err != nil {
		t.Fatalf("query kind: %v", err)
	}
	if kind != kindString {
		t.Errorf("legacy kind after migration = %q, want %q", kind, kindString)
	}
}
