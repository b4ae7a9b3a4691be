package postgres

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/pratik-mahalle/jobtrail/migrations"
)

func TestRunMigrations(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	pending, err := PendingMigrations(db, migrations.GetFS())
	if err != nil {
		t.Fatalf("PendingMigrations() error = %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("PendingMigrations() = %v, want 2 files", pending)
	}

	applied, err := RunMigrations(db, migrations.GetFS())
	if err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if applied != len(pending) {
		t.Errorf("RunMigrations() applied %d, want %d", applied, len(pending))
	}

	again, err := RunMigrations(db, migrations.GetFS())
	if err != nil {
		t.Fatalf("RunMigrations() second run error = %v", err)
	}
	if again != 0 {
		t.Errorf("RunMigrations() second run applied %d, want 0", again)
	}
}

func TestRebind_SQLiteUnchanged(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	q := "SELECT 1 FROM users WHERE id = ? AND email = ?"
	if got := rebind(db, q); got != q {
		t.Errorf("rebind() = %q, want unchanged", got)
	}
}
