package shared

import (
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	t.Run("loadMigrations", func(t *testing.T) {
		migrations, err := loadMigrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration version %d missing up or down SQL", m.Version)
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM rounds LIMIT 1"); err != nil {
			t.Errorf("rounds table should exist after migrations: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		if err := RollbackMigration(db); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		var newCount int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&newCount); err != nil {
			t.Fatalf("failed to query schema_migrations after rollback: %v", err)
		}
		if newCount != count-1 {
			t.Errorf("expected %d applied migrations after rollback, got %d", count-1, newCount)
		}

		if _, err := db.Exec("SELECT 1 FROM rounds LIMIT 1"); err == nil {
			t.Error("rounds table should be gone after rolling back the only migration")
		}
	})

	t.Run("Rollback With Nothing Applied", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		for {
			if err := RollbackMigration(db); err != nil {
				break
			}
		}

		if err := RollbackMigration(db); err == nil {
			t.Error("expected error when nothing is left to roll back")
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := loadMigrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})

	t.Run("splitStatements", func(t *testing.T) {
		script := "-- header\nCREATE TABLE a (x INTEGER); -- trailing\n\nCREATE TABLE b (y TEXT);\n"
		got := splitStatements(script)
		if len(got) != 2 {
			t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
		}
		if got[0] != "CREATE TABLE a (x INTEGER)" {
			t.Errorf("unexpected first statement %q", got[0])
		}
	})

	t.Run("OpenJournal", func(t *testing.T) {
		db, err := OpenJournal(DatabaseConfig{Path: ":memory:"})
		if err != nil {
			t.Fatalf("failed to open journal: %v", err)
		}
		defer db.Close()

		if _, err := db.Exec("SELECT 1 FROM rounds LIMIT 1"); err != nil {
			t.Errorf("rounds table should exist: %v", err)
		}
	})
}
