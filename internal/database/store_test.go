package database

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantRejected bool
	}{
		{"nil", nil, false},
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"not null violation", &pgconn.PgError{Code: "23502"}, true},
		{"wrapped check violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23514"}), true},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, true},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, false},
		{"plain error", errors.New("conn closed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("classify(nil) = %v, want nil", got)
				}
				return
			}
			if core.IsRejected(got) != tt.wantRejected {
				t.Errorf("IsRejected(classify(%v)) = %v, want %v", tt.err, !tt.wantRejected, tt.wantRejected)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("classify should preserve the original error")
			}
		})
	}
}

func TestPgTypeHelpers(t *testing.T) {
	if v := ToPgText(""); v.Valid {
		t.Error("ToPgText(\"\") should be NULL")
	}
	if v := ToPgText("x"); !v.Valid || v.String != "x" {
		t.Errorf("ToPgText(\"x\") = %+v", v)
	}

	if v := ToPgInt4(nil); v.Valid {
		t.Error("ToPgInt4(nil) should be NULL")
	}
	year := 3
	if v := ToPgInt4(&year); !v.Valid || v.Int32 != 3 {
		t.Errorf("ToPgInt4(3) = %+v", v)
	}

	if v := ToPgTimestamptz(time.Time{}); v.Valid {
		t.Error("zero time should be NULL")
	}

	id := "5b0b7a4c-6d4e-4d8f-9a51-3f1a9b2c7e10"
	if got := UUIDString(ToPgUUID(id)); got != id {
		t.Errorf("UUID round trip = %q, want %q", got, id)
	}
	if v := ToPgUUID("not-a-uuid"); v.Valid {
		t.Error("invalid uuid should be NULL")
	}
}

func TestMigrationNames(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migrationNames() error = %v", err)
	}
	want := []string{"migrations/0001_users.sql", "migrations/0002_import_audit.sql"}
	if len(names) != len(want) {
		t.Fatalf("migrationNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("migrationNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestDatabaseName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://u:p@localhost:5432/users?sslmode=disable", "users"},
		{"postgres://localhost", ""},
		{"::bad", ""},
	}
	for _, tt := range tests {
		if got := DatabaseName(tt.url); got != tt.want {
			t.Errorf("DatabaseName(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
