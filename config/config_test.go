package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/billbatista/acasinha-trip/member"
	"github.com/google/go-cmp/cmp"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 5000 {
		t.Fatalf("expected port 5000, got %d", cfg.Port)
	}
	if cfg.StoreDriver != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %s", cfg.StoreDriver)
	}
	if cfg.AdminCode != "1130" {
		t.Fatalf("expected default admin code, got %s", cfg.AdminCode)
	}
	if diff := cmp.Diff(DefaultPassSecret, cfg.PassSecret); diff != "" {
		t.Fatalf("pass secret mismatch (-want +got):\n%s", diff)
	}
	if len(cfg.Warnings()) != 1 {
		t.Fatalf("expected a warning for the default pass secret, got %v", cfg.Warnings())
	}
	if cfg.Location.String() != "Asia/Tokyo" {
		t.Fatalf("expected Asia/Tokyo, got %s", cfg.Location)
	}
	if diff := cmp.Diff(member.DefaultRoster(), cfg.Roster); diff != "" {
		t.Fatalf("roster mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "8080")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ADMIN_CODE", "4321")
	t.Setenv("EVENT_BUFFER", "7")
	t.Setenv("PASS_SECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Port != 8080 || cfg.StoreDriver != DriverMemory || cfg.AdminCode != "4321" || cfg.EventBuffer != 7 {
		t.Fatalf("environment not applied: %+v", cfg)
	}
	if w := cfg.Warnings(); len(w) != 0 {
		t.Fatalf("expected no warnings, got %v", w)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("GEMINI_MODEL=gemini-test\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GEMINI_MODEL", "")
	os.Unsetenv("GEMINI_MODEL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.GeminiModel != "gemini-test" {
		t.Fatalf("expected model from .env, got %s", cfg.GeminiModel)
	}
}

func TestLoadRejectsBadDriver(t *testing.T) {
	chdirTemp(t)

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		if _, err := Load(); !errors.Is(err, ErrUnknownDriver) {
			t.Fatalf("expected ErrUnknownDriver, got %v", err)
		}
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		if _, err := Load(); !errors.Is(err, ErrMissingDatabaseURL) {
			t.Fatalf("expected ErrMissingDatabaseURL, got %v", err)
		}
	})
}

func TestLoadRoster(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	content := `members: [Ann, Bo, Cy]
raffleMembers: [Ann, Bo]
titles:
  Ann: 隊長
secretPair: [Ann, Bo]
statusOptions: [吃飯中, 不顯示]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	roster, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := member.Roster{
		Members:       []string{"Ann", "Bo", "Cy"},
		RaffleMembers: []string{"Ann", "Bo"},
		Titles:        map[string]string{"Ann": "隊長"},
		Photos:        map[string]string{},
		SecretPair:    [2]string{"Ann", "Bo"},
		StatusOptions: []string{"吃飯中", "不顯示"},
	}
	if diff := cmp.Diff(want, roster); diff != "" {
		t.Fatalf("roster mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRosterInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte("members: [Ann]\nraffleMembers: [Zed]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRoster(path); err == nil {
		t.Fatalf("expected an error for a raffle member outside the roster")
	}
}

func TestLoadRosterMissingFile(t *testing.T) {
	roster, err := LoadRoster(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(roster.Members) != len(member.DefaultRoster().Members) {
		t.Fatalf("expected the default roster")
	}
}
