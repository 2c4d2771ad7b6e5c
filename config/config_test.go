package config

import (
	"os"
	"path/filepath"
	"testing"

	"markestedt/pasteimagepath/platform"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Binding() != platform.DefaultBinding {
		t.Fatalf("binding = %+v", cfg.Binding())
	}
	if !cfg.Paste.InsertSpaceBeforePath {
		t.Fatal("insert_space_before_path should default to true")
	}

	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if again.Binding() != platform.DefaultBinding || again.Web.Port != cfg.Web.Port {
		t.Fatalf("reloaded config differs: %+v", again)
	}
}

func TestLoadHotkeyFallback(t *testing.T) {
	tests := []struct {
		name string
		body string
		want platform.Binding
	}{
		{
			name: "complete",
			body: "[hotkey]\nkey_code = 40\nmodifiers = 768\n",
			want: platform.Binding{KeyCode: platform.KeyK, Modifiers: platform.ModCommand | platform.ModShift},
		},
		{
			name: "missing modifiers",
			body: "[hotkey]\nkey_code = 40\n",
			want: platform.DefaultBinding,
		},
		{
			name: "missing key code",
			body: "[hotkey]\nmodifiers = 768\n",
			want: platform.DefaultBinding,
		},
		{
			name: "zero modifiers",
			body: "[hotkey]\nkey_code = 40\nmodifiers = 0\n",
			want: platform.DefaultBinding,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got := cfg.Binding(); got != tt.want {
				t.Fatalf("binding = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[paste]\ninsert_space_before_path = false\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paste.InsertSpaceBeforePath {
		t.Fatal("explicit false was overridden by the default")
	}
	if !cfg.Tray.Enabled {
		t.Fatal("unset sections should keep defaults")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	if _, err := Load(writeConfig(t, "[hotkey\n")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(cfg)

	b := platform.Binding{KeyCode: platform.KeyI, Modifiers: platform.ModCommand | platform.ModOption}
	if err := s.SaveBinding(b); err != nil {
		t.Fatalf("SaveBinding failed: %v", err)
	}
	if err := s.SetInsertSpaceBeforePath(false); err != nil {
		t.Fatalf("SetInsertSpaceBeforePath failed: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Binding() != b {
		t.Fatalf("binding = %+v, want %+v", reloaded.Binding(), b)
	}
	if reloaded.Paste.InsertSpaceBeforePath {
		t.Fatal("preference not persisted")
	}
	if s.InsertSpaceBeforePath() || s.Binding() != b {
		t.Fatal("store view out of date")
	}
}

func TestStoreUpdateRollsBack(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(cfg)

	// a directory where the file should be makes Save fail
	cfg.path = dir
	if err := s.Update(func(c *Config) { c.Paste.QuotePaths = true }); err == nil {
		t.Fatal("expected save error")
	}
	if s.QuotePaths() {
		t.Fatal("failed update was not rolled back")
	}
}
