package theme

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetBuiltins(t *testing.T) {
	for _, name := range []string{"default", "gruvbox", "light"} {
		got := Get(name)
		if got.Name != name {
			t.Errorf("Get(%q).Name = %q", name, got.Name)
		}
		if got.Background == "" || got.Foreground == "" {
			t.Errorf("builtin %q missing core colors: %+v", name, got)
		}
	}
}

func TestGetIsCaseInsensitive(t *testing.T) {
	if got := Get("GruvBox"); got.Name != "gruvbox" {
		t.Errorf("Get(GruvBox) = %q, want gruvbox", got.Name)
	}
}

func TestGetUnknownFallsBack(t *testing.T) {
	got := Get("no-such-theme")
	if got.Name != "default" {
		t.Errorf("unknown theme resolved to %q, want default", got.Name)
	}
}

func TestRegister(t *testing.T) {
	custom := Theme{
		Name:       "Custom-Test",
		Background: "#000000",
		Foreground: "#ffffff",
	}
	if err := Register(custom); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if got := Get("custom-test"); got.Foreground != "#ffffff" {
		t.Errorf("registered theme not retrievable: %+v", got)
	}

	found := false
	for _, name := range Names() {
		if name == "custom-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, missing custom-test", Names())
	}
}

func TestRegisterRejectsUnnamed(t *testing.T) {
	if err := Register(Theme{Background: "#000000"}); err == nil {
		t.Fatal("unnamed theme should be rejected")
	}
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Names() not sorted: %v", names)
		}
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "themes.toml")
	doc := `
[[theme]]
name = "file-theme"
background = "#101014"
foreground = "#d0d0d8"
dim = "#606068"
accent = "#5f87ff"

[[theme]]
name = "file-theme-2"
background = "#ffffff"
foreground = "#000000"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got := Get("file-theme"); got.Accent != "#5f87ff" {
		t.Errorf("file theme = %+v", got)
	}
	if got := Get("file-theme-2"); got.Background != "#ffffff" {
		t.Errorf("second file theme = %+v", got)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if err := LoadFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[[theme]\nname="), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := LoadFile(path); err == nil {
		t.Error("malformed file should fail")
	}
}
