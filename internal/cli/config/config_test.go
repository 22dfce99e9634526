package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	cfg := &Config{ServerURL: "https://courses.example.com/"}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Trailing slash is normalized away
	if loaded.ServerURL != "https://courses.example.com" {
		t.Errorf("expected normalized URL, got %q", loaded.ServerURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), ConfigFileName))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestFindConfigFileWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(root, ConfigFileName)
	if err := Save(cfgPath, &Config{ServerURL: "http://localhost:8080"}); err != nil {
		t.Fatal(err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(originalDir)

	if err := os.Chdir(nested); err != nil {
		t.Fatal(err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("FindConfigFile failed: %v", err)
	}

	// Resolve symlinks before comparing; temp dirs may be linked on macOS
	wantPath, _ := filepath.EvalSymlinks(cfgPath)
	gotPath, _ := filepath.EvalSymlinks(found)
	if gotPath != wantPath {
		t.Errorf("expected %q, got %q", wantPath, gotPath)
	}
}
