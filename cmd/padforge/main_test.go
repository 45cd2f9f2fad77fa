package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Danondso/padforge/internal/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "padforge", "config.toml")

	out, err := runCLI(t, "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("expected output to mention %s, got %q", path, out)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Render.Pads != 16 {
		t.Errorf("expected default pads, got %d", cfg.Render.Pads)
	}

	if _, err := runCLI(t, "config", "init", "--config", path); err == nil {
		t.Error("expected error when config exists")
	}
	if _, err := runCLI(t, "config", "init", "--config", path, "--force"); err != nil {
		t.Errorf("expected --force to overwrite, got %v", err)
	}
}

func TestChordsListsBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	out, err := runCLI(t, "chords", "--config", path, "--bank", "triads")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 16 {
		t.Fatalf("expected 16 voicings, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "pad  1  note 36  C ") {
		t.Errorf("unexpected first line %q", lines[0])
	}
}

func TestChordsUnknownBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.toml")
	if _, err := runCLI(t, "chords", "--config", path, "--bank", "nope"); err == nil {
		t.Error("expected error for unknown bank")
	}
}
