package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInitCreatesConfig(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	if err := runInit(&out, dir); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	configPath := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "serpapi:") {
		t.Error("example config missing serpapi section")
	}
}

func TestRunInitPreservesExisting(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("custom: true\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	var out bytes.Buffer
	if err := runInit(&out, dir); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, _ := os.ReadFile(configPath)
	if string(data) != "custom: true\n" {
		t.Error("existing config was overwritten")
	}
}

func TestRunVersion(t *testing.T) {
	var out, errOut bytes.Buffer

	if err := run(t.Context(), &out, &errOut, []string{"version"}); err != nil {
		t.Fatalf("run version: %v", err)
	}
	if !strings.Contains(out.String(), "sms-assistant") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRunUnknownArgument(t *testing.T) {
	var out, errOut bytes.Buffer

	if err := run(t.Context(), &out, &errOut, []string{"frobnicate"}); err == nil {
		t.Fatal("expected error for unknown argument")
	}
}
