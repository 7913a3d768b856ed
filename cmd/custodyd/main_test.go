package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	args := os.Args
	defer func() { os.Args = args }()

	os.Args = []string{"custodyd", "init", dir}
	rc, msg := Run()
	if rc != 0 {
		t.Fatalf("rc %d: %s", rc, msg)
	}
	_, err := os.Stat(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatal(err)
	}
}
