package main

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmdtest"
	"github.com/pkg/fileutils"
)

var update = flag.Bool("update", false, "update test files with results")

func TestCLI(t *testing.T) {
	ts, err := cmdtest.Read("testdata")
	if err != nil {
		t.Fatal(err)
	}
	srcdir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	ts.Setup = func(dir string) error {
		return fileutils.CopyFile(filepath.Join(dir, "roster"), filepath.Join(srcdir, "testdata/roster"))
	}
	ts.Commands["custody"] = cmdtest.InProcessProgram("custody", run)
	ts.Run(t, *update)
}

func TestReadRoster(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "roster")
	err := os.WriteFile(fn, []byte("# desk\nalice\n\n  bob  \n"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	traders, err := readRoster(fn)
	if err != nil {
		t.Fatal(err)
	}
	if len(traders) != 2 || traders[0] != "alice" || traders[1] != "bob" {
		t.Fatalf("got %v", traders)
	}
	_, err = readRoster(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error")
	}
}
