package testcase

import (
	"os"
	"path/filepath"
	"testing"

	appErr "rebornoj/pkg/errors"
)

func writeCase(t *testing.T, dir string, id string, in, out string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, id+".in"), []byte(in), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".out"), []byte(out), 0644); err != nil {
		t.Fatalf("write output: %v", err)
	}
}

func TestCasesOrderedNumerically(t *testing.T) {
	root := t.TempDir()
	for _, group := range []string{"2", "10", "1"} {
		dir := filepath.Join(root, "p1", group)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		writeCase(t, dir, "11", "in", "out")
		writeCase(t, dir, "2", "in", "out")
	}

	store := NewStore(root)
	cases, err := store.Cases("p1")
	if err != nil {
		t.Fatalf("Cases: %v", err)
	}
	want := []string{"1_2", "1_11", "2_2", "2_11", "10_2", "10_11"}
	if len(cases) != len(want) {
		t.Fatalf("got %d cases, want %d", len(cases), len(want))
	}
	for i, id := range want {
		if cases[i].ID != id {
			t.Fatalf("cases[%d].ID = %q, want %q", i, cases[i].ID, id)
		}
	}
}

func TestCasesIgnoresNonNumericEntries(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "p2", "1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeCase(t, dir, "1", "in", "out")
	if err := os.MkdirAll(filepath.Join(root, "p2", "extras"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.in"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewStore(root)
	cases, err := store.Cases("p2")
	if err != nil {
		t.Fatalf("Cases: %v", err)
	}
	if len(cases) != 1 || cases[0].ID != "1_1" {
		t.Fatalf("got %v, want single case 1_1", cases)
	}
}

func TestCasesMissingProblem(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Cases("nope")
	if appErr.GetCode(err) != appErr.TestCaseNotFound {
		t.Fatalf("expected TestCaseNotFound, got %v", err)
	}
}

func TestCasesMissingExpectedOutput(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "p3", "1")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "1.in"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewStore(root)
	_, err := store.Cases("p3")
	if appErr.GetCode(err) != appErr.TestCaseInvalid {
		t.Fatalf("expected TestCaseInvalid, got %v", err)
	}
}

func TestCasesEmptyProblemDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "p4"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	store := NewStore(root)
	_, err := store.Cases("p4")
	if appErr.GetCode(err) != appErr.TestCaseNotFound {
		t.Fatalf("expected TestCaseNotFound for empty dir, got %v", err)
	}
}
