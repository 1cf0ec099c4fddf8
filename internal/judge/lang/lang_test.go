package lang

import (
	"testing"

	appErr "rebornoj/pkg/errors"
)

func TestLookupSupported(t *testing.T) {
	for _, name := range []string{"cpp", "CPP", " c "} {
		if _, err := Lookup(name); err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
	}
}

func TestLookupUnsupported(t *testing.T) {
	_, err := Lookup("brainfuck")
	if err == nil {
		t.Fatalf("expected error for unsupported language")
	}
	if appErr.GetCode(err) != appErr.LanguageNotSupported {
		t.Fatalf("unexpected code: %d", appErr.GetCode(err))
	}
}

func TestCompileCommandExpansion(t *testing.T) {
	l, err := Lookup("cpp")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	argv, err := l.CompileCommand("/tmp/x/sol.cpp", "/tmp/x/sol")
	if err != nil {
		t.Fatalf("CompileCommand: %v", err)
	}
	want := []string{"g++", "-O2", "-std=c++11", "-o", "/tmp/x/sol", "/tmp/x/sol.cpp"}
	if len(argv) != len(want) {
		t.Fatalf("argv = %v, want %v", argv, want)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv[%d] = %q, want %q", i, argv[i], want[i])
		}
	}
}

func TestRunCommandExpansion(t *testing.T) {
	l, err := Lookup("c")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	argv, err := l.RunCommand("/w/sol.c", "/w/sol")
	if err != nil {
		t.Fatalf("RunCommand: %v", err)
	}
	if len(argv) != 1 || argv[0] != "/w/sol" {
		t.Fatalf("argv = %v, want [/w/sol]", argv)
	}
}
