// Package lang maps submission languages to compile and run command
// templates. Templates use {src} and {bin} placeholders resolved against
// the submission workspace.
package lang

import (
	"strings"

	"github.com/google/shlex"

	appErr "rebornoj/pkg/errors"
)

// Language describes how to build and execute one submission language.
type Language struct {
	Name string

	// SourceSuffix is appended to the generated temp file name.
	SourceSuffix string

	// CompileTemplate is empty for interpreted languages.
	CompileTemplate string
	RunTemplate     string
}

var registry = map[string]Language{
	"cpp": {
		Name:            "cpp",
		SourceSuffix:    ".cpp",
		CompileTemplate: "g++ -O2 -std=c++11 -o {bin} {src}",
		RunTemplate:     "{bin}",
	},
	"c": {
		Name:            "c",
		SourceSuffix:    ".c",
		CompileTemplate: "gcc -O2 -std=c11 -o {bin} {src}",
		RunTemplate:     "{bin}",
	},
}

// Lookup returns the language definition for name.
func Lookup(name string) (Language, error) {
	l, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Language{}, appErr.New(appErr.LanguageNotSupported).WithDetail("language", name)
	}
	return l, nil
}

// Supported reports whether name is a registered language.
func Supported(name string) bool {
	_, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// CompileCommand expands the compile template into an argv slice.
// Returns nil for languages without a compile step.
func (l Language) CompileCommand(src, bin string) ([]string, error) {
	if l.CompileTemplate == "" {
		return nil, nil
	}
	return splitTemplate(l.CompileTemplate, src, bin)
}

// RunCommand expands the run template into an argv slice.
func (l Language) RunCommand(src, bin string) ([]string, error) {
	return splitTemplate(l.RunTemplate, src, bin)
}

func splitTemplate(tmpl, src, bin string) ([]string, error) {
	expanded := strings.NewReplacer("{src}", src, "{bin}", bin).Replace(tmpl)
	argv, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.JudgeSystemError).WithMessage("invalid command template")
	}
	if len(argv) == 0 {
		return nil, appErr.New(appErr.JudgeSystemError).WithDetail("template", tmpl)
	}
	return argv, nil
}
