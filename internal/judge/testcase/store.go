// Package testcase loads and validates judge test data from the local
// data directory populated by the pack cache.
package testcase

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	appErr "rebornoj/pkg/errors"
)

// Case is one input/expected-output pair.
type Case struct {
	// ID is "<group>_<index>", e.g. "1_3" for 3.in under directory 1.
	ID         string
	InputPath  string
	OutputPath string
}

// Store enumerates test cases for problems under a root directory laid
// out as <root>/<problemDir>/<group>/<n>.in + <n>.out.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the base data directory.
func (s *Store) Root() string { return s.root }

// Cases returns all test cases for a problem directory, ordered by
// numeric group then numeric index. Groups and cases with non-numeric
// names are ignored.
func (s *Store) Cases(problemDir string) ([]Case, error) {
	base := filepath.Join(s.root, problemDir)
	entries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, appErr.New(appErr.TestCaseNotFound).WithDetail("problem", problemDir)
		}
		return nil, appErr.Wrap(err, appErr.JudgeSystemError)
	}

	groups := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		groups = append(groups, n)
	}
	sort.Ints(groups)

	var cases []Case
	for _, g := range groups {
		groupDir := filepath.Join(base, strconv.Itoa(g))
		groupCases, err := s.groupCases(groupDir, strconv.Itoa(g))
		if err != nil {
			return nil, err
		}
		cases = append(cases, groupCases...)
	}
	if len(cases) == 0 {
		return nil, appErr.New(appErr.TestCaseNotFound).WithDetail("problem", problemDir)
	}
	return cases, nil
}

func (s *Store) groupCases(dir, group string) ([]Case, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.JudgeSystemError)
	}

	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".in") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ".in"))
		if err != nil {
			continue
		}
		ids = append(ids, n)
	}
	sort.Ints(ids)

	cases := make([]Case, 0, len(ids))
	for _, id := range ids {
		in := filepath.Join(dir, strconv.Itoa(id)+".in")
		out := filepath.Join(dir, strconv.Itoa(id)+".out")
		if _, err := os.Stat(out); err != nil {
			return nil, appErr.New(appErr.TestCaseInvalid).
				WithDetail("case", group+"_"+strconv.Itoa(id)).
				WithDetail("reason", "missing .out file")
		}
		cases = append(cases, Case{
			ID:         group + "_" + strconv.Itoa(id),
			InputPath:  in,
			OutputPath: out,
		})
	}
	return cases, nil
}

// Validate walks a problem directory and reports structural problems
// without loading file contents. Used after unpacking a data pack.
func (s *Store) Validate(problemDir string) error {
	_, err := s.Cases(problemDir)
	return err
}
