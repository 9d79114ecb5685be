package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/shapefmt/internal/engine"
)

// RunWithGolden executes the scenario loaded from scenarioFile and compares
// its snapshot against GoldenPath(scenarioFile, scenario), the same file
// `shapefmt test` reads.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenarioFile string, scenario *Scenario, trees engine.TreeProvider) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, trees)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, GoldenPath(scenarioFile, scenario), result)
	return result, nil
}

// AssertGolden compares an existing result's snapshot against the golden
// file at goldenPath without re-running the scenario.
func AssertGolden(t *testing.T, goldenPath string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Dir(goldenPath)),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, strings.TrimSuffix(filepath.Base(goldenPath), ".golden"), result.Snapshot())
}
