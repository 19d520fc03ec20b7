package harness

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios against its
// golden snapshot.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), ".yaml")
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.Equal(t, name, scenario.Name, "file name matches scenario name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestEveryGoldenHasAScenario(t *testing.T) {
	goldens, err := filepath.Glob("testdata/golden/*.golden")
	require.NoError(t, err)

	for _, g := range goldens {
		name := strings.TrimSuffix(filepath.Base(g), ".golden")
		_, err := os.Stat(filepath.Join("testdata", "scenarios", name+".yaml"))
		assert.NoError(t, err, "golden %s has no scenario", name)
	}
}

func TestSnapshot_Deterministic(t *testing.T) {
	scenario := loadScenario(t, "collapse_and_merge")

	first, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	second, err := Run(context.Background(), scenario)
	require.NoError(t, err)

	assert.Equal(t, string(Snapshot(scenario.Name, first)), string(Snapshot(scenario.Name, second)))
}

func TestSnapshot_Error(t *testing.T) {
	result := NewResult()
	result.RunID = "r"
	result.AddTrace("merge_limits", false, nil)
	result.Err = os.ErrClosed

	want := "scenario: s\nrun: r\ntrace:\n  [1] merge_limits unchanged nodes=0\nerror: file already closed\n"
	assert.Equal(t, want, string(Snapshot("s", result)))
}
