package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ChuLiYu/schedsim/internal/server"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// execute runs the CLI with a config pointing at a store in a temp dir.
func execute(t *testing.T, store string, args ...string) (string, error) {
	t.Helper()

	cmd := BuildCLI()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	base := []string{"--config", filepath.Join(t.TempDir(), "none.yaml"), "--store", store, "--log-level", "error"}
	cmd.SetArgs(append(base, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const scenarioCSV = "id;duration;priority\nA;5;1\nB;3;1\nC;1;1\n"

// ============================================================================
// Command Tree
// ============================================================================

func TestBuildCLI(t *testing.T) {
	cmd := BuildCLI()

	assert.Equal(t, "schedsim", cmd.Use)
	assert.Equal(t, Version, cmd.Version)

	names := make(map[string]bool)
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"process", "import", "export", "run", "compare", "serve", "submit"} {
		assert.True(t, names[want], "missing %q command", want)
	}

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "configs/default.yaml", configFlag.DefValue)
}

// ============================================================================
// Process Management
// ============================================================================

func TestProcessLifecycle(t *testing.T) {
	for _, ext := range []string{"json", "db"} {
		t.Run(ext, func(t *testing.T) {
			store := filepath.Join(t.TempDir(), "procs."+ext)

			out, err := execute(t, store, "process", "add", "A", "5", "1")
			require.NoError(t, err)
			assert.Contains(t, out, `Process "A" added (1 total).`)

			_, err = execute(t, store, "process", "add", "B", "3")
			require.NoError(t, err)

			_, err = execute(t, store, "process", "add", "A", "2")
			assert.Error(t, err, "duplicate id")
			_, err = execute(t, store, "process", "add", "Z", "0")
			assert.Error(t, err, "zero duration")
			_, err = execute(t, store, "process", "add", "Z", "x")
			assert.Error(t, err, "non-numeric duration")

			out, err = execute(t, store, "process", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "A")
			assert.Contains(t, out, "B")

			out, err = execute(t, store, "process", "remove", "A")
			require.NoError(t, err)
			assert.Contains(t, out, "removed")
			_, err = execute(t, store, "process", "remove", "A")
			assert.Error(t, err)

			out, err = execute(t, store, "process", "clear")
			require.NoError(t, err)
			assert.Contains(t, out, "1 processes removed.")

			out, err = execute(t, store, "process", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "No processes registered.")
		})
	}
}

func TestImportExport(t *testing.T) {
	store := filepath.Join(t.TempDir(), "procs.json")
	src := writeFile(t, "in.csv", scenarioCSV)

	out, err := execute(t, store, "import", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 processes")

	_, err = execute(t, store, "import", src, "--append")
	assert.Error(t, err, "appending the same ids collides")

	dst := filepath.Join(t.TempDir(), "out.yaml")
	_, err = execute(t, store, "export", dst)
	require.NoError(t, err)

	procs, err := readProcessFile(dst)
	require.NoError(t, err)
	assert.Equal(t, []types.Process{
		{ID: "A", Duration: 5, Priority: 1},
		{ID: "B", Duration: 3, Priority: 1},
		{ID: "C", Duration: 1, Priority: 1},
	}, procs)

	_, err = execute(t, store, "import", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

// ============================================================================
// Simulation
// ============================================================================

func TestRunFromStore(t *testing.T) {
	store := filepath.Join(t.TempDir(), "procs.json")
	_, err := execute(t, store, "import", writeFile(t, "in.csv", scenarioCSV))
	require.NoError(t, err)

	out, err := execute(t, store, "run", "-a", "rr", "-q", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Simulation rr(q=2)")
	assert.Contains(t, out, "Context switches: 5")

	out, err = execute(t, store, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Simulation fcfs")
}

func TestRunJSONFromFile(t *testing.T) {
	file := writeFile(t, "procs.csv", scenarioCSV)

	out, err := execute(t, filepath.Join(t.TempDir(), "empty.json"), "run", "--file", file, "-a", "rr", "--output", "json")
	require.NoError(t, err)

	var resp server.SimulateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 4, resp.Config.Quantum, "quantum defaults to 4")
	assert.Len(t, resp.Timeline, 4) // A0-4 B4-7 C7-8 A8-9
}

func TestRunErrors(t *testing.T) {
	store := filepath.Join(t.TempDir(), "empty.json")

	_, err := execute(t, store, "run")
	assert.Error(t, err, "no processes")

	file := writeFile(t, "procs.csv", scenarioCSV)
	_, err = execute(t, store, "run", "--file", file, "-a", "rr", "-q", "0")
	assert.Error(t, err)
	_, err = execute(t, store, "run", "--file", file, "-a", "sjf")
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	file := writeFile(t, "procs.csv", scenarioCSV)
	store := filepath.Join(t.TempDir(), "empty.json")

	out, err := execute(t, store, "compare", "--file", file, "--quanta", "1,2,100")
	require.NoError(t, err)
	assert.Contains(t, out, "fcfs")
	assert.Contains(t, out, "rr(q=1)")
	assert.Contains(t, out, "rr(q=100)")

	out, err = execute(t, store, "compare", "--file", file, "--quanta", "2", "--output", "json")
	require.NoError(t, err)
	var resp server.CompareResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 2)
	assert.Len(t, resp.Results[1].Result.Timeline, 6)

	_, err = execute(t, store, "compare")
	assert.Error(t, err, "no processes")
}

func TestCompareJSONReportsRowErrors(t *testing.T) {
	file := writeFile(t, "procs.csv", scenarioCSV)

	out, err := execute(t, filepath.Join(t.TempDir(), "empty.json"),
		"compare", "--file", file, "--quanta", "0,2", "--output", "json")
	require.NoError(t, err)

	var resp server.CompareResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Results, 3)

	assert.NotNil(t, resp.Results[0].Result)
	assert.Nil(t, resp.Results[1].Result)
	assert.Contains(t, resp.Results[1].Error, "rr(q=0)")
	assert.Contains(t, resp.Results[1].Error, "invalid scheduler configuration")
	assert.NotNil(t, resp.Results[2].Result)
	assert.Empty(t, resp.Results[2].Error)
}
