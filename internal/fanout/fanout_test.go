package fanout

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gauntlet/internal/run"
)

func parentContext(t *testing.T) *run.Context {
	t.Helper()
	rc, err := run.NewContext(t.TempDir(), t.TempDir())
	require.NoError(t, err)
	return rc
}

func TestRun_SpawnsAllChildren(t *testing.T) {
	parent := parentContext(t)

	results, err := Run(context.Background(), Options{
		Binary: "/bin/sh",
		BuildArgs: func(childID string) []string {
			return []string{"-c", fmt.Sprintf("echo hello from %s", childID)}
		},
		Count:  3,
		Parent: parent,
		Quiet:  true,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for n, r := range results {
		assert.Equal(t, parent.SiblingID(n+1), r.ID)
		assert.Equal(t, 0, r.ExitCode)
		assert.NoError(t, r.Err)

		raw, err := os.ReadFile(filepath.Join(parent.LogDir, "children", r.ID+".log"))
		require.NoError(t, err)
		assert.Contains(t, string(raw), "hello from "+r.ID)
	}
}

func TestRun_NonzeroExitIsNotAnError(t *testing.T) {
	parent := parentContext(t)

	results, err := Run(context.Background(), Options{
		Binary:    "/bin/sh",
		BuildArgs: func(string) []string { return []string{"-c", "exit 3"} },
		Count:     1,
		Parent:    parent,
		Quiet:     true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].ExitCode)
	assert.NoError(t, results[0].Err)
}

func TestRun_TimeoutKillsChildren(t *testing.T) {
	parent := parentContext(t)

	start := time.Now()
	results, err := Run(context.Background(), Options{
		Binary:    "/bin/sh",
		BuildArgs: func(string) []string { return []string{"-c", "sleep 30"} },
		Count:     2,
		Parent:    parent,
		Timeout:   150 * time.Millisecond,
		Quiet:     true,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)

	for _, r := range results {
		assert.Error(t, r.Err, "a killed child is not a clean exit")
	}
}

func TestRun_MissingBinary(t *testing.T) {
	parent := parentContext(t)

	results, err := Run(context.Background(), Options{
		Binary:    filepath.Join(t.TempDir(), "gone"),
		BuildArgs: func(string) []string { return nil },
		Count:     1,
		Parent:    parent,
		Quiet:     true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Equal(t, -1, results[0].ExitCode)
}

func TestRun_RejectsBadOptions(t *testing.T) {
	parent := parentContext(t)

	_, err := Run(context.Background(), Options{Count: 0, Parent: parent, BuildArgs: func(string) []string { return nil }})
	assert.Error(t, err)

	_, err = Run(context.Background(), Options{Count: 1, Parent: parent})
	assert.Error(t, err)
}
