package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjpeterson/ztprov/pkg/inventory"
)

func TestPublish(t *testing.T) {
	t.Run("writes shared and per-target files", func(t *testing.T) {
		dir := t.TempDir()
		set, err := Render([]inventory.Target{testTarget("A"), testTarget("B")}, testConfig())
		require.NoError(t, err)
		require.NoError(t, Publish(set, dir))

		for _, name := range []string{SharedName, DeviceName("A"), DeviceName("B")} {
			data, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err, name)
			assert.NotEmpty(t, data)
		}
	})

	t.Run("new publish removes stale per-target files", func(t *testing.T) {
		dir := t.TempDir()
		first, err := Render([]inventory.Target{testTarget("OLD"), testTarget("KEEP")}, testConfig())
		require.NoError(t, err)
		require.NoError(t, Publish(first, dir))

		second, err := Render([]inventory.Target{testTarget("KEEP")}, testConfig())
		require.NoError(t, err)
		require.NoError(t, Publish(second, dir))

		_, err = os.Stat(filepath.Join(dir, DeviceName("OLD")))
		assert.True(t, os.IsNotExist(err), "decommissioned target's artifact must be swept")
		_, err = os.Stat(filepath.Join(dir, DeviceName("KEEP")))
		assert.NoError(t, err)
	})

	t.Run("empty snapshot clears all per-target files", func(t *testing.T) {
		dir := t.TempDir()
		first, err := Render([]inventory.Target{testTarget("A")}, testConfig())
		require.NoError(t, err)
		require.NoError(t, Publish(first, dir))

		empty, err := Render(nil, testConfig())
		require.NoError(t, err)
		require.NoError(t, Publish(empty, dir))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.Equal(t, []string{SharedName}, names)
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		set, err := Render([]inventory.Target{testTarget("A")}, testConfig())
		require.NoError(t, err)
		require.NoError(t, Publish(set, dir))

		matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("unwritable destination", func(t *testing.T) {
		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocked")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

		set, err := Render(nil, testConfig())
		require.NoError(t, err)
		// Destination path is a regular file, not a directory.
		err = Publish(set, blocker)
		assert.ErrorIs(t, err, ErrPublish)
	})
}
