package ingestion_engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointFile(t *testing.T) {
	assert.Equal(t, "chunk_1.txt", CheckpointFile(0))
	assert.Equal(t, "chunk_10.txt", CheckpointFile(9))
}

func TestCheckpoints_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a")
	cp := NewCheckpoints(dir, nil)

	require.NoError(t, cp.Save(0, "|ability|能力|n.|0|NULL|\n"))
	require.NoError(t, cp.Save(2, "|able|能|adj.|0|NULL|\n"))

	done := cp.Load(3)

	assert.Equal(t, map[int]string{
		0: "|ability|能力|n.|0|NULL|\n",
		2: "|able|能|adj.|0|NULL|\n",
	}, done)
	assert.FileExists(t, filepath.Join(dir, "chunk_3.txt"))

	leftovers, err := filepath.Glob(filepath.Join(dir, ".chunk-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCheckpoints_LoadMissingDir(t *testing.T) {
	cp := NewCheckpoints(filepath.Join(t.TempDir(), "nothing"), nil)
	assert.Empty(t, cp.Load(5))
}

func TestCheckpoints_LoadIgnoresUntrustedFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("chunk_1.txt", "  \n")         // empty output is not completion
	write("chunk_2.txt", "|b|乙|n.|0|NULL|") // valid
	write("chunk_9.txt", "|z|终|n.|0|NULL|") // beyond the chunk count
	write("chunk_0.txt", "|x|零|n.|0|NULL|") // there is no chunk zero
	write("a.txt", "|a|甲|n.|0|NULL|")       // merged artifact
	require.NoError(t, os.Mkdir(filepath.Join(dir, "chunk_3.txt"), 0o755))

	done := NewCheckpoints(dir, nil).Load(3)

	assert.Equal(t, map[int]string{1: "|b|乙|n.|0|NULL|"}, done)
}

func TestCheckpoints_SaveOverwrites(t *testing.T) {
	cp := NewCheckpoints(t.TempDir(), nil)

	require.NoError(t, cp.Save(0, "old"))
	require.NoError(t, cp.Save(0, "new"))

	assert.Equal(t, map[int]string{0: "new"}, cp.Load(1))
}
