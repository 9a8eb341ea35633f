package ingestion_engine

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var checkpointName = regexp.MustCompile(`^chunk_(\d+)\.txt$`)

// CheckpointFile names the checkpoint of a zero-based chunk index.
func CheckpointFile(index int) string {
	return fmt.Sprintf("chunk_%d.txt", index+1)
}

// Checkpoints keeps one file of raw normalizer output per finished chunk.
// A non-empty checkpoint file is proof that its chunk completed.
type Checkpoints struct {
	dir string
	log *slog.Logger
}

func NewCheckpoints(dir string, log *slog.Logger) *Checkpoints {
	if log == nil {
		log = slog.Default()
	}
	return &Checkpoints{dir: dir, log: log}
}

// Load returns the saved output of every completed chunk below total, keyed
// by zero-based index. Files that are empty, out of range or unreadable are
// left out so their chunks are normalized again.
func (c *Checkpoints) Load(total int) map[int]string {
	done := make(map[int]string)

	entries, err := os.ReadDir(c.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return done
	}
	if err != nil {
		c.log.Warn("checkpoint scan failed, reprocessing all chunks", slog.String("dir", c.dir), slog.Any("error", err))
		return done
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := checkpointName.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > total {
			continue
		}

		data, err := os.ReadFile(filepath.Join(c.dir, e.Name()))
		if err != nil {
			c.log.Warn("checkpoint unreadable, chunk will be reprocessed",
				slog.String("file", e.Name()), slog.Any("error", err))
			continue
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		done[n-1] = string(data)
	}
	return done
}

// Save writes the output of a chunk through a temp file and a rename, so a
// crash never leaves a partial checkpoint behind.
func (c *Checkpoints) Save(index int, content string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".chunk-*.tmp")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write checkpoint %d: %w", index+1, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint %d: %w", index+1, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(c.dir, CheckpointFile(index))); err != nil {
		return fmt.Errorf("commit checkpoint %d: %w", index+1, err)
	}
	return nil
}
