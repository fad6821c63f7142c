package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// AppendCSV appends one "generation,bytes_copied,files_copied" row to the
// stats file at path, creating the file and any parent directories on first
// use. The file is append-only; rows from earlier runs are never rewritten.
func AppendCSV(path, generation string, snap Snapshot) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create stats dir %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open stats file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		generation,
		strconv.FormatInt(snap.BytesCopied, 10),
		strconv.FormatInt(snap.FilesCopied, 10),
	}); err != nil {
		return fmt.Errorf("write stats row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush stats file %s: %w", path, err)
	}
	return nil
}
