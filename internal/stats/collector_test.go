package stats

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.AddFilesCopied(3)
	c.AddBytesCopied(1024)
	c.AddFilesLinked(7)
	c.AddDirsCreated(2)
	c.AddFilesSkipped(1)
	c.AddFilesFailed(1)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.FilesCopied)
	assert.Equal(t, int64(1024), snap.BytesCopied)
	assert.Equal(t, int64(7), snap.FilesLinked)
	assert.Equal(t, int64(2), snap.DirsCreated)
	assert.Equal(t, int64(1), snap.FilesSkipped)
	assert.Equal(t, int64(1), snap.FilesFailed)
}

func TestCollector_ConcurrentAdds(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.AddFilesCopied(1)
				c.AddBytesCopied(10)
			}
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, int64(1000), snap.FilesCopied)
	assert.Equal(t, int64(10000), snap.BytesCopied)
}

func TestCollector_RollingSpeed(t *testing.T) {
	c := NewCollector()

	// No samples yet.
	assert.Zero(t, c.RollingSpeed(10))

	c.AddBytesCopied(100)
	c.Tick()
	c.AddBytesCopied(300)
	c.Tick()

	// Samples: 100, 300 -> avg 200 over two seconds.
	assert.InDelta(t, 200.0, c.RollingSpeed(2), 0.001)
	// Last second only.
	assert.InDelta(t, 300.0, c.RollingSpeed(1), 0.001)
}

func TestSnapshot_String(t *testing.T) {
	s := Snapshot{FilesCopied: 2, BytesCopied: 64, FilesLinked: 5, DirsCreated: 1}
	assert.Equal(t, "copied=2 bytes=64 linked=5 dirs=1 skipped=0 failed=0", s.String())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "1.0 KiB", FormatBytes(1024))
	assert.Equal(t, "1.5 MiB", FormatBytes(3*512*1024))
	assert.Equal(t, "2.0 GiB", FormatBytes(2*1024*1024*1024))
}

func TestAppendCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "stats.csv")

	require.NoError(t, AppendCSV(path, "2024-05-01 03-00-00", Snapshot{BytesCopied: 150, FilesCopied: 2}))
	require.NoError(t, AppendCSV(path, "2024-05-02 03-00-00", Snapshot{BytesCopied: 0, FilesCopied: 0}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-05-01 03-00-00", "150", "2"}, rows[0])
	assert.Equal(t, []string{"2024-05-02 03-00-00", "0", "0"}, rows[1])
}
