package meminfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMeminfo = `MemTotal:       16384000 kB
MemFree:         2048000 kB
MemAvailable:    8192000 kB
Buffers:          512000 kB
Cached:          4096000 kB
SwapCached:            0 kB
Active:          6000000 kB
Inactive:        3000000 kB
`

func TestParse(t *testing.T) {
	info, err := Parse(sampleMeminfo)
	require.NoError(t, err)

	assert.Equal(t, uint64(16384000), info.Total)
	assert.Equal(t, uint64(2048000), info.Free)
	assert.Equal(t, uint64(8192000), info.Available)
	assert.Equal(t, uint64(512000), info.Buffers)
	assert.Equal(t, uint64(4096000), info.Cached)
}

func TestParseIgnoresUnknownKeys(t *testing.T) {
	info, err := Parse("MemTotal: 100 kB\nSwapCached: 50 kB\nHugePages_Total: 0\n")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), info.Total)
	assert.Zero(t, info.Cached, "SwapCached must not bleed into Cached")
}

func TestParseMissingMemTotal(t *testing.T) {
	_, err := Parse("MemFree: 100 kB\n")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseGarbageValue(t *testing.T) {
	_, err := Parse("MemTotal: lots kB\n")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestUsed(t *testing.T) {
	info := MemInfo{Total: 1000, Available: 400}
	assert.Equal(t, uint64(600), info.Used())
	assert.InDelta(t, 60.0, info.UsedPercent(), 0.01)
}

func TestUsedWithoutMemAvailable(t *testing.T) {
	// Pre-3.14 kernel shape: reclaimable caches count as available.
	info := MemInfo{Total: 1000, Free: 200, Buffers: 100, Cached: 100}
	assert.Equal(t, uint64(600), info.Used())
}

func TestUsedNeverUnderflows(t *testing.T) {
	info := MemInfo{Total: 100, Available: 400}
	assert.Zero(t, info.Used())

	assert.Zero(t, MemInfo{}.UsedPercent())
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meminfo")
	require.NoError(t, os.WriteFile(path, []byte(sampleMeminfo), 0o644))

	info, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(16384000), info.Total)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
