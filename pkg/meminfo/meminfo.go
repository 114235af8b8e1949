// Package meminfo models the kernel's /proc/meminfo figures server
// operators watch. One parser backs both the local probe and the SSH
// probe so the two report identical numbers for identical input.
package meminfo

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMalformed reports /proc/meminfo output the parser cannot use.
var ErrMalformed = errors.New("meminfo: malformed /proc/meminfo output")

// MemInfo holds the tracked fields, all in kilobytes as the kernel
// reports them.
type MemInfo struct {
	Total     uint64 `json:"mem_total"`
	Free      uint64 `json:"mem_free"`
	Available uint64 `json:"mem_available"`
	Buffers   uint64 `json:"buffers"`
	Cached    uint64 `json:"cached"`
}

// Used estimates memory in use, preferring MemAvailable over the naive
// free count. Kernels before 3.14 omit MemAvailable; fall back to Free
// plus reclaimable caches there.
func (m MemInfo) Used() uint64 {
	avail := m.Available
	if avail == 0 {
		avail = m.Free + m.Buffers + m.Cached
	}
	if avail > m.Total {
		return 0
	}
	return m.Total - avail
}

// UsedPercent is Used over Total, in percent.
func (m MemInfo) UsedPercent() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Used()) / float64(m.Total) * 100
}

// Parse extracts the tracked fields from /proc/meminfo text. A missing
// MemTotal makes the whole input malformed; the other fields default to
// zero because containers and older kernels omit some of them.
func Parse(raw string) (MemInfo, error) {
	var info MemInfo
	sawTotal := false

	for _, line := range strings.Split(raw, "\n") {
		key, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		var target *uint64
		switch strings.TrimSpace(key) {
		case "MemTotal":
			target = &info.Total
		case "MemFree":
			target = &info.Free
		case "MemAvailable":
			target = &info.Available
		case "Buffers":
			target = &info.Buffers
		case "Cached":
			target = &info.Cached
		default:
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return MemInfo{}, fmt.Errorf("%w: no value for %s", ErrMalformed, strings.TrimSpace(key))
		}
		value, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			return MemInfo{}, fmt.Errorf("%w: %s = %q", ErrMalformed, strings.TrimSpace(key), fields[0])
		}
		*target = value
		if strings.TrimSpace(key) == "MemTotal" {
			sawTotal = true
		}
	}

	if !sawTotal {
		return MemInfo{}, fmt.Errorf("%w: MemTotal missing", ErrMalformed)
	}
	return info, nil
}

// Read loads this machine's /proc/meminfo.
func Read() (MemInfo, error) {
	return ReadFile("/proc/meminfo")
}

// ReadFile parses a meminfo-format file at path.
func ReadFile(path string) (MemInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MemInfo{}, fmt.Errorf("meminfo: %w", err)
	}
	return Parse(string(data))
}
