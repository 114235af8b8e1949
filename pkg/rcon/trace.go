package rcon

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// Direction labels which way a traced frame traveled.
type Direction string

const (
	Sent     Direction = "send"
	Received Direction = "recv"
)

// TraceEvent is one captured frame with enough context to replay a session
// offline. Auth bodies are scrubbed before an event is built.
type TraceEvent struct {
	At   time.Time `cbor:"at"`
	Dir  Direction `cbor:"dir"`
	ID   int32     `cbor:"id"`
	Type int32     `cbor:"type"`
	Body []byte    `cbor:"body"`
}

// Tracer receives frame events as a session produces them. Record is
// called with the session lock held, so implementations must stay cheap
// and must never call back into the session.
type Tracer interface {
	Record(ev TraceEvent)
}

// FileTracer streams TraceEvents to disk as a zstd-compressed sequence of
// CBOR records. Events are appended as they happen, so a capture survives
// a crashed session up to the last flushed frame.
type FileTracer struct {
	mu  sync.Mutex
	f   *os.File
	zw  *zstd.Encoder
	enc *cbor.Encoder
}

// NewFileTracer creates (or truncates) a capture file at path.
func NewFileTracer(path string) (*FileTracer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileTracer{f: f, zw: zw, enc: cbor.NewEncoder(zw)}, nil
}

// Record appends one event to the capture. Encoding failures are logged
// and dropped rather than surfaced: a broken capture must not take the
// session down with it.
func (t *FileTracer) Record(ev TraceEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enc.Encode(ev); err != nil {
		log.Warn().Err(err).Msg("dropping trace event")
	}
}

// Close flushes the compressor and closes the capture file.
func (t *FileTracer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.zw.Close(); err != nil {
		t.f.Close()
		return err
	}
	return t.f.Close()
}

// ReadTrace loads a capture file back into events.
func ReadTrace(path string) ([]TraceEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	dec := cbor.NewDecoder(zr)
	var events []TraceEvent
	for {
		var ev TraceEvent
		if err := dec.Decode(&ev); err != nil {
			if errors.Is(err, io.EOF) {
				return events, nil
			}
			return nil, err
		}
		events = append(events, ev)
	}
}
