package rcon

import (
	"context"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memTracer struct {
	mu     sync.Mutex
	events []TraceEvent
}

func (m *memTracer) Record(ev TraceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *memTracer) snapshot() []TraceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TraceEvent{}, m.events...)
}

func TestTracerSeesExchangeAndScrubsAuth(t *testing.T) {
	tracer := &memTracer{}
	sess := serve(t, Config{Tracer: tracer}, func(t *testing.T, conn net.Conn) {
		if !acceptAuth(t, conn, "s3cret") {
			return
		}
		req, err := ReadPacket(conn)
		if !assert.NoError(t, err) {
			return
		}
		WritePacket(conn, Packet{ID: req.ID, Type: TypeResponseValue, Body: []byte("pong")})
		WritePacket(conn, Packet{ID: req.ID, Type: TypeResponseValue})
	})

	require.NoError(t, sess.Login(context.Background(), "s3cret"))
	_, err := sess.Execute(context.Background(), "ping")
	require.NoError(t, err)

	events := tracer.snapshot()
	require.Len(t, events, 5)

	// Auth request comes first and must not leak the password.
	assert.Equal(t, Sent, events[0].Dir)
	assert.Equal(t, TypeAuth, events[0].Type)
	assert.Equal(t, "*****", string(events[0].Body))

	assert.Equal(t, Received, events[1].Dir)

	assert.Equal(t, Sent, events[2].Dir)
	assert.Equal(t, "ping", string(events[2].Body))
	assert.Equal(t, Received, events[3].Dir)
	assert.Equal(t, "pong", string(events[3].Body))
	assert.Equal(t, Received, events[4].Dir)
	assert.Empty(t, events[4].Body)
}

func TestFileTracerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.trace")

	tracer, err := NewFileTracer(path)
	require.NoError(t, err)

	want := []TraceEvent{
		{At: time.Now().UTC().Truncate(time.Second), Dir: Sent, ID: 1, Type: TypeAuth, Body: []byte("*****")},
		{At: time.Now().UTC().Truncate(time.Second), Dir: Received, ID: 1, Type: TypeAuthResponse},
		{At: time.Now().UTC().Truncate(time.Second), Dir: Sent, ID: 2, Type: TypeExecCommand, Body: []byte("ShowPlayers")},
	}
	for _, ev := range want {
		tracer.Record(ev)
	}
	require.NoError(t, tracer.Close())

	got, err := ReadTrace(path)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Dir, got[i].Dir)
		assert.Equal(t, want[i].ID, got[i].ID)
		assert.Equal(t, want[i].Type, got[i].Type)
		assert.Equal(t, string(want[i].Body), string(got[i].Body))
		assert.WithinDuration(t, want[i].At, got[i].At, time.Second)
	}
}

func TestReadTraceEmptyCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.trace")

	tracer, err := NewFileTracer(path)
	require.NoError(t, err)
	require.NoError(t, tracer.Close())

	got, err := ReadTrace(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}
