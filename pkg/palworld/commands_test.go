package palworld

import (
	"context"
	"testing"

	"github.com/palworldkit/palcon/pkg/rcon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a scripted transport: it records the command text and
// answers with a canned reply.
type fakeConn struct {
	commands []string
	reply    string
	err      error
}

func (f *fakeConn) Execute(_ context.Context, command string) (string, error) {
	f.commands = append(f.commands, command)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestShowPlayersEndToEnd(t *testing.T) {
	conn := &fakeConn{reply: "NameA,111,222\nNameB,333,444\n"}
	client := NewClient(conn)

	list, err := client.ShowPlayers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"ShowPlayers"}, conn.commands)
	require.Len(t, list.Players, 2)
	assert.Equal(t, Player{Name: "NameA", UID: "111", SteamID: "222"}, list.Players[0])
	assert.Equal(t, Player{Name: "NameB", UID: "333", SteamID: "444"}, list.Players[1])
}

func TestShutdownCommandText(t *testing.T) {
	conn := &fakeConn{reply: "The server will shut down in 30 seconds."}
	client := NewClient(conn)

	ack, err := client.Shutdown(context.Background(), 30, "Server restarting")
	require.NoError(t, err)

	assert.Equal(t, []string{"Shutdown 30 Server_restarting"}, conn.commands)
	assert.True(t, ack.Confirmed)
}

func TestShutdownWithoutMessage(t *testing.T) {
	conn := &fakeConn{reply: "The server will shut down in 0 seconds."}
	client := NewClient(conn)

	_, err := client.Shutdown(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Shutdown 0"}, conn.commands)
}

func TestShutdownNegativeDelay(t *testing.T) {
	conn := &fakeConn{}
	client := NewClient(conn)

	_, err := client.Shutdown(context.Background(), -5, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, conn.commands, "invalid requests must not reach the wire")
}

func TestBroadcastSanitizesSpaces(t *testing.T) {
	conn := &fakeConn{reply: "Broadcasted: Maintenance_in_5"}
	client := NewClient(conn)

	ack, err := client.Broadcast(context.Background(), "Maintenance in 5")
	require.NoError(t, err)

	assert.Equal(t, []string{"Broadcast Maintenance_in_5"}, conn.commands)
	assert.True(t, ack.Confirmed)
}

func TestBroadcastCustomReplacement(t *testing.T) {
	conn := &fakeConn{reply: "Broadcasted: hello-world"}
	client := NewClient(conn)
	require.NoError(t, client.SetSpaceReplacement("-"))

	_, err := client.Broadcast(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []string{"Broadcast hello-world"}, conn.commands)
}

func TestBroadcastEmptyMessage(t *testing.T) {
	conn := &fakeConn{}
	client := NewClient(conn)

	_, err := client.Broadcast(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Empty(t, conn.commands)
}

func TestSetSpaceReplacementValidation(t *testing.T) {
	client := NewClient(&fakeConn{})

	for _, bad := range []string{"", "ab", " ", "\x00", "\n", "é"} {
		assert.ErrorIs(t, client.SetSpaceReplacement(bad), ErrInvalidArgument, "replacement %q", bad)
	}
	for _, ok := range []string{"-", "_", "."} {
		assert.NoError(t, client.SetSpaceReplacement(ok))
	}
}

func TestServerVersion(t *testing.T) {
	conn := &fakeConn{reply: "Welcome to Pal Server[v0.1.5.0]"}
	client := NewClient(conn)

	v, err := client.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Info"}, conn.commands)
	assert.Equal(t, Version("v0.1.5.0"), v)
}

func TestSaveAck(t *testing.T) {
	conn := &fakeConn{reply: "Complete Save"}
	client := NewClient(conn)

	ack, err := client.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Save"}, conn.commands)
	assert.True(t, ack.Confirmed)
}

func TestRunRawCommand(t *testing.T) {
	conn := &fakeConn{reply: "some reply\x00"}
	client := NewClient(conn)

	out, err := client.Run(context.Background(), "KickPlayer 12345")
	require.NoError(t, err)
	assert.Equal(t, []string{"KickPlayer 12345"}, conn.commands)
	assert.Equal(t, "some reply", out)
}

func TestRunEmptyCommand(t *testing.T) {
	client := NewClient(&fakeConn{})

	_, err := client.Run(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTransportErrorsPassThrough(t *testing.T) {
	conn := &fakeConn{err: rcon.ErrConnectionClosed}
	client := NewClient(conn)

	_, err := client.ShowPlayers(context.Background())
	assert.ErrorIs(t, err, rcon.ErrConnectionClosed)
}
