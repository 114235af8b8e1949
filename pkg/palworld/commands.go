// Package palworld turns named server operations into RCON command text
// and parses the replies into typed results. It sits on top of an
// authenticated transport and knows nothing about framing.
package palworld

import (
	"context"
	"fmt"
	"strings"
)

// DefaultPort is the RCON port Palworld inherits from the Source engine.
const DefaultPort = 25575

// DefaultSpaceReplacement substitutes spaces in message arguments. The
// wire cannot carry spaces inside a single argument, so they are swapped
// for a placeholder character before sending.
const DefaultSpaceReplacement = "_"

// Op names an operation the dispatcher can send. The set is closed: each
// op maps to a command template and the parser for its reply.
type Op int

const (
	OpShowPlayers Op = iota
	OpInfo
	OpSave
	OpShutdown
	OpBroadcast
	OpRaw
)

// Request is one operation plus its arguments. Only the fields an op uses
// are read.
type Request struct {
	Op Op

	// Delay is the shutdown grace period in seconds.
	Delay int

	// Message rides along with Shutdown and Broadcast.
	Message string

	// Command is the verbatim text for OpRaw.
	Command string
}

// Conn is the authenticated transport the dispatcher drives. *rcon.Session
// satisfies it.
type Conn interface {
	Execute(ctx context.Context, command string) (string, error)
}

// Client dispatches operations over a single session.
type Client struct {
	conn    Conn
	replace string
}

// NewClient wraps an authenticated transport.
func NewClient(conn Conn) *Client {
	return &Client{conn: conn, replace: DefaultSpaceReplacement}
}

// SetSpaceReplacement overrides the character substituted for spaces in
// message arguments. It must be a single printable ASCII character that
// the wire format does not already claim.
func (c *Client) SetSpaceReplacement(r string) error {
	if len(r) != 1 {
		return fmt.Errorf("%w: space replacement %q must be a single ASCII character", ErrInvalidArgument, r)
	}
	if r[0] <= ' ' || r[0] >= 0x7f {
		return fmt.Errorf("%w: space replacement %q collides with protocol-reserved characters", ErrInvalidArgument, r)
	}
	c.replace = r
	return nil
}

// sanitize prepares a message argument for the wire.
func (c *Client) sanitize(message string) string {
	return strings.ReplaceAll(message, " ", c.replace)
}

type opEntry struct {
	name  string
	build func(c *Client, r Request) (string, error)
	parse func(op, raw string) (Result, error)
}

var ops = map[Op]opEntry{
	OpShowPlayers: {
		name:  "ShowPlayers",
		build: func(*Client, Request) (string, error) { return "ShowPlayers", nil },
		parse: parsePlayerList,
	},
	OpInfo: {
		name:  "Info",
		build: func(*Client, Request) (string, error) { return "Info", nil },
		parse: parseVersion,
	},
	OpSave: {
		name:  "Save",
		build: func(*Client, Request) (string, error) { return "Save", nil },
		parse: ackParser("Complete Save"),
	},
	OpShutdown: {
		name: "Shutdown",
		build: func(c *Client, r Request) (string, error) {
			if r.Delay < 0 {
				return "", fmt.Errorf("%w: shutdown delay %d is negative", ErrInvalidArgument, r.Delay)
			}
			cmd := fmt.Sprintf("Shutdown %d", r.Delay)
			if msg := c.sanitize(r.Message); msg != "" {
				cmd += " " + msg
			}
			return cmd, nil
		},
		parse: ackParser("The server will shut down in"),
	},
	OpBroadcast: {
		name: "Broadcast",
		build: func(c *Client, r Request) (string, error) {
			msg := c.sanitize(r.Message)
			if msg == "" {
				return "", fmt.Errorf("%w: broadcast message is empty", ErrInvalidArgument)
			}
			return "Broadcast " + msg, nil
		},
		parse: ackParser("Broadcasted"),
	},
	OpRaw: {
		name: "raw",
		build: func(_ *Client, r Request) (string, error) {
			if strings.TrimSpace(r.Command) == "" {
				return "", fmt.Errorf("%w: command is empty", ErrInvalidArgument)
			}
			return r.Command, nil
		},
		parse: func(_, raw string) (Result, error) { return RawText(normalize(raw)), nil },
	},
}

// Do dispatches one operation and parses the reply into its typed result.
// Replies that do not match the operation's shape surface as a
// MalformedError with the raw body attached.
func (c *Client) Do(ctx context.Context, r Request) (Result, error) {
	entry, ok := ops[r.Op]
	if !ok {
		return nil, fmt.Errorf("%w: unknown operation %d", ErrInvalidArgument, r.Op)
	}
	cmd, err := entry.build(c, r)
	if err != nil {
		return nil, err
	}
	raw, err := c.conn.Execute(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("palworld: %s: %w", entry.name, err)
	}
	return entry.parse(entry.name, raw)
}

// ShowPlayers lists the players currently online.
func (c *Client) ShowPlayers(ctx context.Context) (*PlayerList, error) {
	res, err := c.Do(ctx, Request{Op: OpShowPlayers})
	if err != nil {
		return nil, err
	}
	return res.(*PlayerList), nil
}

// ServerVersion reads the server build from the Info banner.
func (c *Client) ServerVersion(ctx context.Context) (Version, error) {
	res, err := c.Do(ctx, Request{Op: OpInfo})
	if err != nil {
		return "", err
	}
	return res.(Version), nil
}

// Save asks the server to persist the world.
func (c *Client) Save(ctx context.Context) (Ack, error) {
	res, err := c.Do(ctx, Request{Op: OpSave})
	if err != nil {
		return Ack{}, err
	}
	return res.(Ack), nil
}

// Shutdown schedules a server stop after delay seconds, announcing message
// to everyone online.
func (c *Client) Shutdown(ctx context.Context, delay int, message string) (Ack, error) {
	res, err := c.Do(ctx, Request{Op: OpShutdown, Delay: delay, Message: message})
	if err != nil {
		return Ack{}, err
	}
	return res.(Ack), nil
}

// Broadcast announces message to everyone online.
func (c *Client) Broadcast(ctx context.Context, message string) (Ack, error) {
	res, err := c.Do(ctx, Request{Op: OpBroadcast, Message: message})
	if err != nil {
		return Ack{}, err
	}
	return res.(Ack), nil
}

// Run sends a raw command and returns the reply text untouched apart from
// trailing terminator cleanup.
func (c *Client) Run(ctx context.Context, command string) (string, error) {
	res, err := c.Do(ctx, Request{Op: OpRaw, Command: command})
	if err != nil {
		return "", err
	}
	return string(res.(RawText)), nil
}
