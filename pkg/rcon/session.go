package rcon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

// DefaultTimeout bounds one full request/response exchange when the caller
// does not configure a budget.
const DefaultTimeout = 10 * time.Second

// Termination decides when an aggregated response is complete. The
// trailing empty-packet convention is server folklore rather than a
// written standard, so the heuristics stay configurable per server
// variant.
type Termination struct {
	// EmptyPacket ends the response when a matching ResponseValue with
	// an empty body arrives. The empty terminator contributes nothing to
	// the aggregate.
	EmptyPacket bool

	// ShortBody, when positive, ends the response once a matching packet
	// carries a body shorter than this many bytes. That packet's body is
	// still part of the aggregate. Servers that never send the empty
	// terminator deliver whole responses in one under-filled packet;
	// this catches them without waiting out the clock.
	ShortBody int
}

// completes reports whether p is the last packet of its response.
func (t Termination) completes(p Packet) bool {
	if t.EmptyPacket && len(p.Body) == 0 {
		return true
	}
	if t.ShortBody > 0 && len(p.Body) < t.ShortBody {
		return true
	}
	return false
}

// PalworldTermination matches observed Palworld behavior: responses arrive
// in a single under-filled packet and no empty terminator ever follows.
func PalworldTermination() Termination {
	return Termination{EmptyPacket: true, ShortBody: MaxBodySize}
}

// Config carries the tunables for a Session. The zero value selects the
// defaults described on each field.
type Config struct {
	// Timeout is the time budget for one request/response exchange,
	// covering the write and every read until the response terminates.
	// Zero selects DefaultTimeout.
	Timeout time.Duration

	// Termination selects the end-of-response heuristic. The zero value
	// waits for the conventional empty terminator packet.
	Termination Termination

	// StartingID seeds the request id counter. Values below 1 select 1;
	// id 0 is never used because some servers treat it as reserved.
	StartingID int32

	// Tracer, when set, receives every frame the session sends or
	// receives. Auth bodies are scrubbed before they reach it.
	Tracer Tracer
}

// Session owns one RCON connection and serializes every exchange over it.
// The response framing carries no way to demultiplex interleaved requests,
// so exactly one request may be in flight at a time; the session's mutex
// enforces that, and the id counter lives under the same lock as the
// conn. All methods are safe for concurrent use.
type Session struct {
	mu   deadlock.Mutex
	conn net.Conn

	nextID int32
	authed bool
	broken bool

	timeout time.Duration
	term    Termination
	tracer  Tracer
}

// NewSession wraps an established connection. The session takes exclusive
// ownership of conn; reading or writing it elsewhere corrupts framing.
func NewSession(conn net.Conn, cfg Config) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if !cfg.Termination.EmptyPacket && cfg.Termination.ShortBody <= 0 {
		cfg.Termination.EmptyPacket = true
	}
	if cfg.StartingID < 1 {
		cfg.StartingID = 1
	}
	return &Session{
		conn:    conn,
		nextID:  cfg.StartingID,
		timeout: cfg.Timeout,
		term:    cfg.Termination,
		tracer:  cfg.Tracer,
	}
}

// Dial connects to addr over TCP and wraps the connection in a Session.
func Dial(addr string, cfg Config) (*Session, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("rcon: dial %s: %w", addr, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		// Command traffic is tiny and latency-bound.
		tcp.SetNoDelay(true)
	}
	log.Debug().Str("addr", addr).Msg("connected")
	return NewSession(conn, cfg), nil
}

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = true
	return s.conn.Close()
}

// Authenticated reports whether Login has completed successfully.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

// RemoteAddr returns the peer address of the underlying connection.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Login performs the one-shot authentication handshake. On success the
// session accepts commands. A rejected password leaves the session in a
// terminal state where every command fails with ErrNotAuthenticated;
// transport failures leave it unusable for good, and the caller must
// discard it and reconnect.
func (s *Session) Login(ctx context.Context, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authed {
		return nil
	}
	if s.broken {
		return ErrConnectionClosed
	}

	id := s.allocID()
	deadline, stop := s.arm(ctx)
	defer stop()

	if err := s.send(Packet{ID: id, Type: TypeAuth, Body: []byte(password)}); err != nil {
		s.broken = true
		return err
	}

	for {
		resp, err := s.receive(deadline)
		if err != nil {
			s.broken = true
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		// Source servers mirror the auth request with an empty
		// ResponseValue before the verdict. Skip those.
		if resp.Type == TypeResponseValue {
			log.Debug().Int32("id", resp.ID).Msg("skipping auth mirror packet")
			continue
		}
		if resp.ID == -1 {
			s.broken = true
			return ErrAuthenticationFailed
		}
		if resp.ID != id {
			s.broken = true
			return fmt.Errorf("%w: response for id %d, want %d", ErrAuthenticationFailed, resp.ID, id)
		}
		s.authed = true
		log.Debug().Msg("authenticated")
		return nil
	}
}

// Execute sends one command over an authenticated session and returns the
// aggregated response body as text. Calls are serialized: a second caller
// blocks until the first exchange finishes.
func (s *Session) Execute(ctx context.Context, command string) (string, error) {
	body, err := s.Request(ctx, TypeExecCommand, []byte(command))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Request sends one packet of the given type and returns the aggregated
// response body. Most callers want Execute; Request exists for server
// variants that answer non-command packet types. The handshake is the one
// packet that may ever go out unauthenticated, and Login owns it.
func (s *Session) Request(ctx context.Context, typ int32, body []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authed {
		return nil, ErrNotAuthenticated
	}
	if s.broken {
		return nil, ErrConnectionClosed
	}

	id := s.allocID()
	return s.exchange(ctx, Packet{ID: id, Type: typ, Body: body})
}

// exchange runs one request/response round trip. Callers hold s.mu. Any
// failure marks the session broken: after a timeout or a transport error
// the stream position is unknowable, so nothing sent afterwards could be
// framed reliably.
func (s *Session) exchange(ctx context.Context, req Packet) ([]byte, error) {
	deadline, stop := s.arm(ctx)
	defer stop()

	if err := s.send(req); err != nil {
		s.broken = true
		return nil, err
	}

	var agg []byte
	for {
		resp, err := s.receive(deadline)
		if err != nil {
			s.broken = true
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}

		if resp.ID != req.ID {
			// A stale reply from an earlier timed-out exchange.
			// With one request in flight it can never belong to a
			// live caller, so drop it and keep reading.
			log.Debug().
				Int32("want", req.ID).
				Int32("got", resp.ID).
				Msg("discarding response with stale id")
			continue
		}

		agg = append(agg, resp.Body...)
		if s.term.completes(resp) {
			return agg, nil
		}
	}
}

// arm computes the exchange deadline and registers a context watchdog that
// pokes the connection awake if ctx ends first. Callers must invoke stop.
func (s *Session) arm(ctx context.Context) (time.Time, func() bool) {
	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	stop := context.AfterFunc(ctx, func() {
		s.conn.SetReadDeadline(time.Unix(1, 0))
	})
	return deadline, stop
}

func (s *Session) send(p Packet) error {
	frame, err := Encode(p)
	if err != nil {
		return err
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
		return fmt.Errorf("rcon: set write deadline: %w", err)
	}
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("rcon: write: %w", wireError(err))
	}
	s.trace(Sent, p)
	return nil
}

func (s *Session) receive(deadline time.Time) (Packet, error) {
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return Packet{}, fmt.Errorf("rcon: set read deadline: %w", err)
	}
	p, err := ReadPacket(s.conn)
	if err != nil {
		return Packet{}, wireError(err)
	}
	s.trace(Received, p)
	return p, nil
}

// wireError folds transport failures into the session taxonomy.
func wireError(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return ErrConnectionClosed
	}
	return err
}

// allocID hands out the next request id. Wraparound past the signed 32-bit
// range restarts at 1, never 0. Callers hold s.mu.
func (s *Session) allocID() int32 {
	id := s.nextID
	if s.nextID == math.MaxInt32 {
		s.nextID = 1
	} else {
		s.nextID++
	}
	return id
}

func (s *Session) trace(dir Direction, p Packet) {
	debug := log.Debug()
	if s.tracer == nil && !debug.Enabled() {
		return
	}

	body := p.Body
	if p.Type == TypeAuth && dir == Sent {
		// Never let a password reach a log line or a capture file.
		body = []byte("*****")
	}
	if debug.Enabled() {
		debug.
			Str("dir", string(dir)).
			Int32("id", p.ID).
			Int32("type", p.Type).
			Int("len", len(p.Body)).
			Msg("packet")
	}
	if s.tracer != nil {
		s.tracer.Record(TraceEvent{
			At:   time.Now(),
			Dir:  dir,
			ID:   p.ID,
			Type: p.Type,
			Body: body,
		})
	}
}
