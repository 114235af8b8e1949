// Package sshexec runs one-shot commands on the game host over SSH. It
// exists for the probes the RCON surface cannot answer, such as reading
// the host's memory pressure.
package sshexec

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/palworldkit/palcon/pkg/meminfo"
)

// DefaultTimeout bounds the dial plus one remote command.
const DefaultTimeout = 15 * time.Second

// memInfoCommand is what the memory probe runs remotely. Output feeds the
// same parser as the local probe.
const memInfoCommand = "cat /proc/meminfo"

// Config describes the remote host and how to authenticate against it.
type Config struct {
	// Addr is host:port of the sshd to reach.
	Addr string

	User     string
	Password string

	// KnownHosts is a path to an OpenSSH known_hosts file used to pin
	// the server key. Empty disables verification, with a warning.
	KnownHosts string

	Timeout time.Duration
}

// Runner executes commands against one remote host. Each Run dials a
// fresh connection; the probes are rare enough that pooling would buy
// nothing.
type Runner struct {
	cfg Config
}

func New(cfg Config) *Runner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Runner{cfg: cfg}
}

// Run executes command on the remote host and returns its stdout.
func (r *Runner) Run(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	hostKeys, err := r.hostKeyCallback()
	if err != nil {
		return "", err
	}

	clientConfig := &ssh.ClientConfig{
		User:            r.cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(r.cfg.Password)},
		HostKeyCallback: hostKeys,
		Timeout:         r.cfg.Timeout,
	}

	log.Debug().Str("addr", r.cfg.Addr).Str("user", r.cfg.User).Msg("dialing ssh")
	client, err := ssh.Dial("tcp", r.cfg.Addr, clientConfig)
	if err != nil {
		return "", fmt.Errorf("sshexec: dial %s: %w", r.cfg.Addr, err)
	}
	defer client.Close()

	// ssh carries no context plumbing; tear the client down if ctx ends
	// first so a blocked command cannot outlive its caller.
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("sshexec: session on %s: %w", r.cfg.Addr, err)
	}
	defer session.Close()

	out, err := session.Output(command)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("sshexec: %q on %s: %w", command, r.cfg.Addr, err)
	}
	return string(out), nil
}

// MemoryInfo reads the remote host's /proc/meminfo.
func (r *Runner) MemoryInfo(ctx context.Context) (meminfo.MemInfo, error) {
	out, err := r.Run(ctx, memInfoCommand)
	if err != nil {
		return meminfo.MemInfo{}, err
	}
	return meminfo.Parse(out)
}

func (r *Runner) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if r.cfg.KnownHosts == "" {
		log.Warn().
			Str("addr", r.cfg.Addr).
			Msg("ssh host key verification disabled; configure a known_hosts file to pin the server")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(r.cfg.KnownHosts)
	if err != nil {
		return nil, fmt.Errorf("sshexec: known_hosts %s: %w", r.cfg.KnownHosts, err)
	}
	return callback, nil
}
