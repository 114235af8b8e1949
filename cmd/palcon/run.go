package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palworldkit/palcon/pkg/config"
	"github.com/palworldkit/palcon/pkg/meminfo"
	"github.com/palworldkit/palcon/pkg/palworld"
	"github.com/palworldkit/palcon/pkg/rcon"
	"github.com/palworldkit/palcon/pkg/roster"
	"github.com/palworldkit/palcon/pkg/sshexec"
)

// loadConfig layers the merged configuration: built-in defaults, then the
// config file, then flags.
func loadConfig() (config.Config, error) {
	path := CLI.Config
	if path == "" {
		path = config.Locate()
	}

	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
		log.Debug().Str("path", path).Msg("loaded configuration file")
	}

	if CLI.Host != "" {
		cfg.Host = CLI.Host
	}
	if CLI.Port != 0 {
		cfg.Port = CLI.Port
	}
	if CLI.Password != "" {
		cfg.Password = CLI.Password
	}
	if CLI.Timeout != 0 {
		cfg.Timeout = config.Duration(CLI.Timeout)
	}
	if CLI.ReplaceBroadcastSpace != "" {
		cfg.ReplaceSpace = CLI.ReplaceBroadcastSpace
	}
	if CLI.Roster != "" {
		cfg.Roster = CLI.Roster
	}
	if CLI.Username != "" {
		cfg.SSH.User = CLI.Username
	}
	return cfg, nil
}

func rconRequested() bool {
	return CLI.List || CLI.ServerVersion || CLI.Save || CLI.Shutdown != nil ||
		CLI.Broadcast != "" || CLI.Command != "" || CLI.Watch || CLI.Shell
}

func anyActionRequested() bool {
	return rconRequested() || CLI.Memory || CLI.MemorySSH || CLI.Seen
}

func run() error {
	if !anyActionRequested() {
		return fmt.Errorf("nothing to do: pass at least one action (see --help)")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// ^C and SIGTERM unwind any in-flight exchange and the long-running
	// modes below.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := newPrinter(os.Stdout, CLI.JSON)

	var store *roster.Store
	if cfg.Roster != "" && (CLI.Seen || CLI.List || CLI.Watch) {
		store, err = roster.Open(cfg.Roster)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	if CLI.Seen {
		if store == nil {
			return fmt.Errorf("--seen needs a roster database (--roster or the config file)")
		}
		entries, err := store.Seen()
		if err != nil {
			return err
		}
		if err := out.seen(entries); err != nil {
			return err
		}
	}

	if rconRequested() {
		if err := runRCON(ctx, cfg, out, store); err != nil {
			return err
		}
	}

	if CLI.Memory {
		info, err := meminfo.Read()
		if err != nil {
			return err
		}
		if err := out.memory("local", info); err != nil {
			return err
		}
	}

	if CLI.MemorySSH {
		runner := sshexec.New(sshexec.Config{
			Addr:       net.JoinHostPort(cfg.Host, strconv.Itoa(sshPort(cfg))),
			User:       cfg.SSH.User,
			Password:   cfg.Password,
			KnownHosts: cfg.SSH.KnownHosts,
			Timeout:    cfg.Timeout.Std(),
		})
		info, err := runner.MemoryInfo(ctx)
		if err != nil {
			return err
		}
		if err := out.memory(cfg.Host, info); err != nil {
			return err
		}
	}

	return nil
}

// sshPort resolves the port for SSH actions. An explicit --port wins so
// the flag can serve either protocol, like the host argument does.
func sshPort(cfg config.Config) int {
	if CLI.Port != 0 {
		return CLI.Port
	}
	return cfg.SSH.Port
}

// runRCON opens one authenticated session and runs every requested RCON
// action over it, in declaration order.
func runRCON(ctx context.Context, cfg config.Config, out *printer, store *roster.Store) error {
	if cfg.Password == "" {
		return fmt.Errorf("an RCON password is required (-p, PALCON_PASSWORD, or the config file)")
	}

	sessionConfig := rcon.Config{
		Timeout:     cfg.Timeout.Std(),
		Termination: rcon.PalworldTermination(),
	}
	if CLI.Capture != "" {
		tracer, err := rcon.NewFileTracer(CLI.Capture)
		if err != nil {
			return err
		}
		defer func() {
			if err := tracer.Close(); err != nil {
				log.Warn().Err(err).Msg("closing capture file failed")
			} else {
				log.Info().Str("path", CLI.Capture).Msg("wire capture written")
			}
		}()
		sessionConfig.Tracer = tracer
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	session, err := rcon.Dial(addr, sessionConfig)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Login(ctx, cfg.Password); err != nil {
		return fmt.Errorf("login to %s: %w", addr, err)
	}

	client := palworld.NewClient(session)
	if cfg.ReplaceSpace != palworld.DefaultSpaceReplacement {
		if err := client.SetSpaceReplacement(cfg.ReplaceSpace); err != nil {
			return err
		}
	}

	if CLI.List {
		list, err := client.ShowPlayers(ctx)
		if err != nil {
			return err
		}
		if store != nil {
			if err := store.RecordSighting(list.Players, time.Now()); err != nil {
				log.Warn().Err(err).Msg("recording sightings failed")
			}
		}
		if err := out.players(list); err != nil {
			return err
		}
	}

	if CLI.ServerVersion {
		v, err := client.ServerVersion(ctx)
		if err != nil {
			return err
		}
		if err := out.serverVersion(v); err != nil {
			return err
		}
	}

	if CLI.Save {
		ack, err := client.Save(ctx)
		if err != nil {
			return err
		}
		if err := out.ack("Saved", ack); err != nil {
			return err
		}
	}

	if CLI.Shutdown != nil {
		ack, err := client.Shutdown(ctx, *CLI.Shutdown, CLI.ShutdownMessage)
		if err != nil {
			return err
		}
		if err := out.ack("Shutdown", ack); err != nil {
			return err
		}
	}

	if CLI.Broadcast != "" {
		ack, err := client.Broadcast(ctx, CLI.Broadcast)
		if err != nil {
			return err
		}
		if err := out.ack("Broadcast", ack); err != nil {
			return err
		}
	}

	if CLI.Command != "" {
		reply, err := client.Run(ctx, CLI.Command)
		if err != nil {
			return err
		}
		if err := out.raw(reply); err != nil {
			return err
		}
	}

	if CLI.Watch {
		if err := watchPlayers(ctx, client, store, CLI.Interval); err != nil {
			return err
		}
	}

	if CLI.Shell {
		if err := runShell(ctx, client, session.RemoteAddr()); err != nil {
			return err
		}
	}

	return nil
}
