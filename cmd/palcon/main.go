package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/palworldkit/palcon/pkg/version"
)

type cli struct {
	Host string `arg:"" optional:"" env:"PALCON_HOST" help:"Host of the Palworld server."`
	Port int    `short:"P" env:"PALCON_PORT" help:"Port to connect to: defaults to 25575 for RCON actions and 22 for SSH actions."`

	Password string `short:"p" env:"PALCON_PASSWORD" help:"RCON password (reused as the SSH password for --memory-ssh)."`

	Config  string        `help:"Path to a palcon.yaml configuration file." type:"path"`
	JSON    bool          `short:"j" help:"Write results to stdout as JSON."`
	Debug   bool          `short:"d" help:"Whether to enable debug logging."`
	Timeout time.Duration `short:"t" help:"Time budget for one command round trip."`
	Capture string        `help:"Write a replayable wire capture of the session to FILE." type:"path" placeholder:"FILE"`
	Version bool          `short:"V" help:"Print version information and exit."`

	// Actions. Several can be combined in one invocation; they run in
	// declaration order over a single authenticated session.
	List                  bool          `short:"l" help:"List players currently online."`
	ServerVersion         bool          `short:"v" help:"Print the server version."`
	Save                  bool          `short:"s" help:"Ask the server to save the world."`
	Shutdown              *int          `short:"S" placeholder:"DELAY" help:"Shut the server down after DELAY seconds."`
	ShutdownMessage       string        `placeholder:"MSG" help:"Message announced with --shutdown."`
	Broadcast             string        `short:"b" placeholder:"MSG" help:"Broadcast a message to everyone online."`
	ReplaceBroadcastSpace string        `short:"r" placeholder:"CH" help:"Character substituted for spaces in messages."`
	Command               string        `short:"c" placeholder:"CMD" help:"Send a raw command and print the reply."`
	Memory                bool          `short:"m" help:"Read /proc/meminfo on this machine."`
	MemorySSH             bool          `short:"M" name:"memory-ssh" help:"Read /proc/meminfo on the server host over SSH."`
	Username              string        `short:"u" placeholder:"USER" help:"SSH username for --memory-ssh."`
	Seen                  bool          `help:"Print every player the roster database has recorded."`
	Roster                string        `placeholder:"FILE" type:"path" help:"SQLite file recording player sightings."`
	Watch                 bool          `short:"w" help:"Poll the player list and print joins and leaves."`
	Interval              time.Duration `default:"30s" help:"Polling interval for --watch."`
	Shell                 bool          `help:"Open an interactive command shell."`
}

var CLI cli

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	kong.Parse(&CLI,
		kong.Name("palcon"),
		kong.Description("a Palworld server companion, speaking RCON so you don't have to"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	// Results go to stdout; every log line stays on stderr so output
	// can be piped.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(consoleWriter)

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	if CLI.Version {
		fmt.Printf(
			"palcon %s (commit %s)\n",
			version.Version,
			version.GitCommit,
		)
		fmt.Printf(
			"built %s\n",
			version.BuildTime,
		)
		os.Exit(0)
	}

	if err := run(); err != nil {
		writeError(err)
	}
}
