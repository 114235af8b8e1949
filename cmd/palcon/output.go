package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/palworldkit/palcon/pkg/meminfo"
	"github.com/palworldkit/palcon/pkg/palworld"
	"github.com/palworldkit/palcon/pkg/roster"
)

// printer renders results, as human-readable text or as one JSON document
// per action. Logs never go through it; they belong on stderr.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, asJSON bool) *printer {
	return &printer{w: w, json: asJSON}
}

// emit writes the JSON form of v, or runs the text renderer.
func (p *printer) emit(v any, text func()) error {
	if !p.json {
		text()
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(p.w, string(data))
	return nil
}

func (p *printer) players(list *palworld.PlayerList) error {
	for _, bad := range list.Bad {
		log.Warn().
			Int("line", bad.Line).
			Str("row", bad.Text).
			Str("reason", bad.Reason).
			Msg("skipping unparsable player row")
	}
	return p.emit(list.Players, func() {
		fmt.Fprintf(p.w, "Got player info: found %d online!\n", len(list.Players))
		w := tabwriter.NewWriter(p.w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "Name\tUID\tSteamID")
		for _, player := range list.Players {
			fmt.Fprintf(w, "%s\t%s\t%s\n", player.Name, player.UID, player.SteamID)
		}
		w.Flush()
	})
}

func (p *printer) serverVersion(v palworld.Version) error {
	return p.emit(map[string]string{"version": string(v)}, func() {
		fmt.Fprintln(p.w, string(v))
	})
}

func (p *printer) ack(label string, ack palworld.Ack) error {
	return p.emit(ack, func() {
		fmt.Fprintf(p.w, "%s: %t\n", label, ack.Confirmed)
		if !ack.Confirmed && ack.Message != "" {
			fmt.Fprintf(p.w, "Server said: %s\n", ack.Message)
		}
	})
}

func (p *printer) raw(reply string) error {
	return p.emit(map[string]string{"response": reply}, func() {
		if reply != "" {
			fmt.Fprintln(p.w, reply)
		}
	})
}

type memoryReport struct {
	Host string `json:"host"`
	meminfo.MemInfo
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

func (p *printer) memory(host string, info meminfo.MemInfo) error {
	report := memoryReport{
		Host:        host,
		MemInfo:     info,
		Used:        info.Used(),
		UsedPercent: info.UsedPercent(),
	}
	return p.emit(report, func() {
		fmt.Fprintf(p.w, "Memory on %s:\n", host)
		w := tabwriter.NewWriter(p.w, 0, 8, 2, ' ', 0)
		fmt.Fprintf(w, "MemTotal:\t%d kB\n", info.Total)
		fmt.Fprintf(w, "MemFree:\t%d kB\n", info.Free)
		fmt.Fprintf(w, "MemAvailable:\t%d kB\n", info.Available)
		fmt.Fprintf(w, "Buffers:\t%d kB\n", info.Buffers)
		fmt.Fprintf(w, "Cached:\t%d kB\n", info.Cached)
		fmt.Fprintf(w, "Used:\t%d kB (%.1f%%)\n", info.Used(), info.UsedPercent())
		w.Flush()
	})
}

func (p *printer) seen(entries []roster.Entry) error {
	return p.emit(entries, func() {
		fmt.Fprintf(p.w, "Roster knows %d player(s):\n", len(entries))
		w := tabwriter.NewWriter(p.w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "Name\tUID\tSteamID\tLast seen\tSightings")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
				e.Name, e.UID, e.SteamID,
				e.LastSeen.Local().Format(time.DateTime),
				e.Sightings)
		}
		w.Flush()
	})
}
