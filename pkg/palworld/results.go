package palworld

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/repeale/fp-go"
)

// Result is the closed union of typed command replies. Callers switch on
// the concrete type to consume one.
type Result interface {
	result()
}

// RawText is an unparsed reply passed through with trailing NULs and
// whitespace trimmed.
type RawText string

func (RawText) result() {}

// Player is one row of the ShowPlayers listing.
type Player struct {
	Name    string `json:"name"`
	UID     string `json:"playeruid"`
	SteamID string `json:"steamid"`
}

// BadRow records a listing row that did not parse. Rows fail one at a
// time: a single corrupt line must not discard the rest of the list.
type BadRow struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// PlayerList is the parsed ShowPlayers reply plus per-row diagnostics.
type PlayerList struct {
	Players []Player `json:"players"`
	Bad     []BadRow `json:"bad,omitempty"`
}

func (*PlayerList) result() {}

// Names returns the player names in listing order.
func (l *PlayerList) Names() []string {
	return fp.Map(func(p Player) string { return p.Name })(l.Players)
}

// Version is the server build extracted from the Info banner.
type Version string

func (Version) result() {}

// Ack is a short acknowledgement reply. Confirmed reports whether the text
// carried the marker the operation expects; servers have been seen to
// answer acks with unrelated text, so the raw message travels along.
type Ack struct {
	Message   string `json:"message"`
	Confirmed bool   `json:"confirmed"`
}

func (Ack) result() {}

const playerListHeader = "name,playeruid,steamid"

// versionPattern matches the bracketed build tag inside the Info banner,
// e.g. "Welcome to Pal Server[v0.1.5.0] ...".
var versionPattern = regexp.MustCompile(`\[v[0-9]{1,9}\.[0-9]{1,9}\.[0-9]{1,9}\.[0-9]{1,9}\]`)

// normalize strips the trailing NULs and whitespace servers tack onto
// response bodies.
func normalize(raw string) string {
	return strings.TrimRight(raw, "\x00 \t\r\n")
}

func parsePlayerList(op, raw string) (Result, error) {
	list := &PlayerList{}
	seenRow := false
	for i, line := range strings.Split(normalize(raw), "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if !seenRow && strings.EqualFold(text, playerListHeader) {
			seenRow = true
			continue
		}
		seenRow = true

		fields := fp.Map(strings.TrimSpace)(strings.Split(text, ","))
		if len(fields) != 3 {
			list.Bad = append(list.Bad, BadRow{
				Line:   i + 1,
				Text:   text,
				Reason: fmt.Sprintf("want 3 fields, got %d", len(fields)),
			})
			continue
		}
		list.Players = append(list.Players, Player{
			Name:    fields[0],
			UID:     fields[1],
			SteamID: fields[2],
		})
	}
	return list, nil
}

func parseVersion(op, raw string) (Result, error) {
	tag := versionPattern.FindString(raw)
	if tag == "" {
		return nil, &MalformedError{Op: op, Reason: "no version tag in banner", Raw: normalize(raw)}
	}
	// Strip the brackets, keep the leading v.
	return Version(tag[1 : len(tag)-1]), nil
}

// ackParser builds a parser that checks the reply for the marker text an
// operation is known to answer with.
func ackParser(marker string) func(op, raw string) (Result, error) {
	return func(op, raw string) (Result, error) {
		text := normalize(raw)
		return Ack{Message: text, Confirmed: strings.Contains(text, marker)}, nil
	}
}
