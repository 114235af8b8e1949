package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/repeale/fp-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/palworldkit/palcon/pkg/palworld"
	"github.com/palworldkit/palcon/pkg/roster"
)

// watchPlayers polls the player list and prints joins and leaves until the
// context ends. Sightings land in the roster when one is configured, so a
// long-running watch doubles as the history collector.
func watchPlayers(ctx context.Context, client *palworld.Client, store *roster.Store, interval time.Duration) error {
	if interval < time.Second {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	log.Info().Dur("interval", interval).Msg("watching player list; ^C to stop")

	online := map[string]palworld.Player{}
	first := true
	for {
		if err := limiter.Wait(ctx); err != nil {
			// ^C is how a watch normally ends.
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		list, err := client.ShowPlayers(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		now := time.Now()

		if store != nil {
			if err := store.RecordSighting(list.Players, now); err != nil {
				log.Warn().Err(err).Msg("recording sightings failed")
			}
		}

		next := make(map[string]palworld.Player, len(list.Players))
		for _, p := range list.Players {
			next[p.UID] = p
		}

		stamp := now.Format(time.TimeOnly)
		if first {
			fmt.Printf("%s online (%d): %s\n", stamp, len(list.Players), strings.Join(list.Names(), ", "))
			first = false
		} else {
			joined := fp.Filter(func(p palworld.Player) bool {
				_, ok := online[p.UID]
				return !ok
			})(list.Players)
			for _, p := range joined {
				fmt.Printf("%s + %s (%s)\n", stamp, p.Name, p.UID)
			}
			for uid, p := range online {
				if _, ok := next[uid]; !ok {
					fmt.Printf("%s - %s (%s)\n", stamp, p.Name, p.UID)
				}
			}
		}
		online = next
	}
}
