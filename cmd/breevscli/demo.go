package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/decred/slog"

	"github.com/Anuoluwapo25/Breevs/breevsgame"
	"github.com/Anuoluwapo25/Breevs/simledger"
)

// Demo driver: keeps the simulated ledger alive so the client has something
// to play against. Ticks ledger time once a second and runs a handful of bot
// wallets that open a lobby game and fill any game the player hosts.
const (
	demoTickInterval = time.Second
	demoBotInterval  = 4 * time.Second
	demoBotCount     = 5
)

func runDemoBots(ctx context.Context, ledger *simledger.Ledger, playerAddr string, log slog.Logger) error {
	bots := make([]breevsgame.GameGateway, demoBotCount)
	addrs := make([]string, demoBotCount)
	for i := range bots {
		addrs[i] = fmt.Sprintf("ST2BOT%032d", i+1)
		bots[i] = ledger.Wallet(addrs[i])
	}

	// One open game so the lobby is never empty on first launch.
	if _, err := bots[0].CreateGame(ctx, 500_000, 60); err != nil {
		log.Warnf("seed game: %v", err)
	}

	tick := time.NewTicker(demoTickInterval)
	defer tick.Stop()
	join := time.NewTicker(demoBotInterval)
	defer join.Stop()

	next := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			ledger.Tick(1)
		case <-join.C:
			botJoinPlayerGame(ctx, ledger, bots, addrs, &next, playerAddr, log)
		}
	}
}

// botJoinPlayerGame finds an open game hosted by the player and has the next
// bot stake into it, one bot per interval so joins trickle in visibly.
func botJoinPlayerGame(ctx context.Context, ledger *simledger.Ledger, bots []breevsgame.GameGateway, addrs []string, next *int, playerAddr string, log slog.Logger) {
	if *next >= len(bots) {
		return
	}
	gw := bots[*next]
	total, err := gw.TotalGames(ctx)
	if err != nil {
		return
	}
	for id := uint64(1); id <= total; id++ {
		g, err := gw.GameSnapshot(ctx, id)
		if err != nil || g.Creator != playerAddr || g.Status != breevsgame.StatusActive || g.IsFull() {
			continue
		}
		if g.HasPlayer(addrs[*next]) {
			continue
		}
		if _, err := gw.JoinGame(ctx, id, g.Stake); err != nil {
			var lerr *breevsgame.LedgerError
			if !errors.As(err, &lerr) {
				log.Warnf("bot join game %d: %v", id, err)
			}
			continue
		}
		log.Debugf("bot %s joined game %d", addrs[*next], id)
		*next++
		return
	}
}
