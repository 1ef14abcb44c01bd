package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/frostfed/guardian/internal/guardian"
	"github.com/frostfed/guardian/internal/log"
)

var (
	shareIndexFlag = &cli.UintFlag{Name: "share-index", Value: 1, Usage: "this guardian's FROST identifier (1-based)"}
	portFlag       = &cli.UintFlag{Name: "port", Usage: "HTTP listen port (default 3009+share-index)"}
	maxSignersFlag = &cli.UintFlag{Name: "max-signers", Value: 3, Usage: "federation size n"}
	minSignersFlag = &cli.UintFlag{Name: "min-signers", Value: 2, Usage: "signing threshold t"}
	peersFlag      = &cli.StringFlag{Name: "peers", Usage: "comma-separated peer base URLs, ascending index order, self excluded"}
	refreshFlag    = &cli.BoolFlag{Name: "refresh", Usage: "run a proactive key refresh ceremony on boot"}
	redealFlag     = &cli.BoolFlag{Name: "redeal", Usage: "act as redeal coordinator on boot"}
	oldPeersFlag   = &cli.StringFlag{Name: "old-peers", Usage: "comma-separated old-topology peer URLs (redeal only)"}
	newMaxFlag     = &cli.UintFlag{Name: "new-max-signers", Usage: "new topology size (redeal only)"}
	newMinFlag     = &cli.UintFlag{Name: "new-min-signers", Usage: "new topology threshold (redeal only)"}
	cacheDirFlag   = &cli.StringFlag{Name: "cache-dir", Usage: "directory for persisted key shares"}
	rosterFlag     = &cli.StringFlag{Name: "roster", Usage: "TOML roster file mapping share index to peer URL, alternative to --peers"}
)

func main() {
	app := &cli.App{
		Name:  "guardian",
		Usage: "run one guardian daemon of a FROST-Ed25519 threshold-signing federation",
		Flags: []cli.Flag{
			shareIndexFlag, portFlag, maxSignersFlag, minSignersFlag, peersFlag,
			refreshFlag, redealFlag, oldPeersFlag, newMaxFlag, newMinFlag,
			cacheDirFlag, rosterFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "guardian:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	shareIndex := uint16(c.Uint(shareIndexFlag.Name))
	port := int(c.Uint(portFlag.Name))
	if port == 0 {
		port = 3009 + int(shareIndex)
	}
	maxSigners := uint16(c.Uint(maxSignersFlag.Name))

	peers := guardian.ParsePeers(c.String(peersFlag.Name))
	if c.IsSet(rosterFlag.Name) && !c.IsSet(peersFlag.Name) {
		effectiveMax := maxSigners
		if c.Bool(redealFlag.Name) {
			effectiveMax = uint16(c.Uint(newMaxFlag.Name))
		}
		rosterPeers, err := guardian.LoadRoster(c.String(rosterFlag.Name), effectiveMax, shareIndex)
		if err != nil {
			return err
		}
		peers = rosterPeers
	}

	cacheDir := c.String(cacheDirFlag.Name)
	if cacheDir == "" {
		cacheDir = guardian.DefaultCacheDir()
	}

	cfg := guardian.Config{
		ShareIndex:    shareIndex,
		Port:          port,
		MaxSigners:    maxSigners,
		MinSigners:    uint16(c.Uint(minSignersFlag.Name)),
		Peers:         peers,
		Refresh:       c.Bool(refreshFlag.Name),
		Redeal:        c.Bool(redealFlag.Name),
		OldPeers:      guardian.ParsePeers(c.String(oldPeersFlag.Name)),
		NewMaxSigners: uint16(c.Uint(newMaxFlag.Name)),
		NewMinSigners: uint16(c.Uint(newMinFlag.Name)),
		CacheDir:      cacheDir,
		Logger:        log.Default(),
	}

	d, err := guardian.New(cfg)
	if err != nil {
		return fmt.Errorf("construct daemon: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return d.Run(ctx)
}
