package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitrent/bitrent-ico/api"
	"github.com/bitrent/bitrent-ico/core/crowdsale"
	"github.com/bitrent/bitrent-ico/core/proxy"
	"github.com/bitrent/bitrent-ico/core/state"
	"github.com/bitrent/bitrent-ico/eventsdb"
	"github.com/bitrent/bitrent-ico/genesis"
	"github.com/bitrent/bitrent-ico/log"
	"github.com/spf13/cobra"
	db "github.com/tendermint/tm-db"
)

// RunNode is the command that allows the CLI to start a node.
var RunNode = &cobra.Command{
	Use:   "node",
	Short: "Run the BitRent node",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runNode()
	},
}

func runNode() error {
	log.InitLog(cfg)
	logger := log.With("module", "node")

	stateDB, err := db.NewDB("state", db.BackendType(cfg.DBBackend), cfg.DBDir())
	if err != nil {
		return err
	}

	eventsDB, err := db.NewDB("events", db.BackendType(cfg.DBBackend), cfg.DBDir())
	if err != nil {
		return err
	}

	events := eventsdb.NewEventsStore(eventsDB)

	appState, err := state.NewState(0, stateDB, events, cfg.StateCacheSize)
	if err != nil {
		return err
	}

	if appState.Height() == 0 {
		doc, err := genesis.FromFile(cfg.GenesisFile())
		if err != nil {
			return err
		}

		logger.Info("importing genesis", "chain_id", doc.ChainID)
		if err := appState.Import(doc.AppState); err != nil {
			return err
		}

		if _, _, err := appState.Commit(); err != nil {
			return err
		}
	}

	cs := crowdsale.NewCrowdsale(appState)
	px := proxy.NewProxy(appState, cs)
	appState.Wallet.SetCallHandler(cs.HandleWalletCall)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := api.NewService(appState, cs, px, logger)

	logger.Info("node started", "height", appState.Height())
	err = api.Run(ctx, cfg, service)

	if closeErr := events.Close(); closeErr != nil {
		logger.Error("can't close events db", "err", closeErr)
	}
	if closeErr := stateDB.Close(); closeErr != nil {
		logger.Error("can't close state db", "err", closeErr)
	}

	return err
}
