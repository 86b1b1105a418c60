package cmd

import (
	"log"
	"time"

	"github.com/bitrent/bitrent-ico/core/state"
	"github.com/bitrent/bitrent-ico/genesis"
	"github.com/spf13/cobra"
	db "github.com/tendermint/tm-db"
)

var Export = &cobra.Command{
	Use:   "export",
	Short: "Export platform state to a genesis file",
	RunE:  export,
}

func init() {
	Export.Flags().Uint64("height", 0, "state version to export")
	Export.Flags().String("chain-id", "bitrent-1", "chain id of the exported genesis")
	Export.Flags().String("output", "genesis.json", "path of the exported genesis file")
}

func export(cmd *cobra.Command, args []string) error {
	height, err := cmd.Flags().GetUint64("height")
	if err != nil {
		log.Panicf("Cannot parse height: %s", err)
	}

	chainID, err := cmd.Flags().GetString("chain-id")
	if err != nil {
		log.Panicf("Cannot parse chain id: %s", err)
	}

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		log.Panicf("Cannot parse output path: %s", err)
	}

	stateDB, err := db.NewDB("state", db.BackendType(cfg.DBBackend), cfg.DBDir())
	if err != nil {
		log.Panicf("Cannot load db: %s", err)
	}
	defer stateDB.Close()

	currentState, err := state.NewCheckStateAtHeight(height, stateDB)
	if err != nil {
		log.Panicf("Cannot open state at height %d: %s", height, err)
	}

	exportTimeStart := time.Now()
	appState := currentState.Export()
	log.Printf("State has been exported. Took %s\n", time.Since(exportTimeStart))

	if err := appState.Verify(); err != nil {
		log.Fatalf("Failed to validate: %s\n", err)
	}
	log.Printf("Verify state OK\n")

	doc := &genesis.Genesis{
		GenesisTime: time.Now().UTC(),
		ChainID:     chainID,
		AppState:    appState,
	}

	if err := doc.Save(output); err != nil {
		log.Panicf("Failed to save genesis file: %s", err)
	}
	log.Printf("Genesis saved to %s\n", output)

	return nil
}
