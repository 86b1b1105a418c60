package main

import (
	"github.com/bitrent/bitrent-ico/cmd/bitrent/cmd"
	"github.com/bitrent/bitrent-ico/cmd/utils"
)

func main() {
	rootCmd := cmd.RootCmd
	rootCmd.PersistentFlags().StringVar(&utils.BitrentHome, "home-dir", "", "base dir (default is $HOME/.bitrent)")

	rootCmd.AddCommand(
		cmd.RunNode,
		cmd.Export,
		cmd.Version)

	if err := cmd.RootCmd.Execute(); err != nil {
		panic(err)
	}
}
