package main

import (
	"github.com/spf13/cobra"

	"github.com/bigredeye/cichain/internal/web"
)

func makeServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the build finished listener",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return web.Run(log, cfg)
		},
	}
}
