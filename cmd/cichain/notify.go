package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/internal/graph"
	lf "github.com/bigredeye/cichain/internal/logfield"
	"github.com/bigredeye/cichain/pkg/client/cichain"
)

const defaultEndpoint = "http://localhost:8080"

func makeNotifyCommand() *cobra.Command {
	var endpoint string
	var snapshot string
	var build int64

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Report a finished build to a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return notify(endpoint, snapshot, build)
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", defaultEndpoint, "Server address")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Send this chain snapshot along")
	cmd.Flags().Int64Var(&build, "build", 0, "Finished build")
	check(cmd.MarkFlagRequired("build"))

	return cmd
}

func notify(endpoint, path string, buildID int64) error {
	var chain *graph.Snapshot
	if path != "" {
		snapshot, err := graph.LoadSnapshot(path)
		if err != nil {
			return err
		}
		chain = snapshot
	}

	res, err := cichain.NewClient(endpoint).NotifyBuildFinished(buildID, chain)
	if err != nil {
		return err
	}

	if res.Ignored {
		log.Info("Build ignored", lf.BuildID(buildID))
		return nil
	}
	log.Info("Build processed", lf.BuildID(buildID), zap.Strings("webhooks", res.Webhooks))
	return nil
}

func makeStatsCommand() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show delivery counters of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := cichain.NewClient(endpoint).Stats()
			if err != nil {
				return err
			}
			fmt.Printf("in flight: %d\ndelivered: %d\nfailed: %d\n", stats.InFlight, stats.Delivered, stats.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", defaultEndpoint, "Server address")

	return cmd
}
