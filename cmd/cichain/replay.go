package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/internal/app"
	"github.com/bigredeye/cichain/internal/graph"
	lf "github.com/bigredeye/cichain/internal/logfield"
)

func makeReplayCommand() *cobra.Command {
	var snapshot string
	var build int64
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Process the chain of a build from a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(snapshot, build, dryRun)
		},
	}

	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Path to chain snapshot")
	cmd.Flags().Int64Var(&build, "build", 0, "Any build of the chain")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print webhooks instead of sending them")
	check(cmd.MarkFlagRequired("snapshot"))
	check(cmd.MarkFlagRequired("build"))

	return cmd
}

func replay(path string, buildID int64, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snapshot, err := graph.LoadSnapshot(path)
	if err != nil {
		return err
	}
	g, err := graph.NewMemoryGraph(snapshot)
	if err != nil {
		return err
	}

	a, err := app.New(cfg, log, app.WithGraph(g))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	processor := a.Processor
	pipeline, err := processor.FindPipeline(ctx, buildID)
	if err != nil {
		return err
	}

	if dryRun {
		params, err := processor.Resolver().Resolve(ctx, pipeline.ProjectID)
		if err != nil {
			return err
		}
		webhooks, err := processor.Assemble(ctx, pipeline, params.EmailDomain)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(webhooks)
	}

	start := time.Now()
	result, err := processor.ProcessPipeline(ctx, pipeline)
	if err != nil {
		return err
	}
	if result.Ignored {
		log.Warn("Chain ignored", lf.PipelineID(pipeline.ID), zap.String("reason", result.Reason))
		return nil
	}

	delivered := 0
	for _, ok := range result.Batch.Wait() {
		if ok {
			delivered++
		}
	}
	fmt.Printf("Delivered %d of %d webhooks in %s\n", delivered, len(result.Webhooks), units.HumanDuration(time.Since(start)))
	if delivered != len(result.Webhooks) {
		return fmt.Errorf("%d webhooks were not delivered", len(result.Webhooks)-delivered)
	}
	return nil
}
