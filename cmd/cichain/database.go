package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/internal/database"
	"github.com/bigredeye/cichain/internal/graph"
	lf "github.com/bigredeye/cichain/internal/logfield"
)

func openDataBase() (*database.DataBase, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	dsn := database.DSN(cfg.DataBase.Host, cfg.DataBase.Port, cfg.DataBase.User, cfg.DataBase.Pass, cfg.DataBase.Name)
	return database.OpenDataBase(log, dsn, cfg.DataBase.Migrate)
}

func makeImportCommand() *cobra.Command {
	var snapshot string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store a chain snapshot in the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := graph.LoadSnapshot(snapshot)
			if err != nil {
				return err
			}
			db, err := openDataBase()
			if err != nil {
				return err
			}
			if err := db.SaveSnapshot(context.Background(), chain); err != nil {
				return err
			}
			log.Info("Imported snapshot", zap.Int("builds", len(chain.Builds)))
			return nil
		},
	}

	cmd.Flags().StringVar(&snapshot, "snapshot", "", "Path to chain snapshot")
	check(cmd.MarkFlagRequired("snapshot"))

	return cmd
}

func makeSetParamCommand() *cobra.Command {
	var project string
	var name string
	var value string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a project parameter",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDataBase()
			if err != nil {
				return err
			}
			if err := db.SetProjectParameter(context.Background(), project, name, value); err != nil {
				return err
			}
			log.Info("Updated parameter", lf.ProjectID(project), zap.String("name", name))
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", database.RootProjectID, "Project id")
	cmd.Flags().StringVar(&name, "name", "", "Parameter name")
	cmd.Flags().StringVar(&value, "value", "", "Parameter value")
	check(cmd.MarkFlagRequired("name"))

	return cmd
}
