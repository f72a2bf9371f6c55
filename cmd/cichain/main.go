package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bigredeye/cichain/internal/config"
)

var log *zap.Logger

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func unwrap[T any](value T, err error) T {
	check(err)
	return value
}

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "cichain",
		Short: "CI build chain webhook emitter",
	}

	paramsCmd = &cobra.Command{
		Use:   "params",
		Short: "Manage project parameters",
	}
)

func loadConfig() (*config.Config, error) {
	return config.ParseConfig(configPath)
}

func initLogging() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.ConsoleSeparator = " "
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.StampMilli)
	log = unwrap(config.Build())
}

func initCommands() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")

	paramsCmd.AddCommand(makeSetParamCommand())
	rootCmd.AddCommand(makeServeCommand())
	rootCmd.AddCommand(makeReplayCommand())
	rootCmd.AddCommand(makeNotifyCommand())
	rootCmd.AddCommand(makeStatsCommand())
	rootCmd.AddCommand(makeImportCommand())
	rootCmd.AddCommand(paramsCmd)
}

func init() {
	initLogging()
	initCommands()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s\n", err.Error())
		os.Exit(1)
	}
}
