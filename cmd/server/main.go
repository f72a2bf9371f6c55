package main

import (
	"flag"
	"log"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/internal/config"
	"github.com/bigredeye/cichain/internal/web"
	zlog "github.com/bigredeye/cichain/pkg/log"
)

var configPath = flag.String("config", "", "Path to config file")

func run() error {
	flag.Parse()

	cfg, err := config.ParseConfig(*configPath)
	if err != nil {
		return err
	}

	var logger *zap.Logger
	switch {
	case cfg.Log.File != "":
		logger = zlog.InitFile(cfg.Log.File)
	case cfg.Log.Dev:
		logger = zlog.InitDev()
	default:
		logger = zlog.InitProd()
	}
	defer zlog.Sync()

	return web.Run(logger, cfg)
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
