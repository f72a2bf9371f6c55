package web

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/internal/app"
	"github.com/bigredeye/cichain/internal/config"
)

func Run(logger *zap.Logger, config *config.Config) error {
	a, err := app.New(config, logger)
	if err != nil {
		return errors.Wrap(err, "Failed to start server")
	}
	defer a.Close()

	s := newServer(config, logger, a.Processor, a.Registry)
	return errors.Wrap(s.run(), "Server failed")
}
