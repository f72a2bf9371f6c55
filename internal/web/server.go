package web

import (
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/internal/chain"
	"github.com/bigredeye/cichain/internal/config"
)

type server struct {
	config *config.Config
	logger *zap.Logger

	processor *chain.Processor
	gatherer  prometheus.Gatherer
}

func newServer(
	config *config.Config,
	logger *zap.Logger,
	processor *chain.Processor,
	gatherer prometheus.Gatherer,
) *server {
	return &server{
		config:    config,
		logger:    logger.Named("web"),
		processor: processor,
		gatherer:  gatherer,
	}
}

func (s *server) engine() *gin.Engine {
	r := gin.New()

	r.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))

	setupApiService(s, r)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong "+fmt.Sprint(time.Now().Unix()))
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	return r
}

func (s *server) run() error {
	gin.SetMode(gin.ReleaseMode)
	r := s.engine()

	s.logger.Info("Starting server", zap.String("bind_address", s.config.Server.ListenAddress))
	return r.Run(s.config.Server.ListenAddress)
}
