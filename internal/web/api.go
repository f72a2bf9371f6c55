package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/api"
	"github.com/bigredeye/cichain/internal/events"
	"github.com/bigredeye/cichain/internal/graph"
	lf "github.com/bigredeye/cichain/internal/logfield"
	"github.com/bigredeye/cichain/internal/projects"
	"github.com/bigredeye/cichain/internal/vcs"
)

type apiService struct {
	webService
}

func setupApiService(server *server, r *gin.Engine) {
	s := apiService{webService{server, server.config, server.logger}}

	r.POST("/api/v1/builds/finished", s.buildFinished)
	r.GET("/stats", s.stats)
}

// statusCode maps processing errors to responses. Malformed chain data is the
// caller's problem, anything else is ours.
func statusCode(err error) int {
	switch {
	case errors.Is(err, graph.ErrBuildNotFound), errors.Is(err, graph.ErrPipelineNotFound):
		return http.StatusNotFound
	case errors.Is(err, events.ErrUnrecognizedStatus),
		errors.Is(err, vcs.ErrMalformedUsername),
		errors.Is(err, vcs.ErrUnknownUsernameStyle),
		errors.Is(err, vcs.ErrUnresolvableCommitter),
		errors.Is(err, projects.ErrMissingParameter):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s apiService) buildFinished(c *gin.Context) {
	onError := func(code int, err error) {
		s.log.Warn("Failed to process finished build", zap.Error(err))
		c.JSON(code, &api.BuildFinishedResponse{
			Status: api.Status{
				Ok:    false,
				Error: err.Error(),
			},
		})
	}

	req := api.BuildFinishedRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		onError(http.StatusBadRequest, err)
		return
	}
	s.log.Info("Handling finished build", lf.BuildID(req.BuildID))

	processor := s.server.processor
	if req.Chain != nil {
		g, err := graph.NewMemoryGraph(req.Chain)
		if err != nil {
			onError(http.StatusBadRequest, err)
			return
		}
		processor = processor.WithGraph(g)
	}

	result, err := processor.OnBuildFinished(c.Request.Context(), req.BuildID)
	if err != nil {
		onError(statusCode(err), err)
		return
	}

	ids := make([]string, 0, len(result.Webhooks))
	for _, webhook := range result.Webhooks {
		ids = append(ids, webhook.ID())
	}
	c.JSON(http.StatusOK, &api.BuildFinishedResponse{
		Status:   api.Status{Ok: true},
		Ignored:  result.Ignored,
		Webhooks: ids,
	})
}

func (s apiService) stats(c *gin.Context) {
	stats := s.server.processor.Dispatcher().Stats()
	c.JSON(http.StatusOK, &api.StatsResponse{
		Status:    api.Status{Ok: true},
		InFlight:  stats.InFlight,
		Delivered: stats.Delivered,
		Failed:    stats.Failed,
	})
}
