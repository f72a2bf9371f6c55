package cichain

import (
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/bigredeye/cichain/api"
	"github.com/bigredeye/cichain/internal/graph"
)

// Client talks to a running cichain server.
type Client struct {
	client *resty.Client
}

func NewClient(endpoint string) *Client {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Second * 10).
		SetRetryCount(3)

	return &Client{client}
}

// NotifyBuildFinished reports a finished build. A non-nil chain is processed
// instead of the server's own build graph.
func (c *Client) NotifyBuildFinished(buildID int64, chain *graph.Snapshot) (*api.BuildFinishedResponse, error) {
	res := &api.BuildFinishedResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetError(res).
		SetBody(api.BuildFinishedRequest{
			BuildID: buildID,
			Chain:   chain,
		}).
		Post("/api/v1/builds/finished")
	if err != nil {
		return nil, err
	}

	if !res.Ok {
		return nil, errors.Errorf("failed to notify build %d: %s", buildID, res.Error)
	}

	return res, nil
}

func (c *Client) Stats() (*api.StatsResponse, error) {
	res := &api.StatsResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetError(res).
		Get("/stats")
	if err != nil {
		return nil, err
	}

	if !res.Ok {
		return nil, errors.Errorf("failed to fetch stats: %s", res.Error)
	}

	return res, nil
}
