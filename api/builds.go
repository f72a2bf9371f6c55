package api

import "github.com/bigredeye/cichain/internal/graph"

// IDs are numbers here, the host reports them that way
type BuildFinishedRequest struct {
	BuildID int64 `json:"build_id" form:"build_id"`
	// Chain, when set, replaces the configured build graph for this request.
	Chain *graph.Snapshot `json:"chain,omitempty"`
}

type BuildFinishedResponse struct {
	Status
	Ignored  bool     `json:"ignored,omitempty"`
	Webhooks []string `json:"webhooks,omitempty"`
}

type StatsResponse struct {
	Status
	InFlight  int64 `json:"in_flight"`
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}
