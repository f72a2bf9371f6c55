package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/api"
	"github.com/bigredeye/cichain/internal/app"
	"github.com/bigredeye/cichain/internal/config"
	"github.com/bigredeye/cichain/internal/graph"
	"github.com/bigredeye/cichain/internal/intake"
	"github.com/bigredeye/cichain/internal/projects"
)

const chainYAML = `
builds:
  - id: 1
    name: Build
    status: normal
    queued: 3500
    started: 4000
    finished: 4500
  - id: 2
    name: Pipeline
    composite: true
    status: normal
    started: 5000
    finished: 6000
    dependencies: [1]
  - id: 3
    name: Broken
    composite: true
    status: unknown
    started: 5000
    finished: 6000
`

type acceptingDeliverer struct{}

func (acceptingDeliverer) Deliver(webhook api.Webhook, creds intake.Credentials) bool {
	return true
}

func makeEngine(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	snapshot, err := graph.ParseSnapshot([]byte(chainYAML))
	if err != nil {
		t.Fatal(err)
	}
	g, err := graph.NewMemoryGraph(snapshot)
	if err != nil {
		t.Fatal(err)
	}

	enabled := true
	cfg := &config.Config{}
	cfg.Server.RootURL = "ci.example.com"
	cfg.Intake.Workers = 2
	cfg.Projects.Source = config.SourceConfig
	cfg.Projects.CacheTTL = time.Minute
	cfg.Projects.Root = projects.ProjectConfig{APIKey: "key", Site: "datadoghq.com", Enabled: &enabled}
	cfg.Graph.Source = config.SourceDataBase

	logger := zap.NewNop()
	a, err := app.New(cfg, logger, app.WithGraph(g), app.WithDeliverer(acceptingDeliverer{}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.Close)

	return newServer(cfg, logger, a.Processor, a.Registry).engine()
}

func post(t *testing.T, r *gin.Engine, body interface{}) (int, *api.BuildFinishedResponse) {
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/builds/finished", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	res := &api.BuildFinishedResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), res); err != nil {
		t.Fatalf("Invalid response %q: %v", w.Body.String(), err)
	}
	return w.Code, res
}

func TestBuildFinished(t *testing.T) {
	r := makeEngine(t)

	code, res := post(t, r, &api.BuildFinishedRequest{BuildID: 2})
	if code != http.StatusOK || !res.Ok || res.Ignored {
		t.Fatalf("Invalid response: %d %+v", code, res)
	}
	if diff := cmp.Diff([]string{"2", "1"}, res.Webhooks); diff != "" {
		t.Fatalf("Invalid webhooks (-want +got):\n%s", diff)
	}

	code, res = post(t, r, &api.BuildFinishedRequest{BuildID: 1})
	if code != http.StatusOK || !res.Ok || !res.Ignored || len(res.Webhooks) != 0 {
		t.Fatalf("Job build must be ignored: %d %+v", code, res)
	}
}

func TestBuildFinishedInlineChain(t *testing.T) {
	r := makeEngine(t)

	finished := int64(9000)
	code, res := post(t, r, &api.BuildFinishedRequest{
		BuildID: 20,
		Chain: &graph.Snapshot{Builds: []graph.SnapshotBuild{{
			ID:        20,
			Name:      "Inline",
			Composite: true,
			Status:    "failure",
			Started:   8000,
			Finished:  &finished,
		}}},
	})
	if code != http.StatusOK || !res.Ok {
		t.Fatalf("Invalid response: %d %+v", code, res)
	}
	if diff := cmp.Diff([]string{"20"}, res.Webhooks); diff != "" {
		t.Fatalf("Invalid webhooks (-want +got):\n%s", diff)
	}
}

func TestBuildFinishedErrors(t *testing.T) {
	r := makeEngine(t)

	for _, tc := range []struct {
		body interface{}
		code int
	}{
		{&api.BuildFinishedRequest{BuildID: 404}, http.StatusNotFound},
		{&api.BuildFinishedRequest{BuildID: 3}, http.StatusUnprocessableEntity},
		{"not an object", http.StatusBadRequest},
		{&api.BuildFinishedRequest{BuildID: 1, Chain: &graph.Snapshot{Builds: []graph.SnapshotBuild{{ID: 1}, {ID: 1}}}}, http.StatusBadRequest},
	} {
		code, res := post(t, r, tc.body)
		if code != tc.code || res.Ok || res.Error == "" {
			t.Fatalf("Invalid response for %+v: %d %+v, expected code %d", tc.body, code, res, tc.code)
		}
	}
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServiceEndpoints(t *testing.T) {
	r := makeEngine(t)

	if w := get(r, "/ping"); w.Code != http.StatusOK || !strings.HasPrefix(w.Body.String(), "pong ") {
		t.Fatalf("Invalid ping response: %d %s", w.Code, w.Body.String())
	}

	w := get(r, "/stats")
	stats := &api.StatsResponse{}
	if err := json.Unmarshal(w.Body.Bytes(), stats); err != nil || w.Code != http.StatusOK || !stats.Ok {
		t.Fatalf("Invalid stats response: %d %s", w.Code, w.Body.String())
	}

	if w := get(r, "/metrics"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "cichain_intake_in_flight") {
		t.Fatalf("Invalid metrics response: %d", w.Code)
	}
}
