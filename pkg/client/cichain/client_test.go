package cichain

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bigredeye/cichain/api"
	"github.com/bigredeye/cichain/internal/graph"
)

func TestNotifyBuildFinished(t *testing.T) {
	var received api.BuildFinishedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/builds/finished" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Invalid body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&api.BuildFinishedResponse{
			Status:   api.Status{Ok: true},
			Webhooks: []string{"2", "1"},
		})
	}))
	defer srv.Close()

	chain := &graph.Snapshot{Builds: []graph.SnapshotBuild{{ID: 2, Name: "Pipeline", Composite: true}}}
	res, err := NewClient(srv.URL).NotifyBuildFinished(2, chain)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"2", "1"}, res.Webhooks); diff != "" {
		t.Fatalf("Invalid webhooks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(api.BuildFinishedRequest{BuildID: 2, Chain: chain}, received); diff != "" {
		t.Fatalf("Invalid request (-want +got):\n%s", diff)
	}
}

func TestNotifyBuildFinishedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(&api.BuildFinishedResponse{
			Status: api.Status{Error: "build not found"},
		})
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).NotifyBuildFinished(7, nil); err == nil {
		t.Fatal("Expected error")
	}
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&api.StatsResponse{
			Status:    api.Status{Ok: true},
			Delivered: 5,
			Failed:    1,
		})
	}))
	defer srv.Close()

	stats, err := NewClient(srv.URL).Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Delivered != 5 || stats.Failed != 1 || stats.InFlight != 0 {
		t.Fatalf("Invalid stats: %+v", stats)
	}
}
