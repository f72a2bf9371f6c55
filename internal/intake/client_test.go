package intake

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/api"
)

var testCreds = Credentials{APIKey: "secret", Site: "datadoghq.com"}

func makeWebhook() api.Webhook {
	return &api.PipelineWebhook{
		Level:      api.LevelPipeline,
		Name:       "Pipeline",
		UniqueID:   "2",
		PipelineID: "2",
		Status:     api.PipelineStatusSuccess,
	}
}

// newIntake answers with codes in order, repeating the last one.
func newIntake(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int64) {
	attempts := atomic.NewInt64(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Inc()
		if r.Method != http.MethodPost || r.URL.Path != "/datadoghq.com/api/v2/webhook" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get(APIKeyHeader) != "secret" || r.Header.Get(ProviderNameHeader) != "teamcity" {
			t.Errorf("Invalid headers: %v", r.Header)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Invalid content type: %s", r.Header.Get("Content-Type"))
		}
		body, _ := io.ReadAll(r.Body)
		webhook := map[string]interface{}{}
		if err := json.Unmarshal(body, &webhook); err != nil || webhook["unique_id"] != "2" {
			t.Errorf("Invalid body: %s", body)
		}

		code := codes[len(codes)-1]
		if int(n) <= len(codes) {
			code = codes[n-1]
		}
		w.WriteHeader(code)
	}))
	t.Cleanup(server.Close)
	return server, attempts
}

func makeClient(endpoint string, maxRetries int) *Client {
	return NewClient(Settings{
		EndpointFormat: endpoint + "/%s/api/v2/webhook",
		MaxRetries:     maxRetries,
		Backoff:        time.Millisecond,
		Timeout:        time.Second,
	}, NewMetrics(prometheus.NewRegistry()), zap.NewNop())
}

func checkDelivery(t *testing.T, maxRetries int, codes []int, expectedOk bool, expectedAttempts int64) {
	server, attempts := newIntake(t, codes...)
	ok := makeClient(server.URL, maxRetries).Deliver(makeWebhook(), testCreds)
	if ok != expectedOk {
		t.Fatalf("Invalid delivery result for %v: %v, expected: %v", codes, ok, expectedOk)
	}
	if attempts.Load() != expectedAttempts {
		t.Fatalf("Invalid number of attempts for %v: %d, expected: %d", codes, attempts.Load(), expectedAttempts)
	}
}

func TestDeliver(t *testing.T) {
	checkDelivery(t, 3, []int{http.StatusOK}, true, 1)
	checkDelivery(t, 3, []int{http.StatusAccepted}, true, 1)
	checkDelivery(t, 3, []int{500, 502, http.StatusAccepted}, true, 3)
	checkDelivery(t, 3, []int{503}, false, 4)
	checkDelivery(t, 0, []int{503}, false, 1)
	checkDelivery(t, 3, []int{http.StatusBadRequest}, false, 1)
	checkDelivery(t, 3, []int{500, http.StatusForbidden}, false, 2)
}

func TestDeliverTransportError(t *testing.T) {
	server, _ := newIntake(t, http.StatusOK)
	server.Close()

	if makeClient(server.URL, 2).Deliver(makeWebhook(), testCreds) {
		t.Fatal("Delivery to a closed server must fail")
	}
}

func TestEndpoint(t *testing.T) {
	client := NewClient(Settings{}, NewMetrics(prometheus.NewRegistry()), zap.NewNop())
	if diff := cmp.Diff("https://webhook-intake.datadoghq.eu/api/v2/webhook", client.Endpoint("datadoghq.eu")); diff != "" {
		t.Fatalf("Invalid endpoint (-want +got):\n%s", diff)
	}
}
