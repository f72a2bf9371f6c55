package intake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/go-units"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/cichain/api"
	lf "github.com/bigredeye/cichain/internal/logfield"
)

const (
	DefaultEndpointFormat = "https://webhook-intake.%s/api/v2/webhook"
	ProviderName          = "teamcity"

	APIKeyHeader       = "DD-API-KEY"
	ProviderNameHeader = "DD-CI-PROVIDER-NAME"
)

// Credentials select the intake and authenticate against it.
type Credentials struct {
	APIKey string
	Site   string
}

type Settings struct {
	// EndpointFormat gets the site as its only argument.
	EndpointFormat string
	MaxRetries     int
	Backoff        time.Duration
	Timeout        time.Duration
}

type Client struct {
	client   *resty.Client
	settings Settings
	metrics  *Metrics
	logger   *zap.Logger
}

func NewClient(settings Settings, metrics *Metrics, logger *zap.Logger) *Client {
	if settings.EndpointFormat == "" {
		settings.EndpointFormat = DefaultEndpointFormat
	}

	// Retries are driven by Deliver, not by resty.
	client := resty.New().
		SetTimeout(settings.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader(ProviderNameHeader, ProviderName)

	return &Client{
		client:   client,
		settings: settings,
		metrics:  metrics,
		logger:   logger.Named("intake"),
	}
}

func (c *Client) Endpoint(site string) string {
	return fmt.Sprintf(c.settings.EndpointFormat, site)
}

// Deliver POSTs webhook until the intake accepts it. Server errors and
// transport errors are retried after a constant backoff, anything else is
// final. Failures are logged and reported as false.
func (c *Client) Deliver(webhook api.Webhook, creds Credentials) bool {
	level := string(webhook.WebhookLevel())
	url := c.Endpoint(creds.Site)
	log := c.logger.With(lf.WebhookID(webhook.ID()), lf.Level(level), lf.URL(url))

	payload, err := json.Marshal(webhook)
	if err != nil {
		log.Error("Failed to serialize webhook", zap.Error(err))
		c.metrics.failed.WithLabelValues(level).Inc()
		return false
	}

	start := time.Now()
	attempt := 0
	operation := func() error {
		attempt++
		resp, err := c.client.R().
			SetHeader(APIKeyHeader, creds.APIKey).
			SetBody(payload).
			Post(url)
		if err != nil {
			c.metrics.attempts.WithLabelValues(outcomeTransport).Inc()
			return errors.Wrap(err, "Failed to send webhook")
		}

		code := resp.StatusCode()
		switch {
		case code >= http.StatusOK && code < http.StatusMultipleChoices:
			c.metrics.attempts.WithLabelValues(outcomeSuccess).Inc()
			return nil
		case code >= http.StatusInternalServerError:
			c.metrics.attempts.WithLabelValues(outcomeServer).Inc()
			return errors.Errorf("Intake responded with %d", code)
		default:
			c.metrics.attempts.WithLabelValues(outcomeRejected).Inc()
			return backoff.Permanent(errors.Errorf("Intake rejected webhook with %d", code))
		}
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.settings.Backoff), uint64(c.settings.MaxRetries))
	notify := func(err error, wait time.Duration) {
		log.Warn("Failed to deliver webhook, retrying",
			lf.Attempt(attempt),
			lf.MaxRetries(c.settings.MaxRetries),
			lf.Backoff(wait),
			zap.Error(err),
		)
	}

	err = backoff.RetryNotify(operation, policy, notify)
	elapsed := time.Since(start)
	c.metrics.duration.WithLabelValues(level).Observe(elapsed.Seconds())
	if err != nil {
		log.Error("Webhook was not delivered",
			lf.Attempt(attempt),
			zap.String("elapsed", units.HumanDuration(elapsed)),
			zap.Error(err),
		)
		c.metrics.failed.WithLabelValues(level).Inc()
		return false
	}

	log.Info("Webhook delivered", lf.Attempt(attempt))
	c.metrics.delivered.WithLabelValues(level).Inc()
	return true
}
