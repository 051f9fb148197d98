package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"worker/pkg/types"
)

const httpSinkTimeout = 5 * time.Second

// HTTPSink POSTs reports as JSON to the autoscaler.
type HTTPSink struct {
	url    string
	client *resty.Client
}

func NewHTTPSink(url string) *HTTPSink {
	c := resty.New()
	c.SetTimeout(httpSinkTimeout)
	c.SetRetryCount(2)
	c.SetRetryWaitTime(100 * time.Millisecond)
	c.SetRetryMaxWaitTime(time.Second)
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || (r != nil && r.StatusCode() >= 500)
	})
	c.SetTransport(&http.Transport{
		MaxIdleConns:    4,
		IdleConnTimeout: 90 * time.Second,
	})
	c.SetHeader("Content-Type", "application/json")
	return &HTTPSink{url: url, client: c}
}

func (s *HTTPSink) Send(ctx context.Context, r types.TelemetryReport) error {
	resp, err := s.client.R().SetContext(ctx).SetBody(r).Post(s.url)
	if err != nil {
		return fmt.Errorf("telemetry post: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telemetry post: autoscaler returned %d", resp.StatusCode())
	}
	return nil
}

func (s *HTTPSink) Close() error { return nil }
