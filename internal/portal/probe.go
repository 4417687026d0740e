package portal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// ProbeConfig controls the startup reachability check.
type ProbeConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Probe issues one plain HTTP GET against the portal before any browser is
// started. An unreachable portal is an unrecoverable startup error, so
// failing here keeps the run from spinning up workers that can only fail.
func Probe(ctx context.Context, cfg ProbeConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("probe: base url is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	collector := colly.NewCollector(colly.Async(false))
	if cfg.UserAgent != "" {
		collector.UserAgent = cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(timeout)

	var (
		status   int
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(cfg.BaseURL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("probe canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("portal unreachable: %w", err)
		}
	}
	if fetchErr != nil {
		return fmt.Errorf("portal unreachable: %w", fetchErr)
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return fmt.Errorf("portal responded with status %d", status)
	}
	return nil
}
