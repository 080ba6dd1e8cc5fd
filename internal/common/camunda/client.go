// internal/common/camunda/client.go
package camunda

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"comps-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

var (
	ErrBrokerUnavailable = errors.New("ZEEBE_UNAVAILABLE")
	ErrBrokerTimeout     = errors.New("ZEEBE_TIMEOUT")
	ErrBrokerRejected    = errors.New("ZEEBE_REJECTED")
)

// Client wraps the Zeebe gateway client.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// Connect dials the gateway and waits for a topology response, retrying
// transient failures with exponential backoff.
func Connect(ctx context.Context, cfg *ClientConfig, log logger.Logger) (*Client, error) {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	c := &Client{config: cfg}
	err := c.ExecuteWithRetry(ctx, "connect", log, func(ctx context.Context) error {
		zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.GatewayAddress,
			UsePlaintextConnection: cfg.UsePlaintextConnection,
		})
		if err != nil {
			return err
		}

		topoCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
		defer cancel()
		if _, err := zeebeClient.NewTopologyCommand().Send(topoCtx); err != nil {
			zeebeClient.Close()
			return err
		}
		c.client = zeebeClient
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Name() string { return "zeebe" }

// Ping asks the gateway for its topology.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}

// ExecuteWithRetry runs fn until it succeeds, fails with a non-transient
// error, or the retry budget is spent.
func (c *Client) ExecuteWithRetry(ctx context.Context, operation string, log logger.Logger, fn func(context.Context) error) error {
	retry := c.config.RetryConfig
	if retry == nil {
		retry = DefaultRetryConfig
	}

	var lastErr error
	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableZeebeError(err) || attempt == retry.MaxRetries {
			return mapZeebeError(err, operation, attempt)
		}

		delay := backoff(retry, attempt)
		log.Warn("zeebe operation failed, retrying", map[string]interface{}{
			"operation":   operation,
			"attempt":     attempt + 1,
			"maxRetries":  retry.MaxRetries,
			"nextRetryMs": delay.Milliseconds(),
			"error":       err.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("operation %s cancelled after %d attempts: %w", operation, attempt+1, ctx.Err())
		}
	}

	return mapZeebeError(lastErr, operation, retry.MaxRetries)
}

func backoff(retry *RetryConfig, attempt int) time.Duration {
	delay := retry.BaseDelay * time.Duration(1<<attempt)
	if delay <= 0 || delay > retry.MaxDelay {
		delay = retry.MaxDelay
	}
	return delay
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

func mapZeebeError(err error, operation string, attempt int) error {
	lowerMsg := strings.ToLower(err.Error())

	detail := fmt.Sprintf("zeebe operation '%s' failed", operation)
	if attempt > 0 {
		detail += fmt.Sprintf(" after %d attempts", attempt+1)
	}

	switch {
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline exceeded"):
		return fmt.Errorf("%w: %s: %v", ErrBrokerTimeout, detail, err)
	case strings.Contains(lowerMsg, "connection refused") ||
		strings.Contains(lowerMsg, "connection reset") ||
		strings.Contains(lowerMsg, "unavailable") ||
		strings.Contains(lowerMsg, "unreachable") ||
		strings.Contains(lowerMsg, "broken pipe"):
		return fmt.Errorf("%w: %s: %v", ErrBrokerUnavailable, detail, err)
	default:
		return fmt.Errorf("%w: %s: %v", ErrBrokerRejected, detail, err)
	}
}
