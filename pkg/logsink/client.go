// Package logsink ships log entries to a remote collector. Delivery is best
// effort: entries are queued, sent by one background worker, and dropped on
// any failure.
package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Siddarth2230/shortlink/pkg/metrics"
)

const (
	StackBackend = "backend"

	DefaultQueueSize = 256
	DefaultTimeout   = 5 * time.Second

	drainTimeout = 2 * time.Second
)

// Entry is the body accepted by the collector.
type Entry struct {
	Stack   string `json:"stack"`
	Level   string `json:"level"`
	Package string `json:"package"`
	Message string `json:"message"`
}

type Client struct {
	endpoint   string
	token      string
	stack      string
	httpClient *http.Client
	queue      chan Entry
}

type Option func(*Client)

// WithToken sends the token as a Bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithQueueSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.queue = make(chan Entry, n)
		}
	}
}

func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		stack:      StackBackend,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		queue:      make(chan Entry, DefaultQueueSize),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Log enqueues e without blocking. The entry is dropped when the queue is full.
func (c *Client) Log(e Entry) {
	if e.Stack == "" {
		e.Stack = c.stack
	}
	select {
	case c.queue <- e:
	default:
		metrics.LogSinkDropped.WithLabelValues("queue_full").Inc()
	}
}

// Run delivers queued entries until ctx is done, then makes a bounded attempt
// to flush what is left. It always returns nil.
func (c *Client) Run(ctx context.Context) error {
	// in-flight sends are bounded by the HTTP client timeout, not by shutdown
	sendCtx := context.WithoutCancel(ctx)
	for {
		select {
		case e := <-c.queue:
			c.send(sendCtx, e)
		case <-ctx.Done():
			c.drain()
			return nil
		}
	}
}

func (c *Client) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case e := <-c.queue:
			c.send(ctx, e)
		default:
			return
		}
	}
}

func (c *Client) send(ctx context.Context, e Entry) {
	if err := c.post(ctx, e); err != nil {
		metrics.LogSinkDropped.WithLabelValues("send_failed").Inc()
	}
}

func (c *Client) post(ctx context.Context, e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("log sink responded %s", resp.Status)
	}
	return nil
}
