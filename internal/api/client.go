package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const baseURL = "https://hacker-news.firebaseio.com/v0"

// Client is the HN API client. It performs network I/O only: no
// caching, no per-id dedup (the cache layer owns both). Safe for
// concurrent use; a semaphore caps simultaneous outstanding requests,
// excess callers queue in arrival order.
type Client struct {
	http    *http.Client
	baseURL string
	sem     chan struct{}
	log     *zap.Logger
}

// NewClient creates a client capped at maxConcurrent in-flight requests.
func NewClient(timeout time.Duration, maxConcurrent int, log *zap.Logger) *Client {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		sem:     make(chan struct{}, maxConcurrent),
		log:     log,
	}
}

// SetBaseURL overrides the API endpoint. Used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

// get fetches url and decodes the JSON response into dst.
// A literal null body is reported as ErrNotFound.
func (c *Client) get(ctx context.Context, url string, dst interface{}) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return &NetworkError{URL: url, Err: ctx.Err()}
	}
	defer func() { <-c.sem }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", "lurk/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &NetworkError{URL: url, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{URL: url, Err: err}
	}
	if bytes.Equal(bytes.TrimSpace(body), []byte("null")) {
		return ErrNotFound
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}

// FetchItem fetches a single item by id.
func (c *Client) FetchItem(ctx context.Context, id int) (*Item, error) {
	url := fmt.Sprintf("%s/item/%d.json", c.baseURL, id)
	var item Item
	if err := c.get(ctx, url, &item); err != nil {
		c.log.Debug("item fetch failed", zap.Int("id", id), zap.Error(err))
		return nil, err
	}
	if item.ID == 0 {
		return nil, ErrNotFound
	}
	return &item, nil
}

// BatchResult is one item of a batch fetch, in input order. Item and
// Err are mutually exclusive.
type BatchResult struct {
	ID   int
	Item *Item
	Err  error
}

// BatchFetchItems fetches multiple items concurrently, bounded by the
// client's request cap. Results keep input order; a failed fetch
// carries its error in place. Only context cancellation aborts the
// whole batch.
func (c *Client) BatchFetchItems(ctx context.Context, ids []int) ([]BatchResult, error) {
	results := make([]BatchResult, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cap(c.sem))

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			item, err := c.FetchItem(ctx, id)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			results[i] = BatchResult{ID: id, Item: item, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
