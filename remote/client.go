package remote

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the remote row store over REST, with change feeds
// delivered as server-sent events. Rows live at {base}/{table}; the change
// feed for a table streams from {base}/{table}/events.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	// streamClient has no overall timeout so SSE connections can live
	// until the subscription is torn down.
	streamClient *http.Client
	logger       *slog.Logger
}

// NewClient creates a Client for the store rooted at baseURL.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		streamClient: &http.Client{},
		logger:       logger,
	}
}

func (c *Client) do(ctx context.Context, op, method, path, table string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Op: op, Table: table, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &Error{Op: op, Table: table, Err: fmt.Errorf("build request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Table: table, Err: err}
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &Error{
			Op:     op,
			Table:  table,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", strings.TrimSpace(string(msg))),
		}
	}
	return resp, nil
}

// Insert creates a row.
func (c *Client) Insert(ctx context.Context, table string, row Row) error {
	resp, err := c.do(ctx, "insert", http.MethodPost, "/"+table, table, row)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Update overwrites the row with the given id.
func (c *Client) Update(ctx context.Context, table, id string, row Row) error {
	resp, err := c.do(ctx, "update", http.MethodPatch, "/"+table+"/"+url.PathEscape(id), table, row)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Delete removes the row with the given id.
func (c *Client) Delete(ctx context.Context, table, id string) error {
	resp, err := c.do(ctx, "delete", http.MethodDelete, "/"+table+"/"+url.PathEscape(id), table, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// SelectByOwner returns every row scoped to ownerID.
func (c *Client) SelectByOwner(ctx context.Context, table, ownerID string) ([]Row, error) {
	path := fmt.Sprintf("/%s?owner_id=%s", table, url.QueryEscape(ownerID))
	resp, err := c.do(ctx, "select", http.MethodGet, path, table, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, &Error{Op: "select", Table: table, Err: fmt.Errorf("decode rows: %w", err)}
	}
	return rows, nil
}

// Ping probes the store's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, "ping", http.MethodGet, "/health", "", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Subscribe opens the table's SSE change feed and invokes fn for every
// delivered change. The feed is re-opened with a short backoff after
// transport errors until unsubscribe is called or ctx is canceled.
func (c *Client) Subscribe(ctx context.Context, table string, fn func(Change)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			if err := c.stream(ctx, table, fn); err != nil && ctx.Err() == nil {
				c.logger.Warn("change feed dropped", "table", table, "err", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
	return cancel, nil
}

// stream reads one SSE connection until it breaks or ctx is canceled.
func (c *Client) stream(ctx context.Context, table string, fn func(Change)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+table+"/events", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var change Change
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &change); err != nil {
			c.logger.Warn("bad change frame", "table", table, "err", err)
			continue
		}
		fn(change)
	}
	return scanner.Err()
}
