// Package wialon adapts the Wialon remote API to the core's source
// contract. Wialon is the session provider: token/login yields a
// session id, polled units are registered on the session with
// update_data_flags, and events arrive on an avl_evts long-poll tied
// to that session.
package wialon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

// client is a thin caller for the remote API. All requests go through
// the single ajax endpoint with svc/params/sid query parameters.
type client struct {
	baseURL string
	token   string
	http    *http.Client
	log     log.Logger

	mu  sync.Mutex
	sid string
}

func newClient(baseURL, token string, timeout time.Duration, logger log.Logger) *client {
	return &client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     logger,
	}
}

func (c *client) sessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sid
}

func (c *client) setSessionID(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sid = sid
}

// call performs one svc request. Network failures come back as
// TransientError; API-level errors as plain errors with the Wialon
// error code.
func (c *client) call(ctx context.Context, svc string, params, out any) error {
	encoded, err := json.Marshal(params)
	if err != nil {
		return err
	}

	u := c.baseURL + "/wialon/ajax.html?svc=" + svc +
		"&params=" + url.QueryEscape(string(encoded))
	if sid := c.sessionID(); sid != "" {
		u += "&sid=" + sid
	}

	return c.get(ctx, svc, u, out)
}

// longPoll performs one avl_evts request, blocking server-side until
// events arrive or the server times the poll out.
func (c *client) longPoll(ctx context.Context, out *avlEventsResponse) error {
	u := c.baseURL + "/avl_evts?sid=" + c.sessionID()
	return c.get(ctx, "avl_evts", u, out)
}

func (c *client) get(ctx context.Context, op, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Transient(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Transient(op, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Transient(op, err)
	}

	// The API reports failures as 200 with an error body.
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		return fmt.Errorf("wialon: %s: error %d %s", op, apiErr.Error, apiErr.Reason)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("wialon: %s: decode: %w", op, err)
		}
	}
	return nil
}

// reset drops idle connections so the next call opens a fresh one.
// The session id survives; only the transport is rebuilt.
func (c *client) reset() {
	c.http.CloseIdleConnections()
}
