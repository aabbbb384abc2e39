// Package citypoint adapts the CityPoint REST API to the core's
// source contract. CityPoint is the interval-polled provider: OAuth
// password grant with refresh, JSON:API envelopes, and timestamps in
// a localized wall-clock zone corrected by a configured offset.
package citypoint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

// client holds the OAuth token state and performs authenticated
// JSON:API requests.
type client struct {
	baseURL      string
	login        string
	password     string
	clientID     string
	clientSecret string
	http         *http.Client
	log          log.Logger

	mu           sync.Mutex
	tokenType    string
	accessToken  string
	refreshToken string
	userID       string
	expiresAt    time.Time
}

func newClient(baseURL, login, password, clientID, clientSecret string, timeout time.Duration, logger log.Logger) *client {
	return &client{
		baseURL:      baseURL,
		login:        login,
		password:     password,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: timeout},
		log:          logger,
	}
}

// authenticate performs the password grant. A 4xx means rejected
// credentials (ok=false); transport failures are transient.
func (c *client) authenticate(ctx context.Context) (bool, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"username":      {c.login},
		"password":      {c.password},
	}
	return c.grant(ctx, form)
}

// refresh exchanges the refresh token for a new access token, falling
// back to the password grant when the refresh token was invalidated.
func (c *client) refresh(ctx context.Context) error {
	c.mu.Lock()
	token := c.refreshToken
	c.mu.Unlock()

	if token != "" {
		form := url.Values{
			"grant_type":    {"refresh_token"},
			"client_id":     {c.clientID},
			"client_secret": {c.clientSecret},
			"refresh_token": {token},
		}
		ok, err := c.grant(ctx, form)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		c.log.Warn("refresh token rejected, re-running password grant")
	}

	ok, err := c.authenticate(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("citypoint: credentials rejected")
	}
	return nil
}

func (c *client) grant(ctx context.Context, form url.Values) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, core.Transient("oauth/token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return false, core.Transient("oauth/token", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 300 {
		return false, nil
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return false, fmt.Errorf("citypoint: token decode: %w", err)
	}
	return true, c.applyToken(token)
}

// applyToken stores the grant and extracts the user id claim the API
// paths are scoped by. The signature is not verified: the token is
// consumed, not issued, here.
func (c *client) applyToken(token tokenResponse) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token.AccessToken, claims); err != nil {
		return fmt.Errorf("citypoint: access token parse: %w", err)
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		if id, ok := claims["user_id"].(float64); ok {
			userID = fmt.Sprintf("%.0f", id)
		}
	}
	if userID == "" {
		return fmt.Errorf("citypoint: access token has no user_id claim")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenType = token.TokenType
	c.accessToken = token.AccessToken
	c.refreshToken = token.RefreshToken
	c.userID = userID
	c.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return nil
}

func (c *client) tokenValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken != "" && time.Now().Before(c.expiresAt)
}

func (c *client) authHeader() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenType + " " + c.accessToken
}

func (c *client) user() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// get performs one authenticated request, refreshing the token first
// when it has expired. path is relative to the user scope unless
// global is set.
func (c *client) get(ctx context.Context, path string, global bool, out *document) error {
	if !c.tokenValid() {
		if err := c.refresh(ctx); err != nil {
			return err
		}
	}

	u := c.baseURL + "/user/" + c.user() + path
	if global {
		u = c.baseURL + path
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	req.Header.Set("Authorization", c.authHeader())

	resp, err := c.http.Do(req)
	if err != nil {
		return core.Transient(path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return core.Transient(path, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("citypoint: GET %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("citypoint: GET %s: decode: %w", path, err)
	}
	return nil
}

// reset drops idle connections after a transient failure.
func (c *client) reset() {
	c.http.CloseIdleConnections()
}
