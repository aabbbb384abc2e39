package thingsboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/TerraNova4697/wialon-citypoint/internal/bridge/core/model"
	"github.com/TerraNova4697/wialon-citypoint/pkg/log"
)

// AlarmClient talks to the platform's REST API to raise alarms against
// devices. The login token is cached and refreshed on a 401.
type AlarmClient struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	log      log.Logger

	mu    sync.Mutex
	token string
}

// NewAlarmClient creates a REST alarm client.
func NewAlarmClient(baseURL, username, password string, timeout time.Duration, logger log.Logger) *AlarmClient {
	return &AlarmClient{
		baseURL:  baseURL,
		username: username,
		password: password,
		http:     &http.Client{Timeout: timeout},
		log:      logger.WithName("tb-rest"),
	}
}

// deviceID is the platform's entity reference.
type deviceID struct {
	EntityType string `json:"entityType"`
	ID         string `json:"id"`
}

type device struct {
	ID   deviceID `json:"id"`
	Name string   `json:"name"`
}

// restAlarm is the platform's alarm object.
type restAlarm struct {
	Type       string         `json:"type"`
	Name       string         `json:"name"`
	Severity   string         `json:"severity"`
	StartTS    int64          `json:"startTs"`
	Details    map[string]any `json:"details"`
	Originator deviceID       `json:"originator"`
	Status     string         `json:"status"`
	Propagate  bool           `json:"propagate"`
}

// PostAlarm looks the device up by name and raises an ACTIVE_UNACK
// alarm against it.
func (c *AlarmClient) PostAlarm(ctx context.Context, deviceName string, alarm model.Alarm) error {
	dev, err := c.tenantDevice(ctx, deviceName)
	if err != nil {
		return err
	}

	body := restAlarm{
		Type:       alarm.Title,
		Name:       alarm.Title,
		Severity:   string(alarm.Severity),
		StartTS:    alarm.CreatedAt * 1000,
		Details:    map[string]any{"message": alarm.Message},
		Originator: dev.ID,
		Status:     "ACTIVE_UNACK",
		Propagate:  true,
	}

	var ignored json.RawMessage
	return c.do(ctx, http.MethodPost, "/api/alarm", body, &ignored)
}

// tenantDevice fetches a device by its name.
func (c *AlarmClient) tenantDevice(ctx context.Context, name string) (*device, error) {
	var dev device
	path := "/api/tenant/devices?deviceName=" + url.QueryEscape(name)
	if err := c.do(ctx, http.MethodGet, path, nil, &dev); err != nil {
		return nil, err
	}
	if dev.ID.ID == "" {
		return nil, fmt.Errorf("thingsboard: device %q not found", name)
	}
	return &dev, nil
}

// do performs one authenticated request, logging in first when no
// token is cached and retrying once after a 401.
func (c *AlarmClient) do(ctx context.Context, method, path string, body, out any) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.ensureToken(ctx, attempt > 0)
		if err != nil {
			return err
		}

		status, err := c.request(ctx, method, path, token, body, out)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			continue
		}
		if status >= 300 {
			return fmt.Errorf("thingsboard: %s %s: status %d", method, path, status)
		}
		return nil
	}
	return fmt.Errorf("thingsboard: %s %s: unauthorized after relogin", method, path)
}

func (c *AlarmClient) ensureToken(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && !force {
		return c.token, nil
	}

	creds, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(creds))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("thingsboard: login failed: status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	c.token = result.Token
	return c.token, nil
}

func (c *AlarmClient) request(ctx context.Context, method, path, token string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, nil
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
