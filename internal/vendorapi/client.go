package vendorapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"climate_bridge/internal/logger"
	"climate_bridge/internal/models"
)

// DefaultTimeout bounds every vendor HTTP call unless configured otherwise.
const DefaultTimeout = 15 * time.Second

// Vendor RPC command names. All commands are POSTed to the same path with the
// command name in the body; the name doubles as the endpoint in errors.
const (
	rpcPath = "/api/v2/rpc"

	cmdLogin         = "LOGIN"
	cmdListHomes     = "LIST_HOMES"
	cmdGetDataPacket = "GET_DATA_PACKET"
	cmdSetMode       = "SET_MODE"
)

// Config carries the settings for one vendor client.
type Config struct {
	BaseURL  string
	Email    string
	Password string
	// Timeout for vendor HTTP calls; zero selects DefaultTimeout,
	// negative values are rejected.
	Timeout time.Duration
	// TokenFields are extra fields the vendor expects inside the token
	// sub-object of every request; they are preserved alongside the sid.
	TokenFields map[string]any
	Log         *logger.Logger
}

// Client talks to the vendor cloud for a single credential set. It owns the
// cached authentication token; concurrent first users share one in-flight
// login instead of racing.
type Client struct {
	baseURL     string
	email       string
	password    string
	tokenFields map[string]any
	httpClient  *http.Client
	log         *logger.Logger

	mu    sync.Mutex
	token string
	login singleflight.Group
}

// New validates the config and builds a client. No network traffic happens
// here; login is lazy on first authenticated call.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, &ConfigurationError{Setting: "vendor.base_url", Reason: "must not be empty"}
	}
	if cfg.Timeout < 0 {
		return nil, &ConfigurationError{Setting: "vendor.timeout", Reason: "must not be negative"}
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	log := cfg.Log
	if log == nil {
		log = logger.Get(logger.InfoLevel)
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		email:       cfg.Email,
		password:    cfg.Password,
		tokenFields: cfg.TokenFields,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log,
	}, nil
}

// rpcEnvelope is the vendor's outer response shape.
type rpcEnvelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

// Login posts credentials and caches the returned token for the client's
// lifetime. The token is never refreshed proactively; a later vendor
// rejection surfaces as-is.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	raw, err := c.post(ctx, cmdLogin, map[string]any{
		"cmd": cmdLogin,
		"data": map[string]any{
			"email":    email,
			"password": password,
		},
	})
	if err != nil {
		return "", &AuthenticationError{Reason: "login call failed", Err: err}
	}

	var payload struct {
		Token json.RawMessage `json:"token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Token) == 0 {
		return "", &AuthenticationError{Reason: "login response carried no token", Err: err}
	}
	var token string
	if err := json.Unmarshal(payload.Token, &token); err != nil {
		return "", &AuthenticationError{Reason: "unrecognized token shape", Err: err}
	}
	if token == "" {
		return "", &AuthenticationError{Reason: "login response carried an empty token"}
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.log.Debugw("vendor_login_ok", "email", email)
	return token, nil
}

// ensureToken returns the cached token, logging in on first use. Concurrent
// callers collapse into a single login via singleflight.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	v, err, _ := c.login.Do("login", func() (any, error) {
		return c.Login(ctx, c.email, c.password)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ListHomes enumerates the account's homes. A missing or malformed home list
// in the envelope yields an empty slice, not an error.
func (c *Client) ListHomes(ctx context.Context) ([]models.HomeSummary, error) {
	raw, err := c.call(ctx, cmdListHomes, map[string]any{})
	if err != nil {
		return nil, err
	}
	var payload struct {
		Homes []models.HomeSummary `json:"homes"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Homes == nil {
		return []models.HomeSummary{}, nil
	}
	return payload.Homes, nil
}

// dataPacket is the vendor's combined per-home read: three parallel arrays
// keyed by position, the Nth endpoint pairing with the Nth value-group and
// the Nth metadata entry.
type dataPacket struct {
	Endpoints []packetEndpoint     `json:"endpoints"`
	Values    [][]models.ValuePair `json:"values"`
	Metadata  []map[string]any     `json:"metadata"`
}

type packetEndpoint struct {
	ID   *int   `json:"id"`
	Name string `json:"name"`
}

// GetDevices fetches the home's data packet and zips it positionally into
// snapshots. Endpoints without a numeric identifier are skipped.
func (c *Client) GetDevices(ctx context.Context, homeID int) (map[int]models.DeviceSnapshot, error) {
	raw, err := c.call(ctx, cmdGetDataPacket, map[string]any{"home_id": homeID})
	if err != nil {
		return nil, err
	}

	var packet dataPacket
	if err := json.Unmarshal(raw, &packet); err != nil {
		return nil, &ProtocolError{Endpoint: cmdGetDataPacket, Reason: "malformed data packet", Err: err}
	}

	out := make(map[int]models.DeviceSnapshot, len(packet.Endpoints))
	for i, ep := range packet.Endpoints {
		if ep.ID == nil {
			continue
		}
		var values []models.ValuePair
		if i < len(packet.Values) {
			values = packet.Values[i]
		}
		var meta map[string]any
		if i < len(packet.Metadata) {
			meta = packet.Metadata[i]
		}
		out[*ep.ID] = decodeSnapshot(*ep.ID, ep.Name, values, meta)
	}
	return out, nil
}

// GetDeviceStatus fetches the home's devices and selects one.
func (c *Client) GetDeviceStatus(ctx context.Context, homeID, deviceID int) (models.DeviceSnapshot, error) {
	devices, err := c.GetDevices(ctx, homeID)
	if err != nil {
		return models.DeviceSnapshot{}, err
	}
	snap, ok := devices[deviceID]
	if !ok {
		return models.DeviceSnapshot{}, &NotFoundError{Resource: "device", ID: deviceID}
	}
	return snap, nil
}

// SetMode validates the requested settings locally and issues the mode-change
// command. Unmapped "no_change" fields are omitted from the request.
func (c *Client) SetMode(ctx context.Context, deviceID int, settings models.ModeSettings) (json.RawMessage, error) {
	settings = WithDefaults(settings)
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	data := map[string]any{
		"id":    deviceID,
		"flags": *settings.Flags,
	}
	if code, ok := ModeCode(settings.Mode); ok {
		data["mode"] = code
	}
	if code, ok := FanCode(settings.Fan); ok {
		data["fan"] = code
	}
	if settings.TargetTempC != nil {
		data["target_temp"] = *settings.TargetTempC
	}
	return c.call(ctx, cmdSetMode, data)
}

// call issues an authenticated command: it resolves the token and attaches it
// under the token sub-object, preserving any configured token fields.
func (c *Client) call(ctx context.Context, cmd string, data map[string]any) (json.RawMessage, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	tokenObj := make(map[string]any, len(c.tokenFields)+1)
	for k, v := range c.tokenFields {
		tokenObj[k] = v
	}
	tokenObj["sid"] = token

	return c.post(ctx, cmd, map[string]any{
		"cmd":   cmd,
		"data":  data,
		"token": tokenObj,
	})
}

// post sends one RPC body and unwraps the response envelope.
func (c *Client) post(ctx context.Context, endpoint string, body any) (json.RawMessage, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, &ProtocolError{Endpoint: endpoint, Reason: "request body not serializable", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+rpcPath, bytes.NewReader(encoded))
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debugw("vendor_call", "cmd", endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Endpoint: endpoint, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &UpstreamError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	var env rpcEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, &ProtocolError{Endpoint: endpoint, Reason: "response is not a structured payload", Err: err}
	}
	if env.Status != 0 {
		return nil, &UpstreamError{Endpoint: endpoint, Status: env.Status}
	}
	return env.Data, nil
}
