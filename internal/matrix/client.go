// Package matrix is a minimal Matrix client-server API client: it joins a
// room with a pre-issued access token and posts notices to it.
package matrix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// Error is a structured error response from the homeserver.
type Error struct {
	Code       string `json:"errcode"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("matrix: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsError reports whether err is an *Error with the given errcode.
func IsError(err error, code string) bool {
	var mErr *Error
	if errors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// Config holds the session to restore. Tokens are issued out of band.
type Config struct {
	Homeserver  string
	AccessToken string
	UserID      string
	DeviceID    string
	HTTPClient  *http.Client
}

// Client posts to a homeserver as one user.
type Client struct {
	baseURL     string
	accessToken string
	userID      string
	deviceID    string
	httpClient  *http.Client

	txnPrefix string
	txnSeq    atomic.Uint64
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Homeserver == "" {
		return nil, errors.New("matrix: homeserver is required")
	}
	if _, err := url.Parse(cfg.Homeserver); err != nil {
		return nil, fmt.Errorf("matrix: invalid homeserver %q: %w", cfg.Homeserver, err)
	}
	if cfg.AccessToken == "" {
		return nil, errors.New("matrix: access token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.Homeserver, "/"),
		accessToken: cfg.AccessToken,
		userID:      cfg.UserID,
		deviceID:    cfg.DeviceID,
		httpClient:  httpClient,
		txnPrefix:   "dxrelay" + strconv.FormatInt(time.Now().UnixNano(), 36),
	}, nil
}

// Identity is the owner of an access token as reported by the homeserver.
type Identity struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

// WhoAmI returns the user and device the access token belongs to.
func (c *Client) WhoAmI(ctx context.Context) (Identity, error) {
	body, err := c.do(ctx, http.MethodGet, "/_matrix/client/v3/account/whoami", nil)
	if err != nil {
		return Identity{}, fmt.Errorf("matrix: whoami: %w", err)
	}
	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return Identity{}, fmt.Errorf("matrix: parse whoami response: %w", err)
	}
	return id, nil
}

// CheckSession confirms the access token belongs to the configured user
// and device. Unset fields are not checked.
func (c *Client) CheckSession(ctx context.Context) error {
	if c.userID == "" && c.deviceID == "" {
		return nil
	}
	id, err := c.WhoAmI(ctx)
	if err != nil {
		return err
	}
	if c.userID != "" && id.UserID != c.userID {
		return fmt.Errorf("matrix: access token belongs to %s, not %s", id.UserID, c.userID)
	}
	if c.deviceID != "" && id.DeviceID != c.deviceID {
		return fmt.Errorf("matrix: access token is for device %q, not %q", id.DeviceID, c.deviceID)
	}
	return nil
}

// JoinRoom joins roomID (or accepts a pending invite) and returns the
// canonical room ID.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (string, error) {
	path := "/_matrix/client/v3/join/" + url.PathEscape(roomID)
	body, err := c.do(ctx, http.MethodPost, path, struct{}{})
	if err != nil {
		return "", fmt.Errorf("matrix: join %s: %w", roomID, err)
	}
	var resp struct {
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("matrix: parse join response: %w", err)
	}
	return resp.RoomID, nil
}

type messageContent struct {
	MsgType string `json:"msgtype"`
	Body    string `json:"body"`
}

// SendNotice posts text as an m.notice message and returns the event ID.
func (c *Client) SendNotice(ctx context.Context, roomID, text string) (string, error) {
	txn := c.txnPrefix + "." + strconv.FormatUint(c.txnSeq.Add(1), 10)
	path := fmt.Sprintf("/_matrix/client/v3/rooms/%s/send/m.room.message/%s",
		url.PathEscape(roomID), url.PathEscape(txn))

	body, err := c.do(ctx, http.MethodPut, path, messageContent{MsgType: "m.notice", Body: text})
	if err != nil {
		return "", fmt.Errorf("matrix: send to %s: %w", roomID, err)
	}
	var resp struct {
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("matrix: parse send response: %w", err)
	}
	return resp.EventID, nil
}

func (c *Client) do(ctx context.Context, method, path string, reqBody any) ([]byte, error) {
	var body io.Reader
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}

	mErr := &Error{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(respBody, mErr); err != nil || mErr.Code == "" {
		return nil, fmt.Errorf("unexpected %d response: %s", resp.StatusCode, respBody)
	}
	return nil, mErr
}
