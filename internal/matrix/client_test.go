package matrix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type fakeHomeserver struct {
	mu    sync.Mutex
	sent  []messageContent
	txns  []string
	token string
}

func (f *fakeHomeserver) handler() http.Handler {
	mux := http.NewServeMux()
	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+f.token {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"errcode": "M_UNKNOWN_TOKEN", "error": "bad token"})
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("GET /_matrix/client/v3/account/whoami", auth(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"user_id": "@dxrelay:example.org", "device_id": "RELAYDEV"})
	}))
	mux.HandleFunc("POST /_matrix/client/v3/join/{room}", auth(func(w http.ResponseWriter, r *http.Request) {
		room := r.PathValue("room")
		if room != "!spots:example.org" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"errcode": "M_FORBIDDEN", "error": "not invited"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"room_id": room})
	}))
	mux.HandleFunc("PUT /_matrix/client/v3/rooms/{room}/send/m.room.message/{txn}", auth(func(w http.ResponseWriter, r *http.Request) {
		var content messageContent
		if err := json.NewDecoder(r.Body).Decode(&content); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.sent = append(f.sent, content)
		f.txns = append(f.txns, r.PathValue("txn"))
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{"event_id": "$event"})
	}))
	return mux
}

func newTestClient(t *testing.T, token string) (*Client, *fakeHomeserver) {
	t.Helper()
	hs := &fakeHomeserver{token: "secret"}
	srv := httptest.NewServer(hs.handler())
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{Homeserver: srv.URL + "/", AccessToken: token, UserID: "@dxrelay:example.org"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, hs
}

func TestSendNotice(t *testing.T) {
	c, hs := newTestClient(t, "secret")
	ctx := context.Background()

	for _, text := range []string{"first spot", "second spot"} {
		id, err := c.SendNotice(ctx, "!spots:example.org", text)
		if err != nil {
			t.Fatalf("SendNotice: %v", err)
		}
		if id != "$event" {
			t.Errorf("event ID = %q, want $event", id)
		}
	}

	hs.mu.Lock()
	defer hs.mu.Unlock()
	if len(hs.sent) != 2 {
		t.Fatalf("homeserver received %d messages, want 2", len(hs.sent))
	}
	if hs.sent[0].MsgType != "m.notice" || hs.sent[0].Body != "first spot" {
		t.Errorf("first message = %+v", hs.sent[0])
	}
	if hs.txns[0] == hs.txns[1] {
		t.Errorf("transaction IDs not unique: %v", hs.txns)
	}
}

func TestJoinRoom(t *testing.T) {
	c, _ := newTestClient(t, "secret")

	id, err := c.JoinRoom(context.Background(), "!spots:example.org")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if id != "!spots:example.org" {
		t.Errorf("room ID = %q", id)
	}

	_, err = c.JoinRoom(context.Background(), "!other:example.org")
	if !IsError(err, "M_FORBIDDEN") {
		t.Errorf("JoinRoom(other) = %v, want M_FORBIDDEN", err)
	}
}

func TestWhoAmI(t *testing.T) {
	c, _ := newTestClient(t, "secret")
	id, err := c.WhoAmI(context.Background())
	if err != nil {
		t.Fatalf("WhoAmI: %v", err)
	}
	if id.UserID != "@dxrelay:example.org" || id.DeviceID != "RELAYDEV" {
		t.Errorf("identity = %+v", id)
	}
}

func TestCheckSession(t *testing.T) {
	hs := &fakeHomeserver{token: "secret"}
	srv := httptest.NewServer(hs.handler())
	t.Cleanup(srv.Close)

	tests := []struct {
		name     string
		userID   string
		deviceID string
		wantErr  string
	}{
		{"nothing configured", "", "", ""},
		{"matching user and device", "@dxrelay:example.org", "RELAYDEV", ""},
		{"matching device only", "", "RELAYDEV", ""},
		{"wrong user", "@other:example.org", "", "not @other:example.org"},
		{"wrong device", "@dxrelay:example.org", "OTHERDEV", `not "OTHERDEV"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(Config{Homeserver: srv.URL, AccessToken: "secret", UserID: tt.userID, DeviceID: tt.deviceID})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			err = c.CheckSession(context.Background())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("CheckSession() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("CheckSession() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBadToken(t *testing.T) {
	c, _ := newTestClient(t, "wrong")
	_, err := c.SendNotice(context.Background(), "!spots:example.org", "x")
	if !IsError(err, "M_UNKNOWN_TOKEN") {
		t.Fatalf("SendNotice = %v, want M_UNKNOWN_TOKEN", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q does not include the status code", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{AccessToken: "x"}); err == nil {
		t.Error("NewClient without homeserver succeeded")
	}
	if _, err := NewClient(Config{Homeserver: "https://example.org"}); err == nil {
		t.Error("NewClient without access token succeeded")
	}
}
