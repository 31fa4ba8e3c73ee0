package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const sampleSpot = "DX de OH6BG-#:    3516.0  OH8X         CW 25 dB 24 WPM CQ           1146Z"

func TestConsolePlain(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{W: &buf}
	_ = c.Deliver(context.Background(), "a")
	_ = c.Deliver(context.Background(), "b")
	if buf.String() != "a\nb\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestConsoleJSON(t *testing.T) {
	var buf bytes.Buffer
	c := &Console{W: &buf, JSON: true}
	if err := c.Deliver(context.Background(), sampleSpot); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if err := c.Deliver(context.Background(), "not a spot"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}

	var rec struct {
		Line  string `json:"line"`
		Entry *struct {
			Reporter  string  `json:"reporter"`
			Frequency float64 `json:"frequency"`
			DX        string  `json:"dx"`
		} `json:"entry"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Entry == nil || rec.Entry.Reporter != "OH6BG-#" || rec.Entry.DX != "OH8X" || rec.Entry.Frequency != 3516.0 {
		t.Errorf("entry = %+v", rec.Entry)
	}

	rec.Entry = nil
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Line != "not a spot" || rec.Entry != nil {
		t.Errorf("unparsed record = %+v", rec)
	}
}

type fakeRoomClient struct {
	joinErr error
	sendErr error
	sent    []string
}

func (f *fakeRoomClient) JoinRoom(_ context.Context, roomID string) (string, error) {
	if f.joinErr != nil {
		return "", f.joinErr
	}
	return roomID, nil
}

func (f *fakeRoomClient) SendNotice(_ context.Context, roomID, text string) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, roomID+":"+text)
	return "$1", nil
}

func TestRoom(t *testing.T) {
	client := &fakeRoomClient{}
	room, err := JoinRoom(context.Background(), client, "!spots:example.org")
	if err != nil {
		t.Fatalf("JoinRoom: %v", err)
	}
	if room.ID() != "!spots:example.org" {
		t.Errorf("ID = %q", room.ID())
	}
	if err := room.Deliver(context.Background(), "spot"); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(client.sent) != 1 || client.sent[0] != "!spots:example.org:spot" {
		t.Errorf("sent = %v", client.sent)
	}

	client.sendErr = errors.New("rate limited")
	if err := room.Deliver(context.Background(), "spot"); err == nil {
		t.Error("Deliver succeeded with failing client")
	}
}

func TestJoinRoomError(t *testing.T) {
	_, err := JoinRoom(context.Background(), &fakeRoomClient{joinErr: errors.New("forbidden")}, "!x:y")
	if err == nil {
		t.Error("JoinRoom succeeded with failing client")
	}
}
