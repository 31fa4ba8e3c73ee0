package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/rsclarke/dxrelay/internal/dx"
)

// Console writes each line to W. With JSON set, lines are written as one
// JSON object per line carrying the parsed entry when the line matches the
// spot grammar.
type Console struct {
	W    io.Writer
	JSON bool

	mu sync.Mutex
}

type consoleRecord struct {
	Line  string    `json:"line"`
	Entry *dx.Entry `json:"entry,omitempty"`
}

// Deliver implements Sink.
func (c *Console) Deliver(_ context.Context, line string) error {
	out := []byte(line + "\n")
	if c.JSON {
		rec := consoleRecord{Line: line}
		if entry, err := dx.Parse(line); err == nil {
			rec.Entry = &entry
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		out = append(encoded, '\n')
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.W.Write(out)
	return err
}

// RoomClient is the subset of the Matrix client a Room needs.
type RoomClient interface {
	JoinRoom(ctx context.Context, roomID string) (string, error)
	SendNotice(ctx context.Context, roomID, text string) (string, error)
}

// Room posts each line to a chat room as a notice.
type Room struct {
	client RoomClient
	roomID string
}

// JoinRoom joins roomID and returns a sink posting to it.
func JoinRoom(ctx context.Context, client RoomClient, roomID string) (*Room, error) {
	joined, err := client.JoinRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if joined == "" {
		joined = roomID
	}
	return &Room{client: client, roomID: joined}, nil
}

// ID returns the joined room ID.
func (r *Room) ID() string { return r.roomID }

// Deliver implements Sink.
func (r *Room) Deliver(ctx context.Context, line string) error {
	if _, err := r.client.SendNotice(ctx, r.roomID, line); err != nil {
		return fmt.Errorf("relay: post to %s: %w", r.roomID, err)
	}
	return nil
}
