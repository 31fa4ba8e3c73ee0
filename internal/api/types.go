// Package api holds the JSON request and response bodies shared by the API
// server and its client.
package api

type SendMessageRequest struct {
	Text string `json:"text"`
}

type SendMessageResponse struct {
	ID      int64 `json:"id"`
	Backlog int   `json:"backlog"`
}

type MessageInfo struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type ListMessagesResponse struct {
	Messages []MessageInfo `json:"messages"`
}

type StatusResponse struct {
	State   string `json:"state"`
	Host    string `json:"host"`
	Backlog int    `json:"backlog"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
