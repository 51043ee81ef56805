// Package ws implements the WebSocket frontend: a single
// {id, type, payload} request frame multiplexed over one connection,
// answered with {id, success, data?|error?}, built on gorilla/websocket.
package ws

import "encoding/json"

// RequestFrame is one client request multiplexed on the connection.
type RequestFrame struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ResponseFrame answers a RequestFrame by ID.
type ResponseFrame struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Request types recognised by Server.dispatch, mirroring the HTTP routes
// in internal/transport/http.
const (
	TypeReceive = "receive"
	TypeRead    = "read"
	TypeList    = "list"
	TypeDelete  = "delete"
	TypeHealth  = "health"
	TypeSchema  = "schema"
)
