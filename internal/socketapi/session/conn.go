package session

import "time"

// Conn is the subset of *gorilla/websocket.Conn the frame loop needs. The
// core only ever talks to this interface, so any text-frame WebSocket
// transport with this shape can host it. *websocket.Conn satisfies it
// without an adapter.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
}
