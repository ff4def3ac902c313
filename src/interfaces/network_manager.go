package interfaces

import (
	"context"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// IDialer opens the upstream websocket, applying proxy/handshake policy.
// -----------------------------------------------------------------------------

type IDialer interface {

	// Dial opens a websocket connection to url.
	Dial(ctx context.Context, url string) (*websocket.Conn, error)
}
