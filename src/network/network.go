package network

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"price-relay/src/helpers"
	"price-relay/src/interfaces"
	"price-relay/src/logger"
	"price-relay/src/models"

	"github.com/gorilla/websocket"
)

const defaultHandshakeTimeout = 10 * time.Second

type WebsocketDialer struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger
}

// -----------------------------------------------------------------------------

func NewWebsocketDialer(cfg *models.MConfig, log *logger.Logger) *WebsocketDialer {
	return &WebsocketDialer{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(cfg.Network.Proxies, cfg.Network.UserAgent),
		Logger:       log,
	}
}

// -----------------------------------------------------------------------------

func (d *WebsocketDialer) createDialer() *websocket.Dialer {
	timeout := time.Duration(d.Config.Network.HandshakeTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultHandshakeTimeout
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: timeout,
		Proxy:            http.ProxyFromEnvironment,
	}

	if d.ProxyManager.HasProxies() {
		proxyStr, err := d.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			if proxyURL, err := url.Parse(proxyStr); err == nil {
				dialer.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}
	return dialer
}

// -----------------------------------------------------------------------------

// Dial opens the websocket. A failed handshake rotates to the next proxy so
// the following attempt goes out through a different one.
func (d *WebsocketDialer) Dial(ctx context.Context, rawURL string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", d.ProxyManager.GetUserAgent())

	conn, resp, err := d.createDialer().DialContext(ctx, rawURL, header)
	if err != nil {
		if d.ProxyManager.HasProxies() {
			d.ProxyManager.RotateProxy()
		}
		if resp != nil {
			return nil, helpers.NewTransportError(fmt.Sprintf("dial %s (status %d)", rawURL, resp.StatusCode), err)
		}
		return nil, helpers.NewTransportError(fmt.Sprintf("dial %s", rawURL), err)
	}
	return conn, nil
}
