package server

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// sseSink writes raw event-stream frames. gin's SSEvent adds an "event:"
// line, and consumers expect bare "data:" frames.
type sseSink struct {
	w         gin.ResponseWriter
	rc        *http.ResponseController
	writeWait time.Duration
}

func newSSESink(w gin.ResponseWriter, writeWait time.Duration) *sseSink {
	return &sseSink{w: w, rc: http.NewResponseController(w), writeWait: writeWait}
}

// deadline bounds the next write so a client that stops reading is dropped
// instead of pinning its Serve goroutine.
func (s *sseSink) deadline() error {
	err := s.rc.SetWriteDeadline(time.Now().Add(s.writeWait))
	if err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func (s *sseSink) WritePayload(payload []byte) error {
	if err := s.deadline(); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, "data: "); err != nil {
		return err
	}
	if _, err := s.w.Write(payload); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, "\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseSink) WriteKeepAlive() error {
	if err := s.deadline(); err != nil {
		return err
	}
	if _, err := io.WriteString(s.w, ":heartbeat\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

// -----------------------------------------------------------------------------

func (s *Server) streamPrices(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(200)
	c.Writer.Flush()

	sub := s.hub.Register(NewSubscriber(TransportSSE))
	if err := s.hub.Serve(c.Request.Context(), sub, newSSESink(c.Writer, s.writeTimeout())); err != nil {
		s.Logger.Debug("SSE subscriber %s left: %v", sub.ID(), err)
	}
}
