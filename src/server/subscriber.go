package server

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrSubscriberClosed = errors.New("subscriber closed")

// Transport names.
const (
	TransportSSE       = "sse"
	TransportWebsocket = "ws"
	TransportGRPC      = "grpc"
)

// Subscriber is one downstream push channel. The mailbox holds at most one
// payload: a newer push replaces an unread one.
type Subscriber struct {
	id        string
	transport string
	bootstrap []byte
	mailbox   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// -----------------------------------------------------------------------------

func NewSubscriber(transport string) *Subscriber {
	return &Subscriber{
		id:        uuid.NewString(),
		transport: transport,
		mailbox:   make(chan []byte, 1),
		done:      make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------

func (s *Subscriber) ID() string { return s.id }
func (s *Subscriber) Transport() string { return s.transport }

// Bootstrap is the snapshot captured at registration, nil before that.
func (s *Subscriber) Bootstrap() []byte { return s.bootstrap }

func (s *Subscriber) Mailbox() <-chan []byte { return s.mailbox }
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// -----------------------------------------------------------------------------

// Push never blocks.
func (s *Subscriber) Push(payload []byte) error {
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}

	for {
		select {
		case s.mailbox <- payload:
			return nil
		default:
		}
		// Drop the stale payload and retry.
		select {
		case <-s.mailbox:
		default:
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
