package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/iliyamo/cinema-checkout/internal/checkout"
)

// Sink delivers server messages to the page, typically a websocket.
type Sink interface {
	Send(msg any) error
}

// lockedSink serialises writes from the loop and the checkout goroutine.
type lockedSink struct {
	mu   sync.Mutex
	sink Sink
	log  *slog.Logger
}

func (s *lockedSink) send(msg any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sink.Send(msg); err != nil {
		s.log.Debug("send to page", "err", err)
	}
}

// Begin implements checkout.Loader.
func (s *lockedSink) Begin(step checkout.State) func() {
	s.send(LoadingMessage{Type: MsgLoading, Active: true, Step: step})
	return func() { s.send(LoadingMessage{Type: MsgLoading, Active: false, Step: step}) }
}

// Redirect implements checkout.Navigator.
func (s *lockedSink) Redirect(_ context.Context, url string) error {
	s.send(RedirectMessage{Type: MsgRedirect, URL: url})
	return nil
}

// latest is a one-slot mailbox where a newer value replaces an unread one.
type latest[T any] struct {
	ch chan T
}

func newLatest[T any]() latest[T] { return latest[T]{ch: make(chan T, 1)} }

func (l latest[T]) put(v T) {
	for {
		select {
		case l.ch <- v:
			return
		default:
		}
		select {
		case <-l.ch:
		default:
		}
	}
}
