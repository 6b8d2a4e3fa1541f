// Package events defines board events and the sinks they are published to.
package events

import (
	"context"
	"log/slog"
	"time"

	"schoolboard/internal/middleware"
	"schoolboard/internal/observability"
)

// Board event types.
const (
	TypePostCreated         = "post_created"
	TypePostDeleted         = "post_deleted"
	TypePostReactionUpdated = "post_reaction_updated"
	TypeCommentCreated      = "comment_created"
	TypeCommentUpdated      = "comment_updated"
	TypeCommentDeleted      = "comment_deleted"
)

// BoardEvent is a change on the board that live clients and downstream
// consumers may care about.
type BoardEvent struct {
	Type    string    `json:"type"`
	PostID  uint      `json:"postId"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// NewBoardEvent stamps an event with the current time.
func NewBoardEvent(eventType string, postID uint, payload any) BoardEvent {
	return BoardEvent{Type: eventType, PostID: postID, Payload: payload, At: time.Now().UTC()}
}

// Publisher delivers board events to one sink.
type Publisher interface {
	Publish(ctx context.Context, event BoardEvent) error
}

// Sink is a named Publisher; the name labels metrics and logs.
type Sink struct {
	Name      string
	Publisher Publisher
}

// Fanout publishes every event to each sink. A failing sink is logged and
// does not stop the others; Publish never returns an error.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a Fanout, skipping sinks with a nil Publisher.
func NewFanout(sinks ...Sink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s.Publisher != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Publish(ctx context.Context, event BoardEvent) error {
	if f == nil {
		return nil
	}
	for _, s := range f.sinks {
		if err := s.Publisher.Publish(ctx, event); err != nil {
			middleware.Logger.WarnContext(ctx, "Board event publish failed",
				slog.String("sink", s.Name),
				slog.String("event_type", event.Type),
				slog.String("error", err.Error()))
			continue
		}
		observability.BoardEventsPublished.WithLabelValues(event.Type, s.Name).Inc()
	}
	return nil
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, BoardEvent) error { return nil }
