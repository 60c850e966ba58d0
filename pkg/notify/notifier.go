package notify

import (
	"context"
	"errors"
	"fmt"
)

// Channel identifies how a message is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Message is a single outbound notification. Template names one of the registered templates.
type Message struct {
	Channel  Channel
	To       string
	Subject  string
	Template string
	Data     map[string]interface{}
}

// Notifier delivers messages on one or more channels.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// ErrNoRoute is returned when no sender is configured for the message channel.
var ErrNoRoute = errors.New("no sender configured for channel")

// Router dispatches messages to the sender registered for their channel.
type Router struct {
	senders map[Channel]Notifier
}

// NewRouter builds a router; nil senders are ignored so disabled channels drop out.
func NewRouter(senders map[Channel]Notifier) *Router {
	r := &Router{senders: make(map[Channel]Notifier, len(senders))}
	for ch, s := range senders {
		if s != nil {
			r.senders[ch] = s
		}
	}
	return r
}

// Send implements Notifier.
func (r *Router) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("notify %s: empty recipient", msg.Channel)
	}
	sender, ok := r.senders[msg.Channel]
	if !ok {
		return fmt.Errorf("notify %s: %w", msg.Channel, ErrNoRoute)
	}
	return sender.Send(ctx, msg)
}

// Nop swallows all messages. Used when every channel is disabled.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(context.Context, Message) error { return nil }
