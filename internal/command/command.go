// Package command carries start and stop requests to a scan controller.
//
// Messages are small JSON objects such as {"type":"START_SCAN"}. The Bus
// applies them one at a time, remembers the per-target scanning flag in the
// store and acknowledges each applied message on a channel. Malformed or
// unknown messages change nothing and are never acknowledged.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/contactscan/internal/store"
)

// Message types.
const (
	TypeStartScan = "START_SCAN"
	TypeStopScan  = "STOP_SCAN"
)

// Acknowledgement statuses.
const (
	StatusStarted = "Scanning started"
	StatusStopped = "Scanning stopped"
)

// DefaultAckBuffer is the capacity of the acknowledgement channel.
const DefaultAckBuffer = 16

var (
	// ErrMalformed is returned for input that is not a command object.
	ErrMalformed = errors.New("malformed command")

	// ErrUnknownCommand is returned for a command of an unknown type.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrNoContacts is returned by Clear on a Bus without a contact store.
	ErrNoContacts = errors.New("no contact store configured")
)

// Message is an inbound command.
type Message struct {
	Type string `json:"type"`
}

// Response acknowledges an applied command.
type Response struct {
	Status string `json:"status"`
}

// Decode parses a raw command. Only the two known types are accepted.
func Decode(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch msg.Type {
	case TypeStartScan, TypeStopScan:
		return msg, nil
	case "":
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
	}
}

// Target is the state machine a Bus drives.
type Target interface {
	Start(ctx context.Context) bool
	Stop() bool
	Active() bool
}

// Bus applies commands to a Target in arrival order.
type Bus struct {
	target   Target
	flag     *store.ScanFlag
	contacts *store.Contacts
	logger   *slog.Logger
	base     context.Context

	// mu serializes commands.
	mu   sync.Mutex
	acks chan Response
}

// Option configures a Bus.
type Option func(*Bus)

// WithScanFlag persists the scanning flag on every transition.
func WithScanFlag(f *store.ScanFlag) Option {
	return func(b *Bus) {
		b.flag = f
	}
}

// WithContacts enables Clear.
func WithContacts(c *store.Contacts) Option {
	return func(b *Bus) {
		b.contacts = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBaseContext sets the context handed to Target.Start. It bounds
// scanning for as long as the target stays active, so it must outlive the
// request that carried the command.
func WithBaseContext(ctx context.Context) Option {
	return func(b *Bus) {
		if ctx != nil {
			b.base = ctx
		}
	}
}

// WithAckBuffer sets the capacity of the acknowledgement channel.
func WithAckBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.acks = make(chan Response, n)
		}
	}
}

// NewBus creates a Bus for target.
func NewBus(target Target, opts ...Option) *Bus {
	b := &Bus{
		target: target,
		logger: slog.New(slog.DiscardHandler),
		base:   context.Background(),
		acks:   make(chan Response, DefaultAckBuffer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Acks returns the channel acknowledgements are delivered on. When the
// buffer is full, further acknowledgements are dropped.
func (b *Bus) Acks() <-chan Response {
	return b.acks
}

// Dispatch decodes raw and applies it.
func (b *Bus) Dispatch(ctx context.Context, raw []byte) (Response, error) {
	msg, err := Decode(raw)
	if err != nil {
		b.logger.Debug("ignoring command", "error", err)
		return Response{}, err
	}
	return b.Send(ctx, msg)
}

// Send applies msg and acknowledges it once the transition has happened.
// ctx bounds the flag write only. Repeating the current state is still
// acknowledged.
func (b *Bus) Send(ctx context.Context, msg Message) (Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var resp Response
	switch msg.Type {
	case TypeStartScan:
		b.setFlag(ctx, true)
		b.target.Start(b.base)
		resp = Response{Status: StatusStarted}
	case TypeStopScan:
		b.setFlag(ctx, false)
		b.target.Stop()
		resp = Response{Status: StatusStopped}
	default:
		b.logger.Debug("ignoring command", "type", msg.Type)
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownCommand, msg.Type)
	}

	b.ack(resp)
	return resp, nil
}

// Clear empties the contact collection and stops scanning if it is on.
func (b *Bus) Clear(ctx context.Context) error {
	if b.contacts == nil {
		return ErrNoContacts
	}
	if err := b.contacts.Clear(ctx); err != nil {
		return err
	}
	if b.target.Active() {
		if _, err := b.Send(ctx, Message{Type: TypeStopScan}); err != nil {
			return err
		}
	}
	return nil
}

// Active reports whether the target is scanning right now.
func (b *Bus) Active() bool {
	return b.target.Active()
}

// Scanning reports the remembered flag, falling back to the live state
// when no flag store is configured.
func (b *Bus) Scanning(ctx context.Context) (bool, error) {
	if b.flag == nil {
		return b.target.Active(), nil
	}
	return b.flag.Get(ctx)
}

func (b *Bus) setFlag(ctx context.Context, v bool) {
	if b.flag == nil {
		return
	}
	if err := b.flag.Set(ctx, v); err != nil {
		b.logger.Warn("failed to persist scanning flag", "error", err)
	}
}

func (b *Bus) ack(resp Response) {
	select {
	case b.acks <- resp:
	default:
		b.logger.Debug("acknowledgement dropped", "status", resp.Status)
	}
}
