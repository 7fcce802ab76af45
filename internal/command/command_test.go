package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nao1215/contactscan/internal/controller"
	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/scanner"
	"github.com/nao1215/contactscan/internal/schedule"
	"github.com/nao1215/contactscan/internal/store"
)

type fakeTarget struct {
	mu     sync.Mutex
	active bool
	starts int
	stops  int
}

func (f *fakeTarget) Start(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return false
	}
	f.active = true
	f.starts++
	return true
}

func (f *fakeTarget) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return false
	}
	f.active = false
	f.stops++
	return true
}

func (f *fakeTarget) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr error
	}{
		{name: "start", raw: `{"type":"START_SCAN"}`, want: TypeStartScan},
		{name: "stop", raw: `{"type":"STOP_SCAN"}`, want: TypeStopScan},
		{name: "extra fields", raw: `{"type":"STOP_SCAN","tab":3}`, want: TypeStopScan},
		{name: "unknown type", raw: `{"type":"PAUSE"}`, wantErr: ErrUnknownCommand},
		{name: "lowercase type", raw: `{"type":"start_scan"}`, wantErr: ErrUnknownCommand},
		{name: "missing type", raw: `{}`, wantErr: ErrMalformed},
		{name: "not json", raw: `START_SCAN`, wantErr: ErrMalformed},
		{name: "wrong shape", raw: `["START_SCAN"]`, wantErr: ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, err := Decode([]byte(tt.raw))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Decode(%s) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode(%s) unexpected error: %v", tt.raw, err)
			}
			if msg.Type != tt.want {
				t.Errorf("Decode(%s) = %q, want %q", tt.raw, msg.Type, tt.want)
			}
		})
	}
}

func TestBus_StartStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemoryKV()
	flag := store.NewScanFlag(kv, "page.html")
	target := &fakeTarget{}
	bus := NewBus(target, WithScanFlag(flag))

	resp, err := bus.Dispatch(ctx, []byte(`{"type":"START_SCAN"}`))
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if resp.Status != StatusStarted {
		t.Errorf("expected %q, got %q", StatusStarted, resp.Status)
	}
	if !target.Active() {
		t.Error("expected target to be active before the ack")
	}
	if ack := <-bus.Acks(); ack.Status != StatusStarted {
		t.Errorf("expected started ack, got %q", ack.Status)
	}
	if on, _ := flag.Get(ctx); !on {
		t.Error("expected scanning flag to be set")
	}

	if _, err := bus.Dispatch(ctx, []byte(`{"type":"STOP_SCAN"}`)); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if ack := <-bus.Acks(); ack.Status != StatusStopped {
		t.Errorf("expected stopped ack, got %q", ack.Status)
	}
	if target.Active() {
		t.Error("expected target to be idle")
	}
	if on, _ := flag.Get(ctx); on {
		t.Error("expected scanning flag to be cleared")
	}
}

func TestBus_IgnoresUnknown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	target := &fakeTarget{}
	bus := NewBus(target)

	for _, raw := range []string{`{"type":"PAUSE"}`, `garbage`, `{}`} {
		if _, err := bus.Dispatch(ctx, []byte(raw)); err == nil {
			t.Errorf("expected an error for %s", raw)
		}
	}
	if _, err := bus.Send(ctx, Message{Type: "RESUME"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}

	if target.starts != 0 || target.stops != 0 {
		t.Error("expected no state change")
	}
	select {
	case ack := <-bus.Acks():
		t.Errorf("expected no ack, got %q", ack.Status)
	default:
	}
}

func TestBus_RepeatedCommandIsAcknowledged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	target := &fakeTarget{}
	bus := NewBus(target)

	bus.Send(ctx, Message{Type: TypeStartScan}) //nolint:errcheck
	bus.Send(ctx, Message{Type: TypeStartScan}) //nolint:errcheck

	if target.starts != 1 {
		t.Errorf("expected one transition, got %d", target.starts)
	}
	if len(bus.Acks()) != 2 {
		t.Errorf("expected two acks, got %d", len(bus.Acks()))
	}
}

func TestBus_FlagFailureStillApplies(t *testing.T) {
	t.Parallel()

	kv := store.NewMemoryKV()
	kv.FailSet(errors.New("disk full"))
	target := &fakeTarget{}
	bus := NewBus(target, WithScanFlag(store.NewScanFlag(kv, "x")))

	resp, err := bus.Send(context.Background(), Message{Type: TypeStartScan})
	if err != nil {
		t.Fatalf("expected flag errors to be swallowed, got %v", err)
	}
	if resp.Status != StatusStarted || !target.Active() {
		t.Error("expected the start to be applied")
	}
}

func TestBus_FullAckBufferDrops(t *testing.T) {
	t.Parallel()

	target := &fakeTarget{}
	bus := NewBus(target, WithAckBuffer(1))
	ctx := context.Background()

	bus.Send(ctx, Message{Type: TypeStartScan}) //nolint:errcheck
	done := make(chan struct{})
	go func() {
		bus.Send(ctx, Message{Type: TypeStopScan}) //nolint:errcheck
		close(done)
	}()
	<-done

	if target.Active() {
		t.Error("expected stop to be applied even with a full buffer")
	}
	if ack := <-bus.Acks(); ack.Status != StatusStarted {
		t.Errorf("expected the first ack to be kept, got %q", ack.Status)
	}
}

func TestBus_Clear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := store.NewMemoryKV()
	contacts := store.NewContacts(kv)
	if err := contacts.Save(ctx, []model.Contact{model.NewContact("a@example.com", "", "")}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	target := &fakeTarget{}
	bus := NewBus(target, WithContacts(contacts))
	bus.Send(ctx, Message{Type: TypeStartScan}) //nolint:errcheck
	<-bus.Acks()

	if err := bus.Clear(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	got, _ := contacts.Load(ctx)
	if len(got) != 0 {
		t.Errorf("expected empty collection, got %v", got)
	}
	if target.Active() {
		t.Error("expected clear to stop scanning")
	}
	if ack := <-bus.Acks(); ack.Status != StatusStopped {
		t.Errorf("expected stopped ack, got %q", ack.Status)
	}

	if err := NewBus(target).Clear(ctx); !errors.Is(err, ErrNoContacts) {
		t.Errorf("expected ErrNoContacts, got %v", err)
	}
}

func TestBus_DrivesController(t *testing.T) {
	t.Parallel()

	doc, err := dom.ParseString(`<html><body><p>Ann Lee ann@example.com</p></body></html>`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	kv := store.NewMemoryKV()
	contacts := store.NewContacts(kv)
	sched := schedule.NewManualScheduler()
	s := scanner.New(doc, contacts, scanner.WithHighlighter(scanner.NewHighlighter(doc, sched, 0)))
	ctrl := controller.New(doc, s, controller.WithScheduler(sched))
	bus := NewBus(ctrl, WithScanFlag(store.NewScanFlag(kv, "page")))
	ctx := context.Background()

	if _, err := bus.Dispatch(ctx, []byte(`{"type":"START_SCAN"}`)); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	got, _ := contacts.Load(ctx)
	if len(got) != 1 || got[0].Name != "Ann Lee" {
		t.Errorf("expected Ann Lee stored, got %v", got)
	}

	if _, err := bus.Dispatch(ctx, []byte(`{"type":"STOP_SCAN"}`)); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if ctrl.Active() {
		t.Error("expected controller to be idle")
	}
	if doc.FindByID(scanner.StyleID) != nil {
		t.Error("expected style to be removed")
	}
	on, err := bus.Scanning(ctx)
	if err != nil || on {
		t.Errorf("expected flag off, got %v (%v)", on, err)
	}
}
