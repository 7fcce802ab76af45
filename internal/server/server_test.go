package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/contactscan/internal/command"
	"github.com/nao1215/contactscan/internal/controller"
	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/metrics"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/scanner"
	"github.com/nao1215/contactscan/internal/schedule"
	"github.com/nao1215/contactscan/internal/store"
)

type testEnv struct {
	kv       *store.MemoryKV
	contacts *store.Contacts
	ctrl     *controller.Controller
	bus      *command.Bus
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	doc, err := dom.ParseString(`<html><body><ul><li>Ann Lee ann@example.com</li></ul></body></html>`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	kv := store.NewMemoryKV()
	contacts := store.NewContacts(kv)
	m := metrics.New()
	sched := schedule.NewManualScheduler()
	s := scanner.New(doc, contacts, scanner.WithMetrics(m))
	ctrl := controller.New(doc, s, controller.WithScheduler(sched), controller.WithMetrics(m))
	bus := command.NewBus(ctrl,
		command.WithContacts(contacts),
		command.WithScanFlag(store.NewScanFlag(kv, "team.html")),
	)
	srv := New(bus, contacts, WithMetrics(m), WithTarget("team.html"))

	return &testEnv{kv: kv, contacts: contacts, ctrl: ctrl, bus: bus, router: srv.Router()}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestPostCommand(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/commands", `{"type":"START_SCAN"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp command.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Status != command.StatusStarted {
		t.Errorf("expected %q, got %q", command.StatusStarted, resp.Status)
	}
	if !env.ctrl.Active() {
		t.Error("expected controller to be active")
	}

	w = env.do(http.MethodPost, "/commands", `{"type":"STOP_SCAN"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), command.StatusStopped) {
		t.Errorf("stop status = %d, body = %s", w.Code, w.Body.String())
	}

	for _, body := range []string{`{"type":"NOPE"}`, `not json`} {
		w = env.do(http.MethodPost, "/commands", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, w.Code)
		}
	}
	if env.ctrl.Active() {
		t.Error("expected bad commands to leave the controller idle")
	}
}

func TestContacts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.do(http.MethodPost, "/commands", `{"type":"START_SCAN"}`)

	w := env.do(http.MethodGet, "/contacts", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var got []model.Contact
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 1 || got[0].Email != "ann@example.com" || got[0].Name != "Ann Lee" {
		t.Errorf("unexpected contacts %v", got)
	}

	w = env.do(http.MethodDelete, "/contacts", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("clear status = %d", w.Code)
	}
	if env.ctrl.Active() {
		t.Error("expected clear to stop scanning")
	}
	w = env.do(http.MethodGet, "/contacts", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty list, got %s", w.Body.String())
	}
}

func TestContacts_StoreFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.kv.FailGet(errors.New("io error"))

	for _, path := range []string{"/contacts", "/status"} {
		if w := env.do(http.MethodGet, path, ""); w.Code != http.StatusInternalServerError {
			t.Errorf("%s: expected 500, got %d", path, w.Code)
		}
	}
}

func TestStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	var st statusResponse
	w := env.do(http.MethodGet, "/status", "")
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if st.State != "idle" || st.Scanning || st.Contacts != 0 || st.Target != "team.html" {
		t.Errorf("unexpected idle status %+v", st)
	}

	env.do(http.MethodPost, "/commands", `{"type":"START_SCAN"}`)
	w = env.do(http.MethodGet, "/status", "")
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if st.State != "active" || !st.Scanning || st.Contacts != 1 {
		t.Errorf("unexpected active status %+v", st)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.do(http.MethodPost, "/commands", `{"type":"START_SCAN"}`)

	w := env.do(http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	for _, name := range []string{"contactscan_passes_total", "contactscan_contacts_found_total"} {
		if !strings.Contains(w.Body.String(), name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}

func TestListenAndServe(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	srv := New(env.bus, env.contacts)

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a })
	}()

	var addr net.Addr
	select {
	case addr = <-addrCh:
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for listener")
	}

	resp, err := http.Get("http://" + addr.String() + "/status")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}
