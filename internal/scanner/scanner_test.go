package scanner

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/contactscan/internal/dom"
	"github.com/nao1215/contactscan/internal/extract"
	"github.com/nao1215/contactscan/internal/metrics"
	"github.com/nao1215/contactscan/internal/model"
	"github.com/nao1215/contactscan/internal/schedule"
	"github.com/nao1215/contactscan/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fixture struct {
	doc      *dom.Document
	kv       *store.MemoryKV
	contacts *store.Contacts
	sched    *schedule.ManualScheduler
	scanner  *Scanner
}

func newFixture(t *testing.T, page string, opts ...Option) *fixture {
	t.Helper()

	doc, err := dom.ParseString(page)
	if err != nil {
		t.Fatalf("failed to parse page: %v", err)
	}
	kv := store.NewMemoryKV()
	contacts := store.NewContacts(kv)
	sched := schedule.NewManualScheduler()

	opts = append([]Option{WithHighlighter(NewHighlighter(doc, sched, 3*time.Second))}, opts...)
	return &fixture{
		doc:      doc,
		kv:       kv,
		contacts: contacts,
		sched:    sched,
		scanner:  New(doc, contacts, opts...),
	}
}

func (f *fixture) stored(t *testing.T) []model.Contact {
	t.Helper()

	got, err := f.contacts.Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load contacts: %v", err)
	}
	return got
}

func TestScan_AliceCarter(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `<html><body><p>Contact: Dr. Alice B. Carter, alice.carter@example.com, (555) 123-4567</p></body></html>`)

	added, err := f.scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	want := []model.Contact{{
		ID:    "alice.carter@example.com",
		Name:  "Dr. Alice B. Carter",
		Email: "alice.carter@example.com",
		Phone: "(555) 123-4567",
	}}
	if !slices.Equal(added, want) {
		t.Errorf("added %+v, want %+v", added, want)
	}
	if got := f.stored(t); !slices.Equal(got, want) {
		t.Errorf("stored %+v, want %+v", got, want)
	}

	if f.doc.CountClass(HighlightClass) != 1 {
		t.Errorf("expected the paragraph to be highlighted")
	}
	f.sched.Advance(3 * time.Second)
	if f.doc.CountClass(HighlightClass) != 0 {
		t.Errorf("expected the highlight to expire after 3s")
	}
}

func TestScan_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `<body><ul>
		<li>Doe, Jane — jane.doe@example.com</li>
		<li>Bob Stone bob@example.com</li>
	</ul></body>`)
	ctx := context.Background()

	first, err := f.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 contacts, got %+v", first)
	}
	before := f.stored(t)

	second, err := f.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("second scan failed: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected no new contacts, got %+v", second)
	}
	if after := f.stored(t); !slices.Equal(before, after) {
		t.Errorf("store changed: %+v -> %+v", before, after)
	}
	if before[0].Name != "Jane Doe" || before[1].Name != "Bob Stone" {
		t.Errorf("unexpected names %+v", before)
	}
}

func TestScan_Dedup(t *testing.T) {
	t.Parallel()

	t.Run("same email twice in one pass", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, `<body>
			<p>Ann Lee ann@example.com</p>
			<p>Write to ann@example.com again</p>
		</body>`)

		added, err := f.scanner.Scan(context.Background())
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(added) != 1 || added[0].Name != "Ann Lee" {
			t.Errorf("expected one contact named Ann Lee, got %+v", added)
		}
	})

	t.Run("known email is never rewritten", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, `<body><p>Completely Different Name ann@example.com</p></body>`)
		ctx := context.Background()
		prior := []model.Contact{model.NewContact("ann@example.com", "Ann Lee", "")}
		if err := f.contacts.Save(ctx, prior); err != nil {
			t.Fatal(err)
		}

		added, err := f.scanner.Scan(ctx)
		if err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		if len(added) != 0 {
			t.Errorf("expected nothing added, got %+v", added)
		}
		if got := f.stored(t); !slices.Equal(got, prior) {
			t.Errorf("expected store unchanged, got %+v", got)
		}
		if f.doc.CountClass(HighlightClass) != 0 {
			t.Error("expected no highlight for a known contact")
		}
	})

	t.Run("appends after existing contacts", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, `<body><p>New Person new@example.com</p></body>`)
		ctx := context.Background()
		_ = f.contacts.Save(ctx, []model.Contact{model.NewContact("old@example.com", "", "")})

		if _, err := f.scanner.Scan(ctx); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		got := model.Emails(f.stored(t))
		if !slices.Equal(got, []string{"old@example.com", "new@example.com"}) {
			t.Errorf("unexpected order %v", got)
		}
	})
}

func TestScan_IgnoresInvisibleText(t *testing.T) {
	t.Parallel()

	f := newFixture(t, `<html><head><title>hr@example.com</title></head><body>
		<script>var x = "js@example.com";</script>
		<style>/* css@example.com */</style>
		<noscript>ns@example.com</noscript>
		<p>visible@example.com</p>
	</body></html>`)

	added, err := f.scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := model.Emails(added); !slices.Equal(got, []string{"visible@example.com"}) {
		t.Errorf("expected only the visible email, got %v", got)
	}
	if added[0].Name != model.UnknownName {
		t.Errorf("expected Unknown name, got %q", added[0].Name)
	}
}

func TestScan_StoreFailure(t *testing.T) {
	t.Parallel()

	t.Run("read failure aborts the pass", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, `<body><p>Ann Lee ann@example.com</p></body>`)
		f.kv.FailGet(errors.New("locked"))

		_, err := f.scanner.Scan(context.Background())
		if !errors.Is(err, ErrStore) {
			t.Errorf("expected ErrStore, got %v", err)
		}
		if f.doc.CountClass(HighlightClass) != 0 {
			t.Error("expected no highlight when the pass aborts early")
		}
	})

	t.Run("write failure persists nothing and the next pass retries", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, `<body><p>Ann Lee ann@example.com</p></body>`)
		ctx := context.Background()

		f.kv.FailSet(errors.New("disk full"))
		if _, err := f.scanner.Scan(ctx); !errors.Is(err, ErrStore) {
			t.Fatalf("expected ErrStore, got %v", err)
		}
		f.kv.FailSet(nil)
		if got := f.stored(t); len(got) != 0 {
			t.Fatalf("expected nothing persisted, got %+v", got)
		}

		added, err := f.scanner.Scan(ctx)
		if err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if len(added) != 1 {
			t.Errorf("expected the contact on retry, got %+v", added)
		}
	})
}

// panicky panics on any text mentioning "boom".
type panicky struct{}

func (panicky) Name() string { return "panicky" }

func (panicky) Candidates(text string) []extract.NameCandidate {
	if strings.Contains(text, "boom") {
		panic("heuristic failure")
	}
	return nil
}

func TestScan_CandidateFailureIsIsolated(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	e := extract.New(extract.WithStrategies(panicky{}, extract.NewTitleCaseStrategy()))
	f := newFixture(t, `<body>
		<li>boom bad@example.com</li>
		<li>Good Person good@example.com</li>
	</body>`, WithExtractor(e), WithMetrics(m))

	added, err := f.scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if got := model.Emails(added); !slices.Equal(got, []string{"good@example.com"}) {
		t.Errorf("expected only good@example.com, got %v", got)
	}
	if got := testutil.ToFloat64(m.CandidatesSkipped.WithLabelValues(metrics.SkipError)); got != 1 {
		t.Errorf("expected one skipped candidate, got %v", got)
	}
	if got := testutil.ToFloat64(m.ContactsFound); got != 1 {
		t.Errorf("expected one found contact, got %v", got)
	}

	// The failed email is not marked known, so a later pass tries it again.
	if _, err := f.scanner.Scan(context.Background()); err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if got := testutil.ToFloat64(m.CandidatesSkipped.WithLabelValues(metrics.SkipError)); got != 2 {
		t.Errorf("expected the failed email to be retried, got %v", got)
	}
}

func TestHighlighter(t *testing.T) {
	t.Parallel()

	t.Run("disable cancels pending removals and refuses new marks", func(t *testing.T) {
		t.Parallel()

		doc, _ := dom.ParseString(`<body><p>a</p></body>`)
		sched := schedule.NewManualScheduler()
		h := NewHighlighter(doc, sched, time.Second)
		p := doc.Body().FirstChild

		if !h.Highlight(p) {
			t.Fatal("expected highlight")
		}
		h.Disable()
		if h.Pending() != 0 || sched.Pending() != 0 {
			t.Errorf("expected no pending removals, got %d/%d", h.Pending(), sched.Pending())
		}
		if h.Highlight(p) {
			t.Error("expected disabled highlighter to refuse")
		}
		h.Enable()
		if !h.Highlight(p) {
			t.Error("expected re-enabled highlighter to mark")
		}
	})

	t.Run("zero duration disables highlighting", func(t *testing.T) {
		t.Parallel()

		doc, _ := dom.ParseString(`<body><p>a</p></body>`)
		h := NewHighlighter(doc, schedule.NewManualScheduler(), 0)
		if h.Highlight(doc.Body().FirstChild) {
			t.Error("expected no highlight")
		}
	})

	t.Run("nil highlighter is a no-op", func(t *testing.T) {
		t.Parallel()

		var h *Highlighter
		if h.Highlight(nil) {
			t.Error("expected nil highlighter to do nothing")
		}
		h.Disable()
		h.Enable()
	})
}
