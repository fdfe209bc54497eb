package chatbot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/upatik/helpdesk-chatbot/engine/intent"
	"github.com/upatik/helpdesk-chatbot/engine/readiness"
	"github.com/upatik/helpdesk-chatbot/engine/semantic"
	"github.com/upatik/helpdesk-chatbot/pkg/metrics"
	"github.com/upatik/helpdesk-chatbot/pkg/natsutil"
	"github.com/upatik/helpdesk-chatbot/pkg/watch"
)

func lexicalBuilder(opts Options) BuildFunc {
	return func(ctx context.Context) (*Engine, error) { return Build(ctx, opts) }
}

func waitDone(t *testing.T, h *Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("build did not finish")
	}
}

func startedHandle(t *testing.T, opts Options) *Handle {
	t.Helper()
	h := NewHandle(lexicalBuilder(opts), opts.Metrics, discard())
	if err := h.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitDone(t, h)
	return h
}

func TestHandleNotStarted(t *testing.T) {
	h := NewHandle(lexicalBuilder(lexicalOpts()), nil, discard())
	if h.State().Phase != readiness.NotStarted {
		t.Fatalf("expected not_started, got %s", h.State().Phase)
	}
	if _, err := h.Engine(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestHandleLoadingThenReady(t *testing.T) {
	release := make(chan struct{})
	h := NewHandle(func(ctx context.Context) (*Engine, error) {
		<-release
		return Build(ctx, lexicalOpts())
	}, nil, discard())

	if err := h.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if h.State().Phase != readiness.Loading {
		t.Fatalf("expected loading, got %s", h.State().Phase)
	}
	if _, err := h.Engine(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady while loading, got %v", err)
	}
	if reply := h.Ask(context.Background(), Ask{Message: "Halo"}); reply.Error == "" {
		t.Fatal("expected error reply while loading")
	}

	close(release)
	waitDone(t, h)
	e, err := h.Engine()
	if err != nil || e == nil {
		t.Fatalf("expected engine, got %v", err)
	}
	if h.State().Phase != readiness.Ready {
		t.Fatalf("expected ready, got %s", h.State().Phase)
	}
}

func TestHandleStartTwice(t *testing.T) {
	h := startedHandle(t, lexicalOpts())
	if err := h.Start(context.Background()); !errors.Is(err, readiness.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestHandleFailed(t *testing.T) {
	h := NewHandle(func(context.Context) (*Engine, error) {
		return nil, errors.New("dataset unreadable")
	}, nil, discard())
	h.Start(context.Background())
	waitDone(t, h)

	_, err := h.Engine()
	var failed *readiness.FailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected FailedError, got %v", err)
	}
	if failed.Reason != "dataset unreadable" {
		t.Fatalf("unexpected reason %q", failed.Reason)
	}
	if err := h.Reload(context.Background()); err == nil {
		t.Fatal("expected reload to refuse a failed handle")
	}
}

func TestHandlePanicBecomesFailure(t *testing.T) {
	h := NewHandle(func(context.Context) (*Engine, error) { panic("boom") }, nil, discard())
	h.Start(context.Background())
	waitDone(t, h)
	st := h.State()
	if st.Phase != readiness.Failed || !strings.Contains(st.Reason, "boom") {
		t.Fatalf("expected failed with panic reason, got %+v", st)
	}
}

func TestHandleReadinessMetrics(t *testing.T) {
	reg := metrics.New()
	opts := lexicalOpts()
	opts.Metrics = NewMetrics(reg)
	startedHandle(t, opts)
	out := reg.Render()
	if !strings.Contains(out, "chatbot_readiness_phase 2") || !strings.Contains(out, "chatbot_dataset_size 14") {
		t.Fatalf("unexpected metrics:\n%s", out)
	}
}

func TestHandleAsk(t *testing.T) {
	h := startedHandle(t, lexicalOpts())
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	h.now = func() time.Time { return now }

	reply := h.Ask(context.Background(), Ask{Message: "  Halo  "})
	if reply.Error != "" || reply.Status != "success" || reply.MatchStatus != "success" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if reply.Category != "Sapaan" || reply.Timestamp != "2024-01-02 03:04:05" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	if reply := h.Ask(context.Background(), Ask{Message: "   "}); reply.Error != ErrEmptyMessage.Error() {
		t.Fatalf("expected empty message error, got %+v", reply)
	}
}

func TestReloadAdoptsHistory(t *testing.T) {
	version := 0
	h := NewHandle(func(ctx context.Context) (*Engine, error) {
		version++
		if version == 3 {
			return nil, errors.New("bad dataset")
		}
		return Build(ctx, lexicalOpts())
	}, nil, discard())
	h.Start(context.Background())
	waitDone(t, h)

	first, _ := h.Engine()
	first.Respond(context.Background(), "Halo")

	if err := h.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	second, _ := h.Engine()
	if second == first {
		t.Fatal("expected a new engine after reload")
	}
	if second.History().Len() != 1 {
		t.Fatalf("expected adopted history, got %d entries", second.History().Len())
	}

	if err := h.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	current, _ := h.Engine()
	if current != second {
		t.Fatal("failed reload must keep the current engine")
	}
	if h.State().Phase != readiness.Ready {
		t.Fatalf("readiness regressed to %s", h.State().Phase)
	}
}

func TestIndexPrunedAfterSwap(t *testing.T) {
	var h *Handle
	var prunedWith []*Engine
	h = NewHandle(func(ctx context.Context) (*Engine, error) {
		opts := semanticOpts(newBagEmbedder())
		opts.Index = func(context.Context, *semantic.Table, []string) (semantic.Index, error) {
			idx := &fixedIndex{row: 2, score: 1}
			idx.onPrune = func() {
				cur, _ := h.Engine()
				prunedWith = append(prunedWith, cur)
			}
			return idx, nil
		}
		return Build(ctx, opts)
	}, nil, discard())
	if err := h.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	waitDone(t, h)

	first, _ := h.Engine()
	if len(prunedWith) != 1 || prunedWith[0] != first {
		t.Fatalf("expected prune once the first engine is published, got %v", prunedWith)
	}

	if err := h.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	second, _ := h.Engine()
	if second == first {
		t.Fatal("expected a new engine after reload")
	}
	if len(prunedWith) != 2 || prunedWith[1] != second {
		t.Fatalf("expected prune after the reloaded engine is published, got %v", prunedWith)
	}
}

func TestWatchReloadsDataset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "intents.json")
	write := func(body string) {
		t.Helper()
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Rename(tmp, path); err != nil {
			t.Fatal(err)
		}
	}
	write(`[{"pertanyaan":"Jam buka helpdesk?","jawaban":"08.00-16.00","kategori":"Layanan"}]`)

	opts := lexicalOpts()
	opts.Sources = []intent.Source{intent.NewFileSource(path)}
	h := startedHandle(t, opts)
	if e, _ := h.Engine(); len(e.Intents()) != 1 {
		t.Fatalf("expected 1 intent from file, got %d", len(e.Intents()))
	}

	w, err := watch.New(path, 20*time.Millisecond, discard())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Watch(ctx, w)

	write(`[{"pertanyaan":"Jam buka helpdesk?","jawaban":"08.00-16.00","kategori":"Layanan"},
		{"pertanyaan":"Cara reset email?","jawaban":"Hubungi UPA TIK","kategori":"Email"}]`)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if e, _ := h.Engine(); len(e.Intents()) == 2 {
			if resp := e.Respond(context.Background(), "cara reset email"); resp.Category != "Email" {
				t.Fatalf("expected reloaded intent to answer, got %+v", resp)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("engine was not reloaded")
}

func TestServeAskOverNATS(t *testing.T) {
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})

	events := make(chan Exchange, 1)
	esub, err := natsutil.Subscribe(nc, DefaultExchangeSubject, func(_ context.Context, ex Exchange) { events <- ex })
	if err != nil {
		t.Fatal(err)
	}
	defer esub.Unsubscribe()
	nc.Flush()

	opts := lexicalOpts()
	opts.Events = NewNATSEvents(nc, "")
	h := startedHandle(t, opts)

	sub, err := ServeAsk(nc, "", h)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	reply, err := natsutil.Request[Ask, AskReply](context.Background(), nc, DefaultAskSubject, Ask{Message: "Apa kabar?"})
	if err != nil {
		t.Fatal(err)
	}
	if reply.Error != "" || reply.Category != "Sapaan" || reply.MatchStatus != "success" {
		t.Fatalf("unexpected reply %+v", reply)
	}

	select {
	case ex := <-events:
		if ex.User != "Apa kabar?" || ex.Status != "success" {
			t.Fatalf("unexpected event %+v", ex)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected exchange event")
	}

	resp, err := nc.Request(DefaultAskSubject, []byte("not json"), 2*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(resp.Data), `"error"`) {
		t.Fatalf("expected error reply, got %s", resp.Data)
	}
}
