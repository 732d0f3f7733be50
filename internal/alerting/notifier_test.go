package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

func sampleNote() Notification {
	return Notification{
		AlertID:        "a1",
		ProductID:      "p1",
		ProductName:    "iPhone 15 Pro",
		Contact:        "user@example.com",
		CurrentPrice:   decimal.NewFromInt(2900),
		TargetPrice:    decimal.NewFromInt(3000),
		CurrencySymbol: "₪",
		TriggeredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("path should contain sendMessage, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("telegram notify should succeed: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("unexpected chat_id: %#v", received)
	}
	if !strings.Contains(received["text"], "iPhone 15 Pro") {
		t.Fatalf("text should name the product: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())

	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("ok=false should fail")
	}
}

func TestRenderMessage(t *testing.T) {
	text := RenderMessage(sampleNote())
	for _, want := range []string{"iPhone 15 Pro", "Current: ₪2900", "Target: ₪3000", "2026-01-02T03:04:05Z"} {
		if !strings.Contains(text, want) {
			t.Fatalf("message %q should contain %q", text, want)
		}
	}

	note := sampleNote()
	note.ProductName = ""
	if !strings.Contains(RenderMessage(note), "Product: p1") {
		t.Fatal("message should fall back to the product id")
	}
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(context.Context, Notification) error {
	s.calls++
	return s.err
}

func TestMultiContinuesAfterFailure(t *testing.T) {
	boom := errors.New("boom")
	failing := &stubNotifier{err: boom}
	ok := &stubNotifier{}

	err := Multi{failing, nil, ok, NewLogNotifier(testLogger())}.Notify(context.Background(), sampleNote())
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined failure, got %v", err)
	}
	if failing.calls != 1 || ok.calls != 1 {
		t.Fatalf("every channel should be called once: %d %d", failing.calls, ok.calls)
	}
}

type fakeSender struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeSender) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestEmailNotifier(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewEmailNotifier(EmailOptions{Host: "smtp.example.com", From: "alerts@example.com"}, testLogger())
	notifier.sender = sender

	if err := notifier.Notify(context.Background(), sampleNote()); err != nil {
		t.Fatalf("email notify should succeed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	if to := sender.sent[0].GetHeader("To"); len(to) != 1 || to[0] != "user@example.com" {
		t.Fatalf("unexpected recipient: %v", to)
	}

	note := sampleNote()
	note.Contact = ""
	if err := notifier.Notify(context.Background(), note); err == nil {
		t.Fatal("missing contact should fail")
	}

	sender.err = errors.New("smtp down")
	if err := notifier.Notify(context.Background(), sampleNote()); err == nil {
		t.Fatal("smtp failure should surface")
	}
}

type blockingSender struct {
	release chan struct{}
	sent    atomic.Int32
}

func (b *blockingSender) DialAndSend(m ...*gomail.Message) error {
	<-b.release
	b.sent.Add(int32(len(m)))
	return nil
}

func TestEmailCloseWaitsForAbandonedSend(t *testing.T) {
	sender := &blockingSender{release: make(chan struct{})}
	notifier := NewEmailNotifier(EmailOptions{Host: "smtp.example.com", From: "alerts@example.com"}, testLogger())
	notifier.sender = sender

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := notifier.Notify(ctx, sampleNote()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	closed := make(chan struct{})
	go func() {
		_ = Multi{NewLogNotifier(testLogger()), notifier}.Close()
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatal("close returned while a send was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(sender.release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close did not return after the send finished")
	}
	if sender.sent.Load() != 1 {
		t.Fatalf("expected the abandoned send to complete, got %d", sender.sent.Load())
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
