package mailer

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/rosterhub/internal/app/system/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type chanSender struct {
	got chan Email
	err error
}

func (s *chanSender) Send(_ context.Context, e Email) error {
	s.got <- e
	return s.err
}

func TestNotifier_DispatchAssignsIDAndDelivers(t *testing.T) {
	s := &chanSender{got: make(chan Email, 1)}
	n := NewNotifier(s, TransportLog, zap.NewNop(), nil)

	id := n.Dispatch(Email{To: "a@example.com", Subject: "hi"})
	if id == "" {
		t.Fatal("expected a delivery id")
	}

	select {
	case e := <-s.got:
		if e.ID != id || e.To != "a@example.com" {
			t.Errorf("delivered %+v, want id %s", e, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("email was not delivered")
	}
}

func TestNotifier_DeliveryErrorIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := &chanSender{got: make(chan Email, 1), err: errors.New("relay down")}
	n := NewNotifier(s, TransportSMTP, zap.New(core), nil)

	n.Dispatch(Email{To: "b@example.com"})
	<-s.got

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("email delivery failed").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected a warning for the failed delivery")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type panicSender struct {
	called chan struct{}
}

func (s *panicSender) Send(context.Context, Email) error {
	close(s.called)
	panic("transport exploded")
}

func TestNotifier_SenderPanicIsRecovered(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := metrics.New()
	s := &panicSender{called: make(chan struct{})}
	n := NewNotifier(s, TransportAMQP, zap.New(core), m)

	n.Dispatch(Email{To: "c@example.com"})
	<-s.called

	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("email delivery failed").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected the panic to be reported as a failed delivery")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if logs.FilterMessage("mail sender panicked").Len() != 1 {
		t.Errorf("expected one panic log entry, got %d", logs.FilterMessage("mail sender panicked").Len())
	}
	expected := `
# HELP rosterhub_mail_deliveries_total Outbound email deliveries, by transport and outcome.
# TYPE rosterhub_mail_deliveries_total counter
rosterhub_mail_deliveries_total{outcome="failed",transport="amqp"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "rosterhub_mail_deliveries_total"); err != nil {
		t.Error(err)
	}
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		transport string
		wantErr   bool
	}{
		{"smtp", false},
		{"AMQP", false},
		{"log", false},
		{"", false},
		{"pigeon", true},
	}
	for _, tt := range tests {
		_, err := NewSender(Config{Transport: tt.transport}, zap.NewNop())
		if (err != nil) != tt.wantErr {
			t.Errorf("NewSender(%q) err = %v, wantErr %v", tt.transport, err, tt.wantErr)
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownTransport) {
			t.Errorf("expected ErrUnknownTransport, got %v", err)
		}
	}
}

func TestBuildMessage_PlainAndMultipart(t *testing.T) {
	from := mail.Address{Name: "RosterHub", Address: "noreply@example.com"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	plain, err := buildMessage(from, Email{ID: "abc", To: "x@example.com", Subject: "Hello", TextBody: "body"}, at)
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	msg, err := mail.ReadMessage(strings.NewReader(string(plain)))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if got := msg.Header.Get("Message-ID"); got != "<abc@rosterhub>" {
		t.Errorf("Message-ID = %q", got)
	}
	if !strings.HasPrefix(msg.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("Content-Type = %q", msg.Header.Get("Content-Type"))
	}

	multi, err := buildMessage(from, BuildActivationEmail(ActivationEmailData{
		SiteName: "RosterHub", Username: "ada", Link: "https://x/activate/a/b/", ExpiresIn: "3 days",
	}), at)
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}
	msg, err = mail.ReadMessage(strings.NewReader(string(multi)))
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !strings.HasPrefix(msg.Header.Get("Content-Type"), "multipart/alternative") {
		t.Errorf("Content-Type = %q", msg.Header.Get("Content-Type"))
	}
}

func TestBuildActivationEmail(t *testing.T) {
	e := BuildActivationEmail(ActivationEmailData{
		SiteName: "RosterHub", Username: "ada", Link: "https://x/activate/a/b/", ExpiresIn: "3 days",
	})
	if !strings.Contains(e.Subject, "RosterHub") {
		t.Errorf("Subject = %q", e.Subject)
	}
	for _, body := range []string{e.TextBody, e.HTMLBody} {
		if !strings.Contains(body, "https://x/activate/a/b/") {
			t.Error("body missing activation link")
		}
	}
}
