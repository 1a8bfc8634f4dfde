package notify

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/riftlabs/healwatch/internal/domain"
)

type recordingNotifier struct {
	sent []Notification
	err  error
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return r.err
}

func TestMultiNotifierSendsToAll(t *testing.T) {
	a := &recordingNotifier{}
	b := &recordingNotifier{err: errors.New("boom")}
	c := &recordingNotifier{}

	m := NewMultiNotifier(a, b, c)
	err := m.Send(Notification{Title: "t"})

	if err == nil {
		t.Error("expected error from failing notifier")
	}
	for i, r := range []*recordingNotifier{a, b, c} {
		if len(r.sent) != 1 {
			t.Errorf("notifier %d got %d notifications, want 1", i, len(r.sent))
		}
	}
}

func TestForRun(t *testing.T) {
	n := ForRun("r1", "https://github.com/acme/widgets", domain.StatusPassed, 110)
	if n.Type != NotifySuccess || n.RunID != "r1" {
		t.Errorf("passed notification = %+v", n)
	}

	n = ForRun("r2", "https://github.com/acme/widgets", domain.StatusFailed, 0)
	if n.Type != NotifyError {
		t.Errorf("failed notification type = %v, want error", n.Type)
	}
}

func TestSlackNotifierPostsPayload(t *testing.T) {
	var got SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
	}))
	defer srv.Close()

	s := NewSlackNotifier(srv.URL)
	err := s.Send(Notification{Title: "Healing run passed", Message: "score 110", Type: NotifySuccess, RunID: "r1"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.Text != "Healing run passed" {
		t.Errorf("text = %q", got.Text)
	}
	if len(got.Attachments) != 1 || got.Attachments[0].Color != "good" {
		t.Errorf("attachments = %+v", got.Attachments)
	}
	if got.Attachments[0].Title != "r1" {
		t.Errorf("attachment title = %q, want run ID", got.Attachments[0].Title)
	}
}

func TestSlackNotifierDisabledWithoutWebhook(t *testing.T) {
	s := NewSlackNotifier("")
	if err := s.Send(Notification{Title: "t"}); err != nil {
		t.Errorf("disabled notifier returned %v", err)
	}
}

func TestSlackNotifierSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSlackNotifier(srv.URL)
	if err := s.Send(Notification{Title: "t"}); err == nil {
		t.Error("expected error for 500 response")
	}
}
