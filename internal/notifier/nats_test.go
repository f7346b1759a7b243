package notifier

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/amishk599/jobenrich/internal/model"
)

// Runs against a real server only when JOBENRICH_TEST_NATS_URL is set.
func TestNATSNotifier_Publishes(t *testing.T) {
	url := os.Getenv("JOBENRICH_TEST_NATS_URL")
	if url == "" {
		t.Skip("JOBENRICH_TEST_NATS_URL not set")
	}

	sub, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}
	defer sub.Close()

	subject := "jobenrich.test." + time.Now().Format("150405.000000")
	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(subject, msgs)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer s.Unsubscribe()
	if err := sub.Flush(); err != nil {
		t.Fatal(err)
	}

	n, err := NewNATSNotifier(url, subject, discardLogger())
	if err != nil {
		t.Fatalf("NewNATSNotifier: %v", err)
	}
	defer n.Close()

	if err := n.Notify(sampleSummary(model.RunStatusSucceeded)); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case msg := <-msgs:
		var got model.RunSummary
		if err := json.Unmarshal(msg.Data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.RunID != "run-1" || got.Inserted != 8 {
			t.Errorf("summary = %+v", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestNewNATSNotifier_DefaultSubject(t *testing.T) {
	n := newNATSNotifier(nil, "", discardLogger())
	if n.subject != DefaultSubject {
		t.Errorf("subject = %q, want %q", n.subject, DefaultSubject)
	}
	if err := n.Close(); err != nil {
		t.Errorf("Close on nil conn = %v", err)
	}
}
