package consumerWorker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"eventide/internal/apperr"
	"eventide/internal/dto"
)

type fakeProcessor struct {
	mu       sync.Mutex
	notified []string
	issued   []string
	err      error
}

func (p *fakeProcessor) NotifyStatusChange(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notified = append(p.notified, id)
	return p.err
}

func (p *fakeProcessor) IssueCertificate(_ context.Context, id string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued = append(p.issued, id)
	return "/files/certificates/" + id + ".html", p.err
}

func body(t *testing.T, msgType, id string) []byte {
	t.Helper()
	b, err := json.Marshal(dto.RegistrationMessage{Type: msgType, RegistrationID: id, EventID: "ev"})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleRoutesByType(t *testing.T) {
	log := zerolog.Nop()
	p := &fakeProcessor{}
	r := NewReader(nil, p, &log)

	if err := r.Handle(body(t, dto.MessageStatusChanged, "r1")); err != nil {
		t.Fatal(err)
	}
	if err := r.Handle(body(t, dto.MessageAttended, "r2")); err != nil {
		t.Fatal(err)
	}
	if err := r.Handle(body(t, "something.else", "r3")); err != nil {
		t.Fatal(err)
	}
	if err := r.Handle([]byte("{not json")); err != nil {
		t.Fatal("undecodable messages must be dropped")
	}
	if len(p.notified) != 1 || p.notified[0] != "r1" {
		t.Fatalf("notified %v", p.notified)
	}
	if len(p.issued) != 1 || p.issued[0] != "r2" {
		t.Fatalf("issued %v", p.issued)
	}
}

func TestHandleRequeuesOnlyRetryable(t *testing.T) {
	log := zerolog.Nop()
	p := &fakeProcessor{err: apperr.New(apperr.KindTransient, "db down")}
	r := NewReader(nil, p, &log)
	if err := r.Handle(body(t, dto.MessageAttended, "r1")); err == nil {
		t.Fatal("transient failure must be redelivered")
	}

	p.err = apperr.NotFound("registration not found")
	if err := r.Handle(body(t, dto.MessageAttended, "r1")); err != nil {
		t.Fatalf("permanent failure must be dropped, got %v", err)
	}
}

func TestInlinePublish(t *testing.T) {
	log := zerolog.Nop()
	p := &fakeProcessor{}
	in := NewInline(context.Background(), &log)
	in.Bind(p)
	for _, id := range []string{"a", "b", "c"} {
		if err := in.Publish(context.Background(), dto.RegistrationMessage{Type: dto.MessageStatusChanged, RegistrationID: id}); err != nil {
			t.Fatal(err)
		}
	}
	in.Wait()
	if len(p.notified) != 3 {
		t.Fatalf("notified %v", p.notified)
	}
}
