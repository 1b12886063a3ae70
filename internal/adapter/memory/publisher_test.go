package memory

import (
	"sync"
	"testing"
)

func TestPublisher_RecordsBySubject(t *testing.T) {
	p := NewPublisher()

	if err := p.Publish("slo.guard.triggered", "a"); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := p.Publish("slo.guard.alert", "b"); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if err := p.Publish("slo.guard.triggered", "c"); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}

	if p.Count() != 3 {
		t.Errorf("expected 3 messages, got %d", p.Count())
	}
	triggered := p.BySubject("slo.guard.triggered")
	if len(triggered) != 2 {
		t.Fatalf("expected 2 triggered messages, got %d", len(triggered))
	}
	if triggered[0].Payload != "a" || triggered[1].Payload != "c" {
		t.Errorf("expected publication order preserved, got %+v", triggered)
	}

	p.Clear()
	if p.Count() != 0 {
		t.Errorf("expected empty publisher after clear, got %d", p.Count())
	}
}

func TestPublisher_Concurrent(t *testing.T) {
	p := NewPublisher()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Publish("subject", struct{}{})
		}()
	}
	wg.Wait()

	if p.Count() != 50 {
		t.Errorf("expected 50 messages, got %d", p.Count())
	}
}
