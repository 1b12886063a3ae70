package nats

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
	"github.com/samijaber1/aegis-guard/internal/ingest"
)

// Transport carries samples in and guard events out over NATS. Outbound
// publishing is fire-and-forget; inbound handlers log and drop malformed
// payloads instead of crashing the subscription.
type Transport struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// Connect establishes the NATS connection
func Connect(url string) (*Transport, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Transport{conn: conn}, nil
}

// Publish implements events.Publisher
func (t *Transport) Publish(subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	return t.conn.Publish(subject, data)
}

// SubscribeSamples wires every inbound sample subject to the ingestor
func (t *Transport) SubscribeSamples(in *ingest.Ingestor) error {
	handlers := []struct {
		subject string
		handler nats.MsgHandler
	}{
		{ingest.SubjectProbeResult, decode(in.Probe)},
		{ingest.SubjectFeedTick, decode(in.Feed)},
		{ingest.SubjectHeartbeatMissed, decode(in.Heartbeat)},
		{ingest.SubjectErrorEvent, decode(in.Error)},
		{ingest.SubjectCircuitState, decode(in.Circuit)},
		{ingest.SubjectFailoverDone, decode(in.FailoverDone)},
	}

	for _, h := range handlers {
		sub, err := t.conn.Subscribe(h.subject, h.handler)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", h.subject, err)
		}
		t.subs = append(t.subs, sub)
	}
	return nil
}

// Close drains in-flight messages and closes the connection
func (t *Transport) Close() {
	if t.conn != nil {
		t.conn.Drain()
		t.conn.Close()
	}
}

// decode unmarshals one inbound message and hands it to the ingest method.
// Bad input is logged and dropped.
func decode[T any](handle func(T) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var ev T
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			log.Printf("Warning: dropping malformed %s: %v", msg.Subject, err)
			return
		}
		if err := handle(ev); err != nil {
			log.Printf("Warning: dropping invalid %s: %v", msg.Subject, err)
		}
	}
}
