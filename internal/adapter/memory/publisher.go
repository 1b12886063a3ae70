package memory

import "sync"

// Published is one recorded outbound message
type Published struct {
	Subject string
	Payload any
}

// Publisher is an in-process events.Publisher that records everything it is
// given. It backs the memory transport mode and the test suites.
type Publisher struct {
	mu        sync.Mutex
	published []Published
}

// NewPublisher creates an empty in-memory publisher
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish implements events.Publisher
func (p *Publisher) Publish(subject string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, Published{Subject: subject, Payload: payload})
	return nil
}

// All returns a copy of every recorded message
func (p *Publisher) All() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Published, len(p.published))
	copy(out, p.published)
	return out
}

// BySubject returns recorded messages for one subject
func (p *Publisher) BySubject(subject string) []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Published
	for _, msg := range p.published {
		if msg.Subject == subject {
			out = append(out, msg)
		}
	}
	return out
}

// Count returns the number of recorded messages
func (p *Publisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

// Clear drops all recorded messages
func (p *Publisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = nil
}
