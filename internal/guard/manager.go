package guard

import (
	"log"
	"time"

	"github.com/samijaber1/aegis-guard/internal/dispatch"
	"github.com/samijaber1/aegis-guard/internal/events"
	"github.com/samijaber1/aegis-guard/internal/ingest"
	"github.com/samijaber1/aegis-guard/internal/metrics"
	"github.com/samijaber1/aegis-guard/internal/service"
)

// Manager owns exactly one machine per configured service. The machine set is
// immutable after construction; only evaluation ticks and acknowledgements
// reach the machines.
type Manager struct {
	machines map[string]*Machine
	defs     map[string]*service.Definition
}

// NewManager builds one machine in IDLE per definition
func NewManager(defs []service.DefinitionWithFile, dispatcher *dispatch.Dispatcher, publisher events.Publisher, collector *metrics.Collector) *Manager {
	m := &Manager{
		machines: make(map[string]*Machine, len(defs)),
		defs:     make(map[string]*service.Definition, len(defs)),
	}
	for _, d := range defs {
		id := d.Definition.Metadata.ID
		m.machines[id] = NewMachine(d.Definition, dispatcher, publisher, collector)
		m.defs[id] = d.Definition
	}
	return m
}

// Machine returns the machine for a service id
func (m *Manager) Machine(serviceID string) (*Machine, bool) {
	mc, ok := m.machines[serviceID]
	return mc, ok
}

// Definition returns the definition for a service id
func (m *Manager) Definition(serviceID string) (*service.Definition, bool) {
	def, ok := m.defs[serviceID]
	return def, ok
}

// ServiceIDs returns every managed service id
func (m *Manager) ServiceIDs() []string {
	ids := make([]string, 0, len(m.machines))
	for id := range m.machines {
		ids = append(ids, id)
	}
	return ids
}

// Snapshots returns the runtime view of every machine
func (m *Manager) Snapshots(now time.Time) map[string]RuntimeSnapshot {
	snaps := make(map[string]RuntimeSnapshot, len(m.machines))
	for id, mc := range m.machines {
		snaps[id] = mc.Snapshot(now)
	}
	return snaps
}

// FailoverAcknowledged implements ingest.AckHandler
func (m *Manager) FailoverAcknowledged(done ingest.FailoverDone) {
	mc, ok := m.machines[done.ServiceID]
	if !ok {
		log.Printf("Warning: failover.done for unknown service %q", done.ServiceID)
		return
	}
	mc.FailoverAcknowledged(done.From, done.Timestamp)
}
