package events

import "testing"

func TestRevertSubject(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"failover", "failover.revert"},
		{"degrade", "degrade.revert"},
		{"gate", "gate.revert"},
		{"circuit", "circuit.revert"},
	}

	for _, tt := range tests {
		if got := RevertSubject(tt.kind); got != tt.want {
			t.Errorf("RevertSubject(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
