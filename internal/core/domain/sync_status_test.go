package domain

import "testing"

func TestDeriveConnectionState(t *testing.T) {
	tests := []struct {
		name      string
		manual    bool
		connected bool
		failures  int
		expected  ConnectionState
	}{
		{"never connected", false, false, 0, StateDisconnected},
		{"connected clean", false, true, 0, StateConnected},
		{"manual beats connected", true, true, 0, StateManual},
		{"manual beats failures", true, false, 5, StateManual},
		{"one failure", false, false, 1, StateReconnecting},
		{"two failures", false, false, 2, StateReconnecting},
		{"three failures", false, false, 3, StateDisconnected},
		{"many failures", false, false, 10, StateDisconnected},
		{"connected flag with failures", false, true, 1, StateReconnecting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveConnectionState(tt.manual, tt.connected, tt.failures)
			if got != tt.expected {
				t.Errorf("DeriveConnectionState(%v, %v, %d) = %s, want %s",
					tt.manual, tt.connected, tt.failures, got, tt.expected)
			}
		})
	}
}

func TestSyncStatusClone(t *testing.T) {
	msg := "boom"
	s := NewSyncStatus("l1")
	s.Error = &msg

	c := s.Clone()
	*c.Error = "changed"

	if *s.Error != "boom" {
		t.Errorf("clone shares error pointer, original now %q", *s.Error)
	}
}
