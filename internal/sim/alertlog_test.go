package sim

import (
	"testing"

	"github.com/tunnelwatch/engine/pkg/core"
)

// Scenario: appending six alerts evicts the oldest; contents are strictly
// most-recent-first.
func TestAlertLog_EvictsOldest(t *testing.T) {
	log := NewAlertLog(5)

	for id := uint64(1); id <= 6; id++ {
		log.Append(core.Alert{ID: id})
	}

	got := log.All()
	want := []uint64{6, 5, 4, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, a := range got {
		if a.ID != want[i] {
			t.Errorf("entry %d: got ID %d, want %d", i, a.ID, want[i])
		}
	}
}

func TestAlertLog_NeverExceedsCapacity(t *testing.T) {
	log := NewAlertLog(5)
	for id := uint64(1); id <= 50; id++ {
		log.Append(core.Alert{ID: id})
		if log.Len() > 5 {
			t.Fatalf("log grew to %d entries", log.Len())
		}
	}
}

func TestAlertLog_Clear(t *testing.T) {
	log := NewAlertLog(5)
	log.Append(core.Alert{ID: 1})
	log.Append(core.Alert{ID: 2})

	log.Clear()

	if log.Len() != 0 {
		t.Errorf("expected empty log after clear, got %d entries", log.Len())
	}
}

func TestAlertLog_DefaultCapacity(t *testing.T) {
	log := NewAlertLog(0)
	for id := uint64(1); id <= 10; id++ {
		log.Append(core.Alert{ID: id})
	}
	if log.Len() != DefaultAlertLogCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultAlertLogCapacity, log.Len())
	}
}

func TestAlertLog_AllReturnsCopy(t *testing.T) {
	log := NewAlertLog(5)
	log.Append(core.Alert{ID: 1})

	got := log.All()
	got[0].ID = 99

	if log.All()[0].ID != 1 {
		t.Error("mutating the returned slice changed the log")
	}
}
