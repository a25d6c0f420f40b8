package catalog

import (
	"testing"

	"github.com/GarrettC14/nutrirx-llm/internal/device"
)

func TestCatalogOrdering(t *testing.T) {
	models := All()
	if len(models) == 0 {
		t.Fatal("catalog is empty")
	}

	for i := 1; i < len(models); i++ {
		if models[i].MinRAMGB >= models[i-1].MinRAMGB {
			t.Errorf("catalog not in descending RAM order: entry %d requires %.1f, entry %d requires %.1f",
				i-1, models[i-1].MinRAMGB, i, models[i].MinRAMGB)
		}
	}
}

func TestCatalogEntriesComplete(t *testing.T) {
	for _, m := range All() {
		if m.Name == "" || m.Filename == "" || m.URL == "" {
			t.Errorf("entry %q has missing identity fields", m.Name)
		}
		if m.SizeBytes <= 0 {
			t.Errorf("entry %q has no expected size", m.Name)
		}
		if m.ContextWindow <= 0 || m.Threads <= 0 {
			t.Errorf("entry %q has invalid runtime parameters", m.Name)
		}
		if !m.Dialect.Valid() {
			t.Errorf("entry %q has unknown dialect %q", m.Name, m.Dialect)
		}
		if len(m.StopTokens) == 0 {
			t.Errorf("entry %q has no stop tokens", m.Name)
		}
	}
}

func TestSelectForRAM(t *testing.T) {
	tests := []struct {
		ramGB    float64
		wantTier device.Tier
		wantNil  bool
	}{
		{8.0, device.TierStandard, false},
		{6.0, device.TierStandard, false},
		{5.9, device.TierCompact, false},
		{4.0, device.TierCompact, false},
		{3.5, device.TierMinimal, false},
		{3.0, device.TierMinimal, false},
		{2.9, "", true},
		{0, "", true},
	}

	for _, tt := range tests {
		m := SelectForRAM(tt.ramGB)
		if tt.wantNil {
			if m != nil {
				t.Errorf("SelectForRAM(%.1f) = %q, want nil", tt.ramGB, m.Name)
			}
			continue
		}
		if m == nil {
			t.Errorf("SelectForRAM(%.1f) = nil, want tier %s", tt.ramGB, tt.wantTier)
			continue
		}
		if m.Tier != tt.wantTier {
			t.Errorf("SelectForRAM(%.1f) = tier %s, want %s", tt.ramGB, m.Tier, tt.wantTier)
		}
	}
}

func TestSelectForRAMReturnsCopy(t *testing.T) {
	a := SelectForRAM(8)
	a.Name = "mutated"

	b := SelectForRAM(8)
	if b.Name == "mutated" {
		t.Error("SelectForRAM returned a pointer into the catalog table")
	}
}

func TestByTier(t *testing.T) {
	m, err := ByTier(device.TierCompact)
	if err != nil {
		t.Fatalf("ByTier(compact) failed: %v", err)
	}
	if m.MinRAMGB != 4.0 {
		t.Errorf("compact tier requires %.1f GB, want 4.0", m.MinRAMGB)
	}

	if _, err := ByTier(device.TierAppleFoundation); err == nil {
		t.Error("expected error for tier with no downloadable model")
	}
}
