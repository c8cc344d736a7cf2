package idhash

import (
	"testing"
)

func TestComputeDecisionID(t *testing.T) {
	tests := []struct {
		name        string
		poolID      string
		mint        string
		evaluatedAt int64
	}{
		{
			name:        "basic decision",
			poolID:      "7Xa1fPoo1111111111111111111111111111111111",
			mint:        "MintAaaa1111111111111111111111111111111111",
			evaluatedAt: 1704067234567,
		},
		{
			name:        "empty pool id",
			poolID:      "",
			mint:        "MintBbbb2222222222222222222222222222222222",
			evaluatedAt: 1704067300000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDecisionID(tt.poolID, tt.mint, tt.evaluatedAt)
			if len(got) != 64 {
				t.Errorf("ComputeDecisionID() length = %d, want 64", len(got))
			}

			got2 := ComputeDecisionID(tt.poolID, tt.mint, tt.evaluatedAt)
			if got != got2 {
				t.Errorf("ComputeDecisionID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DistinctInputs(t *testing.T) {
	a := ComputeTradeID("mintA", "BUY", 1000000, 1704067234567)
	b := ComputeTradeID("mintA", "SELL", 1000000, 1704067234567)
	if a == b {
		t.Error("different sides should produce different trade ids")
	}

	c := ComputeTradeID("mintA", "BUY", 1000001, 1704067234567)
	if a == c {
		t.Error("different amounts should produce different trade ids")
	}
}

func TestComputePositionID(t *testing.T) {
	got := ComputePositionID("mintA", "poolA", 1704067234567)
	if len(got) != 64 {
		t.Errorf("ComputePositionID() length = %d, want 64", len(got))
	}
	if got != ComputePositionID("mintA", "poolA", 1704067234567) {
		t.Error("ComputePositionID() not deterministic")
	}
	if got == ComputePositionID("mintA", "poolB", 1704067234567) {
		t.Error("different pools should produce different position ids")
	}
}
