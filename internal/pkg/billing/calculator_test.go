package billing

import "testing"

func TestChargeCents(t *testing.T) {
	tests := []struct {
		chars int
		rate  float64
		want  int64
	}{
		{chars: 0, rate: 0.01, want: 0},
		{chars: -5, rate: 0.01, want: 0},
		{chars: 100, rate: 0, want: 0},
		{chars: 100, rate: 0.01, want: 1},
		{chars: 50, rate: 0.01, want: 1},
		{chars: 150, rate: 1, want: 150},
		{chars: 10000, rate: 0.01, want: 100},
		{chars: 1, rate: 0.01, want: 1},
	}

	for _, tt := range tests {
		if got := ChargeCents(tt.chars, tt.rate); got != tt.want {
			t.Fatalf("ChargeCents(%d, %v) = %d, want %d", tt.chars, tt.rate, got, tt.want)
		}
	}
}

func TestChargeCentsRoundsUp(t *testing.T) {
	// 101 chars at the default rate is just over one cent and must not
	// truncate down to one.
	if got := ChargeCents(101, 1); got != 101 {
		t.Fatalf("ChargeCents(101, 1) = %d, want 101", got)
	}
	if got := ChargeCents(99, 0.01); got != 1 {
		t.Fatalf("ChargeCents(99, 0.01) = %d, want 1", got)
	}
}
