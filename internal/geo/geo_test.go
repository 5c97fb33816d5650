package geo

import "testing"

func TestHaversineKnownDistance(t *testing.T) {
	// Gwanghwamun to Seoul City Hall, roughly one kilometer.
	d := HaversineKm(37.5759, 126.9769, 37.5663, 126.9779)
	if d < 0.5 || d > 1.5 {
		t.Errorf("Expected roughly 1km, got %v", d)
	}

	if zero := HaversineKm(37.5, 127.0, 37.5, 127.0); zero != 0 {
		t.Errorf("Expected zero distance for identical points, got %v", zero)
	}

	// Seoul to Busan, roughly 325km by air.
	far := HaversineKm(37.5665, 126.9780, 35.1796, 129.0756)
	if far < 300 || far > 350 {
		t.Errorf("Expected roughly 325km, got %v", far)
	}
}

func TestRoundKm(t *testing.T) {
	tests := []struct {
		km   float64
		want float64
	}{
		{1.23456, 1.235},
		{0.0004, 0},
		{10, 10},
		{2.9999, 3},
	}

	for _, tt := range tests {
		if got := RoundKm(tt.km); got != tt.want {
			t.Errorf("RoundKm(%v) = %v, want %v", tt.km, got, tt.want)
		}
	}
}
