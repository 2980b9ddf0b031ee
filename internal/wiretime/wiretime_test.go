package wiretime

import "testing"

func TestRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 1_700_000_000_123_456, -1_000_000_000_000_000}
	for _, micros := range cases {
		iso := ToISO(micros)
		back, err := FromISO(iso)
		if err != nil {
			t.Fatalf("FromISO(%q): %v", iso, err)
		}
		if back != micros {
			t.Errorf("round trip mismatch: %d -> %q -> %d", micros, iso, back)
		}
	}
}

func TestFromISONoFractionalSeconds(t *testing.T) {
	back, err := FromISO("2024-01-15T10:30:00Z")
	if err != nil {
		t.Fatalf("FromISO: %v", err)
	}
	if ToISO(back) != "2024-01-15T10:30:00Z" {
		t.Errorf("got %q", ToISO(back))
	}
}
