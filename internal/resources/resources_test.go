package resources

import "testing"

func TestForRegionKnown(t *testing.T) {
	lines := ForRegion("us")
	if len(lines) == 0 {
		t.Fatalf("ForRegion(us) returned no entries")
	}
	if lines[0].Name != "988 Suicide & Crisis Lifeline" {
		t.Fatalf("ForRegion(us)[0].Name = %q, want 988 lifeline", lines[0].Name)
	}
}

func TestForRegionNormalizesInput(t *testing.T) {
	upper := ForRegion("  UK ")
	if len(upper) == 0 || upper[0].Name != "Samaritans" {
		t.Fatalf("ForRegion(UK) = %+v, want Samaritans first", upper)
	}
}

func TestForRegionFallsBackToInternational(t *testing.T) {
	for _, region := range []string{"", "zz", "unknown"} {
		lines := ForRegion(region)
		if len(lines) == 0 {
			t.Fatalf("ForRegion(%q) returned no entries, want intl fallback", region)
		}
		if lines[0].Name != "Befrienders Worldwide" {
			t.Fatalf("ForRegion(%q)[0].Name = %q, want intl directory", region, lines[0].Name)
		}
	}
}

func TestForRegionReturnsCopy(t *testing.T) {
	first := ForRegion("us")
	first[0].Name = "mutated"

	second := ForRegion("us")
	if second[0].Name == "mutated" {
		t.Fatalf("ForRegion() shares backing array with callers")
	}
}

func TestEveryRegionHasContactMethod(t *testing.T) {
	for _, region := range Regions() {
		for _, line := range ForRegion(region) {
			if line.Phone == "" && line.Text == "" && line.URL == "" {
				t.Fatalf("region %q helpline %q has no contact method", region, line.Name)
			}
		}
	}
}
