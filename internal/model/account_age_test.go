package model

import "testing"

func TestEstimateAccountAgeBands(t *testing.T) {
	// FIDs chosen so that 1100 - fid/818 hits each band.
	cases := []struct {
		fid   int64
		days  int
		label string
	}{
		{818 * 300, 800, "OG (2+ years)"},
		{818 * 700, 400, "Veteran (1+ year)"},
		{818 * 900, 200, "Established (6+ months)"},
		{818 * 1060, 40, "New (1-6 months)"},
		{818 * 1090, 10, "Very New (<1 month)"},
	}
	for _, c := range cases {
		got := EstimateAccountAge(c.fid)
		if got.Days != c.days || got.Label != c.label {
			t.Fatalf("fid=%d: got %+v, want days=%d label=%q", c.fid, got, c.days, c.label)
		}
	}
}

func TestEstimateAccountAgeMonotonic(t *testing.T) {
	prev := EstimateAccountAge(1).Days
	for fid := int64(1000); fid <= 2000000; fid += 1000 {
		d := EstimateAccountAge(fid).Days
		if d > prev {
			t.Fatalf("age increased with fid: fid=%d days=%d prev=%d", fid, d, prev)
		}
		prev = d
	}
}

func TestEstimateAccountAgeImplausibleFID(t *testing.T) {
	// Far beyond the modeled range the estimate goes negative; that is
	// passed through, not guarded, so callers can spot bad input.
	got := EstimateAccountAge(818 * 2000)
	if got.Days >= 0 {
		t.Fatalf("expected negative day estimate, got %d", got.Days)
	}
	if got.Label != "Very New (<1 month)" {
		t.Fatalf("unexpected label %q", got.Label)
	}
}
