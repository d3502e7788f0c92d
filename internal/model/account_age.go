package model

// FIDs are allocated roughly sequentially, so a FID maps to an approximate
// registration date via a fitted linear model: ~818 FIDs allocated per day,
// against ~1100 days of protocol history at calibration time. The model is
// deliberately crude, is not recalibrated, and will drift as the protocol
// ages. Implausibly high FIDs yield negative day counts, which are passed
// through unguarded since they flag bad caller input.
const (
	fidsPerDay      = 818
	protocolAgeDays = 1100
)

// EstimateAccountAge derives an approximate account age from a FID.
// Monotonically non-increasing in fid within the modeled range.
func EstimateAccountAge(fid int64) AccountAge {
	days := protocolAgeDays - int(fid/fidsPerDay)
	switch {
	case days > 730:
		return AccountAge{Days: days, Label: "OG (2+ years)"}
	case days > 365:
		return AccountAge{Days: days, Label: "Veteran (1+ year)"}
	case days > 180:
		return AccountAge{Days: days, Label: "Established (6+ months)"}
	case days > 30:
		return AccountAge{Days: days, Label: "New (1-6 months)"}
	default:
		return AccountAge{Days: days, Label: "Very New (<1 month)"}
	}
}
