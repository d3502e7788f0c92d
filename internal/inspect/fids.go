package inspect

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseFIDList parses a comma-separated FID list. Validation failures here
// are the one class of error surfaced to the caller as a request error; the
// scorers assume validated input.
func ParseFIDList(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fid, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fid %q", p)
		}
		if fid <= 0 {
			return nil, fmt.Errorf("fid must be positive, got %d", fid)
		}
		out = append(out, fid)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no fids given")
	}
	if len(out) > MaxBatch {
		return nil, fmt.Errorf("at most %d fids per request, got %d", MaxBatch, len(out))
	}
	return out, nil
}
