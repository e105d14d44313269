package transcript

import "clinic-agent/internal/textnorm"

// DefaultDedupThreshold is the Jaccard token similarity at or above which two
// task descriptions are the same task.
const DefaultDedupThreshold = 0.85

// IsDuplicate reports whether desc matches any of existing at or above
// threshold.
func IsDuplicate(desc string, existing []string, threshold float64) bool {
	for _, e := range existing {
		if textnorm.Jaccard(desc, e) >= threshold {
			return true
		}
	}
	return false
}
