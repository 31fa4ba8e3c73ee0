package dx

import "strings"

// IsRelevant reports whether a raw cluster line should be relayed. It works
// on the raw text so that irrelevant lines are discarded before parsing.
//
// Accepted are spots reported by Finnish stations (OH/OG followed by a call
// area digit) and spots carrying a Finnish WWFF (OHFF-) or POTA (OH-)
// reference.
func IsRelevant(line string) bool {
	line = strings.ToLower(line)

	if !strings.HasPrefix(line, "dx de") {
		return false
	}

	// "dx de oh" is 8 bytes; the call area digit follows directly.
	if strings.HasPrefix(line, "dx de oh") || strings.HasPrefix(line, "dx de og") {
		if len(line) > 8 && line[8] >= '0' && line[8] <= '9' {
			return true
		}
	}

	if strings.Contains(line, "ohff-") {
		return true
	}

	return strings.Contains(line, "oh-")
}
