package shared

// DimensionAll disables channel or category narrowing.
const DimensionAll = "all"

// Normalise returns "" for the "all" sentinel so callers can test for emptiness.
func Normalise(dimension string) string {
	if dimension == DimensionAll {
		return ""
	}
	return dimension
}
