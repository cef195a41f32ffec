package graph

// StrengthForHops maps the hop count of an introduction path to a connection
// strength. A negative hop count means no path was found.
//
// Paths longer than three hops are only returned when the service is
// configured with a larger max depth; they get a weak 0.1.
func StrengthForHops(hops int) float64 {
	switch {
	case hops < 0:
		return 0.0
	case hops <= 1:
		return 1.0
	case hops == 2:
		return 0.7
	case hops == 3:
		return 0.4
	default:
		return 0.1
	}
}
