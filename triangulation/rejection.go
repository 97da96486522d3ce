package triangulation

// Rejection is the outcome of a triangulation attempt. Every value except Accepted names the
// first gate that failed.
type Rejection int

// The gates in the order they are checked.
const (
	Accepted Rejection = iota
	RejectParallax
	RejectDegenerate
	RejectDepth
	RejectReprojection
	RejectScale
)

// Rejections lists every outcome, in gate order.
var Rejections = []Rejection{Accepted, RejectParallax, RejectDegenerate, RejectDepth, RejectReprojection, RejectScale}

func (r Rejection) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectParallax:
		return "parallax"
	case RejectDegenerate:
		return "degenerate"
	case RejectDepth:
		return "depth"
	case RejectReprojection:
		return "reprojection"
	case RejectScale:
		return "scale"
	default:
		return "unknown"
	}
}
