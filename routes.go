package rexel

import "strings"

// RouteClass is the logical zone a request path addresses.
type RouteClass int

const (
	// RouteDirect paths are sent unmodified.
	RouteDirect RouteClass = iota
	// RoutePublic paths need no credentials but carry the session header.
	RoutePublic
	// RouteSecured paths require a bearer token.
	RouteSecured
)

const (
	publicMarker  = "public"
	securedMarker = "secured"
)

func (rc RouteClass) String() string {
	switch rc {
	case RoutePublic:
		return "public"
	case RouteSecured:
		return "secured"
	default:
		return "direct"
	}
}

// ClassifyRoute maps a request path to its route class. A leading slash is
// ignored; "public/..." and "secured/..." select their zones and anything
// else, absolute URLs included, is direct.
func ClassifyRoute(path string) RouteClass {
	p := strings.TrimPrefix(path, "/")
	switch {
	case hasSegmentPrefix(p, securedMarker):
		return RouteSecured
	case hasSegmentPrefix(p, publicMarker):
		return RoutePublic
	default:
		return RouteDirect
	}
}

func hasSegmentPrefix(p, marker string) bool {
	if !strings.HasPrefix(p, marker) {
		return false
	}
	rest := p[len(marker):]
	return rest == "" || rest[0] == '/' || rest[0] == '?'
}

// RoutePrefixes holds the backend's real prefixes for the logical zones.
type RoutePrefixes struct {
	Public  string
	Secured string
}

// DefaultRoutePrefixes matches the backend's route convention.
func DefaultRoutePrefixes() RoutePrefixes {
	return RoutePrefixes{
		Public:  "api/v1/public",
		Secured: "api/v1/secured",
	}
}

// Rewrite classifies path and swaps its logical marker for the backend
// prefix. Direct paths come back unchanged.
func (rp RoutePrefixes) Rewrite(path string) (RouteClass, string) {
	class := ClassifyRoute(path)
	var marker, prefix string
	switch class {
	case RoutePublic:
		marker, prefix = publicMarker, rp.Public
	case RouteSecured:
		marker, prefix = securedMarker, rp.Secured
	default:
		return class, path
	}

	rest := strings.TrimPrefix(path, "/")[len(marker):]
	return class, "/" + strings.Trim(prefix, "/") + rest
}
