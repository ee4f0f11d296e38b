package router

// the parts of the session a guard looks at
type Viewer interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// decides where a request for path actually lands.
// returns path itself when the guard allows it, otherwise the redirect target.
func Resolve(path string, v Viewer) string {
	route, _ := Match(path)
	path = clean(path)

	switch route.Guard {
	case Protected:
		if !v.IsAuthenticated() {
			return RouteLogin
		}
	case AdminOnly:
		if !v.IsAuthenticated() {
			return RouteLogin
		}
		if !v.IsAdmin() {
			return RouteSearch
		}
	case GuestOnly:
		if v.IsAuthenticated() {
			return RouteSearch
		}
	}

	if route.Pattern == RouteNotFound {
		return RouteNotFound
	}

	return path
}

// reports whether v may view path without being redirected
func Allowed(path string, v Viewer) bool {
	return Resolve(path, v) == clean(path)
}
