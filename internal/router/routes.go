// Package router holds the client-side route table, the route guards and the
// navigation history the application shell renders from.
package router

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	RouteHome            = "/"
	RouteLogin           = "/login"
	RouteRegister        = "/register"
	RouteSearch          = "/search"
	RouteSubjects        = "/subjects"
	RouteSubjectsByTerm  = "/subjects/:year/:semester"
	RoutePapersBySubject = "/papers/:year/:semester/:subjectId"
	RoutePaperDetails    = "/papers/:id"
	RouteProfile         = "/profile"
	RouteFeedback        = "/feedback"
	RouteUpload          = "/upload"
	RouteAdmin           = "/admin"
	RouteAdminPapers     = "/admin/papers"
	RouteAdminPaperEdit  = "/admin/papers/edit/:id"
	RouteAdminUsers      = "/admin/users"
	RouteAdminFeedback   = "/admin/feedback"
	RouteAdminSubjects   = "/admin/subjects"
	RouteNotFound        = "/404"
)

// who may see a route. client-side only, the server enforces access.
type Guard int

const (
	Public Guard = iota
	Protected
	AdminOnly
	GuestOnly
)

func (g Guard) String() string {
	switch g {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case AdminOnly:
		return "admin"
	case GuestOnly:
		return "guest"
	default:
		return "unknown"
	}
}

type Route struct {
	Pattern string
	Guard   Guard
}

// ordered so static segments win over parameters
var table = []Route{
	{RouteHome, Public},
	{RouteLogin, GuestOnly},
	{RouteRegister, GuestOnly},
	{RouteSearch, Protected},
	{RouteSubjects, Protected},
	{RouteSubjectsByTerm, Protected},
	{RoutePapersBySubject, Protected},
	{RoutePaperDetails, Public},
	{RouteProfile, Protected},
	{RouteFeedback, Public},
	{RouteUpload, AdminOnly},
	{RouteAdmin, AdminOnly},
	{RouteAdminPapers, AdminOnly},
	{RouteAdminPaperEdit, AdminOnly},
	{RouteAdminUsers, AdminOnly},
	{RouteAdminFeedback, AdminOnly},
	{RouteAdminSubjects, AdminOnly},
	{RouteNotFound, Public},
}

// all known routes
func Routes() []Route {
	out := make([]Route, len(table))
	copy(out, table)
	return out
}

// finds the route for a concrete path and extracts its parameters.
// unknown paths resolve to the not-found route.
func Match(path string) (Route, map[string]string) {
	path = clean(path)

	for _, r := range table {
		if params, ok := matchPattern(r.Pattern, path); ok {
			return r, params
		}
	}

	return Route{Pattern: RouteNotFound, Guard: Public}, nil
}

func matchPattern(pattern, path string) (map[string]string, bool) {
	want := segments(pattern)
	got := segments(path)

	if len(want) != len(got) {
		return nil, false
	}

	var params map[string]string
	for i, seg := range want {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			value, err := url.PathUnescape(got[i])
			if err != nil || value == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = value
			continue
		}

		if seg != got[i] {
			return nil, false
		}
	}

	return params, true
}

func segments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return RouteHome
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

func SubjectsPath(year, semester string) string {
	return fmt.Sprintf("/subjects/%s/%s", url.PathEscape(year), url.PathEscape(semester))
}

func PapersBySubjectPath(year, semester, subjectID string) string {
	return fmt.Sprintf("/papers/%s/%s/%s", url.PathEscape(year), url.PathEscape(semester), url.PathEscape(subjectID))
}

func PaperPath(id string) string {
	return "/papers/" + url.PathEscape(id)
}

func AdminPaperEditPath(id string) string {
	return "/admin/papers/edit/" + url.PathEscape(id)
}
