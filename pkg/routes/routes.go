// Package routes declares HTTP routes as nested prefix groups and registers
// them on a ServeMux.
package routes

import "net/http"

// Route binds an HTTP method and a pattern relative to its group prefix.
type Route struct {
	Method  string
	Pattern string
	Handler http.HandlerFunc
}

// Group shares Prefix across Routes and nested Children.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Walk calls fn with the full ServeMux pattern of every route in g, parents
// before children.
func (g Group) Walk(fn func(pattern string, route Route)) {
	g.walk("", fn)
}

func (g Group) walk(parent string, fn func(string, Route)) {
	prefix := parent + g.Prefix
	for _, r := range g.Routes {
		fn(r.Method+" "+prefix+r.Pattern, r)
	}
	for _, child := range g.Children {
		child.walk(prefix, fn)
	}
}

// Register adds every route of groups to mux and returns the registered
// patterns in order.
func Register(mux *http.ServeMux, groups ...Group) []string {
	var patterns []string
	for _, g := range groups {
		g.Walk(func(pattern string, r Route) {
			mux.HandleFunc(pattern, r.Handler)
			patterns = append(patterns, pattern)
		})
	}
	return patterns
}
