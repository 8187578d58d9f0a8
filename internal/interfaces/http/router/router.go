package router

import (
	"path"

	"github.com/gin-gonic/gin"
)

// Mounter attaches a set of routes under the versioned API group
type Mounter interface {
	Mount(api *gin.RouterGroup) []string
}

// API collects the route groups served under /api/<version>
type API struct {
	engine  *gin.Engine
	version string
	groups  []Mounter
}

// APIOption configures an API
type APIOption func(*API)

// WithVersion sets the version segment of the API prefix (e.g. "v1")
func WithVersion(version string) APIOption {
	return func(a *API) {
		a.version = version
	}
}

// NewAPI creates an API rooted at /api/v1 unless overridden
func NewAPI(engine *gin.Engine, opts ...APIOption) *API {
	a := &API{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add queues groups for mounting
func (a *API) Add(groups ...Mounter) *API {
	a.groups = append(a.groups, groups...)
	return a
}

// Prefix returns the path every group is mounted under
func (a *API) Prefix() string {
	return "/api/" + a.version
}

// Mount registers every queued group and returns the full paths served
func (a *API) Mount() []string {
	api := a.engine.Group(a.Prefix())
	var paths []string
	for _, g := range a.groups {
		paths = append(paths, g.Mount(api)...)
	}
	return paths
}

// ReadGroup is a set of GET routes sharing a path prefix and guards.
// Every endpoint of the ledger API is a read.
type ReadGroup struct {
	prefix string
	guards []gin.HandlerFunc
	routes []readRoute
}

type readRoute struct {
	path     string
	handlers []gin.HandlerFunc
}

// NewReadGroup creates a group under prefix; guards run before every route
func NewReadGroup(prefix string, guards ...gin.HandlerFunc) *ReadGroup {
	return &ReadGroup{prefix: prefix, guards: guards}
}

// Get adds a GET route relative to the group prefix
func (g *ReadGroup) Get(p string, handlers ...gin.HandlerFunc) *ReadGroup {
	g.routes = append(g.routes, readRoute{path: p, handlers: handlers})
	return g
}

// Prefix returns the group prefix
func (g *ReadGroup) Prefix() string {
	return g.prefix
}

// Mount implements Mounter
func (g *ReadGroup) Mount(api *gin.RouterGroup) []string {
	group := api.Group(g.prefix, g.guards...)
	paths := make([]string, 0, len(g.routes))
	for _, r := range g.routes {
		group.GET(r.path, r.handlers...)
		paths = append(paths, path.Join(group.BasePath(), r.path))
	}
	return paths
}
