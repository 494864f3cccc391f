package router

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// --- ANSI color codes ---
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type wildcardRoute struct {
	method  string
	pattern string
	handler HandlerFunc
}

type mount struct {
	prefix  string
	handler http.Handler
}

// Router dispatches on method and path. Exact routes win; wildcard routes
// ("*" matches one segment, a trailing "*" matches the rest) are tried in
// registration order, so register specific patterns first.
type Router struct {
	routes    map[string]HandlerFunc // key = METHOD:PATH
	paths     map[string]bool        // track registered paths
	wildcards []wildcardRoute
	mounts    []mount
	Logger    *log.Logger // access log; nil disables it
}

func New() *Router {
	return &Router{
		routes: make(map[string]HandlerFunc),
		paths:  make(map[string]bool),
		Logger: log.Default(),
	}
}

// ServeHTTP dispatches the request and writes one coloured access line.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	r.dispatch(lrw, req)

	if r.Logger == nil {
		return
	}
	duration := time.Since(start)
	r.Logger.Printf("%s[%s]%s %s%s%s %s %s%d%s %s(%v)%s",
		colorCyan, start.Format("2006-01-02 15:04:05"), colorReset,
		methodColor(req.Method), req.Method, colorReset,
		req.URL.Path,
		statusColor(lrw.statusCode), lrw.statusCode, colorReset,
		colorBlue, duration, colorReset,
	)
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	if h, ok := r.routes[req.Method+":"+path]; ok {
		h(w, req)
		return
	}

	pathExists := r.paths[path]
	for _, route := range r.wildcards {
		if !matchWildcardRoute(path, route.pattern) {
			continue
		}
		if route.method == req.Method {
			route.handler(w, req)
			return
		}
		pathExists = true
	}

	for _, m := range r.mounts {
		if strings.HasPrefix(path, m.prefix) {
			m.handler.ServeHTTP(w, req)
			return
		}
	}

	if pathExists {
		// Path exists but method not allowed
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Error(w, "Not Found", http.StatusNotFound)
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
func matchWildcardRoute(requestPath, routePattern string) bool {
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// A trailing wildcard matches one or more remaining segments.
	if n := len(routeSegments); n > 0 && routeSegments[n-1] == "*" {
		if len(requestSegments) < n {
			return false
		}
		for i := 0; i < n-1; i++ {
			if routeSegments[i] != "*" && requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return requestSegments[n-1] != ""
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			if requestSegments[i] == "" {
				return false
			}
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}
	return true
}

// Segment returns the i-th slash-separated segment of path, or "".
func Segment(path string, i int) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if i < 0 || i >= len(segs) {
		return ""
	}
	return segs[i]
}

// --- Register paths ---
func (r *Router) register(method, path string, handler HandlerFunc) {
	if strings.Contains(path, "*") {
		r.wildcards = append(r.wildcards, wildcardRoute{method: method, pattern: path, handler: handler})
		return
	}
	r.routes[method+":"+path] = handler
	r.paths[path] = true
}

func (r *Router) GET(path string, handler HandlerFunc)   { r.register(http.MethodGet, path, handler) }
func (r *Router) POST(path string, handler HandlerFunc)  { r.register(http.MethodPost, path, handler) }
func (r *Router) PUT(path string, handler HandlerFunc)   { r.register(http.MethodPut, path, handler) }
func (r *Router) PATCH(path string, handler HandlerFunc) { r.register(http.MethodPatch, path, handler) }
func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, handler)
}

// Handle mounts h for every method under prefix. Routes registered with the
// method helpers take precedence.
func (r *Router) Handle(prefix string, h http.Handler) {
	r.mounts = append(r.mounts, mount{prefix: prefix, handler: h})
}

// Getter methods for testing
func (r *Router) Routes() map[string]HandlerFunc {
	return r.routes
}

func (r *Router) Paths() map[string]bool {
	return r.paths
}

// --- Start server ---

// Server returns an http.Server for addr backed by the router.
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// --- Color helpers ---
func statusColor(code int) string {
	switch {
	case code >= 200 && code < 300:
		return colorGreen
	case code >= 300 && code < 400:
		return colorCyan
	case code >= 400 && code < 500:
		return colorYellow
	default:
		return colorRed
	}
}

func methodColor(method string) string {
	switch method {
	case http.MethodGet:
		return colorGreen
	case http.MethodPost:
		return colorBlue
	case http.MethodPut:
		return colorYellow
	case http.MethodPatch:
		return colorYellow
	case http.MethodDelete:
		return colorRed
	default:
		return colorCyan
	}
}
