package server

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/sambeau/tabula/config"
)

// cors adds Cross-Origin Resource Sharing headers so browser clients on
// other origins can call the API.
type cors struct {
	handler http.Handler
	cfg     config.CORSConfig
}

// newCORS wraps handler. Without configured origins it returns handler
// unchanged.
func newCORS(handler http.Handler, cfg config.CORSConfig) http.Handler {
	if len(cfg.Origins) == 0 {
		return handler
	}
	return &cors{handler: handler, cfg: cfg}
}

func (c *cors) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	// Same-origin requests and unknown origins pass through without headers;
	// the browser blocks the latter.
	if origin == "" || !c.allowed(origin) {
		c.handler.ServeHTTP(w, r)
		return
	}

	h := w.Header()
	if c.cfg.Credentials || !c.wildcard() {
		h.Set("Access-Control-Allow-Origin", origin)
	} else {
		h.Set("Access-Control-Allow-Origin", "*")
	}
	if c.cfg.Credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	// Content-Disposition carries the export filename
	h.Set("Access-Control-Expose-Headers", "Content-Disposition")
	h.Add("Vary", "Origin")

	if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
		c.preflight(w, r)
		return
	}
	c.handler.ServeHTTP(w, r)
}

func (c *cors) wildcard() bool {
	return slices.Contains(c.cfg.Origins, "*")
}

func (c *cors) allowed(origin string) bool {
	return c.wildcard() || slices.Contains(c.cfg.Origins, origin)
}

func (c *cors) preflight(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	methods := c.cfg.Methods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost}
	}
	h.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))

	if len(c.cfg.Headers) > 0 {
		h.Set("Access-Control-Allow-Headers", strings.Join(c.cfg.Headers, ", "))
	} else if requested := r.Header.Get("Access-Control-Request-Headers"); requested != "" {
		h.Set("Access-Control-Allow-Headers", requested)
	}
	if c.cfg.MaxAge > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(c.cfg.MaxAge))
	}
	w.WriteHeader(http.StatusNoContent)
}
