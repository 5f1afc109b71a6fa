// Package analytics keeps approximate in-memory visit counters. The counters
// are not persisted and start from zero on every restart.
package analytics

import (
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
)

type Counter struct {
	mu     sync.RWMutex
	visits map[string]int64
	byIP   map[string]map[string]int64
}

type Snapshot struct {
	TotalVisits map[string]int64            `json:"total_visits"`
	IPData      map[string]map[string]int64 `json:"ip_data"`
}

func NewCounter() *Counter {
	return &Counter{
		visits: map[string]int64{},
		byIP:   map[string]map[string]int64{},
	}
}

func (c *Counter) Track(path, ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visits[path]++
	ips, ok := c.byIP[path]
	if !ok {
		ips = map[string]int64{}
		c.byIP[path] = ips
	}
	ips[ip]++
}

// Snapshot returns a deep copy safe to encode while tracking continues.
func (c *Counter) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := Snapshot{
		TotalVisits: make(map[string]int64, len(c.visits)),
		IPData:      make(map[string]map[string]int64, len(c.byIP)),
	}
	for path, n := range c.visits {
		out.TotalVisits[path] = n
	}
	for path, ips := range c.byIP {
		cp := make(map[string]int64, len(ips))
		for ip, n := range ips {
			cp[ip] = n
		}
		out.IPData[path] = cp
	}
	return out
}

func (c *Counter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visits = map[string]int64{}
	c.byIP = map[string]map[string]int64{}
}

// Unmatched is the key shared by requests that no route handled.
const Unmatched = "unmatched"

// Middleware counts every request by route pattern and client address. It
// must sit on a chi router: the pattern is read after the router has matched,
// so /sms/history/{id} is one key however many ids are requested.
func Middleware(c *Counter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			c.Track(routeKey(r), ClientIP(r))
		})
	}
}

func routeKey(r *http.Request) string {
	pattern := chi.RouteContext(r.Context()).RoutePattern()
	if pattern == "" {
		return Unmatched
	}
	return pattern
}

func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
