package scraper

import (
	"net/url"
	"sync"
)

// ProxyEntry maps a URL scheme to a proxy address, mirroring the config
// file shape: {http: "http://10.0.0.1:8080", https: "http://10.0.0.1:8080"}.
type ProxyEntry map[string]string

// URLFor returns the proxy URL to use for a request of the given scheme.
// It falls back to the http entry, then to any entry.
func (e ProxyEntry) URLFor(scheme string) (*url.URL, bool) {
	if raw, ok := e[scheme]; ok && raw != "" {
		return parseProxy(raw)
	}
	if raw, ok := e["http"]; ok && raw != "" {
		return parseProxy(raw)
	}
	for _, raw := range e {
		if raw != "" {
			return parseProxy(raw)
		}
	}
	return nil, false
}

func parseProxy(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, false
	}
	return u, true
}

// ProxyPool cycles through configured proxies. The cursor is a single
// shared, monotonically advancing index; callers get best-effort fairness
// only.
type ProxyPool struct {
	mu       sync.Mutex
	entries  []ProxyEntry
	cursor   int
	rotation bool
}

// NewProxyPool builds a pool from config entries. Rotation may be disabled,
// pinning every request to the first proxy.
func NewProxyPool(raw []map[string]string, rotation bool) *ProxyPool {
	entries := make([]ProxyEntry, 0, len(raw))
	for _, m := range raw {
		if len(m) == 0 {
			continue
		}
		entries = append(entries, ProxyEntry(m))
	}
	return &ProxyPool{entries: entries, rotation: rotation}
}

// Current returns the proxy under the cursor, or false if the pool is empty.
func (p *ProxyPool) Current() (ProxyEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return nil, false
	}
	return p.entries[p.cursor%len(p.entries)], true
}

// Rotate advances the cursor to the next proxy. It is a no-op when the pool
// is empty or rotation is disabled, and reports whether a rotation happened.
func (p *ProxyPool) Rotate() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 || !p.rotation {
		return false
	}
	p.cursor++
	return true
}

// Cursor exposes the raw cursor value for logging and tests.
func (p *ProxyPool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// Size reports the number of configured proxies.
func (p *ProxyPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
