// Package localstore holds per-client state such as dismissed announcements
// and PIN verification passes. It is never shared between clients.
package localstore

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// Memory is a Store for tests and CLI sessions.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *Memory) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

const (
	cookiePrefix = "ls_"
	cookieMaxAge = 400 * 24 * time.Hour
)

// Cookie keeps client state in the browser's cookies for the duration of one
// request. Writes become Set-Cookie headers and are visible to later reads in
// the same request.
type Cookie struct {
	r *http.Request
	w http.ResponseWriter

	mu      sync.Mutex
	pending map[string]*string
}

func NewCookie(w http.ResponseWriter, r *http.Request) *Cookie {
	return &Cookie{r: r, w: w, pending: make(map[string]*string)}
}

func cookieName(key string) string {
	var b strings.Builder
	b.WriteString(cookiePrefix)
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteString(url.QueryEscape(string(c)))
		}
	}
	return strings.ReplaceAll(b.String(), "%", "~")
}

func (c *Cookie) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.pending[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	ck, err := c.r.Cookie(cookieName(key))
	if err != nil {
		return "", false
	}
	v, err := url.QueryUnescape(ck.Value)
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *Cookie) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[key] = &value
	http.SetCookie(c.w, &http.Cookie{
		Name:     cookieName(key),
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c *Cookie) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[key] = nil
	http.SetCookie(c.w, &http.Cookie{
		Name:   cookieName(key),
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
