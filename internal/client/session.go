package client

import (
	"net/http"
	"strings"
	"time"
)

// Session carries the cookies accumulated during one portal conversation.
// It is created per sync run and passed explicitly between calls, so two runs
// never share portal state.
type Session struct {
	names  []string
	values map[string]string
}

func NewSession() *Session {
	return &Session{values: map[string]string{}}
}

// Merge folds the response's Set-Cookie headers into the session. A cookie
// that is set again replaces the old value in place; an expired one is removed.
func (s *Session) Merge(header http.Header) {
	resp := http.Response{Header: header}
	for _, c := range resp.Cookies() {
		if c.Name == "" {
			continue
		}
		if c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(time.Now())) {
			s.remove(c.Name)
			continue
		}
		if _, exists := s.values[c.Name]; !exists {
			s.names = append(s.names, c.Name)
		}
		s.values[c.Name] = c.Value
	}
}

func (s *Session) remove(name string) {
	if _, exists := s.values[name]; !exists {
		return
	}
	delete(s.values, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

// CookieHeader renders the session as a Cookie request header value.
func (s *Session) CookieHeader() string {
	parts := make([]string, 0, len(s.names))
	for _, name := range s.names {
		parts = append(parts, name+"="+s.values[name])
	}
	return strings.Join(parts, "; ")
}

func (s *Session) Get(name string) (string, bool) {
	v, ok := s.values[name]
	return v, ok
}

func (s *Session) Len() int {
	return len(s.names)
}

func (s *Session) apply(req *http.Request) {
	if header := s.CookieHeader(); header != "" {
		req.Header.Set("Cookie", header)
	}
}
