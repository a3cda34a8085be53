package client

import (
	"net/http"
	"testing"
)

func setCookies(values ...string) http.Header {
	h := http.Header{}
	for _, v := range values {
		h.Add("Set-Cookie", v)
	}
	return h
}

func TestSessionMergeOverridesInPlace(t *testing.T) {
	s := NewSession()
	s.Merge(setCookies("ASP.NET_SessionId=one; path=/; HttpOnly", "lang=ar"))
	s.Merge(setCookies("ASP.NET_SessionId=two; path=/"))

	if got := s.CookieHeader(); got != "ASP.NET_SessionId=two; lang=ar" {
		t.Fatalf("cookie header=%q", got)
	}
	if s.Len() != 2 {
		t.Fatalf("len=%d", s.Len())
	}
}

func TestSessionMergeDropsExpired(t *testing.T) {
	s := NewSession()
	s.Merge(setCookies("a=1", "b=2", "c=3"))
	s.Merge(setCookies("b=; Max-Age=0", "c=; expires=Thu, 01 Jan 1970 00:00:00 GMT"))

	if got := s.CookieHeader(); got != "a=1" {
		t.Fatalf("cookie header=%q", got)
	}
	if _, ok := s.Get("b"); ok {
		t.Fatal("expired cookie still present")
	}
}

func TestSessionApply(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://portal.test/", nil)
	NewSession().apply(req)
	if req.Header.Get("Cookie") != "" {
		t.Fatal("empty session must not send a cookie header")
	}

	s := NewSession()
	s.Merge(setCookies(".ASPXAUTH=abc"))
	s.apply(req)
	if req.Header.Get("Cookie") != ".ASPXAUTH=abc" {
		t.Fatalf("cookie=%q", req.Header.Get("Cookie"))
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a, b := NewSession(), NewSession()
	a.Merge(setCookies("token=a"))
	b.Merge(setCookies("token=b"))
	if v, _ := a.Get("token"); v != "a" {
		t.Fatalf("session a token=%q", v)
	}
	if v, _ := b.Get("token"); v != "b" {
		t.Fatalf("session b token=%q", v)
	}
}
