package interceptor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChainStampsHeadersAndRewrites(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set(HeaderLink, `<`+"http://"+r.Host+`/repos?page=3>; rel="next"`)
		w.Header().Set(HeaderContentType, "application/json")
		_, _ = io.WriteString(w, `[{"id":7}]`)
	}))
	defer srv.Close()

	creds := NewCredentials(CredentialSet{Token: "secret", OTP: "000111"})
	client := &http.Client{Transport: Default(nil, creds, Options{UserAgent: "octo-test/1"})}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/repos", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(HeaderAccept, "text/plain")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	if v := got.Get(HeaderAuthorization); v != "token secret" {
		t.Fatalf("Authorization = %q", v)
	}
	if v := got.Get(HeaderOTP); v != "000111" {
		t.Fatalf("OTP = %q", v)
	}
	if v := got.Get(HeaderUserAgent); v != "octo-test/1" {
		t.Fatalf("User-Agent = %q", v)
	}
	if v := got.Values(HeaderAccept); len(v) != 1 || v[0] != MediaTypeJSON {
		t.Fatalf("Accept = %v", v)
	}
	if v := got.Get(HeaderContentType); v != MediaTypeJSON {
		t.Fatalf("Content-Type = %q", v)
	}
	if req.Header.Get(HeaderAccept) != "text/plain" {
		t.Fatalf("caller request was mutated")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != `{"next":"3","items":[{"id":7}]}` {
		t.Fatalf("body = %s", body)
	}
}

func TestChainHTMLRenditionPassesThrough(t *testing.T) {
	const html = `<p>hello</p>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderLink, `<http://x/y?page=2>; rel="next"`)
		_, _ = io.WriteString(w, html)
	}))
	defer srv.Close()

	client := &http.Client{Transport: Default(nil, nil, Options{})}
	ctx := WithMediaTypes(context.Background(), MediaTypeHTML)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != html {
		t.Fatalf("body = %s", body)
	}
}

func TestChainKeepsCredentialsOnAPIHost(t *testing.T) {
	var foreignAuth, foreignOTP string
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignAuth = r.Header.Get(HeaderAuthorization)
		foreignOTP = r.Header.Get(HeaderOTP)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer foreign.Close()
	// same listener, different host name
	foreignURL := strings.Replace(foreign.URL, "127.0.0.1", "localhost", 1)

	var apiAuth string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiAuth = r.Header.Get(HeaderAuthorization)
		http.Redirect(w, r, foreignURL+"/archive.tar.gz", http.StatusFound)
	}))
	defer api.Close()

	creds := NewCredentials(CredentialSet{Token: "secret", OTP: "123456"})
	host := strings.TrimPrefix(api.URL, "http://")
	client := &http.Client{Transport: Default(nil, creds, Options{APIHost: host})}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, api.URL+"/repos/o/r/tarball", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if apiAuth != "token secret" {
		t.Fatalf("api Authorization = %q", apiAuth)
	}
	if foreignAuth != "" || foreignOTP != "" {
		t.Fatalf("credentials leaked to redirect target: Authorization=%q OTP=%q", foreignAuth, foreignOTP)
	}
}

type errTransport struct{ err error }

func (e errTransport) RoundTrip(*http.Request) (*http.Response, error) { return nil, e.err }

func TestChainPropagatesTransportErrors(t *testing.T) {
	boom := errors.New("dial tcp: refused")
	chain := Default(errTransport{err: boom}, nil, Options{})

	req := newTestRequest(t)
	if _, err := chain.RoundTrip(req); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}
