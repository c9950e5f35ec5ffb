package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/samvad-hq/octo-harvester/pkg/converter"
	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
)

func TestRestyClientGetRewritesPages(t *testing.T) {
	var gotAuth, gotAccept, gotPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/repos" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		gotPage = r.URL.Query().Get("page")
		w.Header().Set("Link", `<https://api.github.com/user/repos?page=3>; rel="next", <https://api.github.com/user/repos?page=1>; rel="prev"`)
		_, _ = io.WriteString(w, `[{"id":1,"full_name":"octocat/hello"}]`)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{
		BaseURL:     srv.URL + "/",
		Timeout:     2 * time.Second,
		Credentials: interceptor.NewCredentials(interceptor.CredentialSet{Token: "t0k"}),
	})

	resp, err := client.Get(context.Background(), "/user/repos", WithQuery("page", "2"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !IsSuccess(resp) {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if gotAuth != "token t0k" || gotAccept != interceptor.MediaTypeJSON || gotPage != "2" {
		t.Fatalf("unexpected request auth=%q accept=%q page=%q", gotAuth, gotAccept, gotPage)
	}
	if string(resp.Body()) != `{"next":"3","prev":"1","items":[{"id":1,"full_name":"octocat/hello"}]}` {
		t.Fatalf("body = %s", resp.Body())
	}

	var page struct {
		Next  string
		Prev  string
		Items []struct {
			ID       int64
			FullName string
		}
	}
	if err := Decode(resp, &page, nil); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if page.Next != "3" || page.Prev != "1" || len(page.Items) != 1 || page.Items[0].FullName != "octocat/hello" {
		t.Fatalf("unexpected page %#v", page)
	}
}

func TestRestyClientRawMediaSkipsRewrite(t *testing.T) {
	const readme = "[link](https://example.com)\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, readme)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL})
	resp, err := client.Get(context.Background(), "/repos/o/r/readme", WithMediaTypes(interceptor.MediaTypeRaw))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	var text converter.RawText
	if err := Decode(resp, &text, nil); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if string(text) != readme {
		t.Fatalf("text = %q", text)
	}
}

func TestRestyClientEncodesBody(t *testing.T) {
	var body, contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":5}`)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL})
	resp, err := client.Do(context.Background(), Call{
		Method: "post",
		Path:   "/repos/o/r/issues",
		Body:   map[string]string{"title": "<b>bug</b> & more"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode() != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if body != `{"title":"<b>bug</b> & more"}` {
		t.Fatalf("body = %s", body)
	}
	if contentType != interceptor.MediaTypeJSON {
		t.Fatalf("content type = %q", contentType)
	}
	if string(resp.Body()) != `{"id":5}` {
		t.Fatalf("response body = %s", resp.Body())
	}
}

func TestRestyClientErrorPayloadUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Link", `<https://api.github.com/x?page=2>; rel="next"`)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `[{"message":"Not Found"}]`)
	}))
	defer srv.Close()

	resp, err := NewRestyClient(Options{BaseURL: srv.URL}).Get(context.Background(), "/missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if IsSuccess(resp) {
		t.Fatalf("expected failure status")
	}
	if string(resp.Body()) != `[{"message":"Not Found"}]` {
		t.Fatalf("body = %s", resp.Body())
	}
}

func TestRestyClientRedirectDropsCredentials(t *testing.T) {
	var foreignAuth, foreignOTP string
	foreign := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		foreignAuth = r.Header.Get("Authorization")
		foreignOTP = r.Header.Get("X-GitHub-OTP")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer foreign.Close()
	foreignURL := strings.Replace(foreign.URL, "127.0.0.1", "localhost", 1)

	var apiAuth, apiOTP string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiAuth = r.Header.Get("Authorization")
		apiOTP = r.Header.Get("X-GitHub-OTP")
		http.Redirect(w, r, foreignURL+"/codeload/archive.tar.gz", http.StatusFound)
	}))
	defer api.Close()

	client := NewRestyClient(Options{
		BaseURL:     api.URL,
		Credentials: interceptor.NewCredentials(interceptor.CredentialSet{Token: "SECRET", OTP: "123456"}),
	})
	resp, err := client.Get(context.Background(), "/repos/octocat/hello/tarball")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !IsSuccess(resp) {
		t.Fatalf("status = %d", resp.StatusCode())
	}
	if apiAuth != "token SECRET" || apiOTP != "123456" {
		t.Fatalf("api host got Authorization=%q OTP=%q", apiAuth, apiOTP)
	}
	if foreignAuth != "" || foreignOTP != "" {
		t.Fatalf("foreign host got Authorization=%q OTP=%q", foreignAuth, foreignOTP)
	}
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("network unreachable")
}

func TestRestyClientPropagatesTransportError(t *testing.T) {
	client := NewRestyClient(Options{BaseURL: "http://api.invalid", Transport: failingTransport{}})
	if _, err := client.Get(context.Background(), "/user"); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestSnippet(t *testing.T) {
	if got := Snippet(nil); got != "<empty>" {
		t.Fatalf("Snippet(nil) = %q", got)
	}
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	if got := Snippet(long); len(got) != 515 {
		t.Fatalf("expected truncated snippet, got %d chars", len(got))
	}
}
