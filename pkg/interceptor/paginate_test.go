package interceptor

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func newTestResponse(status int, body, link string) *http.Response {
	hdr := make(http.Header)
	hdr.Set(HeaderContentType, "application/json; charset=utf-8")
	if link != "" {
		hdr.Set(HeaderLink, link)
	}
	return &http.Response{
		StatusCode:    status,
		Header:        hdr,
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(raw)
}

func TestPaginateRewritesBodies(t *testing.T) {
	const link = `<https://api.x/y?page=2>; rel="next", <https://api.x/y?page=1>; rel="prev"`

	cases := []struct {
		name string
		body string
		link string
		want string
	}{
		{
			name: "array with links",
			body: `[{"id":1}]`,
			link: link,
			want: `{"next":"2","prev":"1","items":[{"id":1}]}`,
		},
		{
			name: "empty array without links",
			body: `[]`,
			want: `{"items":[]}`,
		},
		{
			name: "array keeps element bytes",
			body: "[{\"title\":\"<b>&amp;</b>\", \"n\": 1.50}]\n",
			want: `{"items":[{"title":"<b>&amp;</b>", "n": 1.50}]}`,
		},
		{
			name: "object with links",
			body: `{"total_count":2,"next":"field"}`,
			link: link,
			want: `{"next":"2","prev":"1","total_count":2,"next":"field"}`,
		},
		{
			name: "empty object with links",
			body: `{}`,
			link: link,
			want: `{"next":"2","prev":"1"}`,
		},
		{
			name: "object without links untouched",
			body: `{"id":1}`,
			want: `{"id":1}`,
		},
		{
			name: "object with only malformed links untouched",
			body: `{"id":1}`,
			link: `<https://api.x/y?after=abc>; rel="next"`,
			want: `{"id":1}`,
		},
		{
			name: "invalid object left as is",
			body: `{"id":`,
			link: link,
			want: `{"id":`,
		},
		{
			name: "invalid array left as is",
			body: `[1,`,
			want: `[1,`,
		},
		{
			name: "scalar body with links left as is",
			body: `"text"`,
			link: link,
			want: `"text"`,
		},
		{
			name: "malformed segment does not abort",
			body: `[1]`,
			link: `<https://api.x/y?page=2>; rel="next", <https://api.x/y?page=3>; foo="bar", <https://api.x/y?page=9>; rel="last"`,
			want: `{"next":"2","last":"9","items":[1]}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := newTestRequest(t)
			NewNegotiate("").FilterRequest(req)

			resp, err := NewPaginate(PaginateOptions{}).FilterResponse(req, newTestResponse(http.StatusOK, tc.body, tc.link))
			if err != nil {
				t.Fatalf("FilterResponse: %v", err)
			}
			if got := readBody(t, resp); got != tc.want {
				t.Fatalf("body = %s, want %s", got, tc.want)
			}
			if ct := resp.Header.Get(HeaderContentType); ct != "application/json; charset=utf-8" {
				t.Fatalf("content type changed to %q", ct)
			}
		})
	}
}

func TestPaginateUpdatesContentLength(t *testing.T) {
	req := newTestRequest(t)
	resp, err := NewPaginate(PaginateOptions{}).FilterResponse(req, newTestResponse(http.StatusOK, `[]`, ""))
	if err != nil {
		t.Fatalf("FilterResponse: %v", err)
	}
	if resp.ContentLength != int64(len(`{"items":[]}`)) {
		t.Fatalf("ContentLength = %d", resp.ContentLength)
	}
	if got := resp.Header.Get(HeaderContentLength); got != "12" {
		t.Fatalf("Content-Length header = %q", got)
	}
}

func TestPaginateObjectKeyPrefix(t *testing.T) {
	req := newTestRequest(t)
	link := `<https://api.x/y?page=2>; rel="next"`

	p := NewPaginate(PaginateOptions{ObjectKeyPrefix: "_page_"})
	resp, err := p.FilterResponse(req, newTestResponse(http.StatusOK, `{"next":"field"}`, link))
	if err != nil {
		t.Fatalf("FilterResponse: %v", err)
	}
	if got := readBody(t, resp); got != `{"_page_next":"2","next":"field"}` {
		t.Fatalf("body = %s", got)
	}

	resp, err = p.FilterResponse(req, newTestResponse(http.StatusOK, `[]`, link))
	if err != nil {
		t.Fatalf("FilterResponse: %v", err)
	}
	if got := readBody(t, resp); got != `{"next":"2","items":[]}` {
		t.Fatalf("array body = %s", got)
	}
}

func TestPaginateBypassesRenditions(t *testing.T) {
	const body = `[{"id":1}]`
	link := `<https://api.x/y?page=2>; rel="next"`

	for _, media := range []string{MediaTypeHTML, MediaTypeRaw, "application/vnd.github.v3.html+json"} {
		req := newTestRequest(t)
		req.Header.Set(HeaderAccept, MediaTypeJSON)
		req.Header.Add(HeaderAccept, media)

		orig := newTestResponse(http.StatusOK, body, link)
		resp, err := NewPaginate(PaginateOptions{}).FilterResponse(req, orig)
		if err != nil {
			t.Fatalf("%s: FilterResponse: %v", media, err)
		}
		if resp != orig {
			t.Fatalf("%s: expected the original response", media)
		}
		if got := readBody(t, resp); got != body {
			t.Fatalf("%s: body = %s", media, got)
		}
	}
}

func TestPaginateSkipsErrorResponses(t *testing.T) {
	const body = `[{"message":"nope"}]`
	for _, status := range []int{http.StatusNotModified, http.StatusNotFound, http.StatusInternalServerError} {
		req := newTestRequest(t)
		resp, err := NewPaginate(PaginateOptions{}).FilterResponse(req, newTestResponse(status, body, `<https://a?page=2>; rel="next"`))
		if err != nil {
			t.Fatalf("%d: FilterResponse: %v", status, err)
		}
		if got := readBody(t, resp); got != body {
			t.Fatalf("%d: body = %s", status, got)
		}
	}
}

func TestPaginateArrayNormalizationIgnoresStatusDetail(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusAccepted} {
		req := newTestRequest(t)
		resp, err := NewPaginate(PaginateOptions{}).FilterResponse(req, newTestResponse(status, `[1,2]`, ""))
		if err != nil {
			t.Fatalf("%d: FilterResponse: %v", status, err)
		}
		if got := readBody(t, resp); got != `{"items":[1,2]}` {
			t.Fatalf("%d: body = %s", status, got)
		}
	}
}

func TestPaginateKeepsPeekedByte(t *testing.T) {
	req := newTestRequest(t)
	resp, err := NewPaginate(PaginateOptions{}).FilterResponse(req, newTestResponse(http.StatusOK, `{"id":42}`, ""))
	if err != nil {
		t.Fatalf("FilterResponse: %v", err)
	}
	if got := readBody(t, resp); got != `{"id":42}` {
		t.Fatalf("body = %s", got)
	}
}

func TestPaginateEmptyBody(t *testing.T) {
	req := newTestRequest(t)
	resp, err := NewPaginate(PaginateOptions{}).FilterResponse(req, newTestResponse(http.StatusNoContent, "", ""))
	if err != nil {
		t.Fatalf("FilterResponse: %v", err)
	}
	if got := readBody(t, resp); got != "" {
		t.Fatalf("body = %q", got)
	}

	resp, err = NewPaginate(PaginateOptions{}).FilterResponse(req, newTestResponse(http.StatusOK, "", ""))
	if err != nil {
		t.Fatalf("FilterResponse: %v", err)
	}
	if got := readBody(t, resp); got != "" {
		t.Fatalf("body = %q", got)
	}
}

type failingBody struct {
	data   []byte
	err    error
	closed bool
}

func (f *failingBody) Read(p []byte) (int, error) {
	if len(f.data) > 0 {
		n := copy(p, f.data)
		f.data = f.data[n:]
		return n, nil
	}
	return 0, f.err
}

func (f *failingBody) Close() error {
	f.closed = true
	return nil
}

func TestPaginateBodyReadFailure(t *testing.T) {
	boom := errors.New("connection reset")
	body := &failingBody{data: []byte(`[{"id":1},`), err: boom}
	resp := newTestResponse(http.StatusOK, "", "")
	resp.Body = body

	_, err := NewPaginate(PaginateOptions{}).FilterResponse(newTestRequest(t), resp)
	if !errors.Is(err, ErrBodyRead) {
		t.Fatalf("expected ErrBodyRead, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error to be wrapped, got %v", err)
	}
	if !body.closed {
		t.Fatalf("expected original body to be closed")
	}
}
