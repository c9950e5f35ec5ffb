package interceptor

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// ItemsKey holds the original array in a rewritten list response.
const ItemsKey = "items"

// ErrBodyRead reports that the response body could not be buffered. It is an
// I/O failure, never a JSON one.
var ErrBodyRead = errors.New("read response body")

// PaginateOptions configures Paginate.
type PaginateOptions struct {
	// ObjectKeyPrefix is prepended to pagination keys merged into object
	// bodies. Empty keeps the bare relation names.
	ObjectKeyPrefix string
	Logger          Logger
}

// Paginate folds Link header page numbers into successful JSON responses.
//
// A bare array body becomes {"next":"2",...,"items":[...]} (with or without a
// Link header). A bare object body gets the page keys prepended to its own
// members when the Link header yields at least one relation. Responses to
// requests that asked for a raw or HTML rendition, and non-2xx responses, are
// passed through untouched.
type Paginate struct {
	prefix string
	log    Logger
}

// NewPaginate returns a Paginate filter.
func NewPaginate(opts PaginateOptions) *Paginate {
	return &Paginate{
		prefix: opts.ObjectKeyPrefix,
		log:    ensureLogger(opts.Logger),
	}
}

// FilterResponse implements ResponseFilter.
func (p *Paginate) FilterResponse(req *http.Request, resp *http.Response) (*http.Response, error) {
	if resp == nil || resp.Body == nil || resp.Body == http.NoBody {
		return resp, nil
	}
	if wantsRendition(req) {
		return resp, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, nil
	}

	body := peekable(resp.Body)
	resp.Body = body
	first, err := body.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return resp, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}
	isArray := first[0] == '['

	links, skipped := ParseLinks(strings.Join(resp.Header.Values(HeaderLink), ","))
	if skipped > 0 {
		p.log.DebugObj("skipped malformed link segments", "link_meta", map[string]any{
			"skipped": skipped,
			"kept":    len(links),
			"url":     requestURL(req),
		})
	}
	if !isArray && len(links) == 0 {
		return resp, nil
	}

	raw, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}

	var out []byte
	if isArray {
		out, err = arrayEnvelope(links, raw)
	} else {
		out, err = objectEnvelope(p.prefix, links, raw)
	}
	if err != nil {
		p.log.DebugObj("response left unmodified", "paginate_skip", map[string]any{
			"url":   requestURL(req),
			"error": err.Error(),
		})
		out = raw
	}

	replaceBody(resp, out)
	return resp, nil
}

// wantsRendition reports whether the request asked for a raw or HTML body.
func wantsRendition(req *http.Request) bool {
	if req == nil {
		return false
	}
	for _, v := range req.Header.Values(HeaderAccept) {
		if IsBypassMedia(v) {
			return true
		}
	}
	return false
}

type member struct {
	key   string
	value json.RawMessage
}

func arrayEnvelope(links []PageLink, raw []byte) ([]byte, error) {
	items := bytes.TrimSpace(raw)
	if !json.Valid(items) {
		return nil, fmt.Errorf("array body is not valid json")
	}
	return writeObject(linkMembers("", links), []member{{key: ItemsKey, value: items}})
}

func objectEnvelope(prefix string, links []PageLink, raw []byte) ([]byte, error) {
	fields, err := objectMembers(raw)
	if err != nil {
		return nil, err
	}
	return writeObject(linkMembers(prefix, links), fields)
}

func linkMembers(prefix string, links []PageLink) []member {
	out := make([]member, 0, len(links))
	for _, l := range links {
		val, err := encodeJSON(l.Page)
		if err != nil {
			continue
		}
		out = append(out, member{key: prefix + l.Rel, value: val})
	}
	return out
}

// objectMembers splits a JSON object into its members, preserving order and
// the raw bytes of each value.
func objectMembers(raw []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("body is not a json object")
	}

	var fields []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode object key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode member %q: %w", key, err)
		}
		fields = append(fields, member{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode object end: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing data after json object")
	}
	return fields, nil
}

func writeObject(groups ...[]member) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	n := 0
	for _, group := range groups {
		for _, m := range group {
			key, err := encodeJSON(m.key)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				buf.WriteByte(',')
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(m.value)
			n++
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func replaceBody(resp *http.Response, body []byte) {
	if resp.Header == nil {
		resp.Header = make(http.Header)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set(HeaderContentLength, strconv.Itoa(len(body)))
	resp.TransferEncoding = nil
}

func requestURL(req *http.Request) string {
	if req == nil || req.URL == nil {
		return ""
	}
	return req.URL.Redacted()
}

// peekBody keeps the original body's Close while reads go through a buffer.
type peekBody struct {
	*bufio.Reader
	io.Closer
}

func peekable(rc io.ReadCloser) *peekBody {
	if pb, ok := rc.(*peekBody); ok {
		return pb
	}
	return &peekBody{Reader: bufio.NewReader(rc), Closer: rc}
}
