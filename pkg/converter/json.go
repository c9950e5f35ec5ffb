package converter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DateLayout is the format of naive, date-only fields.
const DateLayout = "2006-01-02"

// JSON decodes bodies into generic values first, then maps them onto the
// target the way viper maps config: snake_case keys match Go field names
// (html_url -> HTMLURL), unexported and `json:"-"` fields are skipped, and
// strings become time.Time via RFC 3339 or DateLayout.
type JSON struct {
	timeLayouts []string
}

// NewJSON returns the structured converter.
func NewJSON() *JSON {
	return &JSON{timeLayouts: []string{time.RFC3339Nano, time.RFC3339, DateLayout}}
}

func (*JSON) Name() string { return "json" }

func (*JSON) Accepts(target any) bool { return isNonNilPointer(target) }

func (j *JSON) Decode(body []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return newDecodeError("json", target, err)
	}
	if tok, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("unexpected trailing data %v", tok)
		}
		return newDecodeError("json", target, err)
	}

	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     target,
		TagName:    "json",
		MatchName:  matchSnakeCase,
		DecodeHook: j.timeHook,
	})
	if err != nil {
		return newDecodeError("json", target, err)
	}
	if err := md.Decode(generic); err != nil {
		return newDecodeError("json", target, err)
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

func (j *JSON) timeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	raw := strings.TrimSpace(reflect.ValueOf(data).String())
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range j.timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return nil, fmt.Errorf("parse time %q", raw)
}

// matchSnakeCase compares a lower_case_with_underscores key with a field
// name, ignoring case and underscores.
func matchSnakeCase(key, field string) bool {
	return strings.EqualFold(strings.ReplaceAll(key, "_", ""), strings.ReplaceAll(field, "_", ""))
}

// Encode renders an outgoing body as JSON without HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
