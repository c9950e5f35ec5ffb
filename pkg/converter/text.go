package converter

// RawText is a declared raw-text result.
type RawText string

// Text hands the body over verbatim.
type Text struct{}

func (Text) Name() string { return "text" }

func (Text) Accepts(target any) bool {
	switch t := target.(type) {
	case *string:
		return t != nil
	case *[]byte:
		return t != nil
	case *RawText:
		return t != nil
	}
	return false
}

func (Text) Decode(body []byte, target any) error {
	switch t := target.(type) {
	case *string:
		*t = string(body)
	case *[]byte:
		*t = append([]byte(nil), body...)
	case *RawText:
		*t = RawText(body)
	default:
		return newDecodeError("text", target, ErrNoConverter)
	}
	return nil
}
