package converter

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTML parses rendered bodies (requested with the HTML media type) into a
// goquery document.
type HTML struct{}

func (HTML) Name() string { return "html" }

func (HTML) Accepts(target any) bool {
	t, ok := target.(**goquery.Document)
	return ok && t != nil
}

func (HTML) Decode(body []byte, target any) error {
	t, ok := target.(**goquery.Document)
	if !ok || t == nil {
		return newDecodeError("html", target, ErrNoConverter)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return newDecodeError("html", target, err)
	}
	*t = doc
	return nil
}

// HTMLText returns the visible text of a rendered body with whitespace runs
// collapsed.
func HTMLText(body []byte) (string, error) {
	var doc *goquery.Document
	if err := (HTML{}).Decode(body, &doc); err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}
