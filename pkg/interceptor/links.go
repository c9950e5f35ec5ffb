package interceptor

import (
	"net/url"
	"strings"
)

// Relation names carried by GitHub pagination links.
const (
	RelNext  = "next"
	RelPrev  = "prev"
	RelFirst = "first"
	RelLast  = "last"
)

// PageLink pairs a relation with the page number it points at.
type PageLink struct {
	Rel  string
	Page string
}

// ParseLinks extracts page links from a Link header value of the form
// `<url1>; rel="next", <url2>; rel="last"`. Segments that cannot be parsed or
// whose URL has no page parameter are skipped. An empty `page=` is kept as "".
// The second return value counts skipped segments.
//
// Relations are returned in header order; a repeated relation keeps its first
// position and takes the later page.
func ParseLinks(value string) ([]PageLink, int) {
	var (
		links   []PageLink
		skipped int
	)
	for _, segment := range splitNonEmpty(value, ",") {
		link, ok := parseLinkSegment(segment)
		if !ok {
			skipped++
			continue
		}
		links = upsertLink(links, link)
	}
	return links, skipped
}

func parseLinkSegment(segment string) (PageLink, bool) {
	parts := splitNonEmpty(segment, ";")
	if len(parts) < 2 {
		return PageLink{}, false
	}

	target := strings.TrimSpace(parts[0])
	if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
		return PageLink{}, false
	}
	u, err := url.Parse(strings.TrimSpace(target[1 : len(target)-1]))
	if err != nil {
		return PageLink{}, false
	}
	query := u.Query()
	if _, ok := query["page"]; !ok {
		// cursor-style links (after=, before=) are not represented
		return PageLink{}, false
	}
	page := strings.TrimSpace(query.Get("page"))

	rel := ""
	for _, param := range parts[1:] {
		param = strings.TrimSpace(param)
		if len(param) < 4 || !strings.EqualFold(param[:4], "rel=") {
			continue
		}
		rel = strings.TrimSpace(strings.Trim(strings.TrimSpace(param[4:]), `"`))
		break
	}
	if rel == "" {
		return PageLink{}, false
	}
	return PageLink{Rel: rel, Page: page}, true
}

func upsertLink(links []PageLink, link PageLink) []PageLink {
	for i := range links {
		if links[i].Rel == link.Rel {
			links[i].Page = link.Page
			return links
		}
	}
	return append(links, link)
}

func splitNonEmpty(s, sep string) []string {
	raw := strings.Split(s, sep)
	out := raw[:0]
	for _, part := range raw {
		if strings.TrimSpace(part) != "" {
			out = append(out, part)
		}
	}
	return out
}
