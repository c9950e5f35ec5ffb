package domain

// Page is a decoded pagination envelope as produced by the interceptor chain:
// page numbers for the neighbouring pages plus the list items.
type Page struct {
	Next  string
	Prev  string
	First string
	Last  string
	Items []map[string]any
}

// HasNext reports whether the API advertised a following page.
func (p Page) HasNext() bool { return p.Next != "" }

// Item is one element harvested from a list endpoint.
type Item struct {
	ID         string
	EndpointID string
	Page       int
	Fields     map[string]any
}

// Key identifies the item across endpoints.
func (i Item) Key() string { return i.EndpointID + "/" + i.ID }
