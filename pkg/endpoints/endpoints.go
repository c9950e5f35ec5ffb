// Package endpoints holds the registry of list endpoints to harvest, loaded
// from YAML or JSON.
package endpoints

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/samvad-hq/octo-harvester/internal/fileconf"
	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
)

const (
	defaultIDField = "id"
	maxPerPage     = 100
)

// Endpoint describes one paginated list endpoint of the API.
type Endpoint struct {
	ID         string            `json:"id" yaml:"id"`
	Name       string            `json:"name" yaml:"name"`
	Path       string            `json:"path" yaml:"path"`
	Query      map[string]string `json:"query" yaml:"query"`
	PerPage    int               `json:"per_page" yaml:"per_page"`
	MediaTypes []string          `json:"media_types" yaml:"media_types"`
	IDField    string            `json:"id_field" yaml:"id_field"`
	Disabled   bool              `json:"disabled" yaml:"disabled"`
}

// Enabled reports whether the endpoint takes part in harvest runs.
func (e Endpoint) Enabled() bool { return !e.Disabled }

// Params returns the query parameters for a request of the given page.
// Page 0 or 1 leaves the page parameter to the API default.
func (e Endpoint) Params(page int) map[string]string {
	params := make(map[string]string, len(e.Query)+2)
	for k, v := range e.Query {
		params[k] = v
	}
	if e.PerPage > 0 {
		params["per_page"] = strconv.Itoa(e.PerPage)
	}
	if page > 1 {
		params["page"] = strconv.Itoa(page)
	}
	return params
}

type registry struct {
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

var (
	regMu      sync.RWMutex
	currentReg registry
	endpoints  map[string]Endpoint
)

// Endpoints returns a copy of the loaded registry in file order.
func Endpoints() []Endpoint {
	regMu.RLock()
	defer regMu.RUnlock()

	if len(currentReg.Endpoints) == 0 {
		return nil
	}
	out := make([]Endpoint, len(currentReg.Endpoints))
	copy(out, currentReg.Endpoints)
	return out
}

// EnabledEndpoints returns the loaded endpoints that are not disabled.
func EnabledEndpoints() []Endpoint {
	all := Endpoints()
	out := make([]Endpoint, 0, len(all))
	for _, ep := range all {
		if ep.Enabled() {
			out = append(out, ep)
		}
	}
	return out
}

// EndpointByID returns the endpoint entry for id, if loaded.
func EndpointByID(id string) (Endpoint, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Endpoint{}, false
	}

	regMu.RLock()
	defer regMu.RUnlock()

	ep, ok := endpoints[id]
	return ep, ok
}

// LoadEndpoints replaces the registry with the entries in path.
func LoadEndpoints(path string) error {
	var reg registry
	if err := fileconf.Read(path, &reg); err != nil {
		return fmt.Errorf("load endpoints: %w", err)
	}
	list, err := validateAll(reg.Endpoints)
	if err != nil {
		return err
	}

	idx := make(map[string]Endpoint, len(list))
	for _, ep := range list {
		idx[ep.ID] = ep
	}

	regMu.Lock()
	currentReg = registry{Endpoints: list}
	endpoints = idx
	regMu.Unlock()

	return nil
}

// Parse decodes and validates a registry document. ext selects the format;
// an empty ext tries YAML then JSON.
func Parse(data []byte, ext string) ([]Endpoint, error) {
	var reg registry
	if err := fileconf.Decode(data, ext, &reg); err != nil {
		return nil, fmt.Errorf("parse endpoints: %w", err)
	}
	return validateAll(reg.Endpoints)
}

func validateAll(list []Endpoint) ([]Endpoint, error) {
	if len(list) == 0 {
		return nil, errors.New("endpoints file contains no endpoints entries")
	}

	seen := make(map[string]struct{}, len(list))
	for i := range list {
		ep := sanitizeEndpoint(list[i])
		if err := validateEndpoint(ep); err != nil {
			return nil, fmt.Errorf("endpoint[%d]: %w", i, err)
		}
		if _, exists := seen[ep.ID]; exists {
			return nil, fmt.Errorf("duplicate endpoint id %q", ep.ID)
		}
		seen[ep.ID] = struct{}{}
		list[i] = ep
	}
	return list, nil
}

// mediaAliases lets registry files name renditions briefly.
var mediaAliases = map[string]string{
	"json": interceptor.MediaTypeJSON,
	"raw":  interceptor.MediaTypeRaw,
	"html": interceptor.MediaTypeHTML,
}

func sanitizeEndpoint(e Endpoint) Endpoint {
	e.ID = strings.TrimSpace(e.ID)
	e.Name = strings.TrimSpace(e.Name)
	e.Path = strings.TrimSpace(e.Path)
	e.IDField = strings.TrimSpace(e.IDField)
	if e.IDField == "" {
		e.IDField = defaultIDField
	}
	if e.Name == "" {
		e.Name = e.ID
	}
	if e.Path != "" && !strings.HasPrefix(e.Path, "/") && !strings.Contains(e.Path, "://") {
		e.Path = "/" + e.Path
	}

	types := make([]string, 0, len(e.MediaTypes))
	for _, mt := range e.MediaTypes {
		mt = strings.TrimSpace(mt)
		if mt == "" {
			continue
		}
		if full, ok := mediaAliases[strings.ToLower(mt)]; ok {
			mt = full
		}
		types = append(types, mt)
	}
	e.MediaTypes = types
	return e
}

func validateEndpoint(e Endpoint) error {
	if e.ID == "" {
		return errors.New("id is required")
	}
	if e.Path == "" {
		return fmt.Errorf("path is required for endpoint %q", e.ID)
	}
	if e.PerPage < 0 || e.PerPage > maxPerPage {
		return fmt.Errorf("per_page for endpoint %q must be between 0 and %d", e.ID, maxPerPage)
	}
	for _, mt := range e.MediaTypes {
		if interceptor.IsBypassMedia(mt) {
			return fmt.Errorf("endpoint %q requests rendition %q; list endpoints need JSON pages", e.ID, mt)
		}
	}
	return nil
}
