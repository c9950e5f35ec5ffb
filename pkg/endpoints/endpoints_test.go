package endpoints

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samvad-hq/octo-harvester/pkg/interceptor"
)

func TestLoadEndpointsYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "endpoints.yaml")
	content := `
endpoints:
  - id: octocat-repos
    name: Octocat repositories
    path: users/octocat/repos
    per_page: 50
    query:
      sort: updated
  - id: hello-issues
    path: /repos/octocat/Hello-World/issues
    id_field: number
    media_types: [json]
    disabled: true
`
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write endpoints file: %v", err)
	}

	if err := LoadEndpoints(file); err != nil {
		t.Fatalf("LoadEndpoints returned error: %v", err)
	}

	if got := len(Endpoints()); got != 2 {
		t.Fatalf("expected 2 endpoints, got %d", got)
	}
	enabled := EnabledEndpoints()
	if len(enabled) != 1 || enabled[0].ID != "octocat-repos" {
		t.Fatalf("unexpected enabled set %#v", enabled)
	}

	repos, ok := EndpointByID("octocat-repos")
	if !ok {
		t.Fatalf("expected octocat-repos to be loaded")
	}
	if repos.Path != "/users/octocat/repos" {
		t.Fatalf("path not normalized: %q", repos.Path)
	}
	if repos.IDField != "id" {
		t.Fatalf("default id_field = %q", repos.IDField)
	}

	issues, _ := EndpointByID("hello-issues")
	if issues.Name != "hello-issues" || issues.IDField != "number" {
		t.Fatalf("unexpected endpoint %#v", issues)
	}
	if len(issues.MediaTypes) != 1 || issues.MediaTypes[0] != interceptor.MediaTypeJSON {
		t.Fatalf("media alias not expanded: %#v", issues.MediaTypes)
	}
}

func TestParseJSON(t *testing.T) {
	data := []byte(`{"endpoints":[{"id":"events","path":"/events"}]}`)
	list, err := Parse(data, ".json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(list) != 1 || list[0].Path != "/events" {
		t.Fatalf("unexpected list %#v", list)
	}

	if _, err := Parse(data, ""); err != nil {
		t.Fatalf("Parse without extension: %v", err)
	}
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"duplicate": `
endpoints:
  - {id: a, path: /a}
  - {id: a, path: /b}
`,
		"missing path": `
endpoints:
  - {id: a}
`,
		"per_page too large": `
endpoints:
  - {id: a, path: /a, per_page: 500}
`,
		"raw rendition": `
endpoints:
  - {id: a, path: /a, media_types: [raw]}
`,
		"empty": `endpoints: []`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc), ".yaml"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := Parse([]byte(`{}`), ".toml"); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestParams(t *testing.T) {
	ep := Endpoint{Query: map[string]string{"state": "open"}, PerPage: 30}

	first := ep.Params(1)
	if _, ok := first["page"]; ok {
		t.Fatalf("first page should not carry page param: %#v", first)
	}
	third := ep.Params(3)
	if third["page"] != "3" || third["per_page"] != "30" || third["state"] != "open" {
		t.Fatalf("unexpected params %#v", third)
	}
	if _, ok := ep.Query["page"]; ok {
		t.Fatalf("Params mutated endpoint query")
	}
}
