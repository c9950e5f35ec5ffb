package domain

import "testing"

func TestItemKeyAndPageNext(t *testing.T) {
	item := Item{ID: "42", EndpointID: "org-repos"}
	if got := item.Key(); got != "org-repos/42" {
		t.Fatalf("Key = %q", got)
	}
	if (Page{}).HasNext() {
		t.Fatalf("empty page should not have a next page")
	}
	if !(Page{Next: "3"}).HasNext() {
		t.Fatalf("expected next page")
	}
}
