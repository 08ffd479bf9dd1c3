package search

import "strings"

// Query is a catalog search in one of its two forms: free-text keyword
// search or a single facet restriction.
type Query interface {
	// Params returns the query's contribution to the request parameters.
	Params() map[string]string

	String() string
}

// KeywordSearch is a free-text catalog search.
type KeywordSearch struct {
	Text string
}

func (q KeywordSearch) Params() map[string]string {
	return map[string]string{"q": q.Text}
}

func (q KeywordSearch) String() string { return q.Text }

// FacetSearch restricts the catalog to entries with a given facet value,
// e.g. "category=Public Safety".
type FacetSearch struct {
	Facet string
	Text  string
}

// prepareFacet maps user-facing facet names onto the API's parameter names.
func prepareFacet(facet string) string {
	if facet == "category" {
		return "categories"
	}

	return facet
}

func (q FacetSearch) Params() map[string]string {
	return map[string]string{prepareFacet(q.Facet): q.Text}
}

func (q FacetSearch) String() string { return q.Facet + "=" + q.Text }

// ParseQuery interprets a raw query string: "facet=value" becomes a
// FacetSearch, anything else a KeywordSearch.
func ParseQuery(raw string) Query {
	parts := strings.Split(raw, "=")
	if len(parts) == 2 {
		return FacetSearch{Facet: parts[0], Text: parts[1]}
	}

	return KeywordSearch{Text: raw}
}
