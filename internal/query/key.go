package query

import "strings"

// Key identifies a cached query: a resource plus an optional filter tuple.
type Key struct {
	Resource string
	Filter   string
}

// NewKey joins the filter parts in order; the parts themselves are kept verbatim.
func NewKey(resource string, filter ...string) Key {
	return Key{Resource: resource, Filter: strings.Join(filter, "&")}
}

func (k Key) String() string {
	if k.Filter == "" {
		return k.Resource
	}
	return k.Resource + "?" + k.Filter
}
