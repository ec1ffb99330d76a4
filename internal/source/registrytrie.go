package source

import "github.com/armon/go-radix"

// overrideTrie is a typed wrapper over armon/go-radix storing
// [patch]-table replacements, keyed by package name, the same shape as
// resolve.conflictTrie: a thin type-asserting shim so callers never
// touch interface{} directly. Only exact-name lookups (get) are
// exposed; the wrapper offers no prefix lookup.
type overrideTrie struct {
	t *radix.Tree
}

func newOverrideTrie() overrideTrie {
	return overrideTrie{t: radix.New()}
}

func (o overrideTrie) set(name string, src Source) {
	o.t.Insert(name, src)
}

func (o overrideTrie) get(name string) (Source, bool) {
	v, ok := o.t.Get(name)
	if !ok {
		return nil, false
	}
	return v.(Source), true
}

func (o overrideTrie) len() int {
	return o.t.Len()
}
