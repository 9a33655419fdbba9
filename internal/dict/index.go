package dict

import (
	"sort"

	"github.com/derekparker/trie"
)

// Index is an in-memory trie over dictionary codes. Each terminal node
// carries the entries for its code, heaviest first.
//
// An Index is read and bumped from a single goroutine; reloads build a new
// Index rather than mutating a shared one.
type Index struct {
	t     *trie.Trie
	codes int
	size  int
}

// NewIndex builds an index from entries in any order.
func NewIndex(entries []Entry) *Index {
	byCode := make(map[string][]Entry)
	for _, e := range entries {
		byCode[e.Code] = append(byCode[e.Code], e)
	}

	ix := &Index{t: trie.New(), codes: len(byCode), size: len(entries)}
	for code, list := range byCode {
		sortEntries(list)
		ix.t.Add(code, list)
	}
	return ix
}

func sortEntries(list []Entry) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Weight != list[j].Weight {
			return list[i].Weight > list[j].Weight
		}
		return list[i].Text < list[j].Text
	})
}

// Len returns the number of entries.
func (ix *Index) Len() int { return ix.size }

// Codes returns the number of distinct codes.
func (ix *Index) Codes() int { return ix.codes }

// Exact returns the entries whose code equals code.
func (ix *Index) Exact(code string) []Entry {
	if code == "" {
		return nil
	}
	n, ok := ix.t.Find(code)
	if !ok {
		return nil
	}
	list, _ := n.Meta().([]Entry)
	return list
}

// HasPrefix reports whether any code starts with prefix.
func (ix *Index) HasPrefix(prefix string) bool {
	return prefix != "" && ix.t.HasKeysWithPrefix(prefix)
}

// Completions returns up to limit entries whose code strictly extends
// prefix, heaviest first, shorter codes breaking ties.
func (ix *Index) Completions(prefix string, limit int) []Entry {
	if limit <= 0 || !ix.HasPrefix(prefix) {
		return nil
	}
	var out []Entry
	for _, code := range ix.t.PrefixSearch(prefix) {
		if code == prefix {
			continue
		}
		out = append(out, ix.Exact(code)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		if len(out[i].Code) != len(out[j].Code) {
			return len(out[i].Code) < len(out[j].Code)
		}
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].Text < out[j].Text
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Bump raises the in-memory weight of one entry to mirror Store.Bump.
func (ix *Index) Bump(code, text string) bool {
	list := ix.Exact(code)
	for i := range list {
		if list[i].Text == text {
			list[i].Weight++
			sortEntries(list)
			return true
		}
	}
	return false
}
