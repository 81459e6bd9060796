package providers

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ForDisplay keeps configured providers and orders them for the settings page.
func ForDisplay(list []Provider) []Provider {
	return ForDisplayIn(language.Und, list)
}

func ForDisplayIn(tag language.Tag, list []Provider) []Provider {
	configured := make([]Provider, 0, len(list))
	for _, p := range list {
		if p.Configured {
			configured = append(configured, p)
		}
	}
	SortIn(tag, configured)
	return configured
}

// SortIn orders list in place: local providers and ollama first, then by
// display name under the collation rules of tag. Equal entries keep their
// relative order.
func SortIn(tag language.Tag, list []Provider) {
	col := collate.New(tag)
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.sortsFirst() != b.sortsFirst() {
			return a.sortsFirst()
		}
		return col.CompareString(a.DisplayName, b.DisplayName) < 0
	})
}
