package diagnostics

// IgnoreList is a set of suppression patterns. Blank fields in a pattern
// match any value.
type IgnoreList []ReportItem

// Suppresses reports whether any pattern in the list fuzzy-matches item.
func (l IgnoreList) Suppresses(item ReportItem) bool {
	for _, pattern := range l {
		if pattern.Matches(item) {
			return true
		}
	}
	return false
}

// Add appends items that are not already present verbatim.
func (l IgnoreList) Add(items ...ReportItem) IgnoreList {
	seen := make(map[ReportItem]struct{}, len(l))
	for _, existing := range l {
		seen[existing] = struct{}{}
	}
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		l = append(l, item)
	}
	return l
}

// Filter drops every item suppressed by one of the lists and returns the
// remaining items together with the number dropped.
func Filter(items []ReportItem, lists ...IgnoreList) ([]ReportItem, int) {
	kept := make([]ReportItem, 0, len(items))
	suppressed := 0
	for _, item := range items {
		if suppressedByAny(item, lists) {
			suppressed++
			continue
		}
		kept = append(kept, item)
	}
	return kept, suppressed
}

func suppressedByAny(item ReportItem, lists []IgnoreList) bool {
	for _, l := range lists {
		if l.Suppresses(item) {
			return true
		}
	}
	return false
}

// LoadIgnoreList reads an ignore list file; a missing file is an empty list.
func LoadIgnoreList(path string) (IgnoreList, error) {
	items, err := LoadItems(path)
	return IgnoreList(items), err
}

func SaveIgnoreList(path string, l IgnoreList) error {
	return SaveItems(path, []ReportItem(l))
}
