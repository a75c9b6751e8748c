package diagnostics

import (
	"sort"
)

// Sort orders items deterministically: by line id, then most severe first,
// then by source, path, message and file.
func Sort(items []ReportItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.LineID != b.LineID {
			return a.LineID < b.LineID
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.JsonPath != b.JsonPath {
			return a.JsonPath < b.JsonPath
		}
		if a.Message != b.Message {
			return a.Message < b.Message
		}
		return a.FullFileName < b.FullFileName
	})
}

// Dedupe drops exact duplicates, keeping the first occurrence.
func Dedupe(items []ReportItem) []ReportItem {
	seen := make(map[ReportItem]struct{}, len(items))
	out := items[:0]
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
