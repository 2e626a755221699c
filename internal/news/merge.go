package news

// Merge appends fresh items whose identity key is not yet present in
// persisted. Keys are recorded as items are appended, so duplicates inside
// fresh collapse to their first occurrence. persisted is neither reordered
// nor modified; the returned slice is a new backing array.
func Merge(persisted, fresh []Item) ([]Item, int) {
	seen := make(map[string]struct{}, len(persisted)+len(fresh))
	for _, it := range persisted {
		seen[it.Key()] = struct{}{}
	}

	merged := make([]Item, len(persisted), len(persisted)+len(fresh))
	copy(merged, persisted)

	added := 0
	for _, it := range fresh {
		k := it.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, it)
		added++
	}
	return merged, added
}
