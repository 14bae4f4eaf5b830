package scraper

// dedupKey identifies a publication by exact (title, date) match. Records
// with the same title but different date text stay distinct.
type dedupKey struct {
	title string
	date  string
}

// Dedup collapses records sharing a (title, date) key, preserving input
// order; the first occurrence wins.
func Dedup(records []PublicationRecord) []PublicationRecord {
	seen := make(map[dedupKey]struct{}, len(records))
	unique := make([]PublicationRecord, 0, len(records))
	for _, rec := range records {
		key := dedupKey{title: rec.Title, date: rec.Date}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, rec)
	}
	return unique
}
