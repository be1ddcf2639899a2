package roster

// UntouchedQueue returns the records still waiting for a first contact, in
// load order. It is recomputed on every call.
func UntouchedQueue(s *Store) []Record {
	return filter(s, func(r Record) bool { return r.Status == StatusUntouched })
}

// PendingList returns contacted records awaiting an outcome whose name or
// code contains term (case-insensitive). An empty term returns all of them.
func PendingList(s *Store, term string) []Record {
	return filter(s, func(r Record) bool {
		return r.Status == StatusPending && r.Matches(term)
	})
}

// Counts tallies records per status. The four buckets always sum to Len.
func Counts(s *Store) map[Status]int {
	out := map[Status]int{
		StatusUntouched:    0,
		StatusPending:      0,
		StatusPurchased:    0,
		StatusNotPurchased: 0,
	}
	if s == nil {
		return out
	}
	for _, rec := range s.records {
		out[rec.Status]++
	}
	return out
}

func filter(s *Store, keep func(Record) bool) []Record {
	if s == nil {
		return nil
	}
	var out []Record
	for _, rec := range s.records {
		if keep(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out
}
