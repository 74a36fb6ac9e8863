package analytics

import "sort"

// Merge outer-joins the slices in order on (actor, date, hour).
func Merge(slices ...*Slice) *Merged {
	merged := &Merged{}
	for _, s := range slices {
		merged = OuterJoin(merged, s)
	}
	return merged
}

// OuterJoin adds right as a new count column of left. Buckets found on one side only
// get a nil count for the other side.
func OuterJoin(left *Merged, right *Slice) *Merged {
	width := len(left.Columns) + 1
	out := &Merged{
		Columns: append(append(make([]string, 0, width), left.Columns...), right.Column),
		Rows:    make([]MergedRow, 0, len(left.Rows)+len(right.Rows)),
	}

	index := make(map[string]int, len(left.Rows))
	for _, row := range left.Rows {
		counts := make([]*int64, width)
		copy(counts, row.Counts)
		index[row.key()] = len(out.Rows)
		out.Rows = append(out.Rows, MergedRow{Bucket: row.Bucket, Counts: counts})
	}

	for _, row := range right.Rows {
		count := row.Count
		if i, ok := index[row.key()]; ok {
			out.Rows[i].Counts[width-1] = &count
			continue
		}
		counts := make([]*int64, width)
		counts[width-1] = &count
		index[row.key()] = len(out.Rows)
		out.Rows = append(out.Rows, MergedRow{Bucket: row.Bucket, Counts: counts})
	}

	sort.Slice(out.Rows, func(i, j int) bool {
		return out.Rows[i].Less(out.Rows[j].Bucket)
	})
	return out
}
