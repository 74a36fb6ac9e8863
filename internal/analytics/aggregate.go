package analytics

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/Wuchinator/astro-chat-analytics/internal/dataset"
	"go.uber.org/zap"
)

type Aggregator struct {
	policy TimestampPolicy
	logger *zap.Logger
}

func NewAggregator(policy TimestampPolicy, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		policy: policy,
		logger: logger,
	}
}

type boundFilter struct {
	col    int
	values []string
}

func bindFilters(t *dataset.Table, filters []Filter) ([]boundFilter, error) {
	out := make([]boundFilter, 0, len(filters))
	for _, f := range filters {
		idx, err := t.ColumnIndex(f.Column)
		if err != nil {
			return nil, err
		}
		out = append(out, boundFilter{col: idx, values: f.Values})
	}
	return out, nil
}

func matchesAll(t *dataset.Table, row int, filters []boundFilter) bool {
	for _, f := range filters {
		if !matchesAny(t.Cell(row, f.col), f.values) {
			return false
		}
	}
	return true
}

// matchesAny compares numerically when both sides are numbers, so a paid flag
// exported as "0.0" still equals 0.
func matchesAny(cell dataset.Cell, values []string) bool {
	if !cell.Valid {
		return false
	}
	for _, v := range values {
		if cell.Value == v {
			return true
		}
		a, errA := strconv.ParseFloat(cell.Value, 64)
		b, errB := strconv.ParseFloat(v, 64)
		if errA == nil && errB == nil && a == b {
			return true
		}
	}
	return false
}

type bucketGroup struct {
	bucket Bucket
	users  map[string]struct{}
}

// Aggregate counts distinct users per (actor, date, hour) among the rows of t that
// satisfy the category.
func (a *Aggregator) Aggregate(t *dataset.Table, c Category) (*Slice, error) {
	if err := t.Require(c.TimestampColumn, c.ActorColumn, c.UserColumn); err != nil {
		return nil, fmt.Errorf("category %s: %w", c.Output, err)
	}
	tsCol, _ := t.ColumnIndex(c.TimestampColumn)
	actorCol, _ := t.ColumnIndex(c.ActorColumn)
	userCol, _ := t.ColumnIndex(c.UserColumn)

	filters, err := bindFilters(t, c.Filters)
	if err != nil {
		return nil, fmt.Errorf("category %s: %w", c.Output, err)
	}

	var (
		memberCol = -1
		members   map[string]struct{}
	)
	if c.Membership != nil {
		memberCol, members, err = a.membershipSet(t, c.Membership)
		if err != nil {
			return nil, fmt.Errorf("category %s: %w", c.Output, err)
		}
	}

	groups := make(map[string]*bucketGroup)
	matched, skipped := 0, 0

	for i := 0; i < t.Len(); i++ {
		if !matchesAll(t, i, filters) {
			continue
		}
		if memberCol >= 0 {
			v := t.Cell(i, memberCol)
			if !v.Valid {
				continue
			}
			if _, ok := members[v.Value]; !ok {
				continue
			}
		}
		matched++

		actor := t.Cell(i, actorCol)
		tsCell := t.Cell(i, tsCol)
		if !actor.Valid || !tsCell.Valid {
			continue
		}

		ts, err := ParseTimestamp(tsCell.Value)
		if err != nil {
			if a.policy == TimestampSkip {
				skipped++
				a.logger.Warn("Skipping row with invalid timestamp",
					zap.String("category", c.Output),
					zap.Int("row", i),
					zap.String("column", c.TimestampColumn),
					zap.String("value", tsCell.Value),
				)
				continue
			}
			return nil, fmt.Errorf("category %s, row %d, column %s: %w", c.Output, i, c.TimestampColumn, err)
		}

		bucket := NewBucket(actor.Value, ts.Add(c.Offset))
		key := bucket.key()
		g, exists := groups[key]
		if !exists {
			g = &bucketGroup{bucket: bucket, users: make(map[string]struct{})}
			groups[key] = g
		}
		if user := t.Cell(i, userCol); user.Valid {
			g.users[user.Value] = struct{}{}
		}
	}

	rows := make([]HourlyCount, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, HourlyCount{Bucket: g.bucket, Count: int64(len(g.users))})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Less(rows[j].Bucket)
	})

	a.logger.Debug("Category aggregated",
		zap.String("category", c.Output),
		zap.Int("input_rows", t.Len()),
		zap.Int("matched_rows", matched),
		zap.Int("skipped_rows", skipped),
		zap.Int("buckets", len(rows)),
	)

	return &Slice{Column: c.Output, Rows: rows, SkippedRows: skipped}, nil
}

func (a *Aggregator) membershipSet(t *dataset.Table, m *Membership) (int, map[string]struct{}, error) {
	col, err := t.ColumnIndex(m.Column)
	if err != nil {
		return -1, nil, err
	}
	srcCol, err := t.ColumnIndex(m.SourceColumn)
	if err != nil {
		return -1, nil, err
	}
	filters, err := bindFilters(t, m.Filters)
	if err != nil {
		return -1, nil, err
	}

	set := make(map[string]struct{})
	for i := 0; i < t.Len(); i++ {
		if !matchesAll(t, i, filters) {
			continue
		}
		if v := t.Cell(i, srcCol); v.Valid {
			set[v.Value] = struct{}{}
		}
	}
	return col, set, nil
}
