package aggregate

import (
	"fmt"
	"time"

	"adinsights/internal/table"
)

// DayLayout is the layout of ad_delivery_start_time and of completed dates.
const DayLayout = "2006-01-02"

// ParseDay reads the calendar day at the start of s, so both "2020-10-03"
// and "2020-10-03T00:00:00" are accepted.
func ParseDay(s string) (time.Time, error) {
	if len(s) > len(DayLayout) {
		s = s[:len(DayLayout)]
	}
	d, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("aggregate: parse day: %w", err)
	}
	return d, nil
}

// DateRange returns every day from from to to, both included. It returns
// nil when to is before from.
func DateRange(from, to time.Time) []time.Time {
	from = truncateDay(from)
	to = truncateDay(to)
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CompleteDays returns t with one row per day between from and to, in date
// order. Rows of t are matched on dateCol; days t lacks get fill in every
// other column. Rows outside the range are dropped.
func CompleteDays(t *table.Table, dateCol string, from, to time.Time, fill table.Cell) (*table.Table, error) {
	j := t.Index(dateCol)
	if j < 0 {
		return nil, fmt.Errorf("aggregate: %w: %q", table.ErrUnknownColumn, dateCol)
	}
	byDay := make(map[string][]table.Cell, t.Len())
	for i := 0; i < t.Len(); i++ {
		d, err := ParseDay(t.Row(i)[j].Text())
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		key := d.Format(DayLayout)
		if _, dup := byDay[key]; dup {
			return nil, fmt.Errorf("aggregate: duplicate day %s in %q", key, dateCol)
		}
		byDay[key] = t.Row(i)
	}

	out := table.MustNew(t.Columns()...)
	for _, d := range DateRange(from, to) {
		key := d.Format(DayLayout)
		row := make([]table.Cell, out.Width())
		if src, ok := byDay[key]; ok {
			copy(row, src)
		} else {
			for k := range row {
				row[k] = fill
			}
		}
		row[j] = table.StringCell(key)
		if err := out.Append(row...); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Span returns the earliest and latest day found in col. ok is false when
// the column holds no non-null cell.
func Span(t *table.Table, col string) (from, to time.Time, ok bool, err error) {
	j := t.Index(col)
	if j < 0 {
		return from, to, false, fmt.Errorf("aggregate: %w: %q", table.ErrUnknownColumn, col)
	}
	for i := 0; i < t.Len(); i++ {
		c := t.Row(i)[j]
		if c.IsNull() {
			continue
		}
		d, err := ParseDay(c.Text())
		if err != nil {
			return from, to, false, fmt.Errorf("row %d: %w", i, err)
		}
		if !ok || d.Before(from) {
			from = d
		}
		if !ok || d.After(to) {
			to = d
		}
		ok = true
	}
	return from, to, ok, nil
}
