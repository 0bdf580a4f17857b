// Package ints extracts integers embedded in free-form text, such as the
// spend and impression ranges of ad exports ("lower_bound: 100,
// upper_bound: 199").
package ints

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoDigits is returned by Midpoint when the text holds no number.
var ErrNoDigits = errors.New("ints: no digits")

// ExtractInts returns every contiguous run of digits in s as an integer.
// Non-digit characters separate numbers. A run that does not fit in an int
// makes the whole result nil, so callers drop the value instead of using a
// partial one.
func ExtractInts(s string) []int {
	var (
		out []int
		run strings.Builder
	)
	flush := func() bool {
		if run.Len() == 0 {
			return true
		}
		n, err := strconv.Atoi(run.String())
		run.Reset()
		if err != nil {
			return false
		}
		out = append(out, n)
		return true
	}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			run.WriteRune(r)
			continue
		}
		if !flush() {
			return nil
		}
	}
	if !flush() {
		return nil
	}
	return out
}

// Midpoint returns the midpoint of a range written as text. Thousands
// separators are removed first, so "lower_bound: 1,000, upper_bound: 1,999"
// reads as 1000 and 1999 and yields 1499.5. A single number (an open-ended
// range such as "lower_bound: 1000000") yields that number.
func Midpoint(s string) (float64, error) {
	nums := ExtractInts(strings.ReplaceAll(s, ",", ""))
	switch len(nums) {
	case 0:
		return 0, fmt.Errorf("%w in %q", ErrNoDigits, s)
	case 1:
		return float64(nums[0]), nil
	default:
		return (float64(nums[0]) + float64(nums[1])) / 2, nil
	}
}
