package aggregate

import (
	"math"

	"github.com/dustin/go-humanize"
)

// UnitScale is one entry of a suffix table: a value is multiplied by
// 10^Exp before being printed with Suffix.
type UnitScale struct {
	Exp    int
	Suffix string
}

var siUnits = [...]UnitScale{
	{-12, "T"},
	{-9, "B"},
	{-6, "M"},
	{-3, "K"},
	{0, ""},
	{3, "m"},
	{6, "µ"},
	{9, "n"},
	{12, "p"},
	{15, "f"},
}

// SIUnits returns a fresh copy of the SI suffix table, from tera down to
// femto.
func SIUnits() []UnitScale {
	out := make([]UnitScale, len(siUnits))
	copy(out, siUnits[:])
	return out
}

const unitsFormat = "#,###.###"

// FormatUnits renders x with three decimals, thousands separators and the
// first suffix of scales (ordered by ascending Exp) whose scaled value is
// at least 1. Values too small for every scale use the last one. Zero,
// negative and non-finite values are printed without a suffix.
func FormatUnits(x float64, scales []UnitScale) string {
	if len(scales) == 0 || x <= 0 || math.IsNaN(x) || math.IsInf(x, 0) {
		return humanize.FormatFloat(unitsFormat, x)
	}
	var (
		v float64
		s UnitScale
	)
	for _, s = range scales {
		v = scale(x, s.Exp)
		if v >= 1 {
			break
		}
	}
	return humanize.FormatFloat(unitsFormat, v) + s.Suffix
}

func scale(x float64, exp int) float64 {
	if exp < 0 {
		return x / math.Pow10(-exp)
	}
	return x * math.Pow10(exp)
}

// Percent returns part/whole as a whole percentage, rounding halves to
// even. A zero whole yields 0.
func Percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.RoundToEven(float64(part) / float64(whole) * 100))
}
