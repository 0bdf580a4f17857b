package flatten

import (
	"fmt"

	jsonparser "adinsights/internal/parser/json"
	"adinsights/internal/table"
)

// MalformedPolicy decides what DecodeColumns does with text that is not
// valid JSON.
type MalformedPolicy string

const (
	// RecoverEmpty substitutes an empty sequence, keeps the row and reports
	// the error to the callback. Once flattened, such a row contributes zero
	// rows.
	RecoverEmpty MalformedPolicy = "empty"

	// FailFast aborts decoding with the *MalformedRecordError.
	FailFast MalformedPolicy = "fail"
)

// DecodeOptions configures DecodeColumns.
type DecodeOptions struct {
	// WrapBrackets decodes "[" + text + "]" instead of text. Exports hold
	// comma-separated objects without the enclosing brackets.
	WrapBrackets bool

	// OnMalformed defaults to RecoverEmpty.
	OnMalformed MalformedPolicy
}

// DefaultDecodeOptions wraps brackets and recovers malformed cells.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{WrapBrackets: true, OnMalformed: RecoverEmpty}
}

// DecodeColumns returns a copy of t whose text cells in cols are replaced by
// their decoded JSON value. Null cells and cells that are already nested are
// kept. Every recovered cell is reported to onErr (which may be nil).
func DecodeColumns(t *table.Table, cols []string, opt DecodeOptions, onErr func(*MalformedRecordError)) (*table.Table, error) {
	for _, c := range cols {
		if !t.Has(c) {
			return nil, fmt.Errorf("flatten: decode: %w: %q", table.ErrUnknownColumn, c)
		}
	}
	out := t.Clone()
	for _, c := range cols {
		j := out.Index(c)
		for i := 0; i < out.Len(); i++ {
			cell := out.Row(i)[j]
			if cell.IsNull() || cell.Kind() != table.Scalar {
				continue
			}
			text := cell.Text()
			if opt.WrapBrackets {
				text = "[" + text + "]"
			}
			v, err := jsonparser.ParseCell(text)
			if err != nil {
				merr := &MalformedRecordError{Row: i, Column: c, Reason: ReasonMalformedJSON, Err: err}
				if opt.OnMalformed == FailFast {
					return nil, merr
				}
				if onErr != nil {
					onErr(merr)
				}
				v = table.SequenceCell()
			}
			out.Row(i)[j] = v
		}
	}
	return out, nil
}
