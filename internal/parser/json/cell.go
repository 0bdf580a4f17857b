// Package json turns JSON text into table cells and tables.
//
// Decoding is token based (encoding/json.Decoder.Token) rather than
// map[string]any based so that object key order survives: derived column
// names and their order depend on the order keys first appear. Numbers are
// decoded with UseNumber and kept as literal text.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"adinsights/internal/table"
)

// ErrTrailingData is returned when a cell holds more than one JSON value.
var ErrTrailingData = errors.New("json: trailing data after value")

// ParseCell decodes exactly one JSON value from s.
//
//	ParseCell(`[{"age":"18-24","percentage":0.5}]`)
//
// yields a Sequence holding one Mapping whose keys are age, percentage.
func ParseCell(s string) (table.Cell, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	c, err := decodeValue(dec)
	if err != nil {
		return table.Cell{}, err
	}
	tok, err := dec.Token()
	switch {
	case err == io.EOF:
		return c, nil
	case err != nil:
		return table.Cell{}, fmt.Errorf("%w: %v", ErrTrailingData, err)
	default:
		return table.Cell{}, fmt.Errorf("%w: %v", ErrTrailingData, tok)
	}
}

// decodeValue reads the next complete value from dec.
func decodeValue(dec *json.Decoder) (table.Cell, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return table.Cell{}, fmt.Errorf("json: %w", io.ErrUnexpectedEOF)
		}
		return table.Cell{}, fmt.Errorf("json: %w", err)
	}
	return fromToken(dec, tok)
}

func fromToken(dec *json.Decoder, tok json.Token) (table.Cell, error) {
	switch v := tok.(type) {
	case nil:
		return table.NullCell(), nil
	case string:
		return table.StringCell(v), nil
	case json.Number:
		return table.NumberCell(v.String()), nil
	case bool:
		return table.BoolCell(v), nil
	case json.Delim:
		switch v {
		case '[':
			items := []table.Cell{}
			for dec.More() {
				c, err := decodeValue(dec)
				if err != nil {
					return table.Cell{}, err
				}
				items = append(items, c)
			}
			if err := closing(dec, ']'); err != nil {
				return table.Cell{}, err
			}
			return table.SequenceCell(items...), nil
		case '{':
			m := table.NewMap()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return table.Cell{}, fmt.Errorf("json: %w", err)
				}
				k, ok := kt.(string)
				if !ok {
					return table.Cell{}, fmt.Errorf("json: object key is %T, want string", kt)
				}
				c, err := decodeValue(dec)
				if err != nil {
					return table.Cell{}, err
				}
				m.Set(k, c)
			}
			if err := closing(dec, '}'); err != nil {
				return table.Cell{}, err
			}
			return table.MappingCell(m), nil
		}
		return table.Cell{}, fmt.Errorf("json: unexpected delimiter %q", rune(v))
	}
	return table.Cell{}, fmt.Errorf("json: unexpected token %T", tok)
}

func closing(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return fmt.Errorf("json: %w", io.ErrUnexpectedEOF)
		}
		return fmt.Errorf("json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("json: expected %q, got %v", rune(want), tok)
	}
	return nil
}
