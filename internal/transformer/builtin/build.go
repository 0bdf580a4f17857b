package builtin

import (
	"fmt"

	"adinsights/internal/config"
	"adinsights/internal/table"
	"adinsights/internal/transformer"
)

// Build constructs the transformer chain from configuration. reject
// receives rows dropped by coercion and may be nil.
func Build(ts []config.Transform, reject func(transformer.RejectedRow)) (transformer.Chain, error) {
	c := transformer.Chain{}
	for i, t := range ts {
		switch t.Kind {
		case "require":
			c = append(c, Require{Columns: t.Options.StringSlice("columns")})
		case "dedupe":
			c = append(c, Dedupe{
				Keys:   t.Options.StringSlice("keys"),
				Policy: t.Options.String("policy", "keep-first"),
			})
		case "coerce":
			c = append(c, Coerce{
				Column: t.Options.String("column", ""),
				To:     t.Options.String("to", ""),
				As:     t.Options.String("as", ""),
				Reject: reject,
			})
		case "normalize":
			c = append(c, Normalize{
				Columns: t.Options.StringSlice("columns"),
				Fold:    t.Options.Bool("fold", false),
			})
		default:
			return nil, fmt.Errorf("transform[%d]: unsupported transformer.kind=%s", i, t.Kind)
		}
	}
	return c, nil
}

func unknown(col string) error {
	return fmt.Errorf("%w: %q", table.ErrUnknownColumn, col)
}
