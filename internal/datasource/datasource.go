// Package datasource defines where raw input bytes come from.
package datasource

import (
	"context"
	"io"
)

// Source opens one input for reading. Name identifies it in logs and error
// reports.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}
