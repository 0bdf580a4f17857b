package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adinsights/internal/ddl"
	"adinsights/internal/table"
)

// CopyFn is a backend's bulk insert. It returns the number of rows written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn per non-empty batch. It returns the total reported by copyFn
// and the first error. A canceled ctx returns (total, ctx.Err()).
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
	log *zap.Logger,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("storage: batch size must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("storage: copyFn must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	var (
		total   int64
		batches int64
		batch   = make([][]any, 0, batchSize)
		start   = time.Now()
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]
		if err != nil {
			log.Warn("storage: copy failed", zap.Int64("copied", n), zap.Int64("total", total), zap.Error(err))
			return err
		}
		batches++
		log.Debug("storage: batch copied",
			zap.Int64("batch", batches),
			zap.Int64("rows", n),
			zap.Int64("total", total),
			zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)))
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// WriteTable copies every row of t into repo, prefixed with runID, in
// batches of batchSize. columns must come from ddl.InferTable for t.
func WriteTable(ctx context.Context, repo Repository, def ddl.TableDef, t *table.Table, runID string, batchSize int, log *zap.Logger) (int64, error) {
	if len(def.Columns) != t.Width()+1 {
		return 0, fmt.Errorf("storage: table has %d columns, definition %d", t.Width(), len(def.Columns)-1)
	}
	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []any, batchSize)

	g.Go(func() error {
		defer close(rows)
		for i := 0; i < t.Len(); i++ {
			row := make([]any, 0, t.Width()+1)
			row = append(row, runID)
			for _, c := range t.Row(i) {
				row = append(row, c.Value())
			}
			select {
			case rows <- row:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var total int64
	g.Go(func() error {
		var err error
		total, err = LoadBatches(gctx, def.ColumnNames(), rows, batchSize, repo.CopyFrom, log)
		return err
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	return total, nil
}
