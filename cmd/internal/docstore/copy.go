package docstore

import (
	"context"
	"errors"
	"sort"
)

// CopyResult reports what Copy did.
type CopyResult struct {
	Copied  int
	Skipped int
}

// Copy inserts every entry of src into dst. Keys already present in dst are left
// untouched and counted as skipped, so Copy never overwrites live data.
func Copy(ctx context.Context, dst, src Document) (CopyResult, error) {
	snap, err := src.Snapshot(ctx)
	if err != nil {
		return CopyResult{}, err
	}

	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var res CopyResult
	for _, k := range keys {
		err := dst.Insert(ctx, k, snap[k])
		switch {
		case err == nil:
			res.Copied++
		case errors.Is(err, ErrExists):
			res.Skipped++
		default:
			return res, err
		}
	}
	return res, nil
}
