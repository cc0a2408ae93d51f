package paging

import (
	"context"
	"fmt"

	"github.com/abelbrown/universal/internal/logging"
	"github.com/abelbrown/universal/internal/record"
	"github.com/abelbrown/universal/internal/store"
)

// AllLister fetches a whole, unpaginated collection.
type AllLister interface {
	ListAll(ctx context.Context, dataSource string) ([]record.Record, error)
}

// LoadRendered returns the full-list cache for dataSource. The mirror entry
// under store.KeyRenderItems wins when present; otherwise the collection is
// fetched once and written back. fromCache reports which path was taken.
func LoadRendered(ctx context.Context, client AllLister, mirror store.Mirror, dataSource string) (recs []record.Record, fromCache bool, err error) {
	cached, found, healed := store.LoadRecords(mirror, store.KeyRenderItems)
	if healed {
		logging.Warn("discarded malformed render cache", "key", store.KeyRenderItems)
	}
	if found {
		return cached, true, nil
	}

	recs, err = client.ListAll(ctx, dataSource)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", dataSource, err)
	}
	if err := store.SaveRecords(mirror, store.KeyRenderItems, recs); err != nil {
		logging.Error("render cache write failed", "err", err)
	}
	return recs, false, nil
}
