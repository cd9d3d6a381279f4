package importer

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	MaxDLCs           = 3
	DefaultDLCTimeout = 5 * time.Second
)

// DLCEnricher fetches add-on details one by one. A failed add-on is dropped;
// it never fails the parent import.
type DLCEnricher struct {
	Catalog Catalog
	Timeout time.Duration
	Logger  *zap.Logger
}

func (e *DLCEnricher) Enrich(ctx context.Context, dlcIDs []int) []GameDLC {
	if len(dlcIDs) > MaxDLCs {
		dlcIDs = dlcIDs[:MaxDLCs]
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultDLCTimeout
	}
	out := make([]GameDLC, 0, len(dlcIDs))
	for _, id := range dlcIDs {
		if ctx.Err() != nil {
			break
		}
		d, err := e.Catalog.FetchApp(ctx, id, Query{Timeout: timeout})
		if err != nil {
			e.logger().Debug("skip dlc", zap.Int("dlc_id", id), zap.Error(err))
			continue
		}
		out = append(out, dlcFromDetails(d))
	}
	return out
}

func dlcFromDetails(d *AppDetails) GameDLC {
	price, original := overviewPrices(d.PriceOverview)
	return GameDLC{
		Title:         Strip(d.Name),
		Price:         price,
		OriginalPrice: original,
		Description:   Strip(d.ShortDescription),
		Image:         d.HeaderImage,
	}
}

func (e *DLCEnricher) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
