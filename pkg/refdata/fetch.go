// pkg/refdata/fetch.go
package refdata

import (
	"context"

	"go.uber.org/zap"

	"github.com/skydata/staging-ingress/pkg/store"
)

// Staging tables and key columns the resolver reads reference data from.
const (
	AirportTable  = "staging_airports"
	AirportColumn = "airportkey"
	AirlineTable  = "staging_airlines"
	AirlineColumn = "airlinekey"
)

// FetchKeySet loads one reference key set from a staging table. A missing
// table, an empty table, or a read failure yields a nil set and a warning;
// the pipeline degrades to pass-through resolution rather than failing.
func FetchKeySet(ctx context.Context, st store.StagingStore, table, column string, logger *zap.Logger) *KeySet {
	exists, err := st.Exists(ctx, table)
	if err != nil {
		logger.Warn("reference table lookup failed, fuzzy correction disabled",
			zap.String("table", table),
			zap.Error(err))
		return nil
	}
	if !exists {
		logger.Warn("reference table does not exist, fuzzy correction disabled",
			zap.String("table", table))
		return nil
	}

	result, err := st.Select(ctx, table, []string{column}, 0)
	if err != nil {
		logger.Warn("reference key fetch failed, fuzzy correction disabled",
			zap.String("table", table),
			zap.String("column", column),
			zap.Error(err))
		return nil
	}

	values := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		values = append(values, row[column])
	}
	ks := NewKeySet(values)
	if ks.Len() == 0 {
		logger.Warn("reference table is empty, fuzzy correction disabled",
			zap.String("table", table))
		return nil
	}

	logger.Info("loaded reference keys",
		zap.String("table", table),
		zap.Int("keys", ks.Len()))
	return ks
}

// FetchAirportKeys loads the known airport key set.
func FetchAirportKeys(ctx context.Context, st store.StagingStore, logger *zap.Logger) *KeySet {
	return FetchKeySet(ctx, st, AirportTable, AirportColumn, logger)
}

// FetchAirlineKeys loads the known airline key set.
func FetchAirlineKeys(ctx context.Context, st store.StagingStore, logger *zap.Logger) *KeySet {
	return FetchKeySet(ctx, st, AirlineTable, AirlineColumn, logger)
}
