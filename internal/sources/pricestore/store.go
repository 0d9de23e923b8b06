// internal/sources/pricestore/store.go
package pricestore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"agribot/internal/common/errors"
	"agribot/internal/common/logger"
	"agribot/internal/common/metrics"
	"agribot/internal/models"
)

const selectColumns = "crop, market, district_name, state_name, modal_price, unit_of_price, arrival_date"

// Store answers price queries from the commodity_prices table. Any backing
// store fault degrades to "no data"; the caller never sees an error.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db: db,
		logger: log.With(map[string]interface{}{
			"component": "pricestore",
		}),
	}
}

// Lookup returns the formatted price sentence for the most recent matching
// record. With no commodity there is nothing to look up. If the full filter
// set finds nothing and a state filter was present, a second pass retries
// with commodity + state only.
func (s *Store) Lookup(ctx context.Context, resolved models.ResolvedQuery) (string, bool) {
	if !resolved.HasCommodity() {
		return "", false
	}

	record, err := s.findMostRecent(ctx, resolved.Commodity, resolved.LocationFilters)
	if err != nil {
		metrics.SourceFailures.WithLabelValues("price_store", string(errors.ErrCodePriceLookupFailed)).Inc()
		s.logger.WithError(errors.NewPriceLookupFailedError(err)).Error("price lookup failed", map[string]interface{}{
			"commodity": resolved.Commodity,
		})
		return "", false
	}
	if record != nil {
		return formatSentence(record, true), true
	}

	statePattern, hasState := resolved.LocationFilters["state_name"]
	if !hasState {
		return "", false
	}

	record, err = s.findMostRecent(ctx, resolved.Commodity, map[string]string{"state_name": statePattern})
	if err != nil {
		metrics.SourceFailures.WithLabelValues("price_store", string(errors.ErrCodePriceLookupFailed)).Inc()
		s.logger.WithError(errors.NewPriceLookupFailedError(err)).Error("state-level price lookup failed", map[string]interface{}{
			"commodity": resolved.Commodity,
		})
		return "", false
	}
	if record != nil {
		return formatSentence(record, false), true
	}

	return "", false
}

// findMostRecent returns the newest record matching commodity and all
// location filters, or nil when there is none.
func (s *Store) findMostRecent(ctx context.Context, commodity string, filters map[string]string) (*models.PriceRecord, error) {
	query, args := buildQuery(commodity, filters)

	row := s.db.QueryRowContext(ctx, query, args...)

	var record models.PriceRecord
	err := row.Scan(
		&record.Crop,
		&record.Market,
		&record.District,
		&record.State,
		&record.ModalPrice,
		&record.Unit,
		&record.ArrivalDate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// buildQuery assembles the filtered select. Filter fields come from the
// fixed gazetteer, never from user input; values are bound parameters.
// Fields are sorted so the generated SQL is deterministic.
func buildQuery(commodity string, filters map[string]string) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectColumns)
	sb.WriteString(" FROM commodity_prices WHERE crop ILIKE '%' || $1 || '%'")

	args := []interface{}{commodity}

	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		args = append(args, filters[field])
		fmt.Fprintf(&sb, " AND %s ~* $%d", field, len(args))
	}

	sb.WriteString(" ORDER BY arrival_date DESC LIMIT 1")
	return sb.String(), args
}

// formatSentence renders the user-facing price sentence. The state-level
// fallback omits the district clause.
func formatSentence(r *models.PriceRecord, withDistrict bool) string {
	date := strings.SplitN(r.ArrivalDate, "T", 2)[0]
	price := strconv.FormatFloat(r.ModalPrice, 'f', -1, 64)

	if withDistrict {
		return fmt.Sprintf("The price of %s in %s, %s, %s is %s %s as of %s.",
			r.Crop, r.Market, r.District, r.State, price, r.Unit, date)
	}
	return fmt.Sprintf("The price of %s in %s, %s is %s %s as of %s.",
		r.Crop, r.Market, r.State, price, r.Unit, date)
}
