package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

var _ IndexRepository = (*SQLIndexRepository)(nil)

// SQLIndexRepository handles database operations for the daily rental index
type SQLIndexRepository struct {
	db *DB
}

// NewIndexRepository creates a new index repository
func NewIndexRepository(db *DB) *SQLIndexRepository {
	return &SQLIndexRepository{db: db}
}

// ReplaceDay atomically replaces all index rows for one date. Rebuilding a
// date is therefore idempotent: the same listing data always produces the
// same rows, with no duplicates left behind.
func (r *SQLIndexRepository) ReplaceDay(date string, rows []IndexRow) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM rental_index_daily WHERE date = ?`, date); err != nil {
		return fmt.Errorf("failed to clear index rows for %s: %w", date, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO rental_index_daily (
			id, date, city, district, bedrooms, property_type,
			listing_count, median_price_usd, mean_price_usd, p25_price_usd, p75_price_usd
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare index insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.Exec(
			uuid.NewString(), date, row.City, row.District, row.Bedrooms,
			string(row.PropertyType), row.ListingCount,
			row.MedianPriceUSD, row.MeanPriceUSD, row.P25PriceUSD, row.P75PriceUSD,
		)
		if err != nil {
			return fmt.Errorf("failed to insert index row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index rows: %w", err)
	}
	return nil
}

// GetRows returns index rows matching the query, ordered ascending by
// date. The analytics engine depends on that ordering.
func (r *SQLIndexRepository) GetRows(q IndexQuery) ([]IndexRow, error) {
	query := `
		SELECT date, city, district, bedrooms, property_type,
		       listing_count, median_price_usd, mean_price_usd, p25_price_usd, p75_price_usd
		FROM rental_index_daily
		WHERE city = ?`
	args := []interface{}{q.City}

	if q.District != "" {
		query += ` AND district = ?`
		args = append(args, q.District)
	}
	if q.Bedrooms != nil {
		query += ` AND bedrooms = ?`
		args = append(args, *q.Bedrooms)
	}
	if q.PropertyType != "" {
		query += ` AND property_type = ?`
		args = append(args, q.PropertyType)
	}
	if q.SinceDate != "" {
		query += ` AND date >= ?`
		args = append(args, q.SinceDate)
	}

	query += ` ORDER BY date ASC, city, district, bedrooms, property_type`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get index rows: %w", err)
	}
	defer rows.Close()

	var out []IndexRow
	for rows.Next() {
		var row IndexRow
		var propertyType string
		err := rows.Scan(
			&row.Date, &row.City, &row.District, &row.Bedrooms, &propertyType,
			&row.ListingCount, &row.MedianPriceUSD, &row.MeanPriceUSD,
			&row.P25PriceUSD, &row.P75PriceUSD,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan index row: %w", err)
		}
		row.PropertyType = listing.PropertyType(propertyType)
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index rows: %w", err)
	}
	return out, nil
}

// GetDateRange returns the earliest and latest index dates, or empty
// strings when no rows exist.
func (r *SQLIndexRepository) GetDateRange() (string, string, error) {
	var min, max sql.NullString
	err := r.db.QueryRow(`SELECT MIN(date), MAX(date) FROM rental_index_daily`).Scan(&min, &max)
	if err != nil {
		return "", "", fmt.Errorf("failed to get index date range: %w", err)
	}
	return min.String, max.String, nil
}
