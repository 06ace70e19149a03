package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weegienamja/Globescraper-sub003/app/listing"
)

var _ ListingRepository = (*SQLListingRepository)(nil)

// SQLListingRepository handles database operations for listings and snapshots
type SQLListingRepository struct {
	db *DB
}

// NewListingRepository creates a new listing repository
func NewListingRepository(db *DB) *SQLListingRepository {
	return &SQLListingRepository{db: db}
}

// Columns that the listings API is allowed to sort by. Anything else
// falls back to last_seen_at.
var listingSortColumns = map[string]string{
	"price":      "price_monthly_usd",
	"posted_at":  "posted_at",
	"first_seen": "first_seen_at",
	"last_seen":  "last_seen_at",
	"bedrooms":   "bedrooms",
	"size":       "size_sqm",
}

// UpsertListing inserts a new listing or updates the existing row keyed by
// (source, canonical_url). On update, first_seen_at is preserved,
// last_seen_at is bumped, and the listing is reactivated. Returns the row
// ID and whether a new row was created.
func (r *SQLListingRepository) UpsertListing(scraped listing.ScrapedListing) (string, bool, error) {
	images, err := json.Marshal(emptyIfNil(scraped.ImageURLs))
	if err != nil {
		return "", false, fmt.Errorf("failed to encode image urls: %w", err)
	}
	amenities, err := json.Marshal(emptyIfNil(scraped.Amenities))
	if err != nil {
		return "", false, fmt.Errorf("failed to encode amenities: %w", err)
	}

	var existingID string
	err = r.db.QueryRow(
		`SELECT id FROM listings WHERE source = ? AND canonical_url = ?`,
		string(scraped.Source), scraped.CanonicalURL,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return "", false, fmt.Errorf("failed to look up listing: %w", err)
	}

	if existingID != "" {
		_, err = r.db.Exec(`
			UPDATE listings SET
				source_listing_id = ?, title = ?, description = ?,
				city = ?, district = ?, property_type = ?,
				bedrooms = ?, bathrooms = ?, size_sqm = ?,
				price_monthly_usd = ?, price_original = ?, currency = ?,
				image_urls = ?, amenities = ?, posted_at = ?,
				last_seen_at = ?, is_active = 1
			WHERE id = ?
		`, scraped.SourceListingID, scraped.Title, scraped.Description,
			nullIfEmpty(scraped.City), nullIfEmpty(scraped.District), string(scraped.PropertyType),
			scraped.Bedrooms, scraped.Bathrooms, scraped.SizeSqm,
			scraped.PriceMonthlyUSD, scraped.PriceOriginal, scraped.Currency,
			string(images), string(amenities), scraped.PostedAt,
			scraped.ScrapedAt, existingID)
		if err != nil {
			return "", false, fmt.Errorf("failed to update listing: %w", err)
		}
		return existingID, false, nil
	}

	id := uuid.NewString()
	_, err = r.db.Exec(`
		INSERT INTO listings (
			id, source, canonical_url, source_listing_id, title, description,
			city, district, property_type, bedrooms, bathrooms, size_sqm,
			price_monthly_usd, price_original, currency, image_urls, amenities,
			posted_at, first_seen_at, last_seen_at, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, id, string(scraped.Source), scraped.CanonicalURL, scraped.SourceListingID,
		scraped.Title, scraped.Description,
		nullIfEmpty(scraped.City), nullIfEmpty(scraped.District), string(scraped.PropertyType),
		scraped.Bedrooms, scraped.Bathrooms, scraped.SizeSqm,
		scraped.PriceMonthlyUSD, scraped.PriceOriginal, scraped.Currency,
		string(images), string(amenities), scraped.PostedAt,
		scraped.ScrapedAt, scraped.ScrapedAt)
	if err != nil {
		return "", false, fmt.Errorf("failed to insert listing: %w", err)
	}

	return id, true, nil
}

// AddSnapshot appends one immutable price observation for a listing.
func (r *SQLListingRepository) AddSnapshot(listingID string, scrapedAt time.Time, priceUSD *float64, priceOriginal string) error {
	_, err := r.db.Exec(`
		INSERT INTO listing_snapshots (id, listing_id, scraped_at, price_monthly_usd, price_original)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), listingID, scrapedAt, priceUSD, priceOriginal)
	if err != nil {
		return fmt.Errorf("failed to add snapshot: %w", err)
	}
	return nil
}

// GetListings returns one page of listings matching the query plus the
// total match count.
func (r *SQLListingRepository) GetListings(q ListingQuery) ([]Listing, int, error) {
	where, args := buildListingWhere(q)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM listings"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	column, ok := listingSortColumns[q.SortField]
	if !ok {
		column = "last_seen_at"
	}
	order := "DESC"
	if strings.EqualFold(q.SortOrder, "asc") {
		order = "ASC"
	}

	page, limit := ClampPage(q.Page, q.Limit)
	offset := (page - 1) * limit

	query := fmt.Sprintf(`SELECT %s FROM listings%s ORDER BY %s %s, id LIMIT ? OFFSET ?`,
		listingColumns, where, column, order)
	rows, err := r.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get listings: %w", err)
	}
	defer rows.Close()

	listings, err := scanListings(rows)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

// GetActiveListings returns every active listing; used by the index builder.
func (r *SQLListingRepository) GetActiveListings() ([]Listing, error) {
	rows, err := r.db.Query(`SELECT ` + listingColumns + ` FROM listings WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active listings: %w", err)
	}
	defer rows.Close()

	return scanListings(rows)
}

// DeactivateStale soft-deactivates listings not re-observed since the
// cutoff. Returns the number of listings deactivated.
func (r *SQLListingRepository) DeactivateStale(cutoff time.Time) (int, error) {
	result, err := r.db.Exec(
		`UPDATE listings SET is_active = 0 WHERE is_active = 1 AND last_seen_at < ?`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate stale listings: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

// CountBySource returns active listing counts grouped by source.
func (r *SQLListingRepository) CountBySource() (map[listing.Source]int, error) {
	rows, err := r.db.Query(`SELECT source, COUNT(*) FROM listings WHERE is_active = 1 GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[listing.Source]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts[listing.Source(source)] = count
	}
	return counts, rows.Err()
}

// GetSnapshotCount returns the total number of stored snapshots.
func (r *SQLListingRepository) GetSnapshotCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM listing_snapshots`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return count, nil
}

const listingColumns = `id, source, canonical_url, COALESCE(source_listing_id, ''),
	title, description, city, district, property_type, bedrooms, bathrooms,
	size_sqm, price_monthly_usd, price_original, currency, image_urls,
	amenities, posted_at, first_seen_at, last_seen_at, is_active`

func buildListingWhere(q ListingQuery) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if q.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, q.Source)
	}
	if len(q.PropertyTypes) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.PropertyTypes)), ",")
		clauses = append(clauses, "property_type IN ("+placeholders+")")
		for _, pt := range q.PropertyTypes {
			args = append(args, string(pt))
		}
	}
	if len(q.Districts) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Districts)), ",")
		clauses = append(clauses, "LOWER(COALESCE(district, '')) IN ("+placeholders+")")
		for _, d := range q.Districts {
			args = append(args, strings.ToLower(d))
		}
	}
	if q.Search != "" {
		pattern := "%" + strings.ToLower(q.Search) + "%"
		clauses = append(clauses, `(LOWER(title) LIKE ? OR LOWER(COALESCE(district, '')) LIKE ? OR LOWER(COALESCE(city, '')) LIKE ?)`)
		args = append(args, pattern, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanListings(rows *sql.Rows) ([]Listing, error) {
	var listings []Listing
	for rows.Next() {
		var l Listing
		var source, propertyType, images, amenities string
		var isActive int
		err := rows.Scan(
			&l.ID, &source, &l.CanonicalURL, &l.SourceListingID,
			&l.Title, &l.Description, &l.City, &l.District, &propertyType,
			&l.Bedrooms, &l.Bathrooms, &l.SizeSqm, &l.PriceMonthlyUSD,
			&l.PriceOriginal, &l.Currency, &images, &amenities,
			&l.PostedAt, &l.FirstSeenAt, &l.LastSeenAt, &isActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing row: %w", err)
		}

		l.Source = listing.Source(source)
		l.PropertyType = listing.PropertyType(propertyType)
		l.IsActive = isActive == 1

		if err := json.Unmarshal([]byte(images), &l.ImageURLs); err != nil {
			l.ImageURLs = nil
		}
		if err := json.Unmarshal([]byte(amenities), &l.Amenities); err != nil {
			l.Amenities = nil
		}

		listings = append(listings, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating listing rows: %w", err)
	}
	return listings, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
