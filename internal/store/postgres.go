package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/javierballesterjack/crop-health-engine/internal/fields"
)

const uniqueViolation = "23505"

const (
	insertHealthQuery = `INSERT INTO crop_health (date, username, field_id, ndwi, ndvi, savi, evi, area, crop_type, cloud)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	fieldsQuery = `SELECT username, field_id, field_name, crop_type, ST_AsGeoJSON(polygon), created_at, sentinel2_query
FROM fields WHERE username = $1 ORDER BY field_id`

	seriesQuery = `SELECT date, username, field_id, ndwi, ndvi, savi, evi, area, crop_type, cloud
FROM crop_health WHERE username = $1 AND field_id = $2 ORDER BY date`
)

// Postgres stores rows in the crop_health table and reads fields from the
// fields table (PostGIS polygons).
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects with a lib/pq connection string and checks the
// connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return NewPostgres(db), nil
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

// InsertHealth writes one row in its own statement.
func (p *Postgres) InsertHealth(ctx context.Context, row HealthRow) error {
	_, err := p.db.ExecContext(ctx, insertHealthQuery,
		row.Date.Format(time.DateOnly),
		row.Owner,
		row.FieldID,
		row.NDWI,
		row.NDVI,
		row.SAVI,
		row.EVI,
		row.Area,
		row.CropType,
		row.Cloud,
	)
	if err != nil {
		perr := &PersistenceError{Op: "insert", Owner: row.Owner, FieldID: row.FieldID, Date: row.Date, Err: err}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			perr.Duplicate = true
		}
		return perr
	}
	return nil
}

// Fields loads every field of owner. Fields whose polygon cannot be parsed
// are skipped and reported in the joined error next to the valid ones.
func (p *Postgres) Fields(ctx context.Context, owner string) ([]fields.Field, error) {
	rows, err := p.db.QueryContext(ctx, fieldsQuery, owner)
	if err != nil {
		return nil, &PersistenceError{Op: "fields", Owner: owner, Err: err}
	}
	defer rows.Close()

	var (
		out     []fields.Field
		skipped []error
	)
	for rows.Next() {
		var (
			f         fields.Field
			name      sql.NullString
			crop      sql.NullString
			polygon   string
			scenePath sql.NullString
		)
		if err := rows.Scan(&f.Owner, &f.FieldID, &name, &crop, &polygon, &f.CreatedAt, &scenePath); err != nil {
			return nil, &PersistenceError{Op: "fields", Owner: owner, Err: err}
		}
		f.Name, f.CropType, f.ScenePath = name.String, crop.String, scenePath.String

		f.Polygon, err = fields.ParsePolygon([]byte(polygon))
		if err != nil {
			skipped = append(skipped, &PersistenceError{Op: "fields", Owner: owner, FieldID: f.FieldID, Err: err})
			continue
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "fields", Owner: owner, Err: err}
	}
	return out, errors.Join(skipped...)
}

// Series returns the stored rows of one field in date order.
func (p *Postgres) Series(ctx context.Context, owner, fieldID string) ([]HealthRow, error) {
	rows, err := p.db.QueryContext(ctx, seriesQuery, owner, fieldID)
	if err != nil {
		return nil, &PersistenceError{Op: "series", Owner: owner, FieldID: fieldID, Err: err}
	}
	defer rows.Close()

	var out []HealthRow
	for rows.Next() {
		var (
			r     HealthRow
			crop  sql.NullString
			cloud sql.NullString
		)
		if err := rows.Scan(&r.Date, &r.Owner, &r.FieldID, &r.NDWI, &r.NDVI, &r.SAVI, &r.EVI, &r.Area, &crop, &cloud); err != nil {
			return nil, &PersistenceError{Op: "series", Owner: owner, FieldID: fieldID, Err: err}
		}
		r.CropType, r.Cloud = crop.String, cloud.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &PersistenceError{Op: "series", Owner: owner, FieldID: fieldID, Err: err}
	}
	return out, nil
}
