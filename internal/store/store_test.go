package store_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javierballesterjack/crop-health-engine/internal/store"
)

var day = time.Date(2024, time.June, 3, 0, 0, 0, 0, time.UTC)

func sampleRow() store.HealthRow {
	return store.HealthRow{
		Date:     day,
		Owner:    "alice",
		FieldID:  "north",
		NDWI:     -0.5,
		NDVI:     0.6,
		SAVI:     0.59,
		EVI:      1.4,
		Area:     36,
		CropType: "wheat",
		Cloud:    "no",
	}
}

func newMock(t *testing.T) (*store.Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return store.NewPostgres(db), mock
}

func TestInsertHealth(t *testing.T) {
	pg, mock := newMock(t)
	row := sampleRow()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO crop_health (date, username, field_id, ndwi, ndvi, savi, evi, area, crop_type, cloud)")).
		WithArgs("2024-06-03", "alice", "north", -0.5, 0.6, 0.59, 1.4, 36, "wheat", "no").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, pg.InsertHealth(context.Background(), row))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertHealthDuplicate(t *testing.T) {
	pg, mock := newMock(t)

	mock.ExpectExec("INSERT INTO crop_health").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value"})

	err := pg.InsertHealth(context.Background(), sampleRow())
	var perr *store.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Duplicate)
	assert.Equal(t, "north", perr.FieldID)
	assert.Contains(t, err.Error(), "date=2024-06-03")

	mock.ExpectExec("INSERT INTO crop_health").WillReturnError(errors.New("connection reset"))
	err = pg.InsertHealth(context.Background(), sampleRow())
	require.ErrorAs(t, err, &perr)
	assert.False(t, perr.Duplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFields(t *testing.T) {
	pg, mock := newMock(t)
	created := time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"username", "field_id", "field_name", "crop_type", "st_asgeojson", "created_at", "sentinel2_query"}).
		AddRow("alice", "north", "North plot", "wheat", `{"type":"Polygon","coordinates":[[[-3.70,40.40],[-3.69,40.40],[-3.69,40.41],[-3.70,40.40]]]}`, created, "tiles/30/T/VK/").
		AddRow("alice", "south", nil, nil, `{"type":"MultiPolygon","coordinates":[[[[-3.70,40.38],[-3.69,40.38],[-3.69,40.39]]]]}`, created, "tiles/30/T/VK/")
	mock.ExpectQuery(regexp.QuoteMeta("ST_AsGeoJSON(polygon)")).WithArgs("alice").WillReturnRows(rows)

	got, err := pg.Fields(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "North plot", got[0].Name)
	assert.Equal(t, "wheat", got[0].CropType)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.Equal(t, "tiles/30/T/VK/", got[1].ScenePath)
	assert.Equal(t, "", got[1].Name)
	assert.Len(t, got[1].Polygon.Rings()[0], 4)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFieldsSkipsBadPolygon(t *testing.T) {
	pg, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"username", "field_id", "field_name", "crop_type", "st_asgeojson", "created_at", "sentinel2_query"}).
		AddRow("alice", "bad", "Bad", "wheat", `{"type":"Point","coordinates":[1,2]}`, time.Now(), "tiles/30/T/VK/").
		AddRow("alice", "north", "North plot", "wheat", `{"type":"Polygon","coordinates":[[[-3.70,40.40],[-3.69,40.40],[-3.69,40.41],[-3.70,40.40]]]}`, time.Now(), "tiles/30/T/VK/")
	mock.ExpectQuery("SELECT username").WithArgs("alice").WillReturnRows(rows)

	got, err := pg.Fields(context.Background(), "alice")
	var perr *store.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad", perr.FieldID)

	require.Len(t, got, 1)
	assert.Equal(t, "north", got[0].FieldID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeries(t *testing.T) {
	pg, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"date", "username", "field_id", "ndwi", "ndvi", "savi", "evi", "area", "crop_type", "cloud"}).
		AddRow(day, "alice", "north", -0.5, 0.6, 0.59, 1.4, 36, "wheat", "no").
		AddRow(day.AddDate(0, 0, 5), "alice", "north", -0.4, 0.65, 0.62, 1.5, 36, "wheat", "yes")
	mock.ExpectQuery("FROM crop_health").WithArgs("alice", "north").WillReturnRows(rows)

	got, err := pg.Series(context.Background(), "alice", "north")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, sampleRow(), got[0])
	assert.Equal(t, "yes", got[1].Cloud)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCSVSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "health.csv")
	sink := store.NewCSVSink(path)

	first := sampleRow()
	second := sampleRow()
	second.FieldID = "south"
	second.Date = day.AddDate(0, 0, 5)

	require.NoError(t, sink.InsertHealth(context.Background(), first))
	require.NoError(t, sink.InsertHealth(context.Background(), second))

	got, err := store.ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []store.HealthRow{first, second}, got)
}

func TestCSVSinkReportsWriteFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	sink := store.NewCSVSink(filepath.Join(dir, "health.csv"))

	err := sink.InsertHealth(context.Background(), sampleRow())
	var perr *store.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "north", perr.FieldID)
}

func TestCSVSinkFlushFailure(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full on this system")
	}
	sink := store.NewCSVSink("/dev/full")

	err := sink.InsertHealth(context.Background(), sampleRow())
	var perr *store.PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "csv", perr.Op)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, store.WriteCSV(&buf, []store.HealthRow{sampleRow()}))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "date,username,field_id,ndwi,ndvi,savi,evi,area,crop_type,cloud", string(lines[0]))
	assert.Equal(t, "2024-06-03,alice,north,-0.5,0.6,0.59,1.4,36,wheat,no", string(lines[1]))
}
