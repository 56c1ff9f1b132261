package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
)

type csvRow struct {
	Date     string  `csv:"date"`
	Owner    string  `csv:"username"`
	FieldID  string  `csv:"field_id"`
	NDWI     float64 `csv:"ndwi"`
	NDVI     float64 `csv:"ndvi"`
	SAVI     float64 `csv:"savi"`
	EVI      float64 `csv:"evi"`
	Area     int     `csv:"area"`
	CropType string  `csv:"crop_type"`
	Cloud    string  `csv:"cloud"`
}

func toCSV(r HealthRow) csvRow {
	return csvRow{
		Date:     r.Date.Format(time.DateOnly),
		Owner:    r.Owner,
		FieldID:  r.FieldID,
		NDWI:     r.NDWI,
		NDVI:     r.NDVI,
		SAVI:     r.SAVI,
		EVI:      r.EVI,
		Area:     r.Area,
		CropType: r.CropType,
		Cloud:    r.Cloud,
	}
}

func (c csvRow) health() (HealthRow, error) {
	date, err := time.Parse(time.DateOnly, c.Date)
	if err != nil {
		return HealthRow{}, err
	}
	return HealthRow{
		Date:     date,
		Owner:    c.Owner,
		FieldID:  c.FieldID,
		NDWI:     c.NDWI,
		NDVI:     c.NDVI,
		SAVI:     c.SAVI,
		EVI:      c.EVI,
		Area:     c.Area,
		CropType: c.CropType,
		Cloud:    c.Cloud,
	}, nil
}

// CSVSink appends rows to a CSV file, writing the header when the file is
// created.
type CSVSink struct {
	path string
	mu   sync.Mutex
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) InsertHealth(_ context.Context, row HealthRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fail := func(err error) error {
		return &PersistenceError{Op: "csv", Owner: row.Owner, FieldID: row.FieldID, Date: row.Date, Err: err}
	}

	fileExists := true
	if info, err := os.Stat(s.path); err != nil || info.Size() == 0 {
		fileExists = false
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fail(err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	rows := []csvRow{toCSV(row)}
	if !fileExists {
		err = gocsv.MarshalCSV(&rows, writer)
	} else {
		err = gocsv.MarshalCSVWithoutHeaders(&rows, writer)
	}
	if err != nil {
		return fail(err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fail(err)
	}
	if err := file.Close(); err != nil {
		return fail(err)
	}
	return nil
}

// WriteCSV writes rows with a header.
func WriteCSV(w io.Writer, rows []HealthRow) error {
	out := make([]csvRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, toCSV(r))
	}
	return gocsv.Marshal(&out, w)
}

// ReadCSV reads back a file written by CSVSink or WriteCSV.
func ReadCSV(path string) ([]HealthRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []csvRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("error unmarshalling CSV: %w", err)
	}

	out := make([]HealthRow, 0, len(rows))
	for i, r := range rows {
		h, err := r.health()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, h)
	}
	return out, nil
}
