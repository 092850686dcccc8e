package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/courtstats/tennis-predict/internal/models"
)

// DecodeRows reads a headed CSV into header-keyed rows. Short rows leave the
// missing columns empty and extra cells are ignored.
func DecodeRows(r io.Reader) ([]models.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	header = append([]string(nil), header...)
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []models.Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(rows)+2, err)
		}
		row := make(models.Row, len(header))
		for i, name := range header {
			if i < len(rec) {
				row[name] = rec[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeMatches reads a Sackmann matches CSV into match records.
func DecodeMatches(tour string, r io.Reader) ([]*models.MatchRecord, error) {
	rows, err := DecodeRows(r)
	if err != nil {
		return nil, err
	}
	out := make([]*models.MatchRecord, len(rows))
	for i, row := range rows {
		out[i] = models.NewMatchRecord(tour, row)
	}
	return out, nil
}

// DecodeFixtures reads a JSON array of fixture objects. Values may be
// strings, numbers or null.
func DecodeFixtures(r io.Reader) ([]*models.Fixture, error) {
	var rows []models.Row
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	out := make([]*models.Fixture, len(rows))
	for i, row := range rows {
		out[i] = models.NewFixture(row)
	}
	return out, nil
}
