package pipeline

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"foodmap-api/internal/models"
)

// ParseRows converts raw delimited text into header-keyed rows. The first
// line is the field-name header; header names and cell values are trimmed.
// Blank lines are skipped and rows whose fields are all empty are dropped.
// A malformed row is logged and skipped; it never fails the batch.
func ParseRows(text string) []models.RawRow {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []models.RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Debug().Err(err).Msg("skipping malformed csv row")
			continue
		}

		row := make(models.RawRow, len(header))
		empty := true
		for i, v := range record {
			if i >= len(header) || header[i] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			row[header[i]] = v
			if v != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
