package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
)

const csvStrategyName = "CSV Parser"

var (
	nameColumns     = []string{"item name", "item_name", "itemname", "name"}
	quantityColumns = []string{"quantity", "qty"}
	placeColumns    = []string{"place", "location"}
)

// CSVStrategy reads spreadsheet exports with an item name, quantity and
// place column.
type CSVStrategy struct {
	Formats
	logger *zap.Logger
}

func NewCSVStrategy(logger *zap.Logger) *CSVStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVStrategy{
		Formats: Formats{
			MimeTypes:  []string{"text/csv", "application/csv"},
			Extensions: []string{".csv"},
		},
		logger: logger.Named("csv"),
	}
}

func (s *CSVStrategy) Name() string {
	return csvStrategyName
}

func (s *CSVStrategy) ExtractText(data []byte) (string, error) {
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func (s *CSVStrategy) ExtractRecords(text string) ([]Record, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	nameCol := columnIndex(header, nameColumns)
	qtyCol := columnIndex(header, quantityColumns)
	placeCol := columnIndex(header, placeColumns)
	if nameCol < 0 || qtyCol < 0 || placeCol < 0 {
		return nil, fmt.Errorf("%w: CSV header must contain item name, quantity and place columns", domain.ErrFileParsing)
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line, err)
		}

		rec, err := recordFromRow(row, nameCol, qtyCol, placeCol)
		if err == nil {
			err = rec.Validate()
		}
		if err != nil {
			s.logger.Debug("discarding row", zap.Int("line", line), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordFromRow(row []string, nameCol, qtyCol, placeCol int) (Record, error) {
	field := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	qty, err := strconv.Atoi(field(qtyCol))
	if err != nil {
		return Record{}, fmt.Errorf("invalid quantity %q", field(qtyCol))
	}
	return Record{Name: field(nameCol), Quantity: qty, Place: field(placeCol)}, nil
}

func columnIndex(header []string, names []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, n := range names {
			if h == n {
				return i
			}
		}
	}
	return -1
}
