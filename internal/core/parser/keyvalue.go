package parser

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	itemNamePattern   = regexp.MustCompile(`(?i)^\s*Item\s*Name\s*:\s*(.+?)\s*$`)
	quantityPattern   = regexp.MustCompile(`(?i)^\s*Quantity\s*:\s*(\d+)\s*$`)
	placePattern      = regexp.MustCompile(`(?i)^\s*Place\s*:\s*(.+?)\s*$`)
	decorationPattern = regexp.MustCompile(`^[\s\-=]+$`)
)

// pendingRecord accumulates the fields of the record being read.
type pendingRecord struct {
	name     *string
	quantity *int
	place    *string
}

func (p pendingRecord) complete() bool {
	return p.name != nil && p.quantity != nil && p.place != nil
}

func (p pendingRecord) record() Record {
	return Record{Name: *p.name, Quantity: *p.quantity, Place: *p.place}
}

// ExtractKeyValueRecords reads "Item Name:", "Quantity:" and "Place:" lines.
// A new name line closes the previous record; a previous record still missing
// a field at that point is dropped.
func ExtractKeyValueRecords(text string, logger *zap.Logger) []Record {
	var (
		records []Record
		current pendingRecord
	)

	emit := func() {
		if !current.complete() {
			return
		}
		rec := current.record()
		if err := rec.Validate(); err != nil {
			logger.Debug("discarding item", zap.String("item_name", rec.Name), zap.Error(err))
			return
		}
		records = append(records, rec)
		logger.Debug("parsed item",
			zap.String("item_name", rec.Name), zap.Int("quantity", rec.Quantity), zap.String("place", rec.Place))
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isHeaderLine(line) {
			continue
		}

		if m := itemNamePattern.FindStringSubmatch(line); m != nil {
			emit()
			name := strings.TrimSpace(m[1])
			current = pendingRecord{name: &name}
			continue
		}

		if m := quantityPattern.FindStringSubmatch(line); m != nil {
			q, err := strconv.Atoi(m[1])
			if err != nil {
				logger.Debug("invalid quantity", zap.String("value", m[1]))
				continue
			}
			current.quantity = &q
			continue
		}

		if m := placePattern.FindStringSubmatch(line); m != nil {
			place := strings.TrimSpace(m[1])
			current.place = &place
		}
	}
	emit()

	return records
}

// isHeaderLine matches report titles and separator lines.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "lost items") ||
		strings.Contains(lower, "report") ||
		decorationPattern.MatchString(lower)
}
