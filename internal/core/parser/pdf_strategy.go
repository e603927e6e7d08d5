package parser

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
)

const pdfStrategyName = "PDF Parser"

// PDFStrategy reads key/value item listings out of PDF documents.
type PDFStrategy struct {
	Formats
	logger  *zap.Logger
	extract func(data []byte) (string, error)
}

func NewPDFStrategy(logger *zap.Logger) *PDFStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFStrategy{
		Formats: Formats{
			MimeTypes:  []string{"application/pdf"},
			Extensions: []string{".pdf"},
		},
		logger:  logger.Named("pdf"),
		extract: extractPDFText,
	}
}

func (s *PDFStrategy) Name() string {
	return pdfStrategyName
}

func (s *PDFStrategy) ExtractText(data []byte) (string, error) {
	text, err := s.extract(data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no text content found in PDF", domain.ErrFileParsing)
	}
	s.logger.Debug("extracted text from PDF", zap.Int("chars", len(text)))
	return text, nil
}

func (s *PDFStrategy) ExtractRecords(text string) ([]Record, error) {
	return ExtractKeyValueRecords(text, s.logger), nil
}

// extractPDFText rebuilds text lines page by page from positioned glyphs.
func extractPDFText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	if r.NumPage() == 0 {
		return "", fmt.Errorf("%w: PDF file is empty or corrupted", domain.ErrFileParsing)
	}

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		writeGlyphLines(&sb, page.Content().Text)
	}
	return sb.String(), nil
}

// writeGlyphLines starts a new line whenever the baseline moves and inserts a
// space where two glyphs on one line are separated by a visible gap. Glyphs
// are written in content stream order.
func writeGlyphLines(sb *strings.Builder, glyphs []pdf.Text) {
	var prev *pdf.Text
	for i := range glyphs {
		g := &glyphs[i]
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			continue
		}
		if prev != nil {
			switch {
			case math.Abs(g.Y-prev.Y) > baselineTolerance(prev, g):
				sb.WriteByte('\n')
			case g.S != " " && prev.S != " " && g.X-(prev.X+prev.W) > 0.15*math.Max(g.FontSize, prev.FontSize):
				sb.WriteByte(' ')
			}
		}
		sb.WriteString(g.S)
		prev = g
	}
	if prev != nil {
		sb.WriteByte('\n')
	}
}

func baselineTolerance(a, b *pdf.Text) float64 {
	return math.Max(1, 0.3*math.Min(a.FontSize, b.FontSize))
}
