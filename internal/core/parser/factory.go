package parser

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
)

// Factory selects a strategy from a fixed registration order.
type Factory struct {
	strategies []Strategy
	logger     *zap.Logger
}

func NewFactory(logger *zap.Logger, strategies ...Strategy) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Factory{strategies: strategies, logger: logger}
	logger.Info("initialized parsing strategies", zap.Strings("strategies", f.SupportedTypes()))
	return f
}

// NewDefaultFactory registers the PDF strategy first, then CSV.
func NewDefaultFactory(logger *zap.Logger) *Factory {
	return NewFactory(logger, NewPDFStrategy(logger), NewCSVStrategy(logger))
}

// Select returns the first strategy that supports the content type or file
// name, or domain.ErrUnsupportedFileType.
func (f *Factory) Select(contentType, filename string) (Strategy, error) {
	f.logger.Debug("looking for parsing strategy",
		zap.String("content_type", contentType), zap.String("filename", filename))

	for _, s := range f.strategies {
		if s.Supports(contentType, filename) {
			f.logger.Info("selected parsing strategy",
				zap.String("strategy", s.Name()), zap.String("filename", filename))
			return s, nil
		}
	}

	return nil, fmt.Errorf("%w: no parsing strategy found for file type: %s (filename: %s)",
		domain.ErrUnsupportedFileType, contentType, filename)
}

func (f *Factory) Strategies() []Strategy {
	out := make([]Strategy, len(f.strategies))
	copy(out, f.strategies)
	return out
}

func (f *Factory) SupportedTypes() []string {
	names := make([]string, 0, len(f.strategies))
	for _, s := range f.strategies {
		names = append(names, s.Name())
	}
	return names
}
