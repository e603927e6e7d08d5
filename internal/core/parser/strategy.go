// Package parser turns uploaded documents into inventory items. A Factory
// picks a format-specific Strategy and Run drives it through the shared
// validate, extract and materialize steps.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
)

// DefaultMaxFileSize is the upload cap applied when Options leaves it unset.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// Strategy parses one document format.
type Strategy interface {
	Name() string

	// Supports matches a declared content type or file name
	Supports(contentType, filename string) bool

	// ExtractText decodes the raw document into text
	ExtractText(data []byte) (string, error)

	// ExtractRecords reads candidate items out of decoded text. Invalid
	// records are dropped, not reported as errors.
	ExtractRecords(text string) ([]Record, error)
}

// File is an uploaded document with its declared metadata.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// Record is one item found in a document, before it becomes a domain.Item.
type Record struct {
	Name     string
	Quantity int
	Place    string
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("item name cannot be empty")
	}
	if r.Quantity <= 0 {
		return errors.New("quantity must be a positive number")
	}
	if strings.TrimSpace(r.Place) == "" {
		return errors.New("place cannot be empty")
	}
	return nil
}

// Formats declares what a strategy accepts. Embedding it provides Supports.
type Formats struct {
	MimeTypes  []string
	Extensions []string
}

func (f Formats) Supports(contentType, filename string) bool {
	if ct := baseMediaType(contentType); ct != "" {
		for _, m := range f.MimeTypes {
			if strings.EqualFold(ct, m) {
				return true
			}
		}
	}
	if filename != "" {
		lower := strings.ToLower(filename)
		for _, ext := range f.Extensions {
			if strings.HasSuffix(lower, strings.ToLower(ext)) {
				return true
			}
		}
	}
	return false
}

func baseMediaType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.TrimSpace(ct)
}

type Options struct {
	MaxFileSize int64
	Logger      *zap.Logger
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Run validates f, lets s extract its records and materializes them as new
// items. A parse that yields nothing is a failure. Every error returned
// wraps domain.ErrFileParsing.
func Run(s Strategy, f *File, opts Options) (items []domain.Item, err error) {
	opts = opts.withDefaults()

	if err := ValidateFile(f, opts.MaxFileSize); err != nil {
		return nil, err
	}

	log := opts.Logger.With(zap.String("strategy", s.Name()), zap.String("filename", f.Name))
	log.Info("parsing file", zap.Int64("size", f.Size()))

	defer func() {
		if r := recover(); r != nil {
			log.Error("parser panicked", zap.Any("panic", r))
			items = nil
			err = fmt.Errorf("%w: error parsing file: %v", domain.ErrFileParsing, r)
		}
	}()

	text, err := s.ExtractText(f.Data)
	if err != nil {
		log.Error("failed to extract text", zap.Error(err))
		return nil, wrapParseError(err)
	}

	records, err := s.ExtractRecords(text)
	if err != nil {
		log.Error("failed to extract records", zap.Error(err))
		return nil, wrapParseError(err)
	}

	if len(records) == 0 {
		log.Warn("no items parsed from file")
		return nil, fmt.Errorf("%w: no valid items found", domain.ErrFileParsing)
	}

	now := opts.Now()
	description := "Imported from " + s.Name()
	items = make([]domain.Item, 0, len(records))
	for _, r := range records {
		items = append(items, domain.NewItem(r.Name, r.Quantity, r.Place, description, now))
	}

	log.Info("parsed items from file", zap.Int("count", len(items)))
	return items, nil
}

// ValidateFile rejects a missing, empty or oversized upload.
func ValidateFile(f *File, maxSize int64) error {
	if f == nil {
		return fmt.Errorf("%w: file cannot be null", domain.ErrFileParsing)
	}
	if f.Size() == 0 {
		return fmt.Errorf("%w: file is empty", domain.ErrFileParsing)
	}
	if maxSize > 0 && f.Size() > maxSize {
		return fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, maxSize)
	}
	return nil
}

func wrapParseError(err error) error {
	if errors.Is(err, domain.ErrFileParsing) {
		return err
	}
	return fmt.Errorf("%w: error parsing file: %v", domain.ErrFileParsing, err)
}
