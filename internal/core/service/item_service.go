package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
	"github.com/rl1809/lost-found/internal/core/parser"
	"github.com/rl1809/lost-found/internal/port"
)

// Upload is a document submitted for import.
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

type ItemService struct {
	tx          port.Transactor
	items       port.ItemRepository
	factory     *parser.Factory
	maxFileSize int64
	logger      *zap.Logger
	now         func() time.Time
}

func NewItemService(tx port.Transactor, items port.ItemRepository, factory *parser.Factory, maxFileSize int64, logger *zap.Logger) *ItemService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemService{
		tx:          tx,
		items:       items,
		factory:     factory,
		maxFileSize: maxFileSize,
		logger:      logger,
		now:         time.Now,
	}
}

// Upload parses u and stores every item found in it, all or nothing.
func (s *ItemService) Upload(ctx context.Context, u Upload) ([]domain.Item, error) {
	log := s.logger.With(zap.String("filename", u.Filename))
	log.Info("processing file upload", zap.Int("size", len(u.Data)))

	if len(u.Data) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domain.ErrFileParsing)
	}

	contentType := s.resolveContentType(u)
	strategy, err := s.factory.Select(contentType, u.Filename)
	if err != nil {
		return nil, err
	}

	parsed, err := parser.Run(strategy, &parser.File{
		Name:        u.Filename,
		ContentType: contentType,
		Data:        u.Data,
	}, parser.Options{MaxFileSize: s.maxFileSize, Logger: s.logger, Now: s.now})
	if err != nil {
		return nil, err
	}

	var saved []domain.Item
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		saved, err = s.items.CreateItems(ctx, parsed)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save items: %w", err)
	}

	log.Info("saved items from file", zap.Int("count", len(saved)))
	return saved, nil
}

// resolveContentType sniffs the payload when the client sent no useful type.
func (s *ItemService) resolveContentType(u Upload) string {
	declared := strings.TrimSpace(u.ContentType)
	if declared != "" && !strings.HasPrefix(strings.ToLower(declared), "application/octet-stream") {
		return declared
	}
	detected := mimetype.Detect(u.Data).String()
	s.logger.Debug("detected content type",
		zap.String("declared", declared), zap.String("detected", detected))
	return detected
}

// ListAvailable pages through items that still have stock.
func (s *ItemService) ListAvailable(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Item], error) {
	if err := req.Validate(domain.ItemSortFields); err != nil {
		return domain.Page[domain.Item]{}, err
	}
	page, err := s.items.ListAvailableItems(ctx, req)
	if err != nil {
		return domain.Page[domain.Item]{}, fmt.Errorf("list available items: %w", err)
	}
	return page, nil
}
