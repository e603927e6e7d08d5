package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
	"github.com/rl1809/lost-found/internal/core/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	claims      *service.ClaimService
	items       *service.ItemService
	users       *service.UserService
	deps        map[string]Pinger
	maxFileSize int64
	logger      *zap.Logger
}

func NewHTTPHandler(
	claims *service.ClaimService,
	items *service.ItemService,
	users *service.UserService,
	deps map[string]Pinger,
	maxFileSize int64,
	logger *zap.Logger,
) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		claims:      claims,
		items:       items,
		users:       users,
		deps:        deps,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// NewRouter builds the echo instance with middleware and every route.
func NewRouter(h *HTTPHandler, bodyLimit string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = NewErrorHandler(h.logger)

	e.Use(middleware.Recover())
	e.Use(requestID())
	e.Use(RequestLogger(h.logger))
	if bodyLimit != "" {
		e.Use(middleware.BodyLimit(bodyLimit))
	}

	e.GET("/health", h.HealthCheck)

	api := e.Group("/api", BasicAuth(h.users, h.logger))

	user := api.Group("/user")
	user.GET("/items", h.ListAvailableItems)
	user.POST("/claims", h.CreateClaim)
	user.GET("/me", h.Me)

	admin := api.Group("/admin", RequireRole(domain.RoleAdmin))
	admin.POST("/upload", h.UploadItems)
	admin.GET("/claims", h.ListClaims)

	return e
}

type itemResponse struct {
	ID                int64     `json:"id"`
	ItemName          string    `json:"itemName"`
	Quantity          int       `json:"quantity"`
	RemainingQuantity int       `json:"remainingQuantity"`
	Place             string    `json:"place"`
	Description       string    `json:"description"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	Available         bool      `json:"isAvailable"`
}

func newItemResponse(i domain.Item) itemResponse {
	return itemResponse{
		ID:                i.ID,
		ItemName:          i.Name,
		Quantity:          i.Quantity,
		RemainingQuantity: i.RemainingQuantity,
		Place:             i.Place,
		Description:       i.Description,
		CreatedAt:         i.CreatedAt,
		UpdatedAt:         i.UpdatedAt,
		Available:         i.IsAvailable(),
	}
}

type claimResponse struct {
	ID              int64              `json:"id"`
	UserID          int64              `json:"userId"`
	UserName        string             `json:"userName"`
	LostItemID      int64              `json:"lostItemId"`
	ItemName        string             `json:"itemName"`
	Place           string             `json:"place"`
	ClaimedQuantity int                `json:"claimedQuantity"`
	ClaimDate       time.Time          `json:"claimDate"`
	Status          domain.ClaimStatus `json:"status"`
	Notes           string             `json:"notes"`
}

func newClaimResponse(v domain.ClaimView) claimResponse {
	return claimResponse{
		ID:              v.ID,
		UserID:          v.UserID,
		UserName:        v.UserName,
		LostItemID:      v.ItemID,
		ItemName:        v.ItemName,
		Place:           v.Place,
		ClaimedQuantity: v.Quantity,
		ClaimDate:       v.ClaimDate,
		Status:          v.Status,
		Notes:           v.Note,
	}
}

type userResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	Enabled  bool        `json:"enabled"`
}

type pageResponse[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

func newPageResponse[T, U any](p domain.Page[T], fn func(T) U) pageResponse[U] {
	mapped := domain.MapPage(p, fn)
	return pageResponse[U]{
		Content:       mapped.Content,
		Page:          mapped.Page,
		Size:          mapped.Size,
		TotalElements: mapped.TotalElements,
		TotalPages:    mapped.TotalPages,
	}
}

type uploadResponse struct {
	Message    string         `json:"message"`
	ItemsCount int            `json:"itemsCount"`
	Items      []itemResponse `json:"items"`
}

// ListAvailableItems handles GET /api/user/items.
func (h *HTTPHandler) ListAvailableItems(c echo.Context) error {
	req, err := parsePageRequest(c)
	if err != nil {
		return err
	}
	page, err := h.items.ListAvailable(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(page, newItemResponse))
}

// CreateClaim handles POST /api/user/claims for the authenticated user.
func (h *HTTPHandler) CreateClaim(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}

	var req service.ClaimRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewValidationError("body", "malformed JSON")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	view, err := h.claims.CreateClaim(c.Request().Context(), u.Username, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newClaimResponse(view))
}

// Me handles GET /api/user/me.
func (h *HTTPHandler) Me(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return echo.ErrUnauthorized
	}
	fresh, err := h.users.GetByID(c.Request().Context(), u.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{
		ID:       fresh.ID,
		Username: fresh.Username,
		Name:     fresh.Name,
		Email:    fresh.Email,
		Role:     fresh.Role,
		Enabled:  fresh.Enabled,
	})
}

// UploadItems handles POST /api/admin/upload with a multipart "file" field.
func (h *HTTPHandler) UploadItems(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return domain.NewValidationError("file", "is required")
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	// one byte past the limit is enough to detect an oversized upload
	limit := h.maxFileSize
	if limit <= 0 {
		limit = fh.Size
	}
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}

	h.logger.Info("admin file upload",
		zap.String("filename", fh.Filename), zap.Int64("size", fh.Size))

	items, err := h.items.Upload(c.Request().Context(), service.Upload{
		Data:        data,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Filename:    fh.Filename,
	})
	if err != nil {
		return err
	}

	out := make([]itemResponse, 0, len(items))
	for _, i := range items {
		out = append(out, newItemResponse(i))
	}
	return c.JSON(http.StatusCreated, uploadResponse{
		Message:    "File uploaded and processed successfully",
		ItemsCount: len(out),
		Items:      out,
	})
}

// ListClaims handles GET /api/admin/claims.
func (h *HTTPHandler) ListClaims(c echo.Context) error {
	req, err := parsePageRequest(c)
	if err != nil {
		return err
	}
	page, err := h.claims.ListClaims(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPageResponse(page, newClaimResponse))
}

// HealthCheck pings every dependency and reports 503 if any is down.
func (h *HTTPHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	return c.JSON(status, echo.Map{"status": overall, "checks": checks})
}

// parsePageRequest reads page, size and repeated sort=field[,dir] params.
func parsePageRequest(c echo.Context) (domain.PageRequest, error) {
	var req domain.PageRequest

	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, domain.NewValidationError("page", "must be a number")
		}
		req.Page = n
	}
	if v := c.QueryParam("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, domain.NewValidationError("size", "must be a number")
		}
		req.Size = n
	}

	for _, raw := range c.QueryParams()["sort"] {
		field, dir, _ := strings.Cut(raw, ",")
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		req.Sort = append(req.Sort, domain.SortOrder{
			Field:     field,
			Direction: domain.SortDirection(strings.ToLower(strings.TrimSpace(dir))),
		})
	}
	return req, nil
}
