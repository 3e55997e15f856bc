package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/platform-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/platform-service/internal/app"
	"github.com/jsamuelsen/platform-service/internal/domain"
)

// PlatformsPath is the collection route. The read-by-id route and the
// Location header of a created platform hang off it.
const PlatformsPath = "/api/platforms"

// PlatformService is the application surface the handlers need.
type PlatformService interface {
	GetAll(ctx context.Context) ([]domain.PlatformView, error)
	GetByID(ctx context.Context, id int) (*domain.PlatformView, error)
	Create(ctx context.Context, in app.CreatePlatformInput) (*app.CreateResult, error)
}

// PlatformHandler handles the platform record endpoints.
type PlatformHandler struct {
	service PlatformService
}

// NewPlatformHandler creates a new platform handler.
func NewPlatformHandler(service PlatformService) *PlatformHandler {
	if service == nil {
		panic("handlers: platform service is required")
	}

	return &PlatformHandler{service: service}
}

// GetPlatforms handles GET /api/platforms.
//
// @Summary List platforms
// @Tags platforms
// @Produce json
// @Success 200 {array} dto.PlatformResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/platforms [get]
func (h *PlatformHandler) GetPlatforms(c *gin.Context) {
	views, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPlatformListResponse(views))
}

// GetPlatformByID handles GET /api/platforms/:id.
//
// @Summary Get a platform by ID
// @Tags platforms
// @Produce json
// @Param id path int true "Platform ID"
// @Success 200 {object} dto.PlatformResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/platforms/{id} [get]
func (h *PlatformHandler) GetPlatformByID(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		dto.AbortBadRequest(c, "platform id must be an integer")
		return
	}

	view, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewPlatformResponse(*view))
}

// CreatePlatform handles POST /api/platforms. A platform that was committed
// is always answered with 201, whatever happened downstream.
//
// @Summary Create a platform
// @Tags platforms
// @Accept json
// @Produce json
// @Param platform body dto.CreatePlatformRequest true "Platform"
// @Success 201 {object} dto.PlatformResponse
// @Header 201 {string} Location "URL of the new platform"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/platforms [post]
func (h *PlatformHandler) CreatePlatform(c *gin.Context) {
	var req dto.CreatePlatformRequest

	err := dto.BindAndValidate(c, &req)
	switch {
	case err == nil:
	case dto.IsValidationError(err):
		dto.RespondInvalid(c, dto.ValidationErrors(err))
		return
	default:
		dto.AbortBadRequest(c, "request body must be a JSON platform")
		return
	}

	result, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Location", platformURL(c.Request, result.Platform.ID))
	c.JSON(http.StatusCreated, dto.NewPlatformResponse(result.Platform))
}

// RegisterPlatformRoutes registers the platform routes on the engine root.
func (h *PlatformHandler) RegisterPlatformRoutes(rg gin.IRoutes) {
	rg.GET(PlatformsPath, h.GetPlatforms)
	rg.GET(PlatformsPath+"/:id", h.GetPlatformByID)
	rg.POST(PlatformsPath, h.CreatePlatform)
}

// platformURL builds the absolute read-by-id URL from the request's own
// scheme and host. A forwarded scheme is honoured only when it is http or
// https.
func platformURL(r *http.Request, id int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
	case "http", "https":
		scheme = proto
	}

	u := url.URL{
		Scheme: scheme,
		Host:   r.Host,
		Path:   PlatformsPath + "/" + strconv.Itoa(id),
	}

	return u.String()
}
