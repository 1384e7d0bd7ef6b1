package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oficio-marketplace/service-quoting/internal/application"
	"github.com/oficio-marketplace/service-quoting/internal/common/auth"
	"github.com/oficio-marketplace/service-quoting/internal/common/middleware"
	"github.com/oficio-marketplace/service-quoting/internal/common/response"
	"github.com/oficio-marketplace/service-quoting/internal/domain/geo"
)

// QuoteHandler handles HTTP requests for quote operations.
type QuoteHandler struct {
	service *application.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(service *application.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// RegisterRoutes registers all quote routes on the given router group.
func (h *QuoteHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	providerRole := middleware.RequireRole(auth.RoleProvider)

	quotes := r.Group("/api/v1/quotes")
	quotes.Use(authMW)
	{
		quotes.POST("", providerRole, h.CreateQuote)
		quotes.GET("", providerRole, h.ListQuotes)
		quotes.GET("/:id", h.GetQuote)
		quotes.PUT("/:id/items", providerRole, h.UpdateItems)
		quotes.PUT("/:id/terms", providerRole, h.UpdateTerms)
		quotes.PUT("/:id/location", providerRole, h.SetJobLocation)
		quotes.POST("/:id/resolve-distance", providerRole, h.ResolveDistance)
		quotes.POST("/:id/submit", providerRole, h.SubmitQuote)
		quotes.POST("/:id/withdraw", providerRole, h.WithdrawQuote)
		quotes.POST("/:id/resubmit", providerRole, h.ResubmitQuote)
	}

	projects := r.Group("/api/v1/projects")
	projects.Use(authMW)
	{
		projects.GET("/:id/quotes", h.ListProjectQuotes)
	}
}

// CreateQuote handles POST /api/v1/quotes.
func (h *QuoteHandler) CreateQuote(c *gin.Context) {
	providerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateQuote(c.Request.Context(), providerID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListQuotes handles GET /api/v1/quotes (provider sees own quotes).
func (h *QuoteHandler) ListQuotes(c *gin.Context) {
	providerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, limit := parsePagination(c)

	result, err := h.service.GetProviderQuotes(c.Request.Context(), providerID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// GetQuote handles GET /api/v1/quotes/:id.
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid quote ID")
		return
	}

	result, err := h.service.GetQuote(c.Request.Context(), quoteID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateItems handles PUT /api/v1/quotes/:id/items.
func (h *QuoteHandler) UpdateItems(c *gin.Context) {
	quoteID, providerID, ok := h.quoteAndProvider(c)
	if !ok {
		return
	}

	var req application.UpdateItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateItems(c.Request.Context(), providerID, quoteID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// UpdateTerms handles PUT /api/v1/quotes/:id/terms.
func (h *QuoteHandler) UpdateTerms(c *gin.Context) {
	quoteID, providerID, ok := h.quoteAndProvider(c)
	if !ok {
		return
	}

	var req application.UpdateTermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateTerms(c.Request.Context(), providerID, quoteID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SetJobLocation handles PUT /api/v1/quotes/:id/location.
func (h *QuoteHandler) SetJobLocation(c *gin.Context) {
	quoteID, providerID, ok := h.quoteAndProvider(c)
	if !ok {
		return
	}

	var loc geo.Coordinate
	if err := c.ShouldBindJSON(&loc); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SetJobLocation(c.Request.Context(), providerID, quoteID, loc)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ResolveDistance handles POST /api/v1/quotes/:id/resolve-distance.
// A degraded resolution still returns the updated quote: the estimate carries
// the degraded flag and the client may retry later.
func (h *QuoteHandler) ResolveDistance(c *gin.Context) {
	quoteID, providerID, ok := h.quoteAndProvider(c)
	if !ok {
		return
	}

	result, err := h.service.ResolveDistance(c.Request.Context(), providerID, quoteID)
	if err != nil && result == nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SubmitQuote handles POST /api/v1/quotes/:id/submit.
func (h *QuoteHandler) SubmitQuote(c *gin.Context) {
	quoteID, providerID, ok := h.quoteAndProvider(c)
	if !ok {
		return
	}

	result, err := h.service.SubmitQuote(c.Request.Context(), providerID, quoteID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// WithdrawQuote handles POST /api/v1/quotes/:id/withdraw.
func (h *QuoteHandler) WithdrawQuote(c *gin.Context) {
	quoteID, providerID, ok := h.quoteAndProvider(c)
	if !ok {
		return
	}

	result, err := h.service.WithdrawQuote(c.Request.Context(), providerID, quoteID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ResubmitQuote handles POST /api/v1/quotes/:id/resubmit.
func (h *QuoteHandler) ResubmitQuote(c *gin.Context) {
	quoteID, providerID, ok := h.quoteAndProvider(c)
	if !ok {
		return
	}

	result, err := h.service.ResubmitQuote(c.Request.Context(), providerID, quoteID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// ListProjectQuotes handles GET /api/v1/projects/:id/quotes.
func (h *QuoteHandler) ListProjectQuotes(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid project ID")
		return
	}

	page, limit := parsePagination(c)

	result, err := h.service.GetProjectQuotes(c.Request.Context(), projectID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

func (h *QuoteHandler) quoteAndProvider(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid quote ID")
		return uuid.Nil, uuid.Nil, false
	}

	providerID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	return quoteID, providerID, true
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
