// Package handler exposes the prospection pipeline over REST.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"prospection_backend/internal/prospection/service"
	"prospection_backend/internal/prospection/transport"
	"prospection_backend/platform/apperr"
	"prospection_backend/platform/httpkit"
	"prospection_backend/platform/logger"
)

// Handler carries the HTTP endpoints of the prospection module.
type Handler struct {
	svc *service.Service
	log *logger.Logger
}

// New creates the prospection handler.
func New(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the prospection endpoints.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/api/prospection")
	group.POST("/search", h.search)
	group.GET("/enrich/:id", h.enrich)
	group.GET("/suggest", h.suggest)
	group.POST("/export", h.export)
}

func (h *Handler) search(c *gin.Context) {
	var criteria transport.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		httpkit.RespondError(c, apperr.BadRequest("invalid search criteria: "+err.Error()))
		return
	}

	result, err := h.svc.Search(c.Request.Context(), &criteria)
	if err != nil {
		httpkit.RespondError(c, err)
		return
	}
	httpkit.RespondOK(c, result)
}

func (h *Handler) enrich(c *gin.Context) {
	id := c.Param("id")
	product := c.Query("product")
	withContact := c.Query("with_contact") == "true"

	profile, err := h.svc.Enrich(c.Request.Context(), id, product, withContact)
	if err != nil {
		httpkit.RespondError(c, err)
		return
	}
	httpkit.RespondOK(c, profile)
}

func (h *Handler) suggest(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	suggestions, err := h.svc.Suggest(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		httpkit.RespondError(c, err)
		return
	}
	if suggestions == nil {
		suggestions = []transport.Suggestion{}
	}
	httpkit.RespondOK(c, gin.H{"suggestions": suggestions})
}

// export runs a search with the same criteria and flattens the page into
// plain rows; rendering is left to the caller.
func (h *Handler) export(c *gin.Context) {
	var criteria transport.SearchCriteria
	if err := c.ShouldBindJSON(&criteria); err != nil {
		httpkit.RespondError(c, apperr.BadRequest("invalid export criteria: "+err.Error()))
		return
	}

	result, err := h.svc.Search(c.Request.Context(), &criteria)
	if err != nil {
		httpkit.RespondError(c, err)
		return
	}
	httpkit.RespondOK(c, gin.H{
		"rows":  service.FormatForExport(result),
		"total": result.Total,
	})
}
