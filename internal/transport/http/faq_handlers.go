package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

// maxUploadFAQs bounds a single bulk import.
const maxUploadFAQs = 1000

// FAQHandlers provides HTTP handlers for the knowledge base.
type FAQHandlers struct {
	store store.FAQStore
	log   *zerolog.Logger
}

// NewFAQHandlers creates a new FAQ handlers instance.
func NewFAQHandlers(st store.FAQStore, logger *zerolog.Logger) *FAQHandlers {
	return &FAQHandlers{
		store: st,
		log:   logger,
	}
}

// FAQRequest represents the create/update FAQ request body.
type FAQRequest struct {
	Question string   `json:"question" binding:"required"`
	Answer   string   `json:"answer" binding:"required"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// FAQResponse represents a FAQ entry in API responses.
type FAQResponse struct {
	ID        string   `json:"id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// UploadResponse reports how many entries a bulk import stored.
type UploadResponse struct {
	Imported int `json:"imported"`
}

// SuccessResponse acknowledges an operation without a body.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ListFAQs handles listing knowledge-base entries.
// GET /api/faq
func (h *FAQHandlers) ListFAQs(c *gin.Context) {
	faqs, err := h.store.ListFAQs(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list faqs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]FAQResponse, 0, len(faqs))
	for _, faq := range faqs {
		response = append(response, faqResponse(faq))
	}
	c.JSON(http.StatusOK, response)
}

// CreateFAQ handles creating a knowledge-base entry.
// POST /api/faq
func (h *FAQHandlers) CreateFAQ(c *gin.Context) {
	var req FAQRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		h.log.Debug().Err(err).Msg("invalid create faq request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	faq := req.toFAQ(uuid.NewString())
	if err := h.store.CreateFAQ(c.Request.Context(), faq); err != nil {
		h.log.Error().Err(err).Msg("failed to create faq")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("faq_id", faq.ID).Str("category", faq.Category).Msg("faq created")
	c.JSON(http.StatusCreated, faqResponse(faq))
}

// UpdateFAQ handles replacing a knowledge-base entry.
// PUT /api/faq/:id
func (h *FAQHandlers) UpdateFAQ(c *gin.Context) {
	var req FAQRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.valid() {
		h.log.Debug().Err(err).Msg("invalid update faq request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.store.UpdateFAQ(ctx, req.toFAQ(id)); err != nil {
		h.writeStoreError(c, err, id, "failed to update faq")
		return
	}

	updated, err := h.store.GetFAQ(ctx, id)
	if err != nil {
		h.writeStoreError(c, err, id, "failed to reload faq")
		return
	}

	h.log.Info().Str("faq_id", id).Msg("faq updated")
	c.JSON(http.StatusOK, faqResponse(updated))
}

// DeleteFAQ handles removing a knowledge-base entry.
// DELETE /api/faq/:id
func (h *FAQHandlers) DeleteFAQ(c *gin.Context) {
	id := c.Param("id")
	if err := h.store.DeleteFAQ(c.Request.Context(), id); err != nil {
		h.writeStoreError(c, err, id, "failed to delete faq")
		return
	}

	h.log.Info().Str("faq_id", id).Msg("faq deleted")
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// UploadFAQs imports a JSON array of entries. Invalid entries reject the whole upload.
// POST /api/faq/upload
func (h *FAQHandlers) UploadFAQs(c *gin.Context) {
	var reqs []FAQRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		h.log.Debug().Err(err).Msg("invalid faq upload")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if len(reqs) > maxUploadFAQs {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "too many entries"})
		return
	}
	for _, req := range reqs {
		if !req.valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "every entry needs a question and an answer"})
			return
		}
	}

	imported := 0
	for _, req := range reqs {
		if err := h.store.CreateFAQ(c.Request.Context(), req.toFAQ(uuid.NewString())); err != nil {
			h.log.Error().Err(err).Int("imported", imported).Msg("faq upload interrupted")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
			return
		}
		imported++
	}

	h.log.Info().Int("imported", imported).Msg("faqs uploaded")
	c.JSON(http.StatusOK, UploadResponse{Imported: imported})
}

func (h *FAQHandlers) writeStoreError(c *gin.Context, err error, id, msg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "faq not found"})
		return
	}
	h.log.Error().Err(err).Str("faq_id", id).Msg(msg)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

func (r FAQRequest) valid() bool {
	return strings.TrimSpace(r.Question) != "" && strings.TrimSpace(r.Answer) != ""
}

func (r FAQRequest) toFAQ(id string) *store.FAQ {
	category := strings.TrimSpace(r.Category)
	if category == "" {
		category = "general"
	}
	tags := make([]string, 0, len(r.Tags))
	for _, tag := range r.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return &store.FAQ{
		ID:       id,
		Question: strings.TrimSpace(r.Question),
		Answer:   strings.TrimSpace(r.Answer),
		Category: category,
		Tags:     tags,
	}
}

func faqResponse(faq *store.FAQ) FAQResponse {
	tags := faq.Tags
	if tags == nil {
		tags = []string{}
	}
	return FAQResponse{
		ID:        faq.ID,
		Question:  faq.Question,
		Answer:    faq.Answer,
		Category:  faq.Category,
		Tags:      tags,
		CreatedAt: formatTime(faq.CreatedAt),
		UpdatedAt: formatTime(faq.UpdatedAt),
	}
}
