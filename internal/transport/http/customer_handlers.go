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

// CustomerHandlers provides HTTP handlers for customer records.
type CustomerHandlers struct {
	store store.CustomerStore
	log   *zerolog.Logger
}

// NewCustomerHandlers creates a new customer handlers instance.
func NewCustomerHandlers(st store.CustomerStore, logger *zerolog.Logger) *CustomerHandlers {
	return &CustomerHandlers{
		store: st,
		log:   logger,
	}
}

// CreateCustomerRequest represents the create customer request body.
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=128"`
	Email string `json:"email" binding:"required,email"`
}

// CustomerResponse represents a customer in API responses.
type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

// CreateCustomer handles customer creation.
// POST /api/customers
func (h *CustomerHandlers) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create customer request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	customer := &store.Customer{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
	}
	if err := h.store.CreateCustomer(c.Request.Context(), customer); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "customer with this email already exists"})
			return
		}
		h.log.Error().Err(err).Str("email", customer.Email).Msg("failed to create customer")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("customer_id", customer.ID).Msg("customer created")
	c.JSON(http.StatusCreated, customerResponse(customer))
}

// ListCustomers handles listing customers.
// GET /api/customers
func (h *CustomerHandlers) ListCustomers(c *gin.Context) {
	customers, err := h.store.ListCustomers(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list customers")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]CustomerResponse, 0, len(customers))
	for _, cu := range customers {
		response = append(response, customerResponse(cu))
	}
	c.JSON(http.StatusOK, response)
}

func customerResponse(cu *store.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        cu.ID,
		Name:      cu.Name,
		Email:     cu.Email,
		CreatedAt: formatTime(cu.CreatedAt),
	}
}
