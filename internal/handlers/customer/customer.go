// internal/handlers/customer/customer_handler.go
package customer

import (
	"net/http"
	"strings"

	domain "customer-service/internal/domain/customer"
	xerrors "customer-service/internal/pkg/errors"
	"customer-service/internal/pkg/response"
	service "customer-service/internal/service/customer"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService *service.CustomerService
}

func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// CreateCustomer creates a new customer record.
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var in domain.CreateCustomerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.customerService.Create(c.Request.Context(), &in)
	if err != nil {
		h.fail(c, "failed to create customer", err)
		return
	}

	response.Success(c, http.StatusCreated, "customer created", result)
}

// GetCustomer retrieves a customer by id. Optional fields= and expand=
// query params narrow the view and resolve relations.
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	result, err := h.customerService.Retrieve(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "failed to retrieve customer", err)
		return
	}

	fields := splitParam(c.Query("fields"))
	expand := splitParam(c.Query("expand"))
	if len(fields) > 0 || len(expand) > 0 {
		result, err = h.customerService.Decorate(c.Request.Context(), result, fields, expand)
		if err != nil {
			h.fail(c, "failed to decorate customer", err)
			return
		}
	}

	response.Success(c, http.StatusOK, "customer retrieved", result)
}

// GetCustomerByEmail retrieves a customer by email.
func (h *CustomerHandler) GetCustomerByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error(c, http.StatusBadRequest, "email is required", nil)
		return
	}

	result, err := h.customerService.RetrieveByEmail(c.Request.Context(), email)
	if err != nil {
		h.fail(c, "failed to retrieve customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer retrieved", result)
}

// ListCustomers lists customers matching the query filter.
func (h *CustomerHandler) ListCustomers(c *gin.Context) {
	var filter domain.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filter", err)
		return
	}

	result, err := h.customerService.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "failed to list customers", err)
		return
	}

	response.Success(c, http.StatusOK, "customers retrieved", result)
}

// UpdateCustomer applies a partial update.
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var patch domain.UpdateCustomerInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.customerService.Update(c.Request.Context(), c.Param("id"), &patch); err != nil {
		h.fail(c, "failed to update customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer updated", nil)
}

// DeleteCustomer removes a customer; deleting an absent record succeeds.
func (h *CustomerHandler) DeleteCustomer(c *gin.Context) {
	if err := h.customerService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "failed to delete customer", err)
		return
	}

	response.Success(c, http.StatusOK, "customer deleted", nil)
}

// SetMetadata sets a single metadata key.
func (h *CustomerHandler) SetMetadata(c *gin.Context) {
	var in domain.SetMetadataInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	if err := h.customerService.SetMetadata(c.Request.Context(), c.Param("id"), in.Key, in.Value); err != nil {
		h.fail(c, "failed to set metadata", err)
		return
	}

	response.Success(c, http.StatusOK, "metadata updated", nil)
}

// AddToGroup adds the customer to a group.
func (h *CustomerHandler) AddToGroup(c *gin.Context) {
	if err := h.customerService.AddToGroup(c.Request.Context(), c.Param("id"), c.Param("group")); err != nil {
		h.fail(c, "failed to add customer to group", err)
		return
	}

	response.Success(c, http.StatusOK, "customer added to group", nil)
}

// RemoveFromGroup removes the customer from a group.
func (h *CustomerHandler) RemoveFromGroup(c *gin.Context) {
	if err := h.customerService.RemoveFromGroup(c.Request.Context(), c.Param("id"), c.Param("group")); err != nil {
		h.fail(c, "failed to remove customer from group", err)
		return
	}

	response.Success(c, http.StatusOK, "customer removed from group", nil)
}

// GenerateResetToken issues a password-reset token for the customer.
func (h *CustomerHandler) GenerateResetToken(c *gin.Context) {
	token, err := h.customerService.GenerateResetPasswordToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "failed to generate reset token", err)
		return
	}

	response.Success(c, http.StatusOK, "reset token issued", gin.H{"token": token})
}

// VerifyResetToken checks a reset token against the customer's current
// credential.
func (h *CustomerHandler) VerifyResetToken(c *gin.Context) {
	var in struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.customerService.VerifyResetPasswordToken(c.Request.Context(), in.Token)
	if err != nil {
		h.fail(c, "reset token verification failed", err)
		return
	}

	response.Success(c, http.StatusOK, "reset token valid", gin.H{"customer_id": result.ID})
}

// fail maps error kinds from the customer core to transport status codes.
func (h *CustomerHandler) fail(c *gin.Context, message string, err error) {
	switch {
	case xerrors.Is(err, xerrors.ErrInvalidArgument), xerrors.Is(err, xerrors.ErrInvalidData):
		response.Error(c, http.StatusBadRequest, message, err)
	case xerrors.Is(err, xerrors.ErrNotFound):
		response.Error(c, http.StatusNotFound, message, err)
	case xerrors.Is(err, xerrors.ErrNotAllowed):
		response.Error(c, http.StatusForbidden, message, err)
	case xerrors.Is(err, xerrors.ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, message, err)
	default:
		response.Error(c, http.StatusInternalServerError, message, err)
	}
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
