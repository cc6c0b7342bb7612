// internal/app/router.go
package app

import (
	customerHandler "customer-service/internal/handlers/customer"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	CustomerHandler *customerHandler.CustomerHandler
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	customers := api.Group("/customers")
	{
		customers.POST("", h.CustomerHandler.CreateCustomer)
		customers.GET("", h.CustomerHandler.ListCustomers)
		customers.GET("/by-email", h.CustomerHandler.GetCustomerByEmail)
		customers.GET("/:id", h.CustomerHandler.GetCustomer)
		customers.POST("/:id", h.CustomerHandler.UpdateCustomer)
		customers.DELETE("/:id", h.CustomerHandler.DeleteCustomer)
		customers.POST("/:id/metadata", h.CustomerHandler.SetMetadata)
		customers.POST("/:id/groups/:group", h.CustomerHandler.AddToGroup)
		customers.DELETE("/:id/groups/:group", h.CustomerHandler.RemoveFromGroup)
		customers.POST("/:id/password-token", h.CustomerHandler.GenerateResetToken)
		customers.POST("/password-token/verify", h.CustomerHandler.VerifyResetToken)
	}
}
