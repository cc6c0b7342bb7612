// internal/domain/customer/dto.go
package customer

type CreateCustomerInput struct {
	Email          string                 `json:"email" binding:"required,max=255"`
	FirstName      string                 `json:"first_name" binding:"max=255"`
	LastName       string                 `json:"last_name" binding:"max=255"`
	Phone          string                 `json:"phone" binding:"max=20"`
	Password       string                 `json:"password,omitempty"`
	BillingAddress *Address               `json:"billing_address,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateCustomerInput is a partial patch. Nil fields are left untouched.
// A non-nil Metadata is rejected outright: metadata has a dedicated
// single-key path so independent callers cannot clobber each other.
type UpdateCustomerInput struct {
	Email          *string                `json:"email" binding:"omitempty,max=255"`
	FirstName      *string                `json:"first_name" binding:"omitempty,max=255"`
	LastName       *string                `json:"last_name" binding:"omitempty,max=255"`
	Phone          *string                `json:"phone" binding:"omitempty,max=20"`
	Password       *string                `json:"password,omitempty"`
	BillingAddress *Address               `json:"billing_address,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ListFilter is passed through to the store without further validation;
// its shape is owned by the caller.
type ListFilter struct {
	Email      string   `form:"email"`
	HasAccount *bool    `form:"has_account"`
	Groups     []string `form:"groups"`
	Limit      int      `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset     int      `form:"offset" binding:"omitempty,min=0"`
}

type SetMetadataInput struct {
	Key   string      `json:"key" binding:"required"`
	Value interface{} `json:"value"`
}
