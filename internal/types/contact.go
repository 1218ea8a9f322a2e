package types

// Contact types accepted by the contacts API.
const (
	ContactVendor   = "vendor"
	ContactCustomer = "customer"
	ContactEmployee = "employee"
	ContactBank     = "bank"
	ContactOther    = "other"
)

// CreateContactRequest represents the request to add a contact to a company.
type CreateContactRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	ContactType string `json:"contact_type" validate:"required,oneof=vendor customer employee bank other"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	Phone       string `json:"phone,omitempty" validate:"max=50"`
	Address     string `json:"address,omitempty"`
	TaxID       string `json:"tax_id,omitempty" validate:"max=50"`
}

// Validate validates the request using the validator.
func (r *CreateContactRequest) Validate() error {
	return AsValidationError(validate.Struct(r))
}
