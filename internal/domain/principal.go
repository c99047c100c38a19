package domain

// Role constants for request principals. Tokens are verified upstream; the
// service trusts the gateway-forwarded identity headers.
const (
	RoleCustomer = "customer"
	RoleVendor   = "vendor"
	RoleAdmin    = "admin"
)

// Principal is the authenticated caller every scoped operation receives.
// For vendors, UserID is the vendor ID.
type Principal struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsVendor reports whether the principal has the vendor role.
func (p Principal) IsVendor() bool {
	return p.Role == RoleVendor
}

// IsCustomer reports whether the principal has the customer role.
func (p Principal) IsCustomer() bool {
	return p.Role == RoleCustomer
}

// ValidRole reports whether the given role string is recognized.
func ValidRole(role string) bool {
	return role == RoleCustomer || role == RoleVendor || role == RoleAdmin
}
