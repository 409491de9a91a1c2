package models

// Role is the permission level of an operator.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Operator is a staff member who records feedings.
type Operator struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	PIN   string `json:"pin,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// IsAdmin reports whether the operator may change settings and accounts.
func (o Operator) IsAdmin() bool {
	return o.Role == RoleAdmin
}

// Public strips the PIN so the operator can be listed on the selection screen.
func (o Operator) Public() Operator {
	o.PIN = ""
	return o
}

// HasPIN reports whether the operator must enter a PIN when selected.
func (o Operator) HasPIN() bool {
	return o.PIN != ""
}

// OperatorUpdate carries a partial operator update. Nil fields are left untouched.
type OperatorUpdate struct {
	Name  *string `json:"name,omitempty"`
	Role  *Role   `json:"role,omitempty"`
	PIN   *string `json:"pin,omitempty"`
	Phone *string `json:"phone,omitempty"`
}
