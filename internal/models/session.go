package models

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// ParseRole maps header values to a role; anything unrecognised is a buyer.
func ParseRole(s string) Role {
	if Role(s) == RoleSeller {
		return RoleSeller
	}
	return RoleBuyer
}

// Session identifies the caller of a service operation.
type Session struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

func (s Session) IsSeller() bool { return s.Role == RoleSeller }
func (s Session) IsBuyer() bool  { return s.Role == RoleBuyer }
