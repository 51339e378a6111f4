package entity

type UserRole string

const (
	RoleCustomer UserRole = "customer"
	RoleStaff    UserRole = "staff"
	RoleAdmin    UserRole = "admin"
)

// Customer is the read-only identity view of a user.
type Customer struct {
	Base
	Email    string   `db:"email"`
	Name     string   `db:"name"`
	Phone    *string  `db:"phone"`
	Role     UserRole `db:"role"`
	IsActive bool     `db:"is_active"`
}

func (c *Customer) IsStaff() bool {
	return c.Role == RoleStaff || c.Role == RoleAdmin
}
