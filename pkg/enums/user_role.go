package enums

// UserRole is the single role a user account holds.
type UserRole string

const (
	RoleFarmer UserRole = "farmer"
	RoleBuyer  UserRole = "buyer"
	RoleAdmin  UserRole = "admin"
	RoleDriver UserRole = "driver"
)

var validUserRoles = []UserRole{RoleFarmer, RoleBuyer, RoleAdmin, RoleDriver}

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return contains(validUserRoles, r) }

// SelfRegistrable reports whether the role may be chosen at sign up.
func (r UserRole) SelfRegistrable() bool {
	return r == RoleBuyer || r == RoleFarmer
}

func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, validUserRoles)
}
