package entity

// Role is the closed set of account roles. Anything outside this
// enumeration is rejected before it reaches the store.
type Role string

const (
	RoleUser       Role = "user"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

var roles = map[Role]struct{}{
	RoleUser:       {},
	RoleInstructor: {},
	RoleAdmin:      {},
}

// ParseRole maps a raw string onto the role enumeration.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roles[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := roles[r]
	return ok
}

func (r Role) String() string { return string(r) }
