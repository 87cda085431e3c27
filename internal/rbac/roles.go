package rbac

// Role names. Keep these stable; they are carried in issued tokens.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleAgent   = "agent"
)

func IsAdmin(role string) bool { return role == RoleAdmin }

// Valid reports whether role is one this service knows.
func Valid(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleAgent:
		return true
	}
	return false
}
