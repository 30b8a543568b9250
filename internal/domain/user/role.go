package user

import (
	"errors"
	"fmt"
)

// Role is a closed enumeration. Unknown names or codes never map to a
// member; callers get an explicit error instead.
type Role int16

const (
	RoleUser  Role = 1
	RoleAdmin Role = 2
)

var ErrUnknownRole = errors.New("unknown role")

func ParseRole(name string) (Role, error) {
	switch name {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
}

func RoleFromCode(code int16) (Role, error) {
	switch Role(code) {
	case RoleUser, RoleAdmin:
		return Role(code), nil
	default:
		return 0, fmt.Errorf("%w: code %d", ErrUnknownRole, code)
	}
}

func (r Role) Code() int16 {
	return int16(r)
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", int16(r))
	}
}

func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}
