package domain

import dErrors "creditdesk/pkg/domain-errors"

// Role is the authorization role carried in access tokens.
// Analysts may change any application's status and read the audit trail;
// applicants may create applications and read only their own.
type Role string

const (
	RoleApplicant Role = "Applicant"
	RoleAnalyst   Role = "Analyst"
)

var validRoles = map[Role]bool{
	RoleApplicant: true,
	RoleAnalyst:   true,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role: "+s)
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}
