package entity

import (
	"time"
)

// Role is the authorization role carried by a user account.
type Role string

const (
	RoleAdministrator         Role = "ADMINISTRATOR"
	RoleNurse                 Role = "NURSE"
	RoleCHW                   Role = "CHW"
	RoleFacilityAdministrator Role = "FACILITY_ADMINISTRATOR"
)

// ParseRole validates a role name against the fixed enumeration.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdministrator, RoleNurse, RoleCHW, RoleFacilityAdministrator:
		return Role(s), true
	}
	return "", false
}

// User is the aggregate root for the accounts domain.
// Password holds a bcrypt digest; the salt is embedded in the digest.
type User struct {
	ID                  string
	Email               string
	Names               string
	Phone               string
	Role                Role
	Password            string
	Verified            bool
	FacilityCode        string
	PractitionerID      string
	ResetToken          string
	ResetTokenExpiresAt *time.Time
	Data                map[string]any
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// UserProjection is the sanitized client-facing representation of a user.
// It never carries the password digest or reset token.
type UserProjection struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Names          string    `json:"names"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	Phone          string    `json:"phone,omitempty"`
	KMHFLCode      string    `json:"kmhflCode,omitempty"`
	PractitionerID string    `json:"practitionerId,omitempty"`
	FacilityName   string    `json:"facilityName,omitempty"`
}

// Sanitized returns the projection of u safe to put in an API response.
func (u *User) Sanitized() UserProjection {
	return UserProjection{
		ID:             u.ID,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
		Names:          u.Names,
		Email:          u.Email,
		Role:           u.Role,
		Phone:          u.Phone,
		KMHFLCode:      u.FacilityCode,
		PractitionerID: u.PractitionerID,
	}
}

// IsNewUser reports whether the one-time onboarding flag is still set.
func (u *User) IsNewUser() bool {
	if u.Data == nil {
		return false
	}
	v, ok := u.Data["newUser"].(bool)
	return ok && v
}
