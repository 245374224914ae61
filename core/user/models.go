package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/darasa/core"
)

// Roles. Fixed enumeration, not extensible at runtime.
const (
	RoleStudent  = "student"
	RoleGuardian = "guardian"
	RoleTutor    = "tutor"
	RoleAdmin    = "admin"
)

// Credential states. Students never carry a password; every other role must
// once its credential is confirmed.
const (
	CredentialNone      CredentialState = ""
	CredentialInitial   CredentialState = "initial"
	CredentialConfirmed CredentialState = "confirmed"
)

type CredentialState string

var (
	AllRoles = []string{RoleStudent, RoleGuardian, RoleTutor, RoleAdmin}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Guardian", Value: RoleGuardian},
		{Name: "Tutor", Value: RoleTutor},
		{Name: "Admin", Value: RoleAdmin},
	}

	rolePriorities = map[string]int{
		RoleAdmin:    4,
		RoleTutor:    3,
		RoleGuardian: 2,
		RoleStudent:  1,
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is the stored representation of an account: the identity record.
// PasswordHash is serialized in operator snapshots only; Sanitized strips it
// before a record crosses the API boundary.
type User struct {
	ID              string          `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Role            string          `json:"role" db:"role"`
	Email           string          `json:"email" db:"email"`
	CredentialState CredentialState `json:"credential_state,omitempty" db:"credential_state"`
	PasswordHash    []byte          `json:"password_hash,omitempty" db:"password_hash"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"` // UTC
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"` // UTC
	LastLogin       time.Time       `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	if u.IsStudent() {
		return ErrStudentPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Sanitized returns a copy with all credential material stripped.
func (u User) Sanitized() User {
	u.PasswordHash = nil
	return u
}

func (u User) IsStudent() bool  { return u.Role == RoleStudent }
func (u User) IsGuardian() bool { return u.Role == RoleGuardian }
func (u User) IsTutor() bool    { return u.Role == RoleTutor }
func (u User) IsAdmin() bool    { return u.Role == RoleAdmin }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,role"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm" validate:"eqfield=Password"`
}

func (nu *NewUser) Validate() error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	return core.Validate.Struct(nu)
}
