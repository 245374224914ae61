package user

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrStudentPassword = errors.New("student accounts do not carry a password")

	ErrUnknownUser          = errors.New("no account matches this email")
	ErrPasswordRequired     = errors.New("password is required")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrPasswordTooShort     = errors.New("password must contain at least 4 characters")
	ErrPasswordChangeFailed = errors.New("password change failed")

	// ErrSuperseded marks the result of a submission that was overtaken by a
	// newer one on the same session; its outcome must be discarded.
	ErrSuperseded = errors.New("superseded by a newer submission")
)

type (
	// Store is the slice of the storage contract this service needs.
	// The active backend (storage.Store) satisfies it.
	Store interface {
		GenerateID(ctx context.Context) (string, error)
		LoadUsers(ctx context.Context) ([]User, error)
		SaveUsers(ctx context.Context, users []User) error
		// Login resolves the identity record for email and checks password
		// against it. Students authenticate by email alone; password is
		// ignored for them.
		Login(ctx context.Context, email, password string) (User, error)
		// ChangePassword sets a new password for the user and confirms their
		// credential.
		ChangePassword(ctx context.Context, userID, newPassword string) error
	}

	Service struct {
		conf  *core.Config
		store Store
		log   core.Logger
	}
)

func NewService(conf *core.Config, store Store, log core.Logger) *Service {
	return &Service{conf: conf, store: store, log: log}
}

// Register creates a new identity record through the active backend.
// Non-students start with an initial credential and must change their
// password on first login.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(); err != nil {
		return User{}, err
	}

	users, err := svc.store.LoadUsers(ctx)
	if err != nil {
		return User{}, err
	}
	for _, usr := range users {
		if usr.Email == nu.Email {
			return User{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
		}
	}

	id, err := svc.store.GenerateID(ctx)
	if err != nil {
		return User{}, err
	}
	now := time.Now().UTC()
	usr := User{
		ID:        id,
		Name:      nu.Name,
		Role:      nu.Role,
		Email:     nu.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !usr.IsStudent() {
		usr.CredentialState = CredentialInitial
		if err := usr.SetPassword(nu.Password); err != nil {
			return User{}, err
		}
	}

	if err := svc.store.SaveUsers(ctx, append(users, usr)); err != nil {
		return User{}, err
	}
	return usr.Sanitized(), nil
}

// QueryAll returns all identity records, sanitized.
func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	users, err := svc.store.LoadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i] = users[i].Sanitized()
	}
	return users, nil
}

// GetByEmail returns the identity record matching email, sanitized.
func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	users, err := svc.store.LoadUsers(ctx)
	if err != nil {
		return User{}, err
	}
	for _, usr := range users {
		if usr.Email == email {
			return usr.Sanitized(), nil
		}
	}
	return User{}, ErrNotFound
}
