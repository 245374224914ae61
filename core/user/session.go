package user

import (
	"context"
	"errors"

	"github.com/trezcool/darasa/core"
)

// Step is the position of a login attempt in the credential flow.
type Step int

const (
	StepAwaitingEmail Step = iota
	StepAwaitingPassword
	StepAwaitingNewPassword
	StepAuthenticated
)

func (s Step) String() string {
	switch s {
	case StepAwaitingEmail:
		return "awaiting-email"
	case StepAwaitingPassword:
		return "awaiting-password"
	case StepAwaitingNewPassword:
		return "awaiting-new-password"
	case StepAuthenticated:
		return "authenticated"
	}
	return "unknown"
}

var errUnexpectedSubmission = errors.New("submission does not match the current step")

// Session is the ephemeral state of one login flow. It is held by the caller,
// never persisted, and constructed fresh per login attempt via
// Service.NewSession.
type Session struct {
	step    Step
	email   string
	pending User // authenticated, credential not yet confirmed
	user    User // set once authenticated; sanitized

	// seq counts submissions; a submission that completes after a newer one
	// started is discarded (see ErrSuperseded).
	seq uint64
}

func (s *Session) Step() Step    { return s.step }
func (s *Session) Email() string { return s.email }

// User returns the authenticated identity record (sanitized). Zero until the
// session reaches StepAuthenticated.
func (s *Session) User() User { return s.user }

// ChangeEmail resets the flow to StepAwaitingEmail. Purely navigational: no
// data is lost, and any in-flight submission is superseded.
func (s *Session) ChangeEmail() {
	s.seq++
	s.step = StepAwaitingEmail
	s.pending = User{}
	s.user = User{}
}

func (s *Session) begin() uint64 {
	s.seq++
	return s.seq
}

func (s *Session) fail(err error) AuthResult {
	return AuthResult{Step: s.step, Err: err}
}

// AuthResult is the outcome of one submission, returned as a value so the
// caller can render it directly. Success means the flow advanced; the session
// is fully authenticated only once Step == StepAuthenticated.
type AuthResult struct {
	Success bool
	Step    Step
	User    User   // sanitized; zero unless the submission resolved a record
	Token   string // signed claims; set once authenticated
	Err     error
}

func (svc *Service) NewSession() *Session {
	return &Session{step: StepAwaitingEmail}
}

// SubmitEmail drives the StepAwaitingEmail transition. Students authenticate
// by email alone; everyone else moves on to StepAwaitingPassword.
func (svc *Service) SubmitEmail(ctx context.Context, s *Session, email string) AuthResult {
	if s.step != StepAwaitingEmail {
		return s.fail(errUnexpectedSubmission)
	}
	seq := s.begin()
	email = core.CleanString(email, true /* lower */)

	usr, err := svc.store.Login(ctx, email, "")
	if seq != s.seq {
		return s.fail(ErrSuperseded)
	}

	switch {
	case err == nil:
		s.email = email
		if usr.IsStudent() {
			return svc.authenticated(s, usr)
		}
		// a passwordless login only ever resolves a student record; treat
		// anything else as a password prompt
		s.step = StepAwaitingPassword
		return AuthResult{Success: true, Step: s.step}
	case errors.Is(err, ErrPasswordRequired):
		s.email = email
		s.step = StepAwaitingPassword
		return AuthResult{Success: true, Step: s.step}
	default:
		return s.fail(err)
	}
}

// SubmitPassword drives the StepAwaitingPassword transition. An initial
// credential forces the flow through StepAwaitingNewPassword before normal
// use.
func (svc *Service) SubmitPassword(ctx context.Context, s *Session, password string) AuthResult {
	if s.step != StepAwaitingPassword {
		return s.fail(errUnexpectedSubmission)
	}
	if password == "" {
		return s.fail(ErrPasswordRequired)
	}
	seq := s.begin()

	usr, err := svc.store.Login(ctx, s.email, password)
	if seq != s.seq {
		return s.fail(ErrSuperseded)
	}
	if err != nil {
		return s.fail(err)
	}

	if usr.CredentialState == CredentialInitial {
		s.pending = usr
		s.step = StepAwaitingNewPassword
		return AuthResult{Success: true, Step: s.step, User: usr.Sanitized()}
	}
	return svc.authenticated(s, usr)
}

// SubmitNewPassword completes a forced password change. On success the flow
// returns to StepAwaitingPassword: the caller must re-submit the new password
// to prove they recorded it, this is deliberately not an auto-authenticate.
func (svc *Service) SubmitNewPassword(ctx context.Context, s *Session, newPassword string) AuthResult {
	if s.step != StepAwaitingNewPassword {
		return s.fail(errUnexpectedSubmission)
	}
	if len(newPassword) < pwdMinLen {
		return s.fail(ErrPasswordTooShort)
	}
	seq := s.begin()

	err := svc.store.ChangePassword(ctx, s.pending.ID, newPassword)
	if seq != s.seq {
		return s.fail(ErrSuperseded)
	}
	if err != nil {
		svc.log.Error("session: changing password", err)
		return s.fail(ErrPasswordChangeFailed)
	}

	s.pending = User{}
	s.step = StepAwaitingPassword
	return AuthResult{Success: true, Step: s.step}
}

func (svc *Service) authenticated(s *Session, usr User) AuthResult {
	s.pending = User{}
	s.user = usr.Sanitized()
	s.step = StepAuthenticated

	res := AuthResult{Success: true, Step: s.step, User: s.user}
	token, err := AccessToken(svc.conf, usr)
	if err != nil {
		// the token is advisory; authentication stands without it
		svc.log.Error("session: signing access token", err)
	} else {
		res.Token = token
	}
	return res
}
