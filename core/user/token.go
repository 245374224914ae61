package user

import (
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/trezcool/darasa/core"
)

// Claims represents the authorization claims handed to callers once a
// session authenticates. This layer never consumes them back; they are the
// caller's evidence of who is signed in.
type Claims struct {
	jwt.StandardClaims
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	IsStudent  bool   `json:"is_student,omitempty"`  // -> STUDENT PORTAL
	IsGuardian bool   `json:"is_guardian,omitempty"` // -> GUARDIAN PORTAL
	IsTutor    bool   `json:"is_tutor,omitempty"`    // -> TUTOR PORTAL
	IsAdmin    bool   `json:"is_admin,omitempty"`    // -> ADMIN PORTAL
}

func GetUserClaims(conf *core.Config, usr User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:       usr.Name,
		Email:      usr.Email,
		Role:       usr.Role,
		IsStudent:  usr.IsStudent(),
		IsGuardian: usr.IsGuardian(),
		IsTutor:    usr.IsTutor(),
		IsAdmin:    usr.IsAdmin(),
	}
}

// AccessToken signs the claims for usr with the app secret.
func AccessToken(conf *core.Config, usr User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, GetUserClaims(conf, usr))
	return token.SignedString([]byte(conf.SecretKey))
}
