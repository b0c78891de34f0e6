package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/repository"
)

const (
	MinPasswordLength = 8
	MaxPasswordBytes  = 72 // bcrypt input limit
	tokenBytes        = 20
)

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Name                 string
	Email                string
	Password             string
	PasswordConfirmation string
}

// Session is an issued bearer token and the user it authenticates.
type Session struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// AuthService handles accounts and bearer tokens.
type AuthService struct {
	users    UserStore
	tokens   TokenStore
	validate *validator.Validate
	log      *zap.Logger
	hashCost int
}

// NewAuthService creates a new auth service.
func NewAuthService(users UserStore, tokens TokenStore, log *zap.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		validate: validator.New(),
		log:      log,
		hashCost: bcrypt.DefaultCost,
	}
}

// Register creates a user account with role user and signs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	user, err := s.createUser(ctx, in, model.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user)
}

// CreateAdmin creates an admin account, or promotes the existing account with that email.
func (s *AuthService) CreateAdmin(ctx context.Context, in RegisterInput) (*model.User, error) {
	existing, err := s.users.GetByEmail(ctx, strings.TrimSpace(in.Email))
	switch {
	case err == nil:
		if err := s.users.SetRole(ctx, existing.ID, model.RoleAdmin); err != nil {
			return nil, err
		}
		existing.Role = model.RoleAdmin
		s.log.Info("user promoted to admin", zap.Int64("user_id", existing.ID))
		return existing, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return s.createUser(ctx, in, model.RoleAdmin)
}

// Login checks credentials and issues a fresh token. The error tells apart an unknown
// email from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	verr := &ValidationError{}
	email = strings.TrimSpace(email)
	if email == "" {
		verr.add("email", "The email field is required.")
	}
	if password == "" {
		verr.add("password", "The password field is required.")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ValidationError{Fields: map[string]string{"email": ErrEmailNotRegistered.Error()}, cause: ErrEmailNotRegistered}
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, &ValidationError{Fields: map[string]string{"password": ErrIncorrectPassword.Error()}, cause: ErrIncorrectPassword}
	}
	return s.issue(ctx, user)
}

// Logout revokes exactly the presented token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	if err := s.tokens.Delete(ctx, HashToken(token)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	return nil
}

// Authenticate resolves a bearer token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	id, err := s.tokens.UserID(ctx, HashToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	return user, err
}

// ListUsers returns every account. Admin only.
func (s *AuthService) ListUsers(ctx context.Context, caller *model.User) ([]model.User, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// DeleteUser removes an account together with its tokens and reservations. Admin only;
// admins cannot delete themselves.
func (s *AuthService) DeleteUser(ctx context.Context, caller *model.User, id int64) error {
	if err := RequireAdmin(caller); err != nil {
		return err
	}
	if caller.ID == id {
		return NewValidationError("id", "You cannot delete your own account.")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.log.Info("user deleted", zap.Int64("user_id", id), zap.Int64("by", caller.ID))
	return nil
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role model.Role) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	verr := &ValidationError{}
	switch {
	case in.Name == "":
		verr.add("name", "The name field is required.")
	case utf8.RuneCountInString(in.Name) > 255:
		verr.add("name", "The name may not be greater than 255 characters.")
	}
	switch {
	case in.Email == "":
		verr.add("email", "The email field is required.")
	case s.validate.Var(in.Email, "email,max=255") != nil:
		verr.add("email", "The email must be a valid email address.")
	}
	switch {
	case in.Password == "":
		verr.add("password", "The password field is required.")
	case utf8.RuneCountInString(in.Password) < MinPasswordLength:
		verr.add("password", fmt.Sprintf("The password must be at least %d characters.", MinPasswordLength))
	case len(in.Password) > MaxPasswordBytes:
		verr.add("password", fmt.Sprintf("The password may not be greater than %d characters.", MaxPasswordBytes))
	case in.Password != in.PasswordConfirmation:
		verr.add("password", "The password confirmation does not match.")
	}
	if _, ok := verr.Fields["email"]; !ok {
		_, err := s.users.GetByEmail(ctx, in.Email)
		switch {
		case err == nil:
			verr.add("email", "The email has already been taken.")
		case !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{Name: in.Name, Email: in.Email, PasswordHash: string(hash), Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, NewValidationError("email", "The email has already been taken.")
		}
		return nil, err
	}
	s.log.Info("user registered", zap.Int64("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *model.User) (*Session, error) {
	token, err := NewToken()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Save(ctx, user.ID, HashToken(token)); err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// NewToken returns a fresh opaque bearer token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the form a token is stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
