package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"creditdesk/internal/auth"
	"creditdesk/internal/jwttoken"
	"creditdesk/internal/platform/middleware"
	id "creditdesk/pkg/domain"
	dErrors "creditdesk/pkg/domain-errors"
	"creditdesk/pkg/requestcontext"
)

const minPasswordLength = 8

// UserStore persists accounts. Create returns CodeConflict for a duplicate
// email.
type UserStore interface {
	Create(ctx context.Context, u *auth.User) error
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
	GetByID(ctx context.Context, userID id.UserID) (*auth.User, error)
}

// RevocationList is the shared logout state keyed by jti.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Service handles registration, login, and logout.
type Service struct {
	users    UserStore
	tokens   *jwttoken.Service
	revoked  RevocationList
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewService(users UserStore, tokens *jwttoken.Service, revoked RevocationList, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		revoked:  revoked,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Register creates an account and returns a signed token for it.
//
// Errors: CodeInvalidInput for a malformed request, CodeConflict when the
// email is taken.
func (s *Service) Register(ctx context.Context, req auth.RegisterRequest) (*auth.AuthResponse, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}
	role, err := id.ParseRole(req.Role)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "role must be Applicant or Analyst")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	user := &auth.User{
		ID:           id.NewUserID(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"role", user.Role.String(),
	)
	return s.issueToken(user)
}

// Login verifies credentials and returns a signed token. Unknown email and
// wrong password produce the same error so the response does not leak which
// accounts exist.
func (s *Service) Login(ctx context.Context, req auth.LoginRequest) (*auth.AuthResponse, error) {
	invalidCredentials := dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, invalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.logger.WarnContext(ctx, "failed login attempt", "user_id", user.ID.String())
		return nil, invalidCredentials
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String())
	return s.issueToken(user)
}

// Logout revokes the presented token for the remainder of its lifetime.
// Already-expired tokens are a no-op success.
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		// Expired or garbage tokens need no revocation entry.
		return nil
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}
	if err := s.revoked.RevokeToken(ctx, claims.ID, remaining); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revoke token")
	}
	s.logger.InfoContext(ctx, "token revoked", "jti", claims.ID)
	return nil
}

func (s *Service) issueToken(user *auth.User) (*auth.AuthResponse, error) {
	token, _, err := s.tokens.GenerateAccessToken(user.ID, user.Role, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return &auth.AuthResponse{
		Token:    token,
		Email:    user.Email,
		Role:     user.Role.String(),
		FullName: user.FullName(),
	}, nil
}

func validateRegistration(req auth.RegisterRequest) error {
	if strings.TrimSpace(req.Email) == "" || !strings.Contains(req.Email, "@") {
		return dErrors.New(dErrors.CodeInvalidInput, "a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return dErrors.New(dErrors.CodeInvalidInput, "password must be at least 8 characters")
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "first name is required")
	}
	return nil
}

// Validator checks signature, expiry, and the revocation list, in that order.
// It is the middleware.JWTValidator used on every authenticated route.
type Validator struct {
	tokens  *jwttoken.Service
	revoked RevocationList
}

func NewValidator(tokens *jwttoken.Service, revoked RevocationList) *Validator {
	return &Validator{tokens: tokens, revoked: revoked}
}

func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*middleware.JWTClaims, error) {
	claims, err := v.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	revoked, err := v.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		// Fail closed: an unreachable revocation list must not admit tokens.
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "revocation check failed")
	}
	if revoked {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has been revoked")
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return &middleware.JWTClaims{UserID: userID, Role: role, JTI: claims.ID}, nil
}
