package service

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// invalidCredentials is the single message returned for unknown email,
// disabled account and wrong password alike, so callers cannot probe
// which check failed.
const invalidCredentials = "invalid email or password"

// AuthConfig carries the token service settings.
type AuthConfig struct {
	JWTSecret     []byte
	TokenTTL      time.Duration
	RefreshWindow time.Duration
	AdminEmail    string
	AdminPassword string
}

// Claims is the token payload: user id, email and role on top of the
// registered claims.
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthResult is returned from any operation that issues a token.
type AuthResult struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresIn string      `json:"expiresIn"`
}

// AuthService issues, verifies and refreshes session tokens against its
// own in-memory user registry. The registry is mutex-guarded; users live
// for the process lifetime.
type AuthService struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	byID    map[int64]*models.User
	nextID  int64

	cfg    AuthConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthService creates the service and seeds the admin account when
// configured.
func NewAuthService(cfg AuthConfig) (*AuthService, error) {
	s := &AuthService{
		byEmail: make(map[string]*models.User),
		byID:    make(map[int64]*models.User),
		cfg:     cfg,
		logger:  util.GetLogger(),
		now:     time.Now,
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		s.nextID++
		admin := &models.User{
			ID:           s.nextID,
			Email:        strings.ToLower(cfg.AdminEmail),
			PasswordHash: string(hash),
			FirstName:    "Admin",
			LastName:     "User",
			Role:         models.RoleAdmin,
			IsActive:     true,
			CreatedAt:    s.now().UTC(),
		}
		s.byEmail[admin.Email] = admin
		s.byID[admin.ID] = admin
	}

	return s, nil
}

// RegisterRequest is the signup body.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

// Register creates an account and issues a token.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	_, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		return nil, util.ValidationError("missing_fields",
			"email, password, first name, and last name are required")
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, util.ValidationError("invalid_email", "please provide a valid email address")
	}
	if len(req.Password) < 6 {
		return nil, util.ValidationError("weak_password",
			"password must be at least 6 characters long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, util.InternalError("failed to hash password", err)
	}

	email := strings.ToLower(req.Email)

	s.mu.Lock()
	if _, exists := s.byEmail[email]; exists {
		s.mu.Unlock()
		return nil, util.ConflictError("user_exists",
			"an account with this email already exists")
	}
	s.nextID++
	user := &models.User{
		ID:           s.nextID,
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         models.RoleCustomer,
		IsActive:     true,
		CreatedAt:    s.now().UTC(),
	}
	s.byEmail[email] = user
	s.byID[user.ID] = user
	snapshot := *user
	snapshot.PasswordHash = ""
	s.mu.Unlock()

	token, err := s.issueToken(&snapshot)
	if err != nil {
		return nil, err
	}

	util.TokensIssuedTotal.WithLabelValues("register").Inc()
	s.logger.Info("User registered", zap.Int64("user_id", snapshot.ID))

	return &AuthResult{User: snapshot, Token: token, ExpiresIn: s.cfg.TokenTTL.String()}, nil
}

// Login verifies credentials and issues a token. All failure modes share
// one generic message.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	_, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	if email == "" || password == "" {
		return nil, util.ValidationError("missing_credentials", "email and password are required")
	}

	s.mu.Lock()
	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		s.mu.Unlock()
		util.AuthLoginsTotal.WithLabelValues("unknown_email").Inc()
		return nil, util.UnauthorizedError("invalid_credentials", invalidCredentials)
	}
	if !user.IsActive {
		s.mu.Unlock()
		util.AuthLoginsTotal.WithLabelValues("disabled").Inc()
		return nil, util.UnauthorizedError("invalid_credentials", invalidCredentials)
	}
	hash := user.PasswordHash
	s.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		util.AuthLoginsTotal.WithLabelValues("bad_password").Inc()
		return nil, util.UnauthorizedError("invalid_credentials", invalidCredentials)
	}

	s.mu.Lock()
	now := s.now().UTC()
	user.LastLogin = &now
	snapshot := *user
	snapshot.PasswordHash = ""
	s.mu.Unlock()

	token, err := s.issueToken(&snapshot)
	if err != nil {
		return nil, err
	}

	util.AuthLoginsTotal.WithLabelValues("success").Inc()
	util.TokensIssuedTotal.WithLabelValues("login").Inc()

	return &AuthResult{User: snapshot, Token: token, ExpiresIn: s.cfg.TokenTTL.String()}, nil
}

// VerifyToken validates signature and expiry and returns the account,
// which must still exist and be active.
func (s *AuthService) VerifyToken(token string) (*models.User, error) {
	claims, err := s.parseToken(token, true)
	if err != nil {
		return nil, err
	}
	return s.activeUser(claims.UserID)
}

// RefreshToken mints a new token for a valid or recently expired one.
// The replay window for expired tokens is bounded by the configured
// refresh window.
func (s *AuthService) RefreshToken(token string) (*AuthResult, error) {
	claims, err := s.parseToken(token, false)
	if err != nil {
		return nil, err
	}

	if claims.ExpiresAt != nil {
		expiredFor := s.now().Sub(claims.ExpiresAt.Time)
		if expiredFor > s.cfg.RefreshWindow {
			return nil, util.UnauthorizedError("token_expired",
				"token expired too long ago to refresh, please login again")
		}
	}

	user, err := s.activeUser(claims.UserID)
	if err != nil {
		return nil, err
	}

	newToken, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}

	util.TokensIssuedTotal.WithLabelValues("refresh").Inc()

	return &AuthResult{User: *user, Token: newToken, ExpiresIn: s.cfg.TokenTTL.String()}, nil
}

// GetProfile returns the account for a user id.
func (s *AuthService) GetProfile(userID int64) (*models.User, error) {
	return s.activeUser(userID)
}

// UpdateProfile changes the mutable profile fields.
func (s *AuthService) UpdateProfile(userID int64, firstName, lastName, phone string) (*models.User, error) {
	if firstName == "" || lastName == "" {
		return nil, util.ValidationError("missing_fields", "first name and last name are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok || !user.IsActive {
		return nil, util.NotFoundError("user_not_found", "user %d does not exist", userID)
	}
	user.FirstName = firstName
	user.LastName = lastName
	user.Phone = phone
	snapshot := *user
	snapshot.PasswordHash = ""
	return &snapshot, nil
}

// ChangePassword verifies the current password and replaces the hash.
func (s *AuthService) ChangePassword(userID int64, current, next string) error {
	if len(next) < 6 {
		return util.ValidationError("weak_password", "password must be at least 6 characters long")
	}

	s.mu.Lock()
	user, ok := s.byID[userID]
	if !ok || !user.IsActive {
		s.mu.Unlock()
		return util.NotFoundError("user_not_found", "user %d does not exist", userID)
	}
	hash := user.PasswordHash
	s.mu.Unlock()

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)); err != nil {
		return util.UnauthorizedError("invalid_credentials", "current password is incorrect")
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return util.InternalError("failed to hash password", err)
	}

	s.mu.Lock()
	user.PasswordHash = string(newHash)
	s.mu.Unlock()
	return nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := s.now().UTC()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.cfg.JWTSecret)
	if err != nil {
		return "", util.InternalError("failed to sign token", err)
	}
	return signed, nil
}

// parseToken validates the signature and, when requireFresh is set, the
// expiry. With requireFresh unset an expired token still parses so the
// refresh path can inspect how long ago it expired.
func (s *AuthService) parseToken(tokenString string, requireFresh bool) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.cfg.JWTSecret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))

	if err != nil {
		if !requireFresh && errors.Is(err, jwt.ErrTokenExpired) {
			return claims, nil
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, util.UnauthorizedError("token_expired",
				"token has expired, please login again")
		}
		return nil, util.UnauthorizedError("invalid_token", "token is malformed or invalid")
	}
	if !token.Valid {
		return nil, util.UnauthorizedError("invalid_token", "token is malformed or invalid")
	}
	return claims, nil
}

func (s *AuthService) activeUser(userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok || !user.IsActive {
		return nil, util.UnauthorizedError("invalid_token", "token is invalid or user not found")
	}
	snapshot := *user
	snapshot.PasswordHash = ""
	return &snapshot, nil
}
