package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"medishare/config"
	"medishare/internal/domain/user"
	"medishare/internal/repository"
	medishare_errors "medishare/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 30 * 24 * time.Hour

type AuthService struct {
	userRepo  repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	now       func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, cfg *config.Config) *AuthService {
	ttl := time.Duration(cfg.JWTExpiryDays) * 24 * time.Hour
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(cfg.JWTSecret),
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Email            string
	Password         string
	Role             string
	FullName         string
	OrganizationName string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

type UserInfo struct {
	ID    string    `json:"id"`
	Email string    `json:"email"`
	Role  user.Role `json:"role"`
	Name  string    `json:"name"`
}

// AccessClaims is the signed {id, role} pair carried by every request.
type AccessClaims struct {
	UserID string    `json:"id"`
	Role   user.Role `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResponse, error) {
	email := user.NormalizeEmail(in.Email)
	if err := user.ValidateEmail(email); err != nil {
		return AuthResponse{}, err
	}
	if err := user.ValidatePassword(in.Password); err != nil {
		return AuthResponse{}, err
	}

	role := user.Role(strings.TrimSpace(in.Role))
	if role == user.RoleAdmin {
		return AuthResponse{}, medishare_errors.Forbidden("Admin registration not allowed via API")
	}
	if role != user.RoleDonor && role != user.RoleReceiver {
		return AuthResponse{}, medishare_errors.Validation("role", "Role is required")
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return AuthResponse{}, medishare_errors.Conflict("User already exists")
	} else if !errors.Is(err, medishare_errors.ErrNotFound) {
		return AuthResponse{}, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return AuthResponse{}, err
	}

	now := s.now().UTC()
	newUser := &user.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	switch role {
	case user.RoleDonor:
		newUser.FullName = strings.TrimSpace(in.FullName)
	case user.RoleReceiver:
		newUser.OrganizationName = strings.TrimSpace(in.OrganizationName)
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		if errors.Is(err, medishare_errors.ErrAlreadyExists) {
			return AuthResponse{}, medishare_errors.Conflict("User already exists")
		}
		return AuthResponse{}, err
	}

	return s.issue(*newUser)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (AuthResponse, error) {
	email := user.NormalizeEmail(in.Email)
	if err := user.ValidateEmail(email); err != nil {
		return AuthResponse{}, err
	}
	if in.Password == "" {
		return AuthResponse{}, medishare_errors.Validation("password", "Password is required")
	}

	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, medishare_errors.ErrNotFound) {
			return AuthResponse{}, medishare_errors.Unauthenticated("Invalid credentials")
		}
		return AuthResponse{}, err
	}

	if err := comparePassword(u.PasswordHash, in.Password); err != nil {
		return AuthResponse{}, medishare_errors.Unauthenticated("Invalid credentials")
	}

	return s.issue(u)
}

func (s *AuthService) issue(u user.User) (AuthResponse, error) {
	token, err := s.IssueToken(u.ID, u.Role)
	if err != nil {
		return AuthResponse{}, err
	}
	return AuthResponse{Token: token, User: toUserInfo(u)}, nil
}

// IssueToken signs an HS256 token for the given identity.
func (s *AuthService) IssueToken(userID uuid.UUID, role user.Role) (string, error) {
	now := s.now()
	claims := AccessClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *AuthService) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, medishare_errors.Unauthenticated("Not authorized, no token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, medishare_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return AccessClaims{}, medishare_errors.Unauthenticated("Not authorized, token failed")
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, medishare_errors.Unauthenticated("Not authorized, token failed")
	}

	return *claims, nil
}

// ResolveActor verifies the token and loads the user it names. The role is
// taken from the stored user, not the token.
func (s *AuthService) ResolveActor(ctx context.Context, tokenString string) (Actor, error) {
	claims, err := s.ParseAccessToken(tokenString)
	if err != nil {
		return Actor{}, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Actor{}, medishare_errors.Unauthenticated("Not authorized, token failed")
	}

	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, medishare_errors.ErrNotFound) {
			return Actor{}, medishare_errors.Unauthenticated("Not authorized, user not found")
		}
		return Actor{}, err
	}

	return Actor{ID: u.ID, Role: u.Role}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func comparePassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func toUserInfo(u user.User) UserInfo {
	name := u.FullName
	if name == "" {
		name = u.OrganizationName
	}
	return UserInfo{
		ID:    u.ID.String(),
		Email: u.Email,
		Role:  u.Role,
		Name:  name,
	}
}
