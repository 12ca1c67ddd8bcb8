package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/msomdec/conduit/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var errMalformedToken = errors.New("malformed token")

// AuthService handles registration, login, profile updates of the
// authenticated user, and bearer token operations.
//
// Tokens are HS256 JWTs signed with the user's current password hash, so a
// password change invalidates every token issued before it.
type AuthService struct {
	users      domain.UserRepository
	bcryptCost int
	tokenTTL   time.Duration
}

// NewAuthService creates a new AuthService. A tokenTTL of zero issues tokens
// without an expiry.
func NewAuthService(users domain.UserRepository, bcryptCost int, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		bcryptCost: bcryptCost,
		tokenTTL:   tokenTTL,
	}
}

// Register creates a new user account and returns it with a fresh token.
// Every field is checked before returning, so the error lists all problems.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	verr := &domain.ValidationError{}

	switch {
	case isBlank(username):
		verr.Add("username", msgBlank)
	case tooShort(username, minUsernameLength):
		verr.Add("username", msgTooShort(minUsernameLength))
	default:
		taken, err := s.users.ExistsByUsername(ctx, username, 0)
		if err != nil {
			return nil, "", fmt.Errorf("check username: %w", err)
		}
		if taken {
			verr.Add("username", msgTaken)
		}
	}

	if err := s.checkEmail(ctx, verr, email, 0); err != nil {
		return nil, "", err
	}

	if tooShort(password, minPasswordLength) {
		verr.Add("password", msgTooShort(minPasswordLength))
	}

	if err := verr.OrNil(); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.users.Create(ctx, user); err != nil {
		if verr := duplicateToValidation(err); verr != nil {
			return nil, "", verr
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user with a fresh token. An
// unknown email and a wrong password are reported identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	invalid := domain.NewValidationError("password", "invalid email or password")

	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", invalid
		}
		return nil, "", fmt.Errorf("get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", invalid
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Update applies patch to user. Nil fields are left alone; an empty bio or
// image clears it. A password change re-hashes, which rotates the signing key,
// so the returned token is the only valid one afterwards.
func (s *AuthService) Update(ctx context.Context, user *domain.User, patch domain.UserPatch) (*domain.User, string, error) {
	if user == nil {
		return nil, "", domain.ErrUnauthorized
	}

	updated := *user
	verr := &domain.ValidationError{}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		switch {
		case username == "":
			verr.Add("username", msgBlank)
		case tooShort(username, minUsernameLength):
			verr.Add("username", msgTooShort(minUsernameLength))
		case username != user.Username:
			taken, err := s.users.ExistsByUsername(ctx, username, user.ID)
			if err != nil {
				return nil, "", fmt.Errorf("check username: %w", err)
			}
			if taken {
				verr.Add("username", msgTaken)
			}
		}
		updated.Username = username
	}

	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email != user.Email || email == "" {
			if err := s.checkEmail(ctx, verr, email, user.ID); err != nil {
				return nil, "", err
			}
		}
		updated.Email = email
	}

	if patch.Password != nil {
		switch {
		case *patch.Password == "":
			verr.Add("password", msgBlank)
		case tooShort(*patch.Password, minPasswordLength):
			verr.Add("password", msgTooShort(minPasswordLength))
		}
	}

	if patch.Bio != nil {
		updated.Bio = optionalText(*patch.Bio)
	}
	if patch.Image != nil {
		updated.Image = optionalText(*patch.Image)
	}

	if err := verr.OrNil(); err != nil {
		return nil, "", err
	}

	if patch.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), s.bcryptCost)
		if err != nil {
			return nil, "", fmt.Errorf("hash password: %w", err)
		}
		updated.PasswordHash = string(hash)
	}

	if err := s.users.Update(ctx, &updated); err != nil {
		if verr := duplicateToValidation(err); verr != nil {
			return nil, "", verr
		}
		return nil, "", fmt.Errorf("update user: %w", err)
	}

	token, err := s.IssueToken(&updated)
	if err != nil {
		return nil, "", err
	}
	return &updated, token, nil
}

// IssueToken signs a token for user with iss set to the email and sub to the
// user id.
func (s *AuthService) IssueToken(user *domain.User) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:  user.Email,
		Subject: strconv.FormatInt(user.ID, 10),
	}
	if s.tokenTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(s.tokenTTL))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(user.PasswordHash))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate resolves a token to its user. The user is looked up by both
// sub and iss, and the signature is then checked against that user's current
// password hash. Any token problem is reported as domain.ErrUnauthorized;
// storage failures other than a missing user are returned as is.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	var (
		user      *domain.User
		lookupErr error
	)

	_, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok || claims.Subject == "" || claims.Issuer == "" {
			return nil, errMalformedToken
		}

		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil {
			return nil, errMalformedToken
		}

		u, err := s.users.GetByIDAndEmail(ctx, id, claims.Issuer)
		if err != nil {
			lookupErr = err
			return nil, err
		}
		user = u
		return []byte(u.PasswordHash), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if lookupErr != nil && !errors.Is(lookupErr, domain.ErrNotFound) {
		return nil, fmt.Errorf("load token subject: %w", lookupErr)
	}
	if err != nil {
		slog.DebugContext(ctx, "token rejected", "error", err)
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) checkEmail(ctx context.Context, verr *domain.ValidationError, email string, excludeID int64) error {
	switch {
	case email == "":
		verr.Add("email", msgBlank)
	case !emailPattern.MatchString(email):
		verr.Add("email", msgEmail)
	default:
		taken, err := s.users.ExistsByEmail(ctx, email, excludeID)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if taken {
			verr.Add("email", msgTaken)
		}
	}
	return nil
}

// duplicateToValidation converts a unique violation that slipped past the
// existence checks (a concurrent registration) into a field error.
func duplicateToValidation(err error) error {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		return domain.NewValidationError("username", msgTaken)
	case errors.Is(err, domain.ErrDuplicateEmail):
		return domain.NewValidationError("email", msgTaken)
	default:
		return nil
	}
}

func optionalText(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
