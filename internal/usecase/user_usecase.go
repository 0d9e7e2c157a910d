package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/FeruzyNtillah/my-e-commerce/internal/auth"
	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/sirupsen/logrus"
)

const minPasswordLength = 6

type AuthResult struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type UserUseCase interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Authenticate resolves a bearer token to an actor whose role is read from storage.
	Authenticate(ctx context.Context, token string) (domain.Actor, error)
	Me(ctx context.Context, actor domain.Actor) (*domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.Actor, update domain.ProfileUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, actor domain.Actor, current, next string) error

	ListUsers(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.User, error)
	GetUser(ctx context.Context, actor domain.Actor, id string) (*domain.User, error)
	UpdateRole(ctx context.Context, actor domain.Actor, id string, role domain.Role) (*domain.User, error)
	DeleteUser(ctx context.Context, actor domain.Actor, id string) error

	EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error)
}

type userUseCase struct {
	userRepo domain.UserRepository
	tokens   *auth.TokenManager
	hasher   auth.PasswordHasher
	log      *logrus.Logger
}

func NewUserUseCase(repo domain.UserRepository, tokens *auth.TokenManager, hasher auth.PasswordHasher, logger *logrus.Logger) UserUseCase {
	return &userUseCase{
		userRepo: repo,
		tokens:   tokens,
		hasher:   hasher,
		log:      logger,
	}
}

func (uc *userUseCase) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	uc.log.Infof("Use Case: Attempting registration for email: %s", email)

	if name == "" {
		return nil, domain.Validationf("Please add a name")
	}
	if !isValidEmail(email) {
		uc.log.Warnf("Use Case: Registration failed - invalid email format: %s", email)
		return nil, domain.Validationf("Please add a valid email")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := uc.hasher.Hash(password)
	if err != nil {
		uc.log.Errorf("Use Case: Failed to hash password for %s: %v", email, err)
		return nil, fmt.Errorf("internal error processing password: %w", err)
	}
	created, err := uc.userRepo.CreateUser(ctx, &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	})
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to create user %s: %v", email, err)
		return nil, err
	}
	uc.log.Infof("Use Case: User registered successfully. ID: %s", created.ID)
	return uc.issue(created)
}

func (uc *userUseCase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.Validationf("Please provide an email and password")
	}
	user, err := uc.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			uc.log.Warnf("Use Case: Auth failed - user not found: %s", email)
			return nil, domain.ErrInvalidCredentials
		}
		uc.log.Errorf("Use Case: Error retrieving user %s during auth: %v", email, err)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	if err := uc.hasher.Compare(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			uc.log.Warnf("Use Case: Auth failed - incorrect password for user %s", user.ID)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("internal error during authentication: %w", err)
	}
	uc.log.Infof("Use Case: Authentication successful for user %s", user.ID)
	return uc.issue(user)
}

func (uc *userUseCase) issue(user *domain.User) (*AuthResult, error) {
	token, err := uc.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (uc *userUseCase) Authenticate(ctx context.Context, token string) (domain.Actor, error) {
	claims, err := uc.tokens.Verify(token)
	if err != nil {
		return domain.Actor{}, err
	}
	user, err := uc.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Actor{}, domain.ErrInvalidToken
		}
		return domain.Actor{}, fmt.Errorf("failed to load token user: %w", err)
	}
	return domain.Actor{UserID: user.ID, Role: user.Role}, nil
}

func (uc *userUseCase) Me(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	return uc.userRepo.GetUserByID(ctx, actor.UserID)
}

func (uc *userUseCase) UpdateProfile(ctx context.Context, actor domain.Actor, update domain.ProfileUpdate) (*domain.User, error) {
	if !actor.IsAuthenticated() {
		return nil, domain.ErrMissingToken
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			update.Name = nil
		} else if utf8.RuneCountInString(name) > 50 {
			return nil, domain.Validationf("Name cannot exceed 50 characters")
		} else {
			update.Name = &name
		}
	}
	user, err := uc.userRepo.UpdateProfile(ctx, actor.UserID, update)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to update profile for %s: %v", actor.UserID, err)
		return nil, err
	}
	uc.log.Infof("Use Case: Profile updated for user %s", actor.UserID)
	return user, nil
}

func (uc *userUseCase) UpdatePassword(ctx context.Context, actor domain.Actor, current, next string) error {
	if !actor.IsAuthenticated() {
		return domain.ErrMissingToken
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	user, err := uc.userRepo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if err := uc.hasher.Compare(user.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return domain.Validationf("Current password is incorrect")
		}
		return fmt.Errorf("internal error checking password: %w", err)
	}
	hash, err := uc.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("internal error processing password: %w", err)
	}
	if err := uc.userRepo.UpdatePassword(ctx, actor.UserID, hash); err != nil {
		return err
	}
	uc.log.Infof("Use Case: Password updated for user %s", actor.UserID)
	return nil
}

func (uc *userUseCase) ListUsers(ctx context.Context, actor domain.Actor, limit, offset int) ([]domain.User, error) {
	if err := domain.Authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}
	limit, offset = pageBounds(limit, offset)
	return uc.userRepo.ListUsers(ctx, limit, offset)
}

func (uc *userUseCase) GetUser(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	if err := domain.Authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}
	return uc.userRepo.GetUserByID(ctx, id)
}

func (uc *userUseCase) UpdateRole(ctx context.Context, actor domain.Actor, id string, role domain.Role) (*domain.User, error) {
	if err := domain.Authorize(actor, domain.CapManageUsers); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, domain.Validationf("Invalid role: %q", role)
	}
	user, err := uc.userRepo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: User %s role set to %s by %s", id, role, actor.UserID)
	return user, nil
}

func (uc *userUseCase) DeleteUser(ctx context.Context, actor domain.Actor, id string) error {
	if err := domain.Authorize(actor, domain.CapManageUsers); err != nil {
		return err
	}
	if id == actor.UserID {
		return domain.Validationf("You cannot delete your own account")
	}
	if err := uc.userRepo.DeleteUser(ctx, id); err != nil {
		return err
	}
	uc.log.Infof("Use Case: User %s deleted by %s", id, actor.UserID)
	return nil
}

// EnsureAdmin creates the bootstrap admin, or promotes the existing account with that email.
func (uc *userUseCase) EnsureAdmin(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := uc.userRepo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			uc.log.Infof("Use Case: Admin %s already present", email)
			return existing, nil
		}
		uc.log.Warnf("Use Case: Promoting existing user %s to admin", email)
		return uc.userRepo.UpdateRole(ctx, existing.ID, domain.RoleAdmin)
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("failed to look up admin %s: %w", email, err)
	}

	res, err := uc.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}
	uc.log.Infof("Use Case: Admin account %s created", email)
	return uc.userRepo.UpdateRole(ctx, res.User.ID, domain.RoleAdmin)
}

func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return false
	}
	domainParts := strings.Split(parts[1], ".")
	return len(domainParts) >= 2 && domainParts[0] != "" && domainParts[len(domainParts)-1] != ""
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return domain.Validationf("Password must be at least %d characters", minPasswordLength)
	}
	return nil
}
