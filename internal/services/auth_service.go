package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/crm-pipeline-api/internal/constants"
	"github.com/yukikurage/crm-pipeline-api/internal/models"
	"github.com/yukikurage/crm-pipeline-api/internal/repository"
	"github.com/yukikurage/crm-pipeline-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrFailedToCreateOrg    = errors.New("failed to create workspace")
)

// AuthService handles signup, login and session user lookups.
type AuthService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository) *AuthService {
	return &AuthService{
		userRepo: userRepo,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup creates a user and a workspace they own, so the pipeline is usable
// right after the first login. The email is what invitations are matched on.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if err := taken(s.userRepo.FindByUsername(username)); err != nil {
		return nil, mapTaken(err, ErrUsernameTaken, "username")
	}
	if email != "" {
		if err := taken(s.userRepo.FindByEmail(email)); err != nil {
			return nil, mapTaken(err, ErrEmailTaken, "email")
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}
	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrFailedToCreateOrg
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	workspace := &models.Organization{
		Name:       fmt.Sprintf("%s's pipeline", username),
		InviteCode: inviteCode,
	}

	if err := s.userRepo.CreateWithWorkspace(user, workspace); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreateUser):
			return nil, ErrFailedToCreateUser
		case errors.Is(err, repository.ErrCreateWorkspace):
			return nil, ErrFailedToCreateOrg
		default:
			return nil, fmt.Errorf("failed to complete signup: %w", err)
		}
	}

	return user, nil
}

var errTaken = errors.New("taken")

// taken turns a uniqueness lookup into errTaken when a row exists and nil when none does.
func taken(_ *models.User, err error) error {
	switch {
	case err == nil:
		return errTaken
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil
	default:
		return err
	}
}

func mapTaken(err, sentinel error, field string) error {
	if errors.Is(err, errTaken) {
		return sentinel
	}
	return fmt.Errorf("failed to check %s: %w", field, err)
}

// LoginInput holds the credentials for authentication. Login may be a
// username or an email address.
type LoginInput struct {
	Login    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	login := strings.TrimSpace(input.Login)
	find := s.userRepo.FindByUsername
	if strings.Contains(login, "@") {
		find = s.userRepo.FindByEmail
	}

	user, err := find(login)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
