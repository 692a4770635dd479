package services

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"drawing_tracker/internal/models"
	"drawing_tracker/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type UserService interface {
	CreateUser(user *models.User, password string) error
	GetUserByUsername(username string) (*models.User, error)
	Authenticate(username, password string) (*models.User, error)
	AuthenticateAdmin(username, password string) error
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) CreateUser(user *models.User, password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedPassword)

	return s.userRepo.Create(user)
}

func (s *userService) GetUserByUsername(username string) (*models.User, error) {
	return s.userRepo.GetByUsername(username)
}

func (s *userService) Authenticate(username, password string) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// AuthenticateAdmin guards the administrative actions, reverting a processed
// flag being the main one.
func (s *userService) AuthenticateAdmin(username, password string) error {
	user, err := s.Authenticate(username, password)
	if err != nil {
		return err
	}
	if user.Role != string(models.Admin) {
		return errors.New("insufficient permissions")
	}
	return nil
}
