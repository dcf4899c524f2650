package service

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pagemark/later"
	"github.com/pagemark/later/models"
)

// CreateUser registers a new user account. The caller supplies name, email
// and optionally a date of birth; everything else is assigned here.
func (s *Service) CreateUser(user models.User) (*models.User, error) {
	if strings.TrimSpace(user.FirstName) == "" || strings.TrimSpace(user.LastName) == "" {
		return nil, later.E(later.KindInvalidArgument, "first and last name are required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return nil, later.E(later.KindInvalidArgument, "email is required")
	}

	user.ID = uuid.New().String()
	user.RegistrationDate = time.Now().UTC()
	if user.State == "" {
		user.State = models.UserActive
	}

	if err := s.store.SaveUser(&user); err != nil {
		return nil, err
	}

	return &user, nil
}

// ListUsers returns all registered users
func (s *Service) ListUsers() ([]*models.User, error) {
	return s.store.ListUsers()
}
