package service

import (
	"context"
	"strings"

	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/clock"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/domain"
	"github.com/ANIKETSHETTY47/smart-home-energy-management/internal/repository"
)

// UserService maintains the owner directory. Registration itself happens
// outside this system; admins may seed owners directly.
type UserService struct {
	repos *repository.Repos
	clock clock.Clock
}

type CreateUserInput struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

func (s *UserService) Create(ctx context.Context, actor Actor, in CreateUserInput) (domain.User, error) {
	if err := actor.requireAdmin(); err != nil {
		return domain.User{}, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in); err != nil {
		return domain.User{}, err
	}
	u := domain.User{Name: in.Name, Email: strings.ToLower(in.Email), CreatedAt: s.clock.Now()}
	if err := s.repos.CreateUser(ctx, &u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, actor Actor) ([]domain.User, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	return s.repos.ListUsers(ctx)
}
