package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"clinicdesk/internal/model"
	"clinicdesk/internal/repository"
)

type MockWizardSessionRepository struct {
	mock.Mock
}

func (m *MockWizardSessionRepository) Create(ctx context.Context, s *model.WizardSession) (*model.WizardSession, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WizardSession), args.Error(1)
}

func (m *MockWizardSessionRepository) Get(ctx context.Context, id string) (*model.WizardSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WizardSession), args.Error(1)
}

func (m *MockWizardSessionRepository) Save(ctx context.Context, s *model.WizardSession) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockWizardSessionRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.WizardSession], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.WizardSession]), args.Error(1)
}

func (m *MockWizardSessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWizardSessionRepository) DeleteExpired(ctx context.Context, before time.Time) ([]string, error) {
	args := m.Called(ctx, before)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}
