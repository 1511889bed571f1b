package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"clinicdesk/internal/service"
	"clinicdesk/internal/session"
	"clinicdesk/internal/wizard"
)

type MockWizardService struct {
	mock.Mock
}

func view(args mock.Arguments) *service.WizardView {
	v, _ := args.Get(0).(*service.WizardView)
	return v
}

func (m *MockWizardService) Create(ctx context.Context) (*service.WizardView, error) {
	args := m.Called(ctx)
	return view(args), args.Error(1)
}

func (m *MockWizardService) Get(ctx context.Context, id string) (*service.WizardView, error) {
	args := m.Called(ctx, id)
	return view(args), args.Error(1)
}

func (m *MockWizardService) List(ctx context.Context, limit, offset int) (*service.WizardListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WizardListResult), args.Error(1)
}

func (m *MockWizardService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWizardService) EditFields(ctx context.Context, id string, values map[string]string) (*service.WizardView, error) {
	args := m.Called(ctx, id, values)
	return view(args), args.Error(1)
}

func (m *MockWizardService) Touch(ctx context.Context, id string, fields []string) (*service.WizardView, error) {
	args := m.Called(ctx, id, fields)
	return view(args), args.Error(1)
}

func (m *MockWizardService) Advance(ctx context.Context, sess session.Session, id string, values map[string]string) (*service.WizardView, error) {
	args := m.Called(ctx, sess, id, values)
	return view(args), args.Error(1)
}

func (m *MockWizardService) Retreat(ctx context.Context, id string) (*service.WizardView, error) {
	args := m.Called(ctx, id)
	return view(args), args.Error(1)
}

func (m *MockWizardService) AddFile(ctx context.Context, id string, category string, up service.Upload) (*service.WizardView, wizard.AddResult, error) {
	args := m.Called(ctx, id, category, up)
	res, _ := args.Get(1).(wizard.AddResult)
	return view(args), res, args.Error(2)
}

func (m *MockWizardService) RemoveFile(ctx context.Context, id string, category string, handle string) (*service.WizardView, error) {
	args := m.Called(ctx, id, category, handle)
	return view(args), args.Error(1)
}

func (m *MockWizardService) FileURL(ctx context.Context, id string, category string, handle string) (string, error) {
	args := m.Called(ctx, id, category, handle)
	return args.String(0), args.Error(1)
}

func (m *MockWizardService) PurgeExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockWizardService) Close() {
	m.Called()
}
