package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"clinicdesk/internal/clinicapi"
	"clinicdesk/internal/model"
	"clinicdesk/internal/service"
	"clinicdesk/internal/session"
)

type MockClinicService struct {
	mock.Mock
}

func (m *MockClinicService) Patients(ctx context.Context, sess session.Session, query string) ([]model.Patient, error) {
	args := m.Called(ctx, sess, query)
	out, _ := args.Get(0).([]model.Patient)
	return out, args.Error(1)
}

func (m *MockClinicService) UpdatePatient(ctx context.Context, sess session.Session, id string, upd model.PatientUpdate) error {
	return m.Called(ctx, sess, id, upd).Error(0)
}

func (m *MockClinicService) DeletePatient(ctx context.Context, sess session.Session, id string) error {
	return m.Called(ctx, sess, id).Error(0)
}

func (m *MockClinicService) Appointments(ctx context.Context, sess session.Session) ([]model.Appointment, error) {
	args := m.Called(ctx, sess)
	out, _ := args.Get(0).([]model.Appointment)
	return out, args.Error(1)
}

func (m *MockClinicService) SaveAppointment(ctx context.Context, sess session.Session, a model.Appointment) error {
	return m.Called(ctx, sess, a).Error(0)
}

func (m *MockClinicService) DeleteAppointment(ctx context.Context, sess session.Session, patientID, id string) error {
	return m.Called(ctx, sess, patientID, id).Error(0)
}

func (m *MockClinicService) Visits(ctx context.Context, sess session.Session, patientID string) ([]model.Visit, error) {
	args := m.Called(ctx, sess, patientID)
	out, _ := args.Get(0).([]model.Visit)
	return out, args.Error(1)
}

func (m *MockClinicService) SearchVisits(ctx context.Context, sess session.Session, patientID, visitNumber string) ([]model.Visit, error) {
	args := m.Called(ctx, sess, patientID, visitNumber)
	out, _ := args.Get(0).([]model.Visit)
	return out, args.Error(1)
}

func (m *MockClinicService) Visit(ctx context.Context, sess session.Session, patientID, visitID string) (*service.VisitDetails, error) {
	args := m.Called(ctx, sess, patientID, visitID)
	out, _ := args.Get(0).(*service.VisitDetails)
	return out, args.Error(1)
}

func (m *MockClinicService) UpdateVisit(ctx context.Context, sess session.Session, patientID, visitID string, v model.Visit) error {
	return m.Called(ctx, sess, patientID, visitID, v).Error(0)
}

func (m *MockClinicService) Prescriptions(ctx context.Context, sess session.Session, patientID, visitID string) ([]model.Prescription, error) {
	args := m.Called(ctx, sess, patientID, visitID)
	out, _ := args.Get(0).([]model.Prescription)
	return out, args.Error(1)
}

func (m *MockClinicService) Prescription(ctx context.Context, sess session.Session, patientID, visitID, id string) (model.Prescription, error) {
	args := m.Called(ctx, sess, patientID, visitID, id)
	out, _ := args.Get(0).(model.Prescription)
	return out, args.Error(1)
}

func (m *MockClinicService) UpdatePrescription(ctx context.Context, sess session.Session, patientID, visitID, id string, p model.Prescription) error {
	return m.Called(ctx, sess, patientID, visitID, id, p).Error(0)
}

func (m *MockClinicService) Notifications(ctx context.Context, sess session.Session) ([]model.Notification, error) {
	args := m.Called(ctx, sess)
	out, _ := args.Get(0).([]model.Notification)
	return out, args.Error(1)
}

func (m *MockClinicService) DeleteNotification(ctx context.Context, sess session.Session, id string) error {
	return m.Called(ctx, sess, id).Error(0)
}

func (m *MockClinicService) History(ctx context.Context, sess session.Session) ([]model.HistoryEntry, error) {
	args := m.Called(ctx, sess)
	out, _ := args.Get(0).([]model.HistoryEntry)
	return out, args.Error(1)
}

func (m *MockClinicService) SignIn(ctx context.Context, cred model.Credentials) (model.AuthResult, error) {
	args := m.Called(ctx, cred)
	out, _ := args.Get(0).(model.AuthResult)
	return out, args.Error(1)
}

func (m *MockClinicService) SignUp(ctx context.Context, su model.SignUp) (model.AuthResult, error) {
	args := m.Called(ctx, su)
	out, _ := args.Get(0).(model.AuthResult)
	return out, args.Error(1)
}

func (m *MockClinicService) VerifyToken(ctx context.Context, sess session.Session) error {
	return m.Called(ctx, sess).Error(0)
}

func (m *MockClinicService) Logout(ctx context.Context, sess session.Session) error {
	return m.Called(ctx, sess).Error(0)
}

func (m *MockClinicService) Profile(ctx context.Context, sess session.Session) (model.Profile, error) {
	args := m.Called(ctx, sess)
	out, _ := args.Get(0).(model.Profile)
	return out, args.Error(1)
}

func (m *MockClinicService) UpdateProfile(ctx context.Context, sess session.Session, p model.Profile, photo *clinicapi.ProfilePhoto) error {
	return m.Called(ctx, sess, p, photo).Error(0)
}

func (m *MockClinicService) ChangePassword(ctx context.Context, sess session.Session, pc model.PasswordChange) error {
	return m.Called(ctx, sess, pc).Error(0)
}

func (m *MockClinicService) ResetPassword(ctx context.Context, token string, r model.PasswordReset) (string, error) {
	args := m.Called(ctx, token, r)
	return args.String(0), args.Error(1)
}
