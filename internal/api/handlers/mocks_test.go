package handlers_test

import (
	"bytes"
	"context"

	"github.com/stretchr/testify/mock"

	"greendrake/freight/internal/models"
	"greendrake/freight/internal/schema"
	"greendrake/freight/internal/services"
)

// MockUserService implements services.IUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in schema.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) VerifyEmail(ctx context.Context, in schema.VerifyEmailRequest) error {
	return m.Called(ctx, in).Error(0)
}

func (m *MockUserService) Login(ctx context.Context, in schema.LoginRequest) (*services.LoginResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LoginResult), args.Error(1)
}

func (m *MockUserService) ForgotPassword(ctx context.Context, in schema.ForgotPasswordRequest) error {
	return m.Called(ctx, in).Error(0)
}

func (m *MockUserService) ResetPassword(ctx context.Context, in schema.ResetPasswordRequest) error {
	return m.Called(ctx, in).Error(0)
}

func (m *MockUserService) Profile(ctx context.Context, userID int64) (*services.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.Profile), args.Error(1)
}

// MockParticipantService implements services.IParticipantService
type MockParticipantService struct {
	mock.Mock
}

func (m *MockParticipantService) List(ctx context.Context) ([]models.Participant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Participant), args.Error(1)
}

func (m *MockParticipantService) Create(ctx context.Context, in schema.ParticipantCreate) (*models.Participant, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participant), args.Error(1)
}

func (m *MockParticipantService) Get(ctx context.Context, id int64) (*models.Participant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participant), args.Error(1)
}

func (m *MockParticipantService) Update(ctx context.Context, id int64, in schema.ParticipantUpdate) (*models.Participant, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participant), args.Error(1)
}

func (m *MockParticipantService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockAuctionService implements services.IAuctionService
type MockAuctionService struct {
	mock.Mock
}

func (m *MockAuctionService) List(ctx context.Context, userID int64) ([]models.AuctionSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuctionSummary), args.Error(1)
}

func (m *MockAuctionService) Create(ctx context.Context, userID int64, detail models.AuctionDetail) (*models.AuctionRecord, error) {
	args := m.Called(ctx, userID, detail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionRecord), args.Error(1)
}

func (m *MockAuctionService) Get(ctx context.Context, userID, auctionID int64) (*models.AuctionView, error) {
	args := m.Called(ctx, userID, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionView), args.Error(1)
}

func (m *MockAuctionService) Update(ctx context.Context, userID, auctionID int64, detail models.AuctionDetail) (*models.AuctionRecord, error) {
	args := m.Called(ctx, userID, auctionID, detail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionRecord), args.Error(1)
}

func (m *MockAuctionService) Delete(ctx context.Context, userID, auctionID int64) error {
	return m.Called(ctx, userID, auctionID).Error(0)
}

func (m *MockAuctionService) ListAssignments(ctx context.Context, userID, auctionID int64) ([]models.AssignmentView, error) {
	args := m.Called(ctx, userID, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AssignmentView), args.Error(1)
}

// MockAssignmentService implements services.IAssignmentService
type MockAssignmentService struct {
	mock.Mock
}

func (m *MockAssignmentService) AssignParticipants(ctx context.Context, userID, auctionID int64, participantIDs []int64) ([]models.AuctionParticipant, error) {
	args := m.Called(ctx, userID, auctionID, participantIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuctionParticipant), args.Error(1)
}

// MockTemplateService implements services.ITemplateService
type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) Generate() (*bytes.Buffer, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bytes.Buffer), args.Error(1)
}

func (m *MockTemplateService) Extract(data []byte) (*models.AuctionDetail, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionDetail), args.Error(1)
}

func (m *MockTemplateService) ValidateUpload(ctx context.Context, userID int64, filename string, data []byte) (*models.AuctionDetail, error) {
	args := m.Called(ctx, userID, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AuctionDetail), args.Error(1)
}
