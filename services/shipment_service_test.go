package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborline/shipment-tracker/models"
	"github.com/harborline/shipment-tracker/repositories"
)

// MockMembershipRepository is a mock implementation of repositories.MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) ScopesForEmail(ctx context.Context, email string) ([]string, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockShipmentRepository is a mock implementation of repositories.ShipmentRepository
type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) ListByScopes(ctx context.Context, scopes []string) ([]*models.Shipment, error) {
	args := m.Called(ctx, scopes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) GetByID(ctx context.Context, id string) (*models.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) LatestEventCode(ctx context.Context, shipmentID string) (*string, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*string), args.Error(1)
}

func (m *MockShipmentRepository) LatestEventCodes(ctx context.Context, shipmentIDs []string) (map[string]*string, error) {
	args := m.Called(ctx, shipmentIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]*string), args.Error(1)
}

func (m *MockShipmentRepository) EventsForShipment(ctx context.Context, shipmentID string) ([]*models.ShipmentEvent, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ShipmentEvent), args.Error(1)
}

func strPtr(s string) *string { return &s }

func testShipment(id, scope, rawStatus string) *models.Shipment {
	return &models.Shipment{
		ID:            id,
		Origin:        "Shanghai",
		Destination:   "Rotterdam",
		CurrentStatus: rawStatus,
		CustomerScope: scope,
	}
}

func TestListShipments(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches latest event code and derived status", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return([]string{"ACME"}, nil)
		shipments.On("ListByScopes", ctx, []string{"ACME"}).
			Return([]*models.Shipment{
				testShipment("SHP-1", "ACME", "In Transit"),
				testShipment("SHP-2", "ACME", "In Transit"),
			}, nil)
		shipments.On("LatestEventCodes", ctx, []string{"SHP-1", "SHP-2"}).
			Return(map[string]*string{"SHP-1": strPtr("DELIVERED")}, nil)

		summaries, err := svc.ListShipments(ctx, "user@example.com")

		require.NoError(t, err)
		require.Len(t, summaries, 2)

		// Latest event code dominates the raw status text.
		assert.Equal(t, "Delivered", summaries[0].DerivedStatus)
		require.NotNil(t, summaries[0].LatestEventCode)
		assert.Equal(t, "DELIVERED", *summaries[0].LatestEventCode)

		// No events: raw status text decides.
		assert.Nil(t, summaries[1].LatestEventCode)
		assert.Equal(t, "In Transit", summaries[1].DerivedStatus)

		memberships.AssertExpectations(t)
		shipments.AssertExpectations(t)
	})

	t.Run("zero memberships short-circuits to an empty list", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		memberships.On("ScopesForEmail", ctx, "nobody@example.com").
			Return([]string{}, nil)

		summaries, err := svc.ListShipments(ctx, "nobody@example.com")

		require.NoError(t, err)
		assert.NotNil(t, summaries)
		assert.Empty(t, summaries)
		shipments.AssertNotCalled(t, "ListByScopes", mock.Anything, mock.Anything)
	})

	t.Run("event fan-out path resolves codes per shipment", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop(), WithEventFanout(2))

		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return([]string{"ACME"}, nil)
		shipments.On("ListByScopes", ctx, []string{"ACME"}).
			Return([]*models.Shipment{
				testShipment("SHP-1", "ACME", ""),
				testShipment("SHP-2", "ACME", ""),
				testShipment("SHP-3", "ACME", ""),
			}, nil)
		shipments.On("LatestEventCode", mock.Anything, "SHP-1").Return(strPtr("ATD"), nil)
		shipments.On("LatestEventCode", mock.Anything, "SHP-2").Return(strPtr("DIS"), nil)
		shipments.On("LatestEventCode", mock.Anything, "SHP-3").Return(nil, nil)

		summaries, err := svc.ListShipments(ctx, "user@example.com")

		require.NoError(t, err)
		require.Len(t, summaries, 3)
		assert.Equal(t, "In Transit", summaries[0].DerivedStatus)
		assert.Equal(t, "Discharged", summaries[1].DerivedStatus)
		assert.Nil(t, summaries[2].LatestEventCode)
		shipments.AssertNotCalled(t, "LatestEventCodes", mock.Anything, mock.Anything)
	})

	t.Run("event lookup failure fails the whole request", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return([]string{"ACME"}, nil)
		shipments.On("ListByScopes", ctx, []string{"ACME"}).
			Return([]*models.Shipment{testShipment("SHP-1", "ACME", "")}, nil)
		shipments.On("LatestEventCodes", ctx, []string{"SHP-1"}).
			Return(nil, assert.AnError)

		summaries, err := svc.ListShipments(ctx, "user@example.com")

		assert.Nil(t, summaries)
		assert.True(t, IsInternalError(err))
	})

	t.Run("membership lookup failure is internal", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return(nil, assert.AnError)

		_, err := svc.ListShipments(ctx, "user@example.com")
		assert.True(t, IsInternalError(err))
	})

	t.Run("empty email is a validation error", func(t *testing.T) {
		svc := NewShipmentService(new(MockMembershipRepository), new(MockShipmentRepository), zap.NewNop())

		_, err := svc.ListShipments(ctx, "")
		assert.True(t, IsValidationError(err))
	})
}

func TestGetShipment(t *testing.T) {
	ctx := context.Background()

	t.Run("returns detail with milestone index", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		now := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
		events := []*models.ShipmentEvent{
			{ShipmentID: "SHP-1", EventCode: "ATD", EventTime: now},
			{ShipmentID: "SHP-1", EventCode: "CARGO_RECEIVED", EventTime: now.Add(-48 * time.Hour)},
			{ShipmentID: "SHP-1", EventCode: "BOOKED", EventTime: now.Add(-96 * time.Hour)},
		}

		shipments.On("GetByID", ctx, "SHP-1").
			Return(testShipment("SHP-1", "ACME", "Pre-Departure"), nil)
		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return([]string{"acme"}, nil)
		shipments.On("EventsForShipment", ctx, "SHP-1").
			Return(events, nil)

		detail, err := svc.GetShipment(ctx, "user@example.com", "SHP-1")

		require.NoError(t, err)
		assert.Equal(t, "In Transit", detail.DerivedStatus)
		assert.Equal(t, 4, detail.MilestoneIndex) // Departed
		assert.Len(t, detail.Events, 3)
		assert.Equal(t, "Delivered", detail.Milestones[len(detail.Milestones)-1])
	})

	t.Run("scope match ignores case", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		shipments.On("GetByID", ctx, "SHP-1").
			Return(testShipment("SHP-1", "ACME", ""), nil)
		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return([]string{"Acme"}, nil)
		shipments.On("EventsForShipment", ctx, "SHP-1").
			Return([]*models.ShipmentEvent{}, nil)

		_, err := svc.GetShipment(ctx, "user@example.com", "SHP-1")
		require.NoError(t, err)
	})

	t.Run("existing shipment outside scope is forbidden, not not-found", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		shipments.On("GetByID", ctx, "SHP-1").
			Return(testShipment("SHP-1", "GLOBEX", ""), nil)
		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return([]string{"ACME"}, nil)

		_, err := svc.GetShipment(ctx, "user@example.com", "SHP-1")

		assert.True(t, IsForbiddenError(err))
		assert.False(t, IsNotFoundError(err))
		shipments.AssertNotCalled(t, "EventsForShipment", mock.Anything, mock.Anything)
	})

	t.Run("zero memberships is forbidden for an existing shipment", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		shipments.On("GetByID", ctx, "SHP-1").
			Return(testShipment("SHP-1", "ACME", ""), nil)
		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return([]string{}, nil)

		_, err := svc.GetShipment(ctx, "user@example.com", "SHP-1")
		assert.True(t, IsForbiddenError(err))
	})

	t.Run("unknown id is not-found", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		shipments.On("GetByID", ctx, "SHP-MISSING").
			Return(nil, repositories.ErrShipmentNotFound)

		_, err := svc.GetShipment(ctx, "user@example.com", "SHP-MISSING")

		assert.True(t, IsNotFoundError(err))
		memberships.AssertNotCalled(t, "ScopesForEmail", mock.Anything, mock.Anything)
	})

	t.Run("eventless shipment derives from raw status at milestone zero", func(t *testing.T) {
		memberships := new(MockMembershipRepository)
		shipments := new(MockShipmentRepository)
		svc := NewShipmentService(memberships, shipments, zap.NewNop())

		shipments.On("GetByID", ctx, "SHP-1").
			Return(testShipment("SHP-1", "ACME", "Customs released at destination"), nil)
		memberships.On("ScopesForEmail", ctx, "user@example.com").
			Return([]string{"ACME"}, nil)
		shipments.On("EventsForShipment", ctx, "SHP-1").
			Return([]*models.ShipmentEvent{}, nil)

		detail, err := svc.GetShipment(ctx, "user@example.com", "SHP-1")

		require.NoError(t, err)
		assert.Equal(t, "Customs Released", detail.DerivedStatus)
		assert.Equal(t, 0, detail.MilestoneIndex)
	})

	t.Run("blank id is a validation error", func(t *testing.T) {
		svc := NewShipmentService(new(MockMembershipRepository), new(MockShipmentRepository), zap.NewNop())

		_, err := svc.GetShipment(ctx, "user@example.com", "  ")
		assert.True(t, IsValidationError(err))
	})
}
