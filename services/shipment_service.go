package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harborline/shipment-tracker/internal/status"
	"github.com/harborline/shipment-tracker/models"
	"github.com/harborline/shipment-tracker/repositories"
)

// defaultFanoutLimit bounds concurrent per-shipment event lookups when the
// fan-out path is enabled.
const defaultFanoutLimit = 8

// ShipmentDetail is the full drill-down view of a single shipment.
type ShipmentDetail struct {
	Shipment       *models.Shipment        `json:"shipment"`
	DerivedStatus  string                  `json:"derived_status"`
	Events         []*models.ShipmentEvent `json:"events"`
	MilestoneIndex int                     `json:"milestone_index"`
	Milestones     []string                `json:"milestones"`
}

// ShipmentService answers the two read operations of the tracking API:
// list-for-user and detail-for-user. Scopes are re-resolved on every call;
// nothing is cached between requests.
type ShipmentService struct {
	memberships repositories.MembershipRepository
	shipments   repositories.ShipmentRepository
	logger      *zap.Logger

	// eventFanout switches the list path from one aggregate latest-event
	// query to bounded concurrent per-shipment lookups.
	eventFanout bool
	fanoutLimit int
}

// ShipmentServiceOption configures a ShipmentService
type ShipmentServiceOption func(*ShipmentService)

// WithEventFanout enables per-shipment latest-event lookups with at most
// limit in flight. A limit below 1 falls back to the default.
func WithEventFanout(limit int) ShipmentServiceOption {
	return func(s *ShipmentService) {
		s.eventFanout = true
		if limit > 0 {
			s.fanoutLimit = limit
		}
	}
}

// NewShipmentService creates a new shipment service
func NewShipmentService(
	memberships repositories.MembershipRepository,
	shipments repositories.ShipmentRepository,
	logger *zap.Logger,
	opts ...ShipmentServiceOption,
) *ShipmentService {
	s := &ShipmentService{
		memberships: memberships,
		shipments:   shipments,
		logger:      logger,
		fanoutLimit: defaultFanoutLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListShipments returns every shipment the email's memberships cover,
// newest activity first, each row carrying its latest event code and
// derived status. A user with no memberships gets an empty list, not an
// error. Any downstream failure fails the whole call; there are no
// partial results.
func (s *ShipmentService) ListShipments(ctx context.Context, email string) ([]*models.ShipmentSummary, error) {
	if email == "" {
		return nil, NewDomainError(ErrorTypeValidation, "invalid input", nil).WithDetail("field", "email")
	}

	scopes, err := s.memberships.ScopesForEmail(ctx, email)
	if err != nil {
		return nil, WrapInternal("failed to resolve customer scopes", err)
	}
	if len(scopes) == 0 {
		s.logger.Debug("no memberships for email", zap.String("email", email))
		return []*models.ShipmentSummary{}, nil
	}

	shipments, err := s.shipments.ListByScopes(ctx, scopes)
	if err != nil {
		return nil, WrapInternal("failed to list shipments", err)
	}

	codes, err := s.latestEventCodes(ctx, shipments)
	if err != nil {
		return nil, WrapInternal("failed to load latest events", err)
	}

	summaries := make([]*models.ShipmentSummary, len(shipments))
	for i, shipment := range shipments {
		code := codes[i]
		summaries[i] = &models.ShipmentSummary{
			Shipment:        *shipment,
			LatestEventCode: code,
			DerivedStatus:   string(status.Derive(code, shipment.CurrentStatus)),
		}
	}

	s.logger.Debug("listed shipments for user",
		zap.String("email", email),
		zap.Int("scopes", len(scopes)),
		zap.Int("count", len(summaries)))

	return summaries, nil
}

// latestEventCodes resolves each shipment's latest event code, positionally
// aligned with the input. The aggregate single-query path is the default;
// the fan-out path exists for deployments where the events table lives
// behind a view that defeats DISTINCT ON.
func (s *ShipmentService) latestEventCodes(ctx context.Context, shipments []*models.Shipment) ([]*string, error) {
	codes := make([]*string, len(shipments))
	if len(shipments) == 0 {
		return codes, nil
	}

	if !s.eventFanout {
		ids := make([]string, len(shipments))
		for i, shipment := range shipments {
			ids[i] = shipment.ID
		}
		byID, err := s.shipments.LatestEventCodes(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i, shipment := range shipments {
			codes[i] = byID[shipment.ID]
		}
		return codes, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanoutLimit)
	for i, shipment := range shipments {
		i, shipment := i, shipment
		g.Go(func() error {
			code, err := s.shipments.LatestEventCode(gctx, shipment.ID)
			if err != nil {
				return err
			}
			codes[i] = code
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return codes, nil
}

// GetShipment returns the full detail view of one shipment, provided the
// email's memberships cover its owning scope. The ownership check runs
// after the fetch so that an unknown id is NotFound while a real but
// out-of-scope id is Forbidden.
func (s *ShipmentService) GetShipment(ctx context.Context, email, id string) (*ShipmentDetail, error) {
	if email == "" {
		return nil, NewDomainError(ErrorTypeValidation, "invalid input", nil).WithDetail("field", "email")
	}
	if strings.TrimSpace(id) == "" {
		return nil, NewDomainError(ErrorTypeValidation, "invalid input", nil).WithDetail("field", "id")
	}

	shipment, err := s.shipments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrShipmentNotFound) {
			return nil, NewDomainError(ErrorTypeNotFound, "shipment not found", nil).WithDetail("id", id)
		}
		return nil, WrapInternal("failed to fetch shipment", err)
	}

	scopes, err := s.memberships.ScopesForEmail(ctx, email)
	if err != nil {
		return nil, WrapInternal("failed to resolve customer scopes", err)
	}
	if !scopesCover(scopes, shipment.CustomerScope) {
		s.logger.Warn("scope check failed for shipment detail",
			zap.String("email", email),
			zap.String("shipment_id", id))
		return nil, ErrScopeMismatch
	}

	events, err := s.shipments.EventsForShipment(ctx, id)
	if err != nil {
		return nil, WrapInternal("failed to load shipment events", err)
	}

	var latest *string
	eventCodes := make([]string, len(events))
	for i, event := range events {
		eventCodes[i] = event.EventCode
	}
	if len(events) > 0 {
		latest = &events[0].EventCode
	}

	return &ShipmentDetail{
		Shipment:       shipment,
		DerivedStatus:  string(status.Derive(latest, shipment.CurrentStatus)),
		Events:         events,
		MilestoneIndex: status.MilestoneIndex(eventCodes),
		Milestones:     status.MilestoneNames(),
	}, nil
}

// scopesCover reports whether any membership scope matches the shipment's
// owning scope, ignoring case.
func scopesCover(scopes []string, owning string) bool {
	target := strings.ToLower(strings.TrimSpace(owning))
	for _, scope := range scopes {
		if strings.ToLower(strings.TrimSpace(scope)) == target {
			return true
		}
	}
	return false
}
