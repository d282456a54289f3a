package services

import (
	"context"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/upahan/upahan-api/internal/billing"
	"github.com/upahan/upahan-api/internal/models"
	"github.com/upahan/upahan-api/internal/repository"
	"gorm.io/gorm"
)

// ReadingRequest is a meter reading entered by the landlord. PreviousReading defaults
// to the last recorded reading of the same meter.
type ReadingRequest struct {
	UnitID          uint
	UtilityType     string
	PreviousReading *decimal.Decimal
	CurrentReading  decimal.Decimal
	RatePerUnit     decimal.Decimal
	ReadingDate     time.Time
	Notes           *string
}

type UtilityService struct {
	repo         repository.UtilityReadingRepository
	propertyRepo repository.PropertyRepository
	loc          *time.Location
	now          func() time.Time
}

func NewUtilityService(repo repository.UtilityReadingRepository, propertyRepo repository.PropertyRepository, loc *time.Location) *UtilityService {
	return &UtilityService{
		repo:         repo,
		propertyRepo: propertyRepo,
		loc:          loc,
		now:          time.Now,
	}
}

// RecordReading stores a reading with its consumption and charge. Readings are a
// standalone record and are not added to any bill.
func (s *UtilityService) RecordReading(ctx context.Context, wc models.WorkspaceContext, req ReadingRequest) (*models.UtilityReading, error) {
	if !wc.IsLandlord() {
		return nil, newError(ErrForbidden, "only the landlord can record meter readings")
	}
	if !slices.Contains([]string{models.UtilityTypeElectricity, models.UtilityTypeWater}, req.UtilityType) {
		return nil, newError(ErrValidation, "utility type must be electricity or water")
	}

	unit, err := s.propertyRepo.FindUnitByID(ctx, wc.WorkspaceID, req.UnitID)
	if err != nil {
		return nil, translate(err, "unit")
	}

	previous := decimal.Zero
	if req.PreviousReading != nil {
		previous = *req.PreviousReading
	} else {
		latest, err := s.repo.FindLatest(ctx, wc.WorkspaceID, unit.ID, req.UtilityType)
		switch {
		case err == nil:
			previous = latest.CurrentReading
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	charge, err := billing.ComputeReading(previous, req.CurrentReading, req.RatePerUnit)
	if err != nil {
		return nil, translate(err, "reading")
	}

	readingDate := billing.CalendarDay(s.now(), s.loc)
	if !req.ReadingDate.IsZero() {
		readingDate = billing.CalendarDay(req.ReadingDate, time.UTC)
	}

	reading := &models.UtilityReading{
		WorkspaceID:     wc.WorkspaceID,
		UnitID:          unit.ID,
		UtilityType:     req.UtilityType,
		PreviousReading: previous,
		CurrentReading:  req.CurrentReading,
		Consumption:     charge.Consumption,
		RatePerUnit:     req.RatePerUnit,
		TotalAmount:     charge.Total,
		ReadingDate:     readingDate,
		RecordedBy:      wc.UserID,
		Notes:           req.Notes,
	}
	if err := s.repo.Create(ctx, reading); err != nil {
		return nil, err
	}
	return reading, nil
}

func (s *UtilityService) ListReadings(ctx context.Context, wc models.WorkspaceContext, query *repository.ListQuery) ([]models.UtilityReading, int64, error) {
	if !wc.IsLandlord() {
		return nil, 0, newError(ErrForbidden, "only the landlord can view meter readings")
	}
	return s.repo.List(ctx, wc.WorkspaceID, query)
}
