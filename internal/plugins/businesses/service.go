package businesses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Leosweetly/smarttext-connect-sub001/internal/apperror"
	"github.com/Leosweetly/smarttext-connect-sub001/internal/sanitize"
)

// maxPerPage caps admin report pages.
const maxPerPage = 100

// BusinessService defines the business logic contract for business records.
// Handlers call these methods -- they never touch the repository directly.
type BusinessService interface {
	HasBusiness(ctx context.Context, userID string) (bool, error)
	GetByOwner(ctx context.Context, userID string) (*Business, error)
	Onboard(ctx context.Context, userID string, input OnboardInput) (*Business, error)
	List(ctx context.Context, page, perPage int) (*Page, error)
}

// businessService implements BusinessService.
type businessService struct {
	repo Repository
	now  func() time.Time
}

// NewBusinessService creates a new business service.
func NewBusinessService(repo Repository) BusinessService {
	return &businessService{repo: repo, now: time.Now}
}

// HasBusiness reports whether userID owns a business record. "Not found" is
// a normal false. Any other failure is logged and returned alongside false
// so callers can apply their own fail-safe.
func (s *businessService) HasBusiness(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	_, err := s.repo.FindByOwner(ctx, userID)
	if err == nil {
		return true, nil
	}
	if apperror.IsNotFound(err) {
		return false, nil
	}

	slog.Error("business lookup failed",
		slog.String("user_id", userID),
		slog.Any("error", err),
	)
	return false, fmt.Errorf("looking up business for %s: %w", userID, err)
}

// GetByOwner returns the owner's business or apperror.NotFound.
func (s *businessService) GetByOwner(ctx context.Context, userID string) (*Business, error) {
	b, err := s.repo.FindByOwner(ctx, userID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding business: %w", err))
	}
	return b, nil
}

// Onboard creates the user's business. Resubmitting the form after a
// business exists returns the existing record instead of a duplicate. Two
// concurrent submissions race on the unique owner index, and the loser gets
// the winner's record.
func (s *businessService) Onboard(ctx context.Context, userID string, input OnboardInput) (*Business, error) {
	if userID == "" {
		return nil, apperror.NewUnauthorized("sign in to finish onboarding")
	}

	existing, err := s.repo.FindByOwner(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, apperror.NewInternal(fmt.Errorf("checking existing business: %w", err))
	}

	b := &Business{
		ID:          uuid.NewString(),
		OwnerID:     userID,
		Name:        sanitize.PlainText(input.Name),
		Phone:       strings.TrimSpace(input.Phone),
		Website:     strings.TrimSpace(input.Website),
		Industry:    input.Industry,
		Description: sanitize.PlainText(input.Description),
		CreatedAt:   s.now().UTC(),
	}
	if b.Name == "" {
		return nil, apperror.NewValidation("business name is required")
	}

	if err := s.repo.Create(ctx, b); err != nil {
		if !errors.Is(err, ErrDuplicateOwner) {
			return nil, apperror.NewInternal(fmt.Errorf("creating business: %w", err))
		}
		existing, err := s.repo.FindByOwner(ctx, userID)
		if err != nil {
			return nil, apperror.NewInternal(fmt.Errorf("loading existing business: %w", err))
		}
		return existing, nil
	}

	slog.Info("business onboarded",
		slog.String("business_id", b.ID),
		slog.String("owner_id", userID),
	)

	return b, nil
}

// List returns one page of the admin report. Pages are 1-based.
func (s *businessService) List(ctx context.Context, page, perPage int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = 25
	}

	items, total, err := s.repo.List(ctx, (page-1)*perPage, perPage)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing businesses: %w", err))
	}
	if items == nil {
		items = []Business{}
	}

	return &Page{Businesses: items, Total: total, Page: page, PerPage: perPage}, nil
}
