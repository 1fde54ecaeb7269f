package profile

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
)

// Recorder archives built profiles. [store.HistoryRepository] implements it.
type Recorder interface {
	Record(ctx context.Context, userID string, payload []byte) (*store.HistoryEntry, error)
}

// Service ties building, storing and importing profiles together.
type Service struct {
	builder  *Builder
	profiles *store.ProfileStore
	history  Recorder
	logger   *log.Logger
}

// NewService creates a [Service]. history may be nil.
func NewService(b *Builder, ps *store.ProfileStore, history Recorder, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Service{builder: b, profiles: ps, history: history, logger: logger}
}

// BuildAndStore builds the caller's profile and replaces the self slot.
// Nothing is written unless the build succeeds.
func (s *Service) BuildAndStore(ctx context.Context, cred models.Credential) (*models.Profile, error) {
	p, err := s.builder.Build(ctx, cred)
	if err != nil {
		return nil, err
	}

	data, err := Encode(*p, false)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Save(ctx, store.SlotSelf, data); err != nil {
		return nil, fmt.Errorf("failed to store profile: %w", err)
	}

	if s.history != nil {
		if _, err := s.history.Record(ctx, p.UserID, data); err != nil {
			s.logger.Warn("could not archive profile", "error", err)
		}
	}
	return p, nil
}

// ImportPartner validates data and stores it in the partner slot.
// An invalid document leaves the slot untouched.
func (s *Service) ImportPartner(ctx context.Context, data []byte) (*models.Profile, error) {
	p, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.Save(ctx, store.SlotPartner, data); err != nil {
		return nil, fmt.Errorf("failed to store partner profile: %w", err)
	}
	s.logger.Info("partner profile imported", "user", p.UserID)
	return p, nil
}

// ClearPartner empties the partner slot.
func (s *Service) ClearPartner(ctx context.Context) error {
	return s.profiles.Clear(ctx, store.SlotPartner)
}

// Load returns the decoded profile in slot.
func (s *Service) Load(ctx context.Context, slot store.Slot) (*models.Profile, error) {
	return LoadSlot(ctx, s.profiles, slot)
}

// Merged merges the stored self and partner profiles.
func (s *Service) Merged(ctx context.Context) (*models.Profile, *models.Profile, models.MergedView, error) {
	return MergeStored(ctx, s.profiles)
}
