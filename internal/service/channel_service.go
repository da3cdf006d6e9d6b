package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/notify-engine/internal/auth"
	"github.com/clinicore/notify-engine/internal/domain"
	"github.com/clinicore/notify-engine/internal/lock"
	"github.com/clinicore/notify-engine/internal/observability"
	"github.com/clinicore/notify-engine/internal/repository"
)

// ChannelService is the channel registry: CRUD over channel configs plus the
// exclusivity rule that at most one config per (channelType, scope) is active.
type ChannelService struct {
	channels repository.ChannelRepository
	locks    lock.Locker
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

// ChannelPatch carries the fields an update may replace. Nil pointers leave
// the stored value untouched; channelType and scope are immutable.
type ChannelPatch struct {
	DisplayName           *string
	EndpointURL           *string
	Port                  *int
	HTTPMethod            *domain.HTTPMethod
	AuthMethod            *domain.AuthMethod
	AuthConfig            map[string]string
	SenderName            *string
	SenderIdentity        *string
	EnableTLSVerification *bool
	ContentType           *domain.ContentType
	CustomHeaders         []domain.Pair
	QueryParams           []domain.Pair
	BodyTemplate          *string
	IsActive              *bool
}

func NewChannelService(
	channels repository.ChannelRepository,
	locks lock.Locker,
	logger *zap.Logger,
) (*ChannelService, error) {
	if channels == nil {
		return nil, fmt.Errorf("channel repository is required")
	}
	if locks == nil {
		locks = lock.NewKeyedMutex()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChannelService{
		channels: channels,
		locks:    locks,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (s *ChannelService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *ChannelService) Create(
	ctx context.Context,
	caller domain.Caller,
	config *domain.ChannelConfig,
) (*domain.ChannelConfig, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if config == nil {
		return nil, fmt.Errorf("%w: channel config is required", domain.ErrValidation)
	}

	config.DisplayName = strings.TrimSpace(config.DisplayName)
	config.EndpointURL = strings.TrimSpace(config.EndpointURL)
	config.Scope = strings.TrimSpace(config.Scope)
	config.ApplyDefaults()

	if !caller.CanWrite(config.Scope) {
		return nil, fmt.Errorf("%w: caller may not create channels in scope %q", domain.ErrAccessDenied, config.Scope)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := auth.Validate(config.AuthMethod, config.AuthConfig); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	config.ID = uuid.NewString()
	config.CreatedBy = caller.ID
	config.CreatedAt = now
	config.UpdatedAt = now
	config.LastTestedAt = nil

	if !config.IsActive {
		if err := s.channels.Create(ctx, config); err != nil {
			return nil, err
		}
		return config, nil
	}

	release, err := s.locks.Acquire(ctx, activationKey(config.ChannelType, config.Scope))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize activation: %w", err)
	}
	defer release()

	if err := s.channels.SaveExclusive(ctx, config); err != nil {
		return nil, err
	}

	s.logger.Info("channel created active",
		zap.String("channelId", config.ID),
		zap.String("channelType", config.ChannelType.String()),
		zap.String("scope", config.Scope),
	)
	if s.metrics != nil {
		s.metrics.IncChannelActivation(config.ChannelType.String())
	}

	return config, nil
}

func (s *ChannelService) Update(
	ctx context.Context,
	caller domain.Caller,
	id string,
	patch ChannelPatch,
) (*domain.ChannelConfig, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: channel id is required", domain.ErrValidation)
	}

	existing, err := s.channels.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !caller.CanWrite(existing.Scope) {
		return nil, fmt.Errorf("%w: caller may not alter channels in scope %q", domain.ErrAccessDenied, existing.Scope)
	}

	merged := *existing
	applyPatch(&merged, patch)
	merged.DisplayName = strings.TrimSpace(merged.DisplayName)
	merged.EndpointURL = strings.TrimSpace(merged.EndpointURL)
	merged.UpdatedAt = s.now().UTC()

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if err := auth.Validate(merged.AuthMethod, merged.AuthConfig); err != nil {
		return nil, err
	}

	if !merged.IsActive {
		if err := s.channels.Save(ctx, &merged); err != nil {
			return nil, err
		}
		return &merged, nil
	}

	release, err := s.locks.Acquire(ctx, activationKey(merged.ChannelType, merged.Scope))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize activation: %w", err)
	}
	defer release()

	if err := s.channels.SaveExclusive(ctx, &merged); err != nil {
		return nil, err
	}

	if !existing.IsActive {
		s.logger.Info("channel activated",
			zap.String("channelId", merged.ID),
			zap.String("channelType", merged.ChannelType.String()),
			zap.String("scope", merged.Scope),
		)
		if s.metrics != nil {
			s.metrics.IncChannelActivation(merged.ChannelType.String())
		}
	}

	return &merged, nil
}

// SetActive flips only the active flag; activation deactivates every sibling
// sharing the (channelType, scope) pair inside the same unit of work.
func (s *ChannelService) SetActive(
	ctx context.Context,
	caller domain.Caller,
	id string,
	active bool,
) (*domain.ChannelConfig, error) {
	return s.Update(ctx, caller, id, ChannelPatch{IsActive: &active})
}

func (s *ChannelService) Get(ctx context.Context, caller domain.Caller, id string) (*domain.ChannelConfig, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: channel id is required", domain.ErrValidation)
	}

	config, err := s.channels.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if !caller.CanRead(config.Scope) {
		return nil, fmt.Errorf("%w: caller may not read channels in scope %q", domain.ErrAccessDenied, config.Scope)
	}
	return config, nil
}

func (s *ChannelService) List(
	ctx context.Context,
	caller domain.Caller,
	params repository.ListParams,
) ([]domain.ChannelConfig, int64, error) {
	params.Scopes = caller.VisibleScopes()
	return s.channels.List(ctx, params)
}

func (s *ChannelService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: channel id is required", domain.ErrValidation)
	}

	existing, err := s.channels.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !caller.CanWrite(existing.Scope) {
		return fmt.Errorf("%w: caller may not delete channels in scope %q", domain.ErrAccessDenied, existing.Scope)
	}

	return s.channels.Delete(ctx, existing.ID)
}

func applyPatch(config *domain.ChannelConfig, patch ChannelPatch) {
	if patch.DisplayName != nil {
		config.DisplayName = *patch.DisplayName
	}
	if patch.EndpointURL != nil {
		config.EndpointURL = *patch.EndpointURL
	}
	if patch.Port != nil {
		config.Port = *patch.Port
	}
	if patch.HTTPMethod != nil {
		config.HTTPMethod = *patch.HTTPMethod
	}
	if patch.AuthMethod != nil {
		config.AuthMethod = *patch.AuthMethod
	}
	if patch.AuthConfig != nil {
		config.AuthConfig = patch.AuthConfig
	}
	if patch.SenderName != nil {
		config.SenderName = *patch.SenderName
	}
	if patch.SenderIdentity != nil {
		config.SenderIdentity = *patch.SenderIdentity
	}
	if patch.EnableTLSVerification != nil {
		config.EnableTLSVerification = *patch.EnableTLSVerification
	}
	if patch.ContentType != nil {
		config.ContentType = *patch.ContentType
	}
	if patch.CustomHeaders != nil {
		config.CustomHeaders = patch.CustomHeaders
	}
	if patch.QueryParams != nil {
		config.QueryParams = patch.QueryParams
	}
	if patch.BodyTemplate != nil {
		config.BodyTemplate = *patch.BodyTemplate
	}
	if patch.IsActive != nil {
		config.IsActive = *patch.IsActive
	}
}

func activationKey(channelType domain.ChannelType, scope string) string {
	return fmt.Sprintf("%s/%s", channelType, scope)
}
