package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinicore/notify-engine/internal/dispatch"
	"github.com/clinicore/notify-engine/internal/domain"
	"github.com/clinicore/notify-engine/internal/observability"
	"github.com/clinicore/notify-engine/internal/repository"
	"github.com/clinicore/notify-engine/internal/request"
)

// RequestDispatcher executes one composed request.
type RequestDispatcher interface {
	Send(ctx context.Context, spec *request.Spec) (dispatch.Result, error)
}

// DispatchService is the composite test-send entry point: resolve the channel,
// validate the recipient, build the request, dispatch it, and stamp
// lastTestedAt on success.
type DispatchService struct {
	channels   repository.ChannelRepository
	dispatcher RequestDispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewDispatchService(
	channels repository.ChannelRepository,
	dispatcher RequestDispatcher,
	logger *zap.Logger,
) (*DispatchService, error) {
	if channels == nil {
		return nil, fmt.Errorf("channel repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchService{
		channels:   channels,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *DispatchService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *DispatchService) SendTest(
	ctx context.Context,
	caller domain.Caller,
	channelID string,
	recipient string,
	message string,
	extra map[string]string,
) (dispatch.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(channelID) == "" {
		return dispatch.Result{}, fmt.Errorf("%w: channel id is required", domain.ErrValidation)
	}

	config, err := s.channels.GetByID(ctx, strings.TrimSpace(channelID))
	if err != nil {
		return dispatch.Result{}, err
	}
	if !caller.CanRead(config.Scope) {
		return dispatch.Result{}, fmt.Errorf("%w: caller may not test channels in scope %q", domain.ErrAccessDenied, config.Scope)
	}

	if err := domain.ValidateRecipient(config.ChannelType, recipient); err != nil {
		return dispatch.Result{}, err
	}

	correlationID, hasCorrelation := observability.CorrelationIDFromContext(ctx)
	if !hasCorrelation {
		correlationID = uuid.NewString()
	}
	variables := buildVariables(recipient, message, correlationID, extra)

	spec, err := request.Build(config, variables)
	if err != nil {
		return dispatch.Result{}, err
	}

	channelName := config.ChannelType.String()
	sendStart := s.now()
	result, err := s.dispatcher.Send(ctx, spec)
	if s.metrics != nil {
		s.metrics.ObserveDispatchDuration(channelName, s.now().Sub(sendStart))
		s.metrics.IncDispatch(channelName, dispatchOutcome(result))
	}
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("dispatch failed: %w", err)
	}

	logger := observability.WithContextLogger(s.logger, ctx)
	if !result.Success {
		logger.Warn("test dispatch failed",
			zap.String("channelId", config.ID),
			zap.String("channelType", channelName),
			zap.String("kind", result.Kind),
			zap.Int("statusCode", result.StatusCode),
		)
		return result, nil
	}

	if err := s.channels.TouchLastTested(ctx, config.ID, s.now().UTC()); err != nil {
		return result, fmt.Errorf("failed to record test timestamp: %w", err)
	}

	logger.Info("test dispatch succeeded",
		zap.String("channelId", config.ID),
		zap.String("channelType", channelName),
		zap.Int("statusCode", result.StatusCode),
	)

	return result, nil
}

// buildVariables merges caller-supplied context fields under the reserved
// keys: recipient, message, and correlationId always win.
func buildVariables(recipient, message, correlationID string, extra map[string]string) map[string]string {
	variables := make(map[string]string, len(extra)+3)
	for key, value := range extra {
		variables[key] = value
	}
	variables["recipient"] = recipient
	variables["message"] = message
	variables["correlationId"] = correlationID
	return variables
}

func dispatchOutcome(result dispatch.Result) string {
	if result.Success {
		return "success"
	}
	if result.Kind == "" {
		return "unknown"
	}
	return result.Kind
}
