package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/clinicore/notify-engine/internal/dispatch"
	"github.com/clinicore/notify-engine/internal/domain"
	"github.com/clinicore/notify-engine/internal/repository"
	"github.com/clinicore/notify-engine/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

// Caller identity headers, populated by the upstream gateway after
// authentication.
const (
	headerCallerID    = "X-Caller-Id"
	headerCallerScope = "X-Caller-Scope"
	headerCallerRole  = "X-Caller-Role"
)

type ChannelService interface {
	Create(ctx context.Context, caller domain.Caller, config *domain.ChannelConfig) (*domain.ChannelConfig, error)
	Update(ctx context.Context, caller domain.Caller, id string, patch service.ChannelPatch) (*domain.ChannelConfig, error)
	SetActive(ctx context.Context, caller domain.Caller, id string, active bool) (*domain.ChannelConfig, error)
	Get(ctx context.Context, caller domain.Caller, id string) (*domain.ChannelConfig, error)
	List(ctx context.Context, caller domain.Caller, params repository.ListParams) ([]domain.ChannelConfig, int64, error)
	Delete(ctx context.Context, caller domain.Caller, id string) error
}

type DispatchService interface {
	SendTest(ctx context.Context, caller domain.Caller, channelID, recipient, message string, extra map[string]string) (dispatch.Result, error)
}

type ChannelHandler struct {
	channels   ChannelService
	dispatches DispatchService
}

func NewChannelHandler(channels ChannelService, dispatches DispatchService) (*ChannelHandler, error) {
	if channels == nil {
		return nil, fmt.Errorf("channel service is required")
	}
	if dispatches == nil {
		return nil, fmt.Errorf("dispatch service is required")
	}
	return &ChannelHandler{channels: channels, dispatches: dispatches}, nil
}

func RegisterChannelRoutes(router fiber.Router, channels ChannelService, dispatches DispatchService) error {
	h, err := NewChannelHandler(channels, dispatches)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/channels", h.CreateChannel)
	v1.Get("/channels", h.ListChannels)
	v1.Get("/channels/:id", h.GetChannel)
	v1.Patch("/channels/:id", h.UpdateChannel)
	v1.Post("/channels/:id/activate", h.ActivateChannel)
	v1.Post("/channels/:id/deactivate", h.DeactivateChannel)
	v1.Delete("/channels/:id", h.DeleteChannel)
	v1.Post("/channels/:id/test", h.TestChannel)

	return nil
}

type pairItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type createChannelRequest struct {
	ChannelType           string            `json:"channelType"`
	DisplayName           string            `json:"displayName"`
	EndpointURL           string            `json:"endpointUrl"`
	Port                  *int              `json:"port,omitempty"`
	HTTPMethod            *string           `json:"httpMethod,omitempty"`
	AuthMethod            *string           `json:"authMethod,omitempty"`
	AuthConfig            map[string]string `json:"authConfig,omitempty"`
	SenderName            string            `json:"senderName,omitempty"`
	SenderIdentity        string            `json:"senderIdentity,omitempty"`
	EnableTLSVerification *bool             `json:"enableTlsVerification,omitempty"`
	ContentType           *string           `json:"contentType,omitempty"`
	CustomHeaders         []pairItem        `json:"customHeaders,omitempty"`
	QueryParams           []pairItem        `json:"queryParams,omitempty"`
	BodyTemplate          string            `json:"bodyTemplate,omitempty"`
	IsActive              bool              `json:"isActive,omitempty"`
	Scope                 string            `json:"scope,omitempty"`
}

type updateChannelRequest struct {
	DisplayName           *string           `json:"displayName,omitempty"`
	EndpointURL           *string           `json:"endpointUrl,omitempty"`
	Port                  *int              `json:"port,omitempty"`
	HTTPMethod            *string           `json:"httpMethod,omitempty"`
	AuthMethod            *string           `json:"authMethod,omitempty"`
	AuthConfig            map[string]string `json:"authConfig,omitempty"`
	SenderName            *string           `json:"senderName,omitempty"`
	SenderIdentity        *string           `json:"senderIdentity,omitempty"`
	EnableTLSVerification *bool             `json:"enableTlsVerification,omitempty"`
	ContentType           *string           `json:"contentType,omitempty"`
	CustomHeaders         []pairItem        `json:"customHeaders,omitempty"`
	QueryParams           []pairItem        `json:"queryParams,omitempty"`
	BodyTemplate          *string           `json:"bodyTemplate,omitempty"`
	IsActive              *bool             `json:"isActive,omitempty"`
}

type testChannelRequest struct {
	Recipient string            `json:"recipient"`
	Message   string            `json:"message"`
	Variables map[string]string `json:"variables,omitempty"`
}

type channelResponse struct {
	ID                    string            `json:"id"`
	ChannelType           string            `json:"channelType"`
	DisplayName           string            `json:"displayName"`
	EndpointURL           string            `json:"endpointUrl"`
	Port                  int               `json:"port"`
	HTTPMethod            string            `json:"httpMethod"`
	AuthMethod            string            `json:"authMethod"`
	AuthConfig            map[string]string `json:"authConfig,omitempty"`
	SenderName            string            `json:"senderName,omitempty"`
	SenderIdentity        string            `json:"senderIdentity,omitempty"`
	EnableTLSVerification bool              `json:"enableTlsVerification"`
	ContentType           string            `json:"contentType"`
	CustomHeaders         []pairItem        `json:"customHeaders,omitempty"`
	QueryParams           []pairItem        `json:"queryParams,omitempty"`
	BodyTemplate          string            `json:"bodyTemplate,omitempty"`
	IsActive              bool              `json:"isActive"`
	Scope                 string            `json:"scope"`
	CreatedBy             string            `json:"createdBy,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
	LastTestedAt          *time.Time        `json:"lastTestedAt,omitempty"`
}

type listChannelsResponse struct {
	Data []channelResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type testChannelResponse struct {
	Success    bool   `json:"success"`
	Kind       string `json:"kind,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Body       string `json:"body,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func (h *ChannelHandler) CreateChannel(c *fiber.Ctx) error {
	var req createChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	config, err := requestToDomainChannel(req)
	if err != nil {
		return err
	}

	created, err := h.channels.Create(c.Context(), callerFromRequest(c), config)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toChannelResponse(created))
}

func (h *ChannelHandler) GetChannel(c *fiber.Ctx) error {
	config, err := h.channels.Get(c.Context(), callerFromRequest(c), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toChannelResponse(config))
}

func (h *ChannelHandler) UpdateChannel(c *fiber.Ctx) error {
	var req updateChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	patch, err := requestToPatch(req)
	if err != nil {
		return err
	}

	updated, err := h.channels.Update(c.Context(), callerFromRequest(c), strings.TrimSpace(c.Params("id")), patch)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toChannelResponse(updated))
}

func (h *ChannelHandler) ActivateChannel(c *fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *ChannelHandler) DeactivateChannel(c *fiber.Ctx) error {
	return h.setActive(c, false)
}

func (h *ChannelHandler) setActive(c *fiber.Ctx, active bool) error {
	updated, err := h.channels.SetActive(c.Context(), callerFromRequest(c), strings.TrimSpace(c.Params("id")), active)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toChannelResponse(updated))
}

func (h *ChannelHandler) DeleteChannel(c *fiber.Ctx) error {
	if err := h.channels.Delete(c.Context(), callerFromRequest(c), strings.TrimSpace(c.Params("id"))); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ChannelHandler) ListChannels(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return err
	}

	channels, total, err := h.channels.List(c.Context(), callerFromRequest(c), params)
	if err != nil {
		return err
	}

	data := make([]channelResponse, 0, len(channels))
	for i := range channels {
		data = append(data, toChannelResponse(&channels[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listChannelsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *ChannelHandler) TestChannel(c *fiber.Ctx) error {
	var req testChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.dispatches.SendTest(
		c.Context(),
		callerFromRequest(c),
		strings.TrimSpace(c.Params("id")),
		req.Recipient,
		req.Message,
		req.Variables,
	)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(testChannelResponse{
		Success:    result.Success,
		Kind:       result.Kind,
		StatusCode: result.StatusCode,
		Body:       result.Body,
		Detail:     result.Detail,
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Search:   strings.TrimSpace(c.Query("search")),
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawType := strings.TrimSpace(c.Query("channelType")); rawType != "" {
		channelType, err := domain.ParseChannelTypeFromString(rawType)
		if err != nil {
			return repository.ListParams{}, err
		}
		params.ChannelType = &channelType
	}

	if rawActive := strings.TrimSpace(c.Query("isActive")); rawActive != "" {
		switch strings.ToLower(rawActive) {
		case "true":
			active := true
			params.IsActive = &active
		case "false":
			active := false
			params.IsActive = &active
		default:
			return repository.ListParams{}, fmt.Errorf("%w: isActive must be true or false", domain.ErrValidation)
		}
	}

	return params, nil
}

func requestToDomainChannel(req createChannelRequest) (*domain.ChannelConfig, error) {
	channelType, err := domain.ParseChannelTypeFromString(req.ChannelType)
	if err != nil {
		return nil, err
	}

	config := &domain.ChannelConfig{
		ChannelType:           channelType,
		DisplayName:           req.DisplayName,
		EndpointURL:           req.EndpointURL,
		AuthConfig:            req.AuthConfig,
		SenderName:            req.SenderName,
		SenderIdentity:        req.SenderIdentity,
		EnableTLSVerification: true,
		CustomHeaders:         toPairs(req.CustomHeaders),
		QueryParams:           toPairs(req.QueryParams),
		BodyTemplate:          req.BodyTemplate,
		IsActive:              req.IsActive,
		Scope:                 req.Scope,
	}

	if req.Port != nil {
		config.Port = *req.Port
	}
	if req.EnableTLSVerification != nil {
		config.EnableTLSVerification = *req.EnableTLSVerification
	}
	if req.HTTPMethod != nil {
		method, err := domain.ParseHTTPMethodFromString(*req.HTTPMethod)
		if err != nil {
			return nil, err
		}
		config.HTTPMethod = method
	}
	if req.AuthMethod != nil {
		authMethod, err := domain.ParseAuthMethodFromString(*req.AuthMethod)
		if err != nil {
			return nil, err
		}
		config.AuthMethod = authMethod
	}
	if req.ContentType != nil {
		contentType, err := domain.ParseContentTypeFromString(*req.ContentType)
		if err != nil {
			return nil, err
		}
		config.ContentType = contentType
	}

	return config, nil
}

func requestToPatch(req updateChannelRequest) (service.ChannelPatch, error) {
	patch := service.ChannelPatch{
		DisplayName:           req.DisplayName,
		EndpointURL:           req.EndpointURL,
		Port:                  req.Port,
		AuthConfig:            req.AuthConfig,
		SenderName:            req.SenderName,
		SenderIdentity:        req.SenderIdentity,
		EnableTLSVerification: req.EnableTLSVerification,
		BodyTemplate:          req.BodyTemplate,
		IsActive:              req.IsActive,
	}

	if req.HTTPMethod != nil {
		method, err := domain.ParseHTTPMethodFromString(*req.HTTPMethod)
		if err != nil {
			return service.ChannelPatch{}, err
		}
		patch.HTTPMethod = &method
	}
	if req.AuthMethod != nil {
		authMethod, err := domain.ParseAuthMethodFromString(*req.AuthMethod)
		if err != nil {
			return service.ChannelPatch{}, err
		}
		patch.AuthMethod = &authMethod
	}
	if req.ContentType != nil {
		contentType, err := domain.ParseContentTypeFromString(*req.ContentType)
		if err != nil {
			return service.ChannelPatch{}, err
		}
		patch.ContentType = &contentType
	}
	if req.CustomHeaders != nil {
		patch.CustomHeaders = toPairs(req.CustomHeaders)
	}
	if req.QueryParams != nil {
		patch.QueryParams = toPairs(req.QueryParams)
	}

	return patch, nil
}

func callerFromRequest(c *fiber.Ctx) domain.Caller {
	return domain.Caller{
		ID:    strings.TrimSpace(c.Get(headerCallerID)),
		Scope: strings.TrimSpace(c.Get(headerCallerScope)),
		Admin: strings.EqualFold(strings.TrimSpace(c.Get(headerCallerRole)), "admin"),
	}
}

func toPairs(items []pairItem) []domain.Pair {
	if items == nil {
		return nil
	}
	pairs := make([]domain.Pair, 0, len(items))
	for _, item := range items {
		pairs = append(pairs, domain.Pair{Key: item.Key, Value: item.Value})
	}
	return pairs
}

func toChannelResponse(config *domain.ChannelConfig) channelResponse {
	if config == nil {
		return channelResponse{}
	}

	return channelResponse{
		ID:                    config.ID,
		ChannelType:           config.ChannelType.String(),
		DisplayName:           config.DisplayName,
		EndpointURL:           config.EndpointURL,
		Port:                  config.Port,
		HTTPMethod:            config.HTTPMethod.String(),
		AuthMethod:            config.AuthMethod.String(),
		AuthConfig:            config.AuthConfig,
		SenderName:            config.SenderName,
		SenderIdentity:        config.SenderIdentity,
		EnableTLSVerification: config.EnableTLSVerification,
		ContentType:           config.ContentType.String(),
		CustomHeaders:         fromPairs(config.CustomHeaders),
		QueryParams:           fromPairs(config.QueryParams),
		BodyTemplate:          config.BodyTemplate,
		IsActive:              config.IsActive,
		Scope:                 config.Scope,
		CreatedBy:             config.CreatedBy,
		CreatedAt:             config.CreatedAt,
		UpdatedAt:             config.UpdatedAt,
		LastTestedAt:          config.LastTestedAt,
	}
}

func fromPairs(pairs []domain.Pair) []pairItem {
	if pairs == nil {
		return nil
	}
	items := make([]pairItem, 0, len(pairs))
	for _, pair := range pairs {
		items = append(items, pairItem{Key: pair.Key, Value: pair.Value})
	}
	return items
}
