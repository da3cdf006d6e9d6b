package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clinicore/notify-engine/internal/dispatch"
	"github.com/clinicore/notify-engine/internal/domain"
	"github.com/clinicore/notify-engine/internal/repository"
	"github.com/clinicore/notify-engine/internal/service"
	"github.com/clinicore/notify-engine/internal/transport"
)

type fakeChannelService struct {
	lastCaller     domain.Caller
	lastPatch      service.ChannelPatch
	lastListParams repository.ListParams
	lastActive     *bool

	channel *domain.ChannelConfig
	list    []domain.ChannelConfig
	total   int64
	err     error
}

func (f *fakeChannelService) Create(_ context.Context, caller domain.Caller, config *domain.ChannelConfig) (*domain.ChannelConfig, error) {
	f.lastCaller = caller
	if f.err != nil {
		return nil, f.err
	}
	out := *config
	out.ID = "chan-1"
	out.CreatedAt = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	out.UpdatedAt = out.CreatedAt
	return &out, nil
}

func (f *fakeChannelService) Update(_ context.Context, caller domain.Caller, id string, patch service.ChannelPatch) (*domain.ChannelConfig, error) {
	f.lastCaller = caller
	f.lastPatch = patch
	if f.err != nil {
		return nil, f.err
	}
	return f.channel, nil
}

func (f *fakeChannelService) SetActive(_ context.Context, caller domain.Caller, id string, active bool) (*domain.ChannelConfig, error) {
	f.lastCaller = caller
	f.lastActive = &active
	if f.err != nil {
		return nil, f.err
	}
	return f.channel, nil
}

func (f *fakeChannelService) Get(_ context.Context, caller domain.Caller, id string) (*domain.ChannelConfig, error) {
	f.lastCaller = caller
	if f.err != nil {
		return nil, f.err
	}
	return f.channel, nil
}

func (f *fakeChannelService) List(_ context.Context, caller domain.Caller, params repository.ListParams) ([]domain.ChannelConfig, int64, error) {
	f.lastCaller = caller
	f.lastListParams = params
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.list, f.total, nil
}

func (f *fakeChannelService) Delete(_ context.Context, caller domain.Caller, id string) error {
	f.lastCaller = caller
	return f.err
}

type fakeDispatchService struct {
	lastRecipient string
	lastMessage   string
	lastVariables map[string]string
	result        dispatch.Result
	err           error
}

func (f *fakeDispatchService) SendTest(_ context.Context, _ domain.Caller, _ string, recipient, message string, extra map[string]string) (dispatch.Result, error) {
	f.lastRecipient = recipient
	f.lastMessage = message
	f.lastVariables = extra
	return f.result, f.err
}

func newTestApp(t *testing.T, channels ChannelService, dispatches DispatchService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
	if err := RegisterChannelRoutes(app, channels, dispatches); err != nil {
		t.Fatalf("RegisterChannelRoutes() error = %v", err)
	}
	return app
}

func sampleChannel() *domain.ChannelConfig {
	return &domain.ChannelConfig{
		ID:          "chan-1",
		ChannelType: domain.ChannelTypeWebhook,
		DisplayName: "Ops Webhook",
		EndpointURL: "https://hooks.example.com/notify",
		Port:        443,
		HTTPMethod:  domain.MethodPost,
		AuthMethod:  domain.AuthNone,
		ContentType: domain.ContentTypeJSON,
		Scope:       "clinic-1",
		IsActive:    true,
	}
}

func jsonRequest(method, target string, payload any) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Caller-Id", "user-1")
	req.Header.Set("X-Caller-Scope", "clinic-1")
	return req
}

func TestCreateChannelEndpoint(t *testing.T) {
	t.Parallel()

	channels := &fakeChannelService{}
	app := newTestApp(t, channels, &fakeDispatchService{})

	req := jsonRequest("POST", "/v1/channels", map[string]any{
		"channelType": "webhook",
		"displayName": "Ops Webhook",
		"endpointUrl": "https://hooks.example.com/notify",
		"isActive":    true,
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	var got channelResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != "chan-1" {
		t.Errorf("id = %q, want chan-1", got.ID)
	}
	if got.ChannelType != "webhook" {
		t.Errorf("channelType = %q, want webhook", got.ChannelType)
	}

	if channels.lastCaller.ID != "user-1" || channels.lastCaller.Scope != "clinic-1" {
		t.Errorf("caller = %+v, want user-1/clinic-1", channels.lastCaller)
	}
	if channels.lastCaller.Admin {
		t.Error("caller without admin role must not be admin")
	}
}

func TestCreateChannelEndpointAdminRole(t *testing.T) {
	t.Parallel()

	channels := &fakeChannelService{}
	app := newTestApp(t, channels, &fakeDispatchService{})

	req := jsonRequest("POST", "/v1/channels", map[string]any{
		"channelType": "webhook",
		"displayName": "Ops Webhook",
		"endpointUrl": "https://hooks.example.com/notify",
	})
	req.Header.Set("X-Caller-Role", "Admin")

	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if !channels.lastCaller.Admin {
		t.Error("expected admin role header to mark caller as admin")
	}
}

func TestCreateChannelEndpointInvalidType(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &fakeChannelService{}, &fakeDispatchService{})

	req := jsonRequest("POST", "/v1/channels", map[string]any{
		"channelType": "carrier-pigeon",
		"displayName": "Nope",
		"endpointUrl": "https://example.com",
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["kind"] != "validation" {
		t.Errorf("kind = %q, want validation", body["kind"])
	}
}

func TestGetChannelEndpointNotFound(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &fakeChannelService{err: domain.ErrNotFound}, &fakeDispatchService{})

	resp, err := app.Test(jsonRequest("GET", "/v1/channels/missing", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetChannelEndpointAccessDenied(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &fakeChannelService{err: fmt.Errorf("%w: nope", domain.ErrAccessDenied)}, &fakeDispatchService{})

	resp, err := app.Test(jsonRequest("GET", "/v1/channels/chan-1", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestListChannelsEndpoint(t *testing.T) {
	t.Parallel()

	channels := &fakeChannelService{
		list:  []domain.ChannelConfig{*sampleChannel()},
		total: 7,
	}
	app := newTestApp(t, channels, &fakeDispatchService{})

	resp, err := app.Test(jsonRequest("GET", "/v1/channels?page=2&pageSize=5&channelType=webhook&isActive=true", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got listChannelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Meta.Page != 2 || got.Meta.PageSize != 5 || got.Meta.Total != 7 {
		t.Errorf("meta = %+v, want page 2 size 5 total 7", got.Meta)
	}
	if len(got.Data) != 1 || got.Data[0].ID != "chan-1" {
		t.Errorf("data = %+v, want single chan-1", got.Data)
	}

	params := channels.lastListParams
	if params.ChannelType == nil || *params.ChannelType != domain.ChannelTypeWebhook {
		t.Errorf("ChannelType filter = %v, want webhook", params.ChannelType)
	}
	if params.IsActive == nil || !*params.IsActive {
		t.Errorf("IsActive filter = %v, want true", params.IsActive)
	}
}

func TestListChannelsEndpointRejectsBadFilters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
	}{
		{name: "bad isActive", target: "/v1/channels?isActive=maybe"},
		{name: "bad channelType", target: "/v1/channels?channelType=fax"},
		{name: "zero page", target: "/v1/channels?page=0"},
		{name: "oversized pageSize", target: "/v1/channels?pageSize=500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newTestApp(t, &fakeChannelService{}, &fakeDispatchService{})
			resp, err := app.Test(jsonRequest("GET", tt.target, nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestActivateAndDeactivateEndpoints(t *testing.T) {
	t.Parallel()

	channels := &fakeChannelService{channel: sampleChannel()}
	app := newTestApp(t, channels, &fakeDispatchService{})

	resp, err := app.Test(jsonRequest("POST", "/v1/channels/chan-1/activate", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("activate status = %d, want 200", resp.StatusCode)
	}
	if channels.lastActive == nil || !*channels.lastActive {
		t.Error("expected SetActive(true)")
	}

	if _, err := app.Test(jsonRequest("POST", "/v1/channels/chan-1/deactivate", nil)); err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if channels.lastActive == nil || *channels.lastActive {
		t.Error("expected SetActive(false)")
	}
}

func TestDeleteChannelEndpoint(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &fakeChannelService{}, &fakeDispatchService{})

	resp, err := app.Test(jsonRequest("DELETE", "/v1/channels/chan-1", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
}

func TestUpdateChannelEndpointBuildsPatch(t *testing.T) {
	t.Parallel()

	channels := &fakeChannelService{channel: sampleChannel()}
	app := newTestApp(t, channels, &fakeDispatchService{})

	req := jsonRequest("PATCH", "/v1/channels/chan-1", map[string]any{
		"displayName": "Renamed",
		"authMethod":  "bearer",
		"authConfig":  map[string]string{"accessToken": "tok"},
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	patch := channels.lastPatch
	if patch.DisplayName == nil || *patch.DisplayName != "Renamed" {
		t.Errorf("DisplayName patch = %v, want Renamed", patch.DisplayName)
	}
	if patch.AuthMethod == nil || *patch.AuthMethod != domain.AuthBearer {
		t.Errorf("AuthMethod patch = %v, want bearer", patch.AuthMethod)
	}
	if patch.EndpointURL != nil {
		t.Error("EndpointURL patch should be nil when omitted")
	}
}

func TestTestChannelEndpoint(t *testing.T) {
	t.Parallel()

	dispatches := &fakeDispatchService{
		result: dispatch.Result{Success: false, Kind: dispatch.KindHTTPStatus, StatusCode: 502, Body: "bad gateway"},
	}
	app := newTestApp(t, &fakeChannelService{}, dispatches)

	req := jsonRequest("POST", "/v1/channels/chan-1/test", map[string]any{
		"recipient": "ops@example.com",
		"message":   "ping",
		"variables": map[string]string{"patientName": "Kim"},
	})
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got testChannelResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Success {
		t.Error("expected failure result to pass through")
	}
	if got.Kind != dispatch.KindHTTPStatus || got.StatusCode != 502 {
		t.Errorf("result = %+v, want http_status 502", got)
	}

	if dispatches.lastRecipient != "ops@example.com" || dispatches.lastMessage != "ping" {
		t.Errorf("dispatch args = %q/%q", dispatches.lastRecipient, dispatches.lastMessage)
	}
	if dispatches.lastVariables["patientName"] != "Kim" {
		t.Errorf("variables = %v, want patientName Kim", dispatches.lastVariables)
	}
}
