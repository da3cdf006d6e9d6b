package domain

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ChannelType represents the kind of outbound notification transport.
type ChannelType string

const (
	ChannelTypeSMS       ChannelType = "sms"
	ChannelTypeEmail     ChannelType = "email"
	ChannelTypeWebhook   ChannelType = "webhook"
	ChannelTypeCustomAPI ChannelType = "custom-api"
	ChannelTypePush      ChannelType = "push-notification"
)

func (c ChannelType) String() string { return string(c) }

func (c ChannelType) IsValid() bool {
	switch c {
	case ChannelTypeSMS, ChannelTypeEmail, ChannelTypeWebhook, ChannelTypeCustomAPI, ChannelTypePush:
		return true
	}
	return false
}

func ParseChannelTypeFromString(s string) (ChannelType, error) {
	ct := ChannelType(strings.ToLower(strings.TrimSpace(s)))
	if !ct.IsValid() {
		return "", fmt.Errorf("%w: invalid channel type %q", ErrValidation, s)
	}
	return ct, nil
}

// HTTPMethod represents the request method used when dispatching.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodPatch  HTTPMethod = "PATCH"
	MethodDelete HTTPMethod = "DELETE"
)

func (m HTTPMethod) String() string { return string(m) }

func (m HTTPMethod) IsValid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

func ParseHTTPMethodFromString(s string) (HTTPMethod, error) {
	m := HTTPMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: invalid http method %q", ErrValidation, s)
	}
	return m, nil
}

// AuthMethod selects the strategy that augments request headers.
type AuthMethod string

const (
	AuthNone   AuthMethod = "none"
	AuthAPIKey AuthMethod = "apikey"
	AuthBearer AuthMethod = "bearer"
	AuthOAuth2 AuthMethod = "oauth2"
	AuthBasic  AuthMethod = "basic"
	AuthJWT    AuthMethod = "jwt"
	AuthHMAC   AuthMethod = "hmac"
)

func (a AuthMethod) String() string { return string(a) }

func (a AuthMethod) IsValid() bool {
	switch a {
	case AuthNone, AuthAPIKey, AuthBearer, AuthOAuth2, AuthBasic, AuthJWT, AuthHMAC:
		return true
	}
	return false
}

func ParseAuthMethodFromString(s string) (AuthMethod, error) {
	a := AuthMethod(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: invalid auth method %q", ErrValidation, s)
	}
	return a, nil
}

// ContentType selects the body encoding of the dispatched request.
type ContentType string

const (
	ContentTypeJSON ContentType = "application/json"
	ContentTypeForm ContentType = "application/x-www-form-urlencoded"
	ContentTypeText ContentType = "text/plain"
	ContentTypeXML  ContentType = "application/xml"
)

func (c ContentType) String() string { return string(c) }

func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypeJSON, ContentTypeForm, ContentTypeText, ContentTypeXML:
		return true
	}
	return false
}

func ParseContentTypeFromString(s string) (ContentType, error) {
	ct := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !ct.IsValid() {
		return "", fmt.Errorf("%w: invalid content type %q", ErrValidation, s)
	}
	return ct, nil
}

// ScopeGlobal marks a channel visible to every organizational unit.
const ScopeGlobal = "global"

// Pair is an ordered key/value entry for custom headers and query params.
type Pair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Port boundaries for the channel endpoint.
const (
	MinPort     = 1
	MaxPort     = 65535
	DefaultPort = 443
)

// ChannelConfig is one configured notification endpoint.
type ChannelConfig struct {
	ID                    string
	ChannelType           ChannelType
	DisplayName           string
	EndpointURL           string
	Port                  int
	HTTPMethod            HTTPMethod
	AuthMethod            AuthMethod
	AuthConfig            map[string]string
	SenderName            string
	SenderIdentity        string
	EnableTLSVerification bool
	ContentType           ContentType
	CustomHeaders         []Pair
	QueryParams           []Pair
	BodyTemplate          string
	IsActive              bool
	Scope                 string
	CreatedBy             string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	LastTestedAt          *time.Time
}

// ApplyDefaults fills the zero-valued optional fields before validation.
func (c *ChannelConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.HTTPMethod == "" {
		c.HTTPMethod = MethodPost
	}
	if c.AuthMethod == "" {
		c.AuthMethod = AuthNone
	}
	if c.ContentType == "" {
		c.ContentType = ContentTypeJSON
	}
	if strings.TrimSpace(c.Scope) == "" {
		c.Scope = ScopeGlobal
	}
}

func (c *ChannelConfig) Validate() error {
	if strings.TrimSpace(c.DisplayName) == "" {
		return fmt.Errorf("%w: display name is required", ErrValidation)
	}
	if !c.ChannelType.IsValid() {
		return fmt.Errorf("%w: invalid channel type %q", ErrValidation, c.ChannelType)
	}
	if err := validateEndpointURL(c.EndpointURL); err != nil {
		return err
	}
	if c.Port < MinPort || c.Port > MaxPort {
		return fmt.Errorf("%w: port must be between %d and %d (got %d)", ErrValidation, MinPort, MaxPort, c.Port)
	}
	if !c.HTTPMethod.IsValid() {
		return fmt.Errorf("%w: invalid http method %q", ErrValidation, c.HTTPMethod)
	}
	if !c.AuthMethod.IsValid() {
		return fmt.Errorf("%w: invalid auth method %q", ErrValidation, c.AuthMethod)
	}
	if !c.ContentType.IsValid() {
		return fmt.Errorf("%w: invalid content type %q", ErrValidation, c.ContentType)
	}
	if strings.TrimSpace(c.Scope) == "" {
		return fmt.Errorf("%w: scope is required", ErrValidation)
	}
	return nil
}

func validateEndpointURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("%w: endpoint url is required", ErrValidation)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("%w: invalid endpoint url: %v", ErrValidation, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("%w: endpoint url must be absolute", ErrValidation)
	}
	return nil
}
