// Package request composes the outbound HTTP request for a channel config.
package request

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/clinicore/notify-engine/internal/auth"
	"github.com/clinicore/notify-engine/internal/domain"
	"github.com/clinicore/notify-engine/internal/template"
)

// Spec is a fully composed request, ready for the dispatcher. Port is
// informational: the HTTP client infers the effective port from the URL.
type Spec struct {
	Method    string
	URL       string
	Headers   []domain.Pair
	Body      string
	Port      int
	VerifyTLS bool
}

type defaultBody struct {
	To      string `json:"to"`
	Message string `json:"message"`
	Test    bool   `json:"test"`
}

// Build renders the channel's template against the variable map and assembles
// method, URL, headers, and an encoded body.
func Build(config *domain.ChannelConfig, variables map[string]string) (*Spec, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: channel config is required", domain.ErrValidation)
	}

	headers := []domain.Pair{{Key: "Content-Type", Value: config.ContentType.String()}}

	authHeaders, err := auth.Resolve(config.AuthMethod, config.AuthConfig)
	if err != nil {
		return nil, err
	}
	headers = append(headers, authHeaders...)
	headers = append(headers, config.CustomHeaders...)

	body, err := encodeBody(config, variables)
	if err != nil {
		return nil, err
	}

	endpoint, err := appendQueryParams(config.EndpointURL, config.QueryParams)
	if err != nil {
		return nil, err
	}

	return &Spec{
		Method:    config.HTTPMethod.String(),
		URL:       endpoint,
		Headers:   mergeHeaders(headers),
		Body:      body,
		Port:      config.Port,
		VerifyTLS: config.EnableTLSVerification,
	}, nil
}

// mergeHeaders deduplicates by canonical header key; later entries win, which
// lets custom headers override auth headers and the content type.
func mergeHeaders(headers []domain.Pair) []domain.Pair {
	merged := make([]domain.Pair, 0, len(headers))
	position := make(map[string]int, len(headers))

	for _, header := range headers {
		key := http.CanonicalHeaderKey(strings.TrimSpace(header.Key))
		if key == "" {
			continue
		}
		if idx, seen := position[key]; seen {
			merged[idx].Value = header.Value
			continue
		}
		position[key] = len(merged)
		merged = append(merged, domain.Pair{Key: key, Value: header.Value})
	}

	return merged
}

func encodeBody(config *domain.ChannelConfig, variables map[string]string) (string, error) {
	if strings.TrimSpace(config.BodyTemplate) == "" {
		return synthesizeBody(config.ContentType, variables)
	}

	rendered := template.Render(config.BodyTemplate, variables)

	switch config.ContentType {
	case domain.ContentTypeJSON:
		// Pass through if parseable, otherwise send the raw string: some
		// providers expect literal non-JSON bodies under a JSON content type.
		return rendered, nil
	case domain.ContentTypeForm:
		return reencodeForm(rendered), nil
	default:
		return rendered, nil
	}
}

// reencodeForm canonicalizes a rendered query-string body. Literal plus signs
// are escaped first so they survive the parse (+ would decode as a space).
func reencodeForm(rendered string) string {
	escaped := strings.ReplaceAll(rendered, "+", "%2B")
	values, err := url.ParseQuery(escaped)
	if err != nil {
		return rendered
	}
	return values.Encode()
}

func synthesizeBody(contentType domain.ContentType, variables map[string]string) (string, error) {
	body := defaultBody{
		To:      variables["recipient"],
		Message: variables["message"],
		Test:    true,
	}

	switch contentType {
	case domain.ContentTypeJSON:
		encoded, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to encode default body: %w", err)
		}
		return string(encoded), nil
	case domain.ContentTypeForm:
		values := url.Values{}
		values.Set("to", body.To)
		values.Set("message", body.Message)
		values.Set("test", "true")
		return values.Encode(), nil
	default:
		// text/plain and application/xml get a best-effort flattened string.
		return fmt.Sprintf("to=%s; message=%s; test=true", body.To, body.Message), nil
	}
}

func appendQueryParams(endpoint string, params []domain.Pair) (string, error) {
	if err := validateURL(endpoint); err != nil {
		return "", err
	}
	if len(params) == 0 {
		return endpoint, nil
	}

	parts := make([]string, 0, len(params))
	for _, param := range params {
		key := strings.TrimSpace(param.Key)
		if key == "" {
			continue
		}
		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(param.Value))
	}
	if len(parts) == 0 {
		return endpoint, nil
	}

	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	return endpoint + separator + strings.Join(parts, "&"), nil
}

func validateURL(endpoint string) error {
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return fmt.Errorf("%w: invalid endpoint url: %v", domain.ErrValidation, err)
	}
	if !parsed.IsAbs() || parsed.Host == "" {
		return fmt.Errorf("%w: endpoint url must be absolute", domain.ErrValidation)
	}
	return nil
}
