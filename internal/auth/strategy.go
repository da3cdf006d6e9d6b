// Package auth maps a channel's auth method and config onto HTTP headers.
package auth

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/clinicore/notify-engine/internal/domain"
)

// Strategy produces the additional request headers for one auth method.
// Implementations are pure: same config, same headers.
type Strategy interface {
	Headers(config map[string]string) ([]domain.Pair, error)
}

var strategies = map[domain.AuthMethod]Strategy{
	domain.AuthNone:   noneStrategy{},
	domain.AuthAPIKey: apiKeyStrategy{},
	domain.AuthBasic:  basicStrategy{},
	domain.AuthBearer: bearerStrategy{},
	domain.AuthOAuth2: bearerStrategy{},
	domain.AuthJWT:    jwtStrategy{},
	domain.AuthHMAC:   hmacStrategy{},
}

// Resolve returns the headers for the given method and config.
func Resolve(method domain.AuthMethod, config map[string]string) ([]domain.Pair, error) {
	strategy, ok := strategies[method]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported auth method %q", domain.ErrValidation, method)
	}
	return strategy.Headers(config)
}

// Validate dry-runs the strategy so the registry can fail fast at config-save
// time instead of at send time.
func Validate(method domain.AuthMethod, config map[string]string) error {
	_, err := Resolve(method, config)
	return err
}

type noneStrategy struct{}

func (noneStrategy) Headers(map[string]string) ([]domain.Pair, error) {
	return nil, nil
}

type apiKeyStrategy struct{}

func (apiKeyStrategy) Headers(config map[string]string) ([]domain.Pair, error) {
	apiKey, err := requiredKey(config, "apiKey", domain.AuthAPIKey)
	if err != nil {
		return nil, err
	}

	headerName := strings.TrimSpace(config["headerParamName"])
	if headerName == "" {
		headerName = "Authorization"
	}

	return []domain.Pair{{Key: headerName, Value: apiKey}}, nil
}

type basicStrategy struct{}

func (basicStrategy) Headers(config map[string]string) ([]domain.Pair, error) {
	username, err := requiredKey(config, "username", domain.AuthBasic)
	if err != nil {
		return nil, err
	}
	password, err := requiredKey(config, "password", domain.AuthBasic)
	if err != nil {
		return nil, err
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return []domain.Pair{{Key: "Authorization", Value: "Basic " + credentials}}, nil
}

type bearerStrategy struct{}

func (bearerStrategy) Headers(config map[string]string) ([]domain.Pair, error) {
	accessToken, err := requiredKey(config, "accessToken", domain.AuthBearer)
	if err != nil {
		return nil, err
	}

	tokenType := strings.TrimSpace(config["tokenType"])
	if tokenType == "" {
		tokenType = "Bearer"
	}

	return []domain.Pair{{Key: "Authorization", Value: tokenType + " " + accessToken}}, nil
}

type jwtStrategy struct{}

func (jwtStrategy) Headers(config map[string]string) ([]domain.Pair, error) {
	token, err := requiredKey(config, "jwtToken", domain.AuthJWT)
	if err != nil {
		return nil, err
	}
	return []domain.Pair{{Key: "Authorization", Value: "Bearer " + token}}, nil
}

// hmacStrategy is a reserved slot: signature computation over the request body
// is provider-specific and not implemented yet. Configs are accepted so new
// signing schemes can be added without touching the dispatcher.
type hmacStrategy struct{}

func (hmacStrategy) Headers(map[string]string) ([]domain.Pair, error) {
	return nil, nil
}

func requiredKey(config map[string]string, key string, method domain.AuthMethod) (string, error) {
	value := strings.TrimSpace(config[key])
	if value == "" {
		return "", fmt.Errorf("%w: %s auth requires %s", domain.ErrValidation, method, key)
	}
	return value, nil
}
