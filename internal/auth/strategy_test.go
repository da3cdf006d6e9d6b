package auth

import (
	"errors"
	"reflect"
	"testing"

	"github.com/clinicore/notify-engine/internal/domain"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		method  domain.AuthMethod
		config  map[string]string
		want    []domain.Pair
		wantErr bool
	}{
		{
			name:   "none yields no headers",
			method: domain.AuthNone,
		},
		{
			name:   "apikey default header name",
			method: domain.AuthAPIKey,
			config: map[string]string{"apiKey": "secret-1"},
			want:   []domain.Pair{{Key: "Authorization", Value: "secret-1"}},
		},
		{
			name:   "apikey custom header name",
			method: domain.AuthAPIKey,
			config: map[string]string{"apiKey": "secret-1", "headerParamName": "X-Api-Key"},
			want:   []domain.Pair{{Key: "X-Api-Key", Value: "secret-1"}},
		},
		{
			name:    "apikey missing key",
			method:  domain.AuthAPIKey,
			config:  map[string]string{"headerParamName": "X-Api-Key"},
			wantErr: true,
		},
		{
			name:   "basic encodes credentials",
			method: domain.AuthBasic,
			config: map[string]string{"username": "svc", "password": "p4ss"},
			want:   []domain.Pair{{Key: "Authorization", Value: "Basic c3ZjOnA0c3M="}},
		},
		{
			name:    "basic missing password",
			method:  domain.AuthBasic,
			config:  map[string]string{"username": "svc"},
			wantErr: true,
		},
		{
			name:   "bearer default token type",
			method: domain.AuthBearer,
			config: map[string]string{"accessToken": "T"},
			want:   []domain.Pair{{Key: "Authorization", Value: "Bearer T"}},
		},
		{
			name:   "bearer custom token type",
			method: domain.AuthBearer,
			config: map[string]string{"accessToken": "T", "tokenType": "Token"},
			want:   []domain.Pair{{Key: "Authorization", Value: "Token T"}},
		},
		{
			name:    "bearer missing token",
			method:  domain.AuthBearer,
			config:  map[string]string{},
			wantErr: true,
		},
		{
			name:   "oauth2 behaves like bearer",
			method: domain.AuthOAuth2,
			config: map[string]string{"accessToken": "O2"},
			want:   []domain.Pair{{Key: "Authorization", Value: "Bearer O2"}},
		},
		{
			name:   "jwt wraps token as bearer",
			method: domain.AuthJWT,
			config: map[string]string{"jwtToken": "eyJ.x.y"},
			want:   []domain.Pair{{Key: "Authorization", Value: "Bearer eyJ.x.y"}},
		},
		{
			name:    "jwt missing token",
			method:  domain.AuthJWT,
			config:  map[string]string{},
			wantErr: true,
		},
		{
			name:   "hmac reserved slot accepts config",
			method: domain.AuthHMAC,
			config: map[string]string{"secret": "s"},
		},
		{
			name:    "unknown method",
			method:  domain.AuthMethod("kerberos"),
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Resolve(tc.method, tc.config)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("error should wrap ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Resolve() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	t.Parallel()

	config := map[string]string{"username": "svc", "password": "p4ss"}

	first, err := Resolve(domain.AuthBasic, config)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := Resolve(domain.AuthBasic, config)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Resolve() not deterministic: %v vs %v", first, second)
	}
}

func TestValidateFailsFastOnMissingKeys(t *testing.T) {
	t.Parallel()

	if err := Validate(domain.AuthBasic, map[string]string{"username": "svc"}); err == nil {
		t.Fatal("expected validation error for missing password")
	}
	if err := Validate(domain.AuthNone, nil); err != nil {
		t.Fatalf("Validate(none) error = %v", err)
	}
}
