// Package dispatch executes one composed HTTP request and classifies the outcome.
package dispatch

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/clinicore/notify-engine/internal/request"
)

// DefaultTimeout bounds a single dispatch attempt.
const DefaultTimeout = 30 * time.Second

// Result kinds for failed dispatches. A successful dispatch has an empty kind.
const (
	KindTransport  = "transport"
	KindHTTPStatus = "http_status"
)

// Result is the terminal outcome of one dispatch attempt. There is no retry:
// the engine performs exactly one call per invocation.
type Result struct {
	Success    bool
	Kind       string
	StatusCode int
	Body       string
	Headers    http.Header
	Detail     string
}

// Dispatcher sends composed requests. It holds one client per TLS mode so
// per-channel verification toggles do not rebuild transports.
type Dispatcher struct {
	secure   *resty.Client
	insecure *resty.Client
}

func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	secure := resty.New()
	secure.SetTimeout(timeout)
	secure.SetRetryCount(0)

	insecure := resty.New()
	insecure.SetTimeout(timeout)
	insecure.SetRetryCount(0)
	insecure.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec

	return &Dispatcher{secure: secure, insecure: insecure}
}

// Send executes the request and classifies the result. Transport failures
// (DNS, connect, TLS, timeout) and non-2xx statuses are normal, reportable
// outcomes carried in the Result, not errors.
func (d *Dispatcher) Send(ctx context.Context, spec *request.Spec) (Result, error) {
	if d == nil || d.secure == nil {
		return Result{}, fmt.Errorf("dispatcher is not initialized")
	}
	if spec == nil {
		return Result{}, fmt.Errorf("request spec is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := d.secure
	if !spec.VerifyTLS {
		client = d.insecure
	}

	req := client.R().SetContext(ctx)
	for _, header := range spec.Headers {
		req.SetHeader(header.Key, header.Value)
	}
	if spec.Body != "" {
		req.SetBody(spec.Body)
	}

	response, err := req.Execute(spec.Method, spec.URL)
	if err != nil {
		return Result{
			Success: false,
			Kind:    KindTransport,
			Detail:  err.Error(),
		}, nil
	}
	if response == nil {
		return Result{
			Success: false,
			Kind:    KindTransport,
			Detail:  "empty response from http client",
		}, nil
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return Result{
			Success:    true,
			StatusCode: statusCode,
			Body:       body,
			Headers:    response.Header(),
		}, nil
	}

	return Result{
		Success:    false,
		Kind:       KindHTTPStatus,
		StatusCode: statusCode,
		Body:       body,
		Headers:    response.Header(),
		Detail:     fmt.Sprintf("remote returned status %d", statusCode),
	}, nil
}
