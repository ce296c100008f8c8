package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

// DefaultTimeout bounds vendor calls made without a context deadline.
const DefaultTimeout = 30 * time.Second

// Request is a single vendor HTTP call.
type Request struct {
	Method   string
	URL      string
	Username string
	Password string
	Headers  map[string]string
	Body     []byte
}

// HTTPError is returned for vendor responses outside the 2xx range that the
// caller asked to treat as failures.
type HTTPError struct {
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("vendor responded with status %d", e.Status)
}

// Transport sends vendor requests through fiber's HTTP client.
type Transport struct {
	client  *fiber.Client
	timeout time.Duration
}

func NewTransport(userAgent string, timeout time.Duration) *Transport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Transport{
		client: &fiber.Client{
			UserAgent:   userAgent,
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		},
		timeout: timeout,
	}
}

// Do sends req and returns the status code and body. Non-2xx responses are
// not errors here; each vendor client decides what they mean.
func (t *Transport) Do(ctx context.Context, req Request) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	var a *fiber.Agent
	switch req.Method {
	case fiber.MethodGet:
		a = t.client.Get(req.URL)
	case fiber.MethodPost:
		a = t.client.Post(req.URL)
	case fiber.MethodPut:
		a = t.client.Put(req.URL)
	case fiber.MethodDelete:
		a = t.client.Delete(req.URL)
	default:
		return 0, nil, fmt.Errorf("unsupported method %s", req.Method)
	}

	if req.Username != "" || req.Password != "" {
		a.BasicAuth(req.Username, req.Password)
	}
	for k, v := range req.Headers {
		a.Set(k, v)
	}
	if req.Body != nil {
		a.Body(req.Body)
	}

	timeout := t.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	a.Timeout(timeout)

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return code, body, errors.Join(errs...)
	}
	return code, body, nil
}
