package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	OK                     int = 200
	BAD_REQUEST            int = 400
	UNAUTHORIZED           int = 401
	FORBIDDEN              int = 403
	DATA_NOT_FOUND         int = 404
	METHOD_NOT_ALLOWED     int = 405
	UNSUPPORTED_MEDIA_TYPE int = 415
	RATE_LIMIT_EXCEEDED    int = 429
	INTERNAL_SERVER_ERROR  int = 500
	BAD_GATEWAY            int = 502
	SERVICE_UNAVAILABLE    int = 503
	GATEWAY_TIMEOUT        int = 504
)

var messages = map[int]string{
	OK:                     "OK",
	BAD_REQUEST:            "Bad request",
	UNAUTHORIZED:           "Unauthorized",
	FORBIDDEN:              "Forbidden",
	DATA_NOT_FOUND:         "Data not found",
	METHOD_NOT_ALLOWED:     "Method not allowed",
	UNSUPPORTED_MEDIA_TYPE: "Unsupported media type",
	RATE_LIMIT_EXCEEDED:    "Rate limit exceeded",
	INTERNAL_SERVER_ERROR:  "Internal server error",
	BAD_GATEWAY:            "Bad gateway",
	SERVICE_UNAVAILABLE:    "Service unavailable",
	GATEWAY_TIMEOUT:        "Gateway timeout",
}

// Responses bigger than this are not read
const maxBodySize = 10 << 20

// ErrThrottled is returned when the rate limiter refuses a request
var ErrThrottled = errors.New("request throttled by rate limiter")

// StatusError is returned for any response that is not 200
type StatusError struct {
	Code int
	URL  string
	Body []byte
}

func (e *StatusError) Error() string {
	message, ok := messages[e.Code]
	if !ok {
		message = "Status not understood"
	}
	return fmt.Sprintf("request to %s failed: %d %s", e.URL, e.Code, message)
}

// IsStatus reports whether err is a StatusError with one of the codes
func IsStatus(err error, codes ...int) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	for _, code := range codes {
		if statusErr.Code == code {
			return true
		}
	}
	return false
}

type Proxy struct {
	header      map[string]string
	client      *http.Client
	rateLimiter *RateLimiter
}

// NewProxy creates a proxy sending the provided header on every request.
// A nil client means http.DefaultClient
func NewProxy(client *http.Client, header map[string]string, restrictions []Restriction) *Proxy {
	if client == nil {
		client = http.DefaultClient
	}
	return &Proxy{header: header, client: client, rateLimiter: NewRateLimiter(restrictions)}
}

// Make a request to the provided url, indicating if it is vital.
// The request will be performed depending on the status of the rate limiter
func (proxy *Proxy) Request(ctx context.Context, url string, vital bool) ([]byte, error) {

	// ask for permission to execute the request
	// and wait if necessary
	if !proxy.rateLimiter.Allowed(ctx, vital) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrThrottled
	}

	// Create the request and add the header
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request for url %s: %w", url, err)
	}
	for key, value := range proxy.header {
		request.Header.Set(key, value)
	}

	// Perform the request
	log.Debug().Str("url", url).Msg("Requesting")
	res, err := proxy.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("could not perform request to %s: %w", url, err)
	}
	defer res.Body.Close()

	stream, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("could not read the response for url %s: %w", url, err)
	}

	if message, ok := messages[res.StatusCode]; ok {
		log.Debug().Msgf("%d %s", res.StatusCode, message)
	} else {
		log.Error().Int("status", res.StatusCode).Str("url", url).Msg("Status code of request is not understood")
	}

	switch res.StatusCode {
	case OK:
		return stream, nil
	case RATE_LIMIT_EXCEEDED:
		proxy.rateLimiter.ReceivedRateLimit(retryAfter(res.Header.Get("Retry-After")))
		return nil, &StatusError{Code: res.StatusCode, URL: url, Body: stream}
	default:
		return nil, &StatusError{Code: res.StatusCode, URL: url, Body: stream}
	}
}

// CloseIdleConnections releases the connections kept by the underlying client
func (proxy *Proxy) CloseIdleConnections() {
	proxy.client.CloseIdleConnections()
}

func retryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
