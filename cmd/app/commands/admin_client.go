package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	apperrors "github.com/trustchecker/atrest/internal/errors"
	adminHTTP "github.com/trustchecker/atrest/internal/http"
	"github.com/trustchecker/atrest/internal/httputil"
)

// errServerUnreachable indicates no server answered on the admin address.
var errServerUnreachable = apperrors.Wrap(apperrors.ErrUnavailable, "admin server unreachable")

// AdminServerURL builds the admin base URL from the server bind address. A
// wildcard bind address is reached over loopback.
func AdminServerURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// AdminClient talks to the admin API of a running server.
type AdminClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAdminClient creates a client for the admin API at baseURL. timeout bounds
// each request, including a full rotation sweep.
func NewAdminClient(baseURL, token string, timeout time.Duration) *AdminClient {
	client := cleanhttp.DefaultClient()
	client.Timeout = timeout
	return &AdminClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: client,
	}
}

// Healthy reports whether a server answers GET /health.
func (c *AdminClient) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

// Rotate asks the server to rotate its active master key. A response is
// returned for every rotation that reached the sweep, aborted ones included.
func (c *AdminClient) Rotate(ctx context.Context, newKeyHex string) (*adminHTTP.RotateResponse, error) {
	body, err := json.Marshal(adminHTTP.RotateRequest{NewKey: newKeyHex})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/encryption/rotate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errServerUnreachable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read rotation response: %w", err)
	}

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusInternalServerError {
		var rotated adminHTTP.RotateResponse
		if err := json.Unmarshal(payload, &rotated); err == nil && rotated.RunID != "" {
			return &rotated, nil
		}
	}

	var apiErr httputil.ErrorResponse
	_ = json.Unmarshal(payload, &apiErr)
	message := apiErr.Message
	if message == "" {
		message = strings.TrimSpace(string(payload))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, apperrors.Wrap(apperrors.ErrUnauthorized, "admin token rejected")
	case http.StatusNotFound:
		return nil, errors.New("rotation endpoint disabled on the server (ADMIN_TOKEN is not set there)")
	case http.StatusLocked:
		return nil, apperrors.Wrap(apperrors.ErrLocked, message)
	case http.StatusConflict:
		return nil, apperrors.Wrap(apperrors.ErrConflict, message)
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, message)
	case http.StatusServiceUnavailable:
		return nil, apperrors.Wrap(apperrors.ErrUnavailable, message)
	default:
		return nil, fmt.Errorf("rotation rejected with status %d: %s", resp.StatusCode, message)
	}
}
