package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoEmail is returned when the gateway knows the subject but has no
// email address on file.
var ErrNoEmail = errors.New("user email not found")

// Directory reads user profiles from the gateway's backend API.
type Directory struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

// NewDirectory creates a directory client. A nil client gets a default one
// with the given timeout.
func NewDirectory(baseURL, secretKey string, timeout time.Duration, client *http.Client) *Directory {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Directory{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    client,
	}
}

type userResponse struct {
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Email returns the first email address registered for subject.
func (d *Directory) Email(ctx context.Context, subject string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/users/%s", d.baseURL, url.PathEscape(subject))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build directory request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach identity directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("identity directory returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var u userResponse
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return "", fmt.Errorf("failed to decode directory response: %w", err)
	}
	if len(u.EmailAddresses) == 0 || strings.TrimSpace(u.EmailAddresses[0].EmailAddress) == "" {
		return "", ErrNoEmail
	}
	return u.EmailAddresses[0].EmailAddress, nil
}
