package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/commune-app/commune/internal/pkg/env"
)

const (
	defaultAPIBaseURL = "https://api.clerk.com/v1"
	listPageSize      = 100
	listMaxPages      = 100
)

var (
	ErrNotConfigured = errors.New("CLERK_SECRET_KEY is not configured")
	ErrUserNotFound  = errors.New("identity user not found")
)

// Client reads and updates users through the identity provider's backend SDK.
type Client struct {
	secretKey string
	api       *clerkuser.Client
}

// NewClient builds a client against apiURL; an empty apiURL uses the
// provider's default endpoint.
func NewClient(secretKey, apiURL string, httpClient *http.Client) *Client {
	secretKey = strings.TrimSpace(secretKey)
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		apiURL = defaultAPIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		secretKey: secretKey,
		api: clerkuser.NewClient(&clerk.ClientConfig{
			BackendConfig: clerk.BackendConfig{
				HTTPClient: httpClient,
				URL:        clerk.String(apiURL),
				Key:        clerk.String(secretKey),
			},
		}),
	}
}

func NewClientFromEnv() *Client {
	return NewClient(env.GetEnv("CLERK_SECRET_KEY", ""), env.GetEnv("CLERK_API_URL", defaultAPIBaseURL), nil)
}

func (c *Client) Configured() bool {
	return c != nil && c.secretKey != ""
}

func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	id := strings.TrimSpace(userID)
	if id == "" {
		return nil, errors.New("user id is required")
	}
	u, err := c.api.Get(ctx, id)
	if err != nil {
		return nil, providerError("get user", err)
	}
	out := fromProviderUser(u)
	return &out, nil
}

// ListUsers pages through the whole directory, newest first.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	var users []User
	for page := 0; page < listMaxPages; page++ {
		params := &clerkuser.ListParams{OrderBy: clerk.String("-created_at")}
		params.Limit = clerk.Int64(listPageSize)
		params.Offset = clerk.Int64(int64(page * listPageSize))

		list, err := c.api.List(ctx, params)
		if err != nil {
			return nil, providerError("list users", err)
		}
		for _, u := range list.Users {
			users = append(users, fromProviderUser(u))
		}
		if len(list.Users) < listPageSize || (list.TotalCount > 0 && int64(len(users)) >= list.TotalCount) {
			break
		}
	}
	return users, nil
}

// UpdateMetadata merges the given keys into the user's metadata. A nil map
// leaves that metadata kind untouched.
func (c *Client) UpdateMetadata(ctx context.Context, userID string, public, private map[string]any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	id := strings.TrimSpace(userID)
	if id == "" {
		return errors.New("user id is required")
	}
	params := &clerkuser.UpdateMetadataParams{}
	if public != nil {
		raw, err := rawMetadata(public)
		if err != nil {
			return err
		}
		params.PublicMetadata = raw
	}
	if private != nil {
		raw, err := rawMetadata(private)
		if err != nil {
			return err
		}
		params.PrivateMetadata = raw
	}
	if _, err := c.api.UpdateMetadata(ctx, id, params); err != nil {
		return providerError("update metadata", err)
	}
	return nil
}

func rawMetadata(m map[string]any) (*json.RawMessage, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	raw := json.RawMessage(b)
	return &raw, nil
}

func providerError(op string, err error) error {
	var apiErr *clerk.APIErrorResponse
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusNotFound {
			return ErrUserNotFound
		}
		return fmt.Errorf("identity %s failed: status=%d: %w", op, apiErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("identity %s failed: %w", op, err)
}

func fromProviderUser(u *clerk.User) User {
	if u == nil {
		return User{}
	}
	out := User{
		ID:                    u.ID,
		FirstName:             u.FirstName,
		LastName:              u.LastName,
		Username:              u.Username,
		PrimaryEmailAddressID: u.PrimaryEmailAddressID,
		CreatedAt:             u.CreatedAt,
		LastSignInAt:          u.LastSignInAt,
		PublicMetadata:        metadataMap(u.PublicMetadata),
		UnsafeMetadata:        metadataMap(u.UnsafeMetadata),
	}
	if u.ImageURL != nil {
		out.ImageURL = *u.ImageURL
	}
	for _, e := range u.EmailAddresses {
		if e == nil {
			continue
		}
		out.EmailAddresses = append(out.EmailAddresses, EmailAddress{ID: e.ID, EmailAddress: e.EmailAddress})
	}
	return out
}

func metadataMap(raw json.RawMessage) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
