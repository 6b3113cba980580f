package identity

import (
	"strings"
	"time"
)

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// User is the subset of the identity provider's user object the backend
// reads. Timestamps are unix milliseconds.
type User struct {
	ID                    string         `json:"id"`
	FirstName             *string        `json:"first_name"`
	LastName              *string        `json:"last_name"`
	Username              *string        `json:"username"`
	ImageURL              string         `json:"image_url"`
	PrimaryEmailAddressID *string        `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
	CreatedAt             int64          `json:"created_at"`
	LastSignInAt          *int64         `json:"last_sign_in_at"`
	PublicMetadata        map[string]any `json:"public_metadata"`
	UnsafeMetadata        map[string]any `json:"unsafe_metadata"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// PrimaryEmail returns the primary address, falling back to the first one.
func (u *User) PrimaryEmail() string {
	if len(u.EmailAddresses) == 0 {
		return ""
	}
	if id := deref(u.PrimaryEmailAddressID); id != "" {
		for _, e := range u.EmailAddresses {
			if e.ID == id {
				return e.EmailAddress
			}
		}
	}
	return u.EmailAddresses[0].EmailAddress
}

// DisplayName prefers the full name, then username, then email.
func (u *User) DisplayName() string {
	if full := strings.TrimSpace(deref(u.FirstName) + " " + deref(u.LastName)); full != "" {
		return full
	}
	if name := deref(u.Username); name != "" {
		return name
	}
	if email := u.PrimaryEmail(); email != "" {
		return email
	}
	return "User"
}

func (u *User) CreatedTime() time.Time {
	return time.UnixMilli(u.CreatedAt).UTC()
}

// LastSignIn is nil when the user never signed in.
func (u *User) LastSignIn() *time.Time {
	if u.LastSignInAt == nil || *u.LastSignInAt == 0 {
		return nil
	}
	t := time.UnixMilli(*u.LastSignInAt).UTC()
	return &t
}

// UnsafeString reads a string value from the user-editable metadata.
func (u *User) UnsafeString(key string) string {
	if u.UnsafeMetadata == nil {
		return ""
	}
	s, _ := u.UnsafeMetadata[key].(string)
	return strings.TrimSpace(s)
}

// CommunityUsername is the handle members pick for their community page.
func (u *User) CommunityUsername() string {
	return u.UnsafeString("username")
}

// Profile is the public view of a community page owner.
type Profile struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	CommunityName string `json:"communityName"`
	Bio           string `json:"bio"`
	ImageURL      string `json:"imageUrl,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

func (u *User) Profile() Profile {
	username := u.CommunityUsername()
	communityName := u.UnsafeString("communityName")
	if communityName == "" {
		communityName = username
	}
	return Profile{
		ID:            u.ID,
		Username:      username,
		Name:          u.DisplayName(),
		CommunityName: communityName,
		Bio:           u.UnsafeString("bio"),
		ImageURL:      u.ImageURL,
		CreatedAt:     u.CreatedAt,
	}
}
