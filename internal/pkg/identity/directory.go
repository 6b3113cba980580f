package identity

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/commune-app/commune/internal/pkg/cache"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	directoryCacheKey = "users"
	directoryCacheTTL = 60 * time.Second
)

// UserLister is the part of Client the directory needs.
type UserLister interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Directory serves the full user listing, cached briefly so member pages
// and dashboards don't page through the provider on every request.
type Directory struct {
	source UserLister
	store  *cache.Store
	ttl    time.Duration
}

// NewDirectory caches in store when it is non-nil.
func NewDirectory(source UserLister, store *cache.Store) *Directory {
	return &Directory{source: source, store: store, ttl: directoryCacheTTL}
}

// Users returns every user, newest first.
func (d *Directory) Users(ctx context.Context) ([]User, error) {
	if d.store != nil {
		if raw, err := d.store.Get(ctx, directoryCacheKey); err == nil {
			var users []User
			if err := json.Unmarshal([]byte(raw), &users); err == nil {
				return users, nil
			}
		} else if !cache.IsMiss(err) {
			fiberlog.Warnf("[Identity] directory cache read failed: %v", err)
		}
	}

	users, err := d.source.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt > users[j].CreatedAt
	})

	if d.store != nil {
		if b, err := json.Marshal(users); err == nil {
			if err := d.store.Set(ctx, directoryCacheKey, string(b), d.ttl); err != nil {
				fiberlog.Warnf("[Identity] directory cache write failed: %v", err)
			}
		}
	}
	return users, nil
}

// FindByUsername matches the community username case-insensitively.
func (d *Directory) FindByUsername(ctx context.Context, username string) (*User, error) {
	want := strings.TrimSpace(username)
	if want == "" {
		return nil, nil
	}
	users, err := d.Users(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].CommunityUsername(), want) {
			return &users[i], nil
		}
	}
	return nil, nil
}

// Invalidate drops the cached listing.
func (d *Directory) Invalidate(ctx context.Context) {
	if d.store == nil {
		return
	}
	if err := d.store.Delete(ctx, directoryCacheKey); err != nil {
		fiberlog.Warnf("[Identity] directory cache invalidation failed: %v", err)
	}
}

// Stats are directory aggregates relative to a point in time.
type Stats struct {
	Total       int
	NewSignups  int
	ActiveUsers int
}

// Summarize counts signups and sign-ins within window before now.
func Summarize(users []User, now time.Time, window time.Duration) Stats {
	since := now.Add(-window)
	s := Stats{Total: len(users)}
	for i := range users {
		if users[i].CreatedTime().After(since) {
			s.NewSignups++
		}
		if last := users[i].LastSignIn(); last != nil && last.After(since) {
			s.ActiveUsers++
		}
	}
	return s
}
