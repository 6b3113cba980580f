package statistics

import (
	"context"
	"time"

	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/billing"
	"github.com/commune-app/commune/internal/pkg/identity"
	"golang.org/x/sync/errgroup"
)

const (
	recentWindow       = 30 * 24 * time.Hour
	recentMembersLimit = 5
	growthMonths       = 3
)

// UserStore is the local user aggregate source.
type UserStore interface {
	Count(ctx context.Context) (int64, error)
	GetSubscriptionStats(ctx context.Context) (*repository.SubscriptionStats, error)
	GetRevenue(ctx context.Context, currency string) (int64, error)
}

type PostCounter interface {
	Count(ctx context.Context) (int64, error)
}

// Directory lists identity-provider users.
type Directory interface {
	Users(ctx context.Context) ([]identity.User, error)
}

// Member is a directory entry as shown on dashboards.
type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"created_at"`
}

func MemberFromUser(u *identity.User) Member {
	return Member{
		ID:        u.ID,
		Name:      u.DisplayName(),
		Email:     u.PrimaryEmail(),
		CreatedAt: u.CreatedAt,
	}
}

type Overview struct {
	TotalMembers     int      `json:"totalMembers"`
	ActiveUsers      int      `json:"activeUsers"`
	NewSignups       int      `json:"newSignups"`
	Revenue          float64  `json:"revenue"`
	FormattedRevenue string   `json:"formattedRevenue"`
	Currency         string   `json:"currency"`
	RecentMembers    []Member `json:"recentMembers"`
}

type MonthlyGrowth struct {
	Month string `json:"month"`
	Users int    `json:"users"`
}

type Analytics struct {
	TotalUsers    int             `json:"totalUsers"`
	BillingUsers  int64           `json:"billingUsers"`
	ActiveUsers   int             `json:"activeUsers"`
	NewSignups    int             `json:"newSignups"`
	PremiumUsers  int64           `json:"premiumUsers"`
	PastDueUsers  int64           `json:"pastDueUsers"`
	CanceledUsers int64           `json:"canceledUsers"`
	TotalPosts    int64           `json:"totalPosts"`
	UserGrowth    []MonthlyGrowth `json:"userGrowth"`
}

// Service computes dashboard figures from the identity directory and the
// local tables. Independent sources are read concurrently.
type Service struct {
	users     UserStore
	posts     PostCounter
	directory Directory
	currency  string
	now       func() time.Time
}

func NewService(users UserStore, posts PostCounter, directory Directory, currency string) *Service {
	return &Service{
		users:     users,
		posts:     posts,
		directory: directory,
		currency:  currency,
		now:       time.Now,
	}
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var (
		members []identity.User
		revenue int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.directory.Users(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		revenue, err = s.users.GetRevenue(gctx, s.currency)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := identity.Summarize(members, s.now(), recentWindow)
	recent := make([]Member, 0, recentMembersLimit)
	for i := 0; i < len(members) && i < recentMembersLimit; i++ {
		recent = append(recent, MemberFromUser(&members[i]))
	}

	return &Overview{
		TotalMembers:     summary.Total,
		ActiveUsers:      summary.ActiveUsers,
		NewSignups:       summary.NewSignups,
		Revenue:          billing.MajorUnits(revenue, s.currency),
		FormattedRevenue: billing.FormatAmount(revenue, s.currency),
		Currency:         s.currency,
		RecentMembers:    recent,
	}, nil
}

func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	var (
		members      []identity.User
		billingUsers int64
		subs         *repository.SubscriptionStats
		posts        int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		members, err = s.directory.Users(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		billingUsers, err = s.users.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		subs, err = s.users.GetSubscriptionStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		posts, err = s.posts.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	summary := identity.Summarize(members, now, recentWindow)
	return &Analytics{
		TotalUsers:    summary.Total,
		BillingUsers:  billingUsers,
		ActiveUsers:   summary.ActiveUsers,
		NewSignups:    summary.NewSignups,
		PremiumUsers:  subs.PremiumUsers,
		PastDueUsers:  subs.PastDueUsers,
		CanceledUsers: subs.CanceledUsers,
		TotalPosts:    posts,
		UserGrowth:    Growth(members, now, growthMonths),
	}, nil
}

// Growth returns the cumulative member count at the end of each of the
// last months calendar months, oldest first, the current month included.
func Growth(members []identity.User, now time.Time, months int) []MonthlyGrowth {
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	out := make([]MonthlyGrowth, 0, months)
	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)
		count := 0
		for j := range members {
			if members[j].CreatedTime().Before(end) {
				count++
			}
		}
		out = append(out, MonthlyGrowth{Month: start.Format("Jan"), Users: count})
	}
	return out
}
