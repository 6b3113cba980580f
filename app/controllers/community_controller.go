package controllers

import (
	"context"
	"errors"
	"strings"

	"github.com/commune-app/commune/app/models"
	"github.com/commune-app/commune/app/repository"
	"github.com/commune-app/commune/internal/pkg/identity"
	"github.com/commune-app/commune/internal/pkg/statistics"
	"github.com/commune-app/commune/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// MemberDirectory lists identity-provider users.
type MemberDirectory interface {
	Users(ctx context.Context) ([]identity.User, error)
	FindByUsername(ctx context.Context, username string) (*identity.User, error)
}

type CommunityController struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	directory MemberDirectory
}

func NewCommunityController(posts repository.PostRepository, users repository.UserRepository, directory MemberDirectory) *CommunityController {
	return &CommunityController{posts: posts, users: users, directory: directory}
}

type createPostRequest struct {
	Content string `json:"content"`
}

type memberResponse struct {
	statistics.Member
	Role string `json:"role"`
}

func (cc *CommunityController) HandleListPosts(c *fiber.Ctx) error {
	page, limit, offset := pagination(c)
	posts, err := cc.posts.List(c.UserContext(), offset, limit)
	if err != nil {
		fiberlog.Errorf("[Community] list posts failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load posts")
	}
	total, err := cc.posts.Count(c.UserContext())
	if err != nil {
		fiberlog.Errorf("[Community] count posts failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load posts")
	}
	return c.JSON(fiber.Map{
		"posts": posts,
		"page":  page,
		"limit": limit,
		"total": total,
	})
}

func (cc *CommunityController) HandleCreatePost(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return jsonError(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Content required")
	}

	post := &models.Post{
		AuthorID:   uc.UserID,
		AuthorName: uc.AuthorName(),
		Content:    strings.TrimSpace(req.Content),
	}
	if post.Content == "" {
		return jsonError(c, fiber.StatusBadRequest, "Content required")
	}
	if err := post.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Content must be at most 5000 characters")
	}
	if err := cc.posts.Create(c.UserContext(), post); err != nil {
		fiberlog.Errorf("[Community] create post failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to save post")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// HandleListMembers maps the identity listing to members with their local role.
func (cc *CommunityController) HandleListMembers(c *fiber.Ctx) error {
	users, err := cc.directory.Users(c.UserContext())
	if err != nil {
		return identityError(c, "list members", err)
	}

	ids := make([]string, 0, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
	}
	roles, err := cc.users.RolesByIDs(c.UserContext(), ids)
	if err != nil {
		fiberlog.Errorf("[Community] role lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Failed to load member roles")
	}

	members := make([]memberResponse, 0, len(users))
	for i := range users {
		role, ok := roles[users[i].ID]
		if !ok {
			role = models.RoleMember
		}
		members = append(members, memberResponse{Member: statistics.MemberFromUser(&users[i]), Role: role})
	}
	return c.JSON(fiber.Map{"members": members})
}

func (cc *CommunityController) HandleCommunityProfile(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		return c.JSON(fiber.Map{"user": nil})
	}
	u, err := cc.directory.FindByUsername(c.UserContext(), username)
	if err != nil {
		return identityError(c, "community profile", err)
	}
	if u == nil {
		return c.JSON(fiber.Map{"user": nil})
	}
	return c.JSON(fiber.Map{"user": u.Profile()})
}

func (cc *CommunityController) HandleCheckUsername(c *fiber.Ctx) error {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		return c.JSON(fiber.Map{"available": false})
	}
	u, err := cc.directory.FindByUsername(c.UserContext(), username)
	if err != nil {
		return identityError(c, "check username", err)
	}
	return c.JSON(fiber.Map{"available": u == nil})
}

func identityError(c *fiber.Ctx, op string, err error) error {
	fiberlog.Errorf("[Identity] %s failed: %v", op, err)
	if errors.Is(err, identity.ErrNotConfigured) {
		return jsonError(c, fiber.StatusInternalServerError, "Clerk secret key not set")
	}
	return jsonError(c, fiber.StatusInternalServerError, "Failed to fetch users from Clerk")
}
