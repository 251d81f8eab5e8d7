package club

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mcoot/doublesclub/internal/dependencies/clock"
	"github.com/mcoot/doublesclub/internal/dependencies/idgen"
	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/storage"
)

// Controller manages clubs, their membership and each user's active club
type Controller struct {
	storage storage.Storage
	clock   clock.Clock
	ids     idgen.Generator
	logger  *slog.Logger
}

// NewController creates a new club Controller
func NewController(storage storage.Storage, clock clock.Clock, ids idgen.Generator, logger *slog.Logger) *Controller {
	return &Controller{
		storage: storage,
		clock:   clock,
		ids:     ids,
		logger:  logger.With(slog.String("component", "club_controller")),
	}
}

// Create creates a club with the creator as its first member. The club
// becomes the creator's active club if they have none.
func (c *Controller) Create(ctx context.Context, creatorID model.UserID, name string) (*model.Club, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", model.ErrMissingField)
	}
	creator, err := c.storage.GetUser(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	club := &model.Club{
		ID:        model.ClubID(c.ids.NewID()),
		Name:      name,
		MemberIDs: []model.UserID{creatorID},
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.storage.SaveClub(ctx, club); err != nil {
		return nil, err
	}
	if creator.ActiveClubID == "" {
		if err := c.setActive(ctx, creator, club.ID); err != nil {
			return nil, err
		}
	}

	c.logger.Info("club created",
		slog.String("club_id", string(club.ID)),
		slog.String("created_by", string(creatorID)),
	)
	return club, nil
}

// Get returns a club by id
func (c *Controller) Get(ctx context.Context, id model.ClubID) (*model.Club, error) {
	return c.storage.GetClub(ctx, id)
}

// List returns every club
func (c *Controller) List(ctx context.Context) ([]*model.Club, error) {
	return c.storage.ListClubs(ctx)
}

// Members returns the users belonging to a club in membership order
func (c *Controller) Members(ctx context.Context, id model.ClubID) ([]*model.User, error) {
	club, err := c.storage.GetClub(ctx, id)
	if err != nil {
		return nil, err
	}
	members := make([]*model.User, 0, len(club.MemberIDs))
	for _, uid := range club.MemberIDs {
		u, err := c.storage.GetUser(ctx, uid)
		if err != nil {
			continue // Member account removed
		}
		members = append(members, u)
	}
	return members, nil
}

// Join adds the user to the club. Joining twice is a conflict.
func (c *Controller) Join(ctx context.Context, id model.ClubID, userID model.UserID) (*model.Club, error) {
	club, err := c.storage.GetClub(ctx, id)
	if err != nil {
		return nil, err
	}
	user, err := c.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if club.HasMember(userID) {
		return nil, model.ErrAlreadyMember
	}

	club.MemberIDs = append(club.MemberIDs, userID)
	club.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveClub(ctx, club); err != nil {
		return nil, err
	}
	if user.ActiveClubID == "" {
		if err := c.setActive(ctx, user, club.ID); err != nil {
			return nil, err
		}
	}

	c.logger.Info("member joined club",
		slog.String("club_id", string(id)),
		slog.String("user_id", string(userID)),
	)
	return club, nil
}

// Leave removes the user from the club and clears it as their active club
func (c *Controller) Leave(ctx context.Context, id model.ClubID, userID model.UserID) (*model.Club, error) {
	club, err := c.storage.GetClub(ctx, id)
	if err != nil {
		return nil, err
	}
	if !club.HasMember(userID) {
		return nil, model.ErrNotMember
	}

	club.MemberIDs = slices.DeleteFunc(club.MemberIDs, func(m model.UserID) bool { return m == userID })
	club.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveClub(ctx, club); err != nil {
		return nil, err
	}

	user, err := c.storage.GetUser(ctx, userID)
	if err == nil && user.ActiveClubID == id {
		if err := c.setActive(ctx, user, ""); err != nil {
			return nil, err
		}
	}

	c.logger.Info("member left club",
		slog.String("club_id", string(id)),
		slog.String("user_id", string(userID)),
	)
	return club, nil
}

// SetActiveClub selects the club whose tournaments the user works with
func (c *Controller) SetActiveClub(ctx context.Context, userID model.UserID, id model.ClubID) (*model.User, error) {
	club, err := c.storage.GetClub(ctx, id)
	if err != nil {
		return nil, err
	}
	if !club.HasMember(userID) {
		return nil, model.ErrNotMember
	}
	user, err := c.storage.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.setActive(ctx, user, id); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *Controller) setActive(ctx context.Context, user *model.User, id model.ClubID) error {
	user.ActiveClubID = id
	user.UpdatedAt = c.clock.Now()
	return c.storage.SaveUser(ctx, user)
}
