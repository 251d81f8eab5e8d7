package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mcoot/doublesclub/internal/dependencies/clock"
	"github.com/mcoot/doublesclub/internal/dependencies/idgen"
	"github.com/mcoot/doublesclub/internal/model"
	"github.com/mcoot/doublesclub/internal/services/matchstate"
	"github.com/mcoot/doublesclub/internal/services/scheduler"
	"github.com/mcoot/doublesclub/internal/storage"
)

// MaxWriteAttempts bounds how often a read-modify-write on the match list is
// retried after a version conflict
const MaxWriteAttempts = 3

// CreateInput holds the data needed to create a tournament
type CreateInput struct {
	Name         string
	ClubID       model.ClubID
	CreatedBy    model.UserID
	Players      []model.PlayerID
	GuestPlayers []string
}

// Controller owns every write to a tournament and its matches
type Controller struct {
	storage   storage.Storage
	scheduler *scheduler.Service
	clock     clock.Clock
	ids       idgen.Generator
	logger    *slog.Logger
}

// NewController creates a new tournament Controller
func NewController(
	storage storage.Storage,
	scheduler *scheduler.Service,
	clock clock.Clock,
	ids idgen.Generator,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		storage:   storage,
		scheduler: scheduler,
		clock:     clock,
		ids:       ids,
		logger:    logger.With(slog.String("component", "tournament_controller")),
	}
}

// Create validates the roster, generates the opening schedule and persists
// the tournament as active in a single write
func (c *Controller) Create(ctx context.Context, in CreateInput) (*model.Tournament, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", model.ErrMissingField)
	}
	if in.ClubID == "" {
		return nil, model.ErrNoActiveClub
	}

	club, err := c.storage.GetClub(ctx, in.ClubID)
	if err != nil {
		return nil, err
	}
	if in.CreatedBy != "" && !club.HasMember(in.CreatedBy) {
		return nil, model.ErrNotMember
	}

	guests, err := normalizeGuests(in.GuestPlayers)
	if err != nil {
		return nil, err
	}
	if err := validateMembers(club, in.Players); err != nil {
		return nil, err
	}
	if len(in.Players)+len(guests) < model.MinParticipants {
		return nil, model.ErrInsufficientPlayers
	}

	now := c.clock.Now()
	t := &model.Tournament{
		ID:           model.TournamentID(c.ids.NewID()),
		Name:         name,
		ClubID:       in.ClubID,
		CreatedBy:    in.CreatedBy,
		Players:      slices.Clone(in.Players),
		GuestPlayers: guests,
		Status:       model.TournamentStatusActive,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	t.Matches = c.scheduler.GenerateInitialMatches(t.Participants())
	if len(t.Matches) == 0 {
		return nil, model.ErrInsufficientPlayers
	}

	if err := c.storage.CreateTournament(ctx, t); err != nil {
		return nil, err
	}

	c.logger.Info("tournament created",
		slog.String("tournament_id", string(t.ID)),
		slog.String("club_id", string(t.ClubID)),
		slog.Int("participants", t.ParticipantCount()),
		slog.Int("matches", len(t.Matches)),
	)
	return t.Clone(), nil
}

// Get returns a tournament by id
func (c *Controller) Get(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return c.storage.GetTournament(ctx, id)
}

// ListForClub returns the club's tournaments, newest first
func (c *Controller) ListForClub(ctx context.Context, clubID model.ClubID) ([]*model.Tournament, error) {
	all, err := c.storage.ListTournaments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Tournament, 0, len(all))
	for _, t := range all {
		if t.ClubID == clubID {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b *model.Tournament) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// Update merges a partial update. Matches, when present, replace the whole
// list. The write is unconditional: two callers that each read, modify and
// write back the match list race, and the later write wins.
func (c *Controller) Update(ctx context.Context, id model.TournamentID, patch model.TournamentPatch) (*model.Tournament, error) {
	current, err := c.storage.GetTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name", model.ErrMissingField)
		}
		patch.Name = &name
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidStatus, *patch.Status)
	}
	if patch.GuestPlayers != nil {
		guests, err := normalizeGuests(*patch.GuestPlayers)
		if err != nil {
			return nil, err
		}
		if !slices.Equal(guests, current.GuestPlayers) && current.ReferencesGuests() {
			return nil, model.ErrGuestListLocked
		}
		patch.GuestPlayers = &guests
	}

	merged := current.Clone()
	patch.Apply(merged)
	if patch.TouchesRoster() {
		if err := validateRoster(merged); err != nil {
			return nil, err
		}
	}

	updated, err := c.storage.UpdateTournament(ctx, id, patch, c.clock.Now())
	if err != nil {
		return nil, err
	}

	c.logger.Info("tournament updated",
		slog.String("tournament_id", string(id)),
		slog.Int64("version", updated.Version),
	)
	return updated, nil
}

// Complete marks the tournament completed
func (c *Controller) Complete(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return c.setStatus(ctx, id, model.TournamentStatusCompleted)
}

// Reopen marks a completed tournament active again. Match statuses are kept.
func (c *Controller) Reopen(ctx context.Context, id model.TournamentID) (*model.Tournament, error) {
	return c.setStatus(ctx, id, model.TournamentStatusActive)
}

func (c *Controller) setStatus(ctx context.Context, id model.TournamentID, status model.TournamentStatus) (*model.Tournament, error) {
	updated, err := c.storage.UpdateTournament(ctx, id, model.StatusPatch(status), c.clock.Now())
	if err != nil {
		return nil, err
	}
	c.logger.Info("tournament status changed",
		slog.String("tournament_id", string(id)),
		slog.String("status", string(status)),
	)
	return updated, nil
}

// Delete removes the tournament
func (c *Controller) Delete(ctx context.Context, id model.TournamentID) error {
	if _, err := c.storage.GetTournament(ctx, id); err != nil {
		return err
	}
	if err := c.storage.DeleteTournament(ctx, id); err != nil {
		return err
	}
	c.logger.Info("tournament deleted", slog.String("tournament_id", string(id)))
	return nil
}

// AddMatch appends one match. A balanced match favours the least-played
// participants; otherwise four participants are drawn at random.
func (c *Controller) AddMatch(ctx context.Context, id model.TournamentID, balanced bool) (*model.Tournament, error) {
	return c.mutate(ctx, id, "add_match", func(t *model.Tournament) (model.TournamentPatch, error) {
		if !t.IsActive() {
			return model.TournamentPatch{}, model.ErrTournamentNotActive
		}
		var (
			matches []model.Match
			err     error
		)
		if balanced {
			matches, err = c.scheduler.AddBalancedMatch(t.Participants(), t.Matches)
		} else {
			matches, err = c.scheduler.AddAdditionalMatch(t.Participants(), t.Matches)
		}
		if err != nil {
			return model.TournamentPatch{}, err
		}
		return model.MatchesPatch(matches), nil
	})
}

// DeleteMatch removes one match from an active tournament
func (c *Controller) DeleteMatch(ctx context.Context, id model.TournamentID, matchID model.MatchID) (*model.Tournament, error) {
	return c.mutate(ctx, id, "delete_match", func(t *model.Tournament) (model.TournamentPatch, error) {
		matches, err := matchstate.DeleteMatch(t, matchID)
		if err != nil {
			return model.TournamentPatch{}, err
		}
		return model.MatchesPatch(matches), nil
	})
}

// SaveScores completes every edited match in one write. Any invalid edit
// rejects the whole batch.
func (c *Controller) SaveScores(ctx context.Context, id model.TournamentID, edits map[model.MatchID]model.ScorePair) (*model.Tournament, error) {
	if len(edits) == 0 {
		return c.storage.GetTournament(ctx, id)
	}
	return c.mutate(ctx, id, "save_scores", func(t *model.Tournament) (model.TournamentPatch, error) {
		if !t.IsActive() {
			return model.TournamentPatch{}, model.ErrTournamentNotActive
		}
		matches, err := matchstate.BatchCompleteMatches(t.Matches, edits)
		if err != nil {
			return model.TournamentPatch{}, err
		}
		return model.MatchesPatch(matches), nil
	})
}

// CompleteMatch records the score of a single match
func (c *Controller) CompleteMatch(ctx context.Context, id model.TournamentID, matchID model.MatchID, pair model.ScorePair) (*model.Tournament, error) {
	return c.SaveScores(ctx, id, map[model.MatchID]model.ScorePair{matchID: pair})
}

// mutate runs a read-modify-write against the latest version, retrying on
// version conflicts up to MaxWriteAttempts times
func (c *Controller) mutate(
	ctx context.Context,
	id model.TournamentID,
	op string,
	fn func(t *model.Tournament) (model.TournamentPatch, error),
) (*model.Tournament, error) {
	for attempt := 1; ; attempt++ {
		current, err := c.storage.GetTournament(ctx, id)
		if err != nil {
			return nil, err
		}
		patch, err := fn(current)
		if err != nil {
			return nil, err
		}

		updated, err := c.storage.UpdateTournamentIfVersion(ctx, id, current.Version, patch, c.clock.Now())
		if err == nil {
			c.logger.Info("tournament matches changed",
				slog.String("tournament_id", string(id)),
				slog.String("op", op),
				slog.Int("matches", len(updated.Matches)),
				slog.Int64("version", updated.Version),
			)
			return updated, nil
		}
		if !errors.Is(err, model.ErrVersionConflict) || attempt >= MaxWriteAttempts {
			return nil, err
		}

		c.logger.Warn("tournament changed concurrently, retrying",
			slog.String("tournament_id", string(id)),
			slog.String("op", op),
			slog.Int("attempt", attempt),
		)
	}
}

// normalizeGuests trims names and rejects empty or case-insensitively
// duplicated entries
func normalizeGuests(names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		name := strings.TrimSpace(n)
		if name == "" {
			return nil, fmt.Errorf("%w: guest name", model.ErrMissingField)
		}
		key := model.GuestNameKey(name)
		if seen[key] {
			return nil, fmt.Errorf("%w: %q", model.ErrDuplicateGuestName, name)
		}
		seen[key] = true
		out = append(out, name)
	}
	return out, nil
}

// validateMembers requires distinct member ids that all belong to the club
func validateMembers(club *model.Club, players []model.PlayerID) error {
	if err := validatePlayerIDs(players); err != nil {
		return err
	}
	for _, p := range players {
		if !club.HasMember(model.UserID(p)) {
			return fmt.Errorf("%w: %s", model.ErrNotMember, p)
		}
	}
	return nil
}

func validatePlayerIDs(players []model.PlayerID) error {
	seen := make(map[model.PlayerID]bool, len(players))
	for _, p := range players {
		ref, err := model.ParsePlayerRef(p)
		if err != nil {
			return err
		}
		if ref.IsGuest() {
			return fmt.Errorf("%w: %s is a guest id", model.ErrInvalidPlayer, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: %s", model.ErrDuplicatePlayer, p)
		}
		seen[p] = true
	}
	return nil
}

// validateRoster checks the merged result of an update
func validateRoster(t *model.Tournament) error {
	if err := validatePlayerIDs(t.Players); err != nil {
		return err
	}
	return matchstate.ValidateMatches(t, t.Matches)
}
