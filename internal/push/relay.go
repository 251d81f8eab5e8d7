package push

import (
	"log/slog"

	"github.com/mcoot/doublesclub/internal/model"
)

// EventTournaments carries a club's full tournament list
const EventTournaments = "tournaments"

// ClubTournaments is the payload of EventTournaments
type ClubTournaments struct {
	ClubID      model.ClubID        `json:"clubId"`
	Tournaments []*model.Tournament `json:"tournaments"`
}

// Relay forwards tournament snapshots to the hubs of the clubs they belong to
type Relay struct {
	manager *HubManager
	logger  *slog.Logger
}

// NewRelay creates a new Relay
func NewRelay(manager *HubManager, logger *slog.Logger) *Relay {
	return &Relay{
		manager: manager,
		logger:  logger.With(slog.String("component", "push_relay")),
	}
}

// HandleTournaments broadcasts each watched club's tournaments. Clubs with
// a hub but no tournaments receive an empty list.
func (r *Relay) HandleTournaments(tournaments []*model.Tournament) {
	byClub := make(map[model.ClubID][]*model.Tournament)
	for _, t := range tournaments {
		byClub[t.ClubID] = append(byClub[t.ClubID], t)
	}

	for _, clubID := range r.manager.ClubIDs() {
		hub := r.manager.GetHub(clubID)
		if hub == nil {
			continue
		}
		list := byClub[clubID]
		if list == nil {
			list = []*model.Tournament{}
		}
		err := hub.BroadcastEvent(EventTournaments, ClubTournaments{ClubID: clubID, Tournaments: list})
		if err != nil {
			r.logger.Error("push relay encode failed",
				slog.String("club_id", string(clubID)),
				slog.Any("error", err))
		}
	}
}
