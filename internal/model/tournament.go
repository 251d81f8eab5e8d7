package model

import (
	"slices"
	"time"
)

// TournamentID identifies a tournament
type TournamentID string

// TournamentStatus toggles between active and completed. Completed is not
// terminal; a tournament can be reopened.
type TournamentStatus string

const (
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
)

// Valid reports whether the status is a known value
func (s TournamentStatus) Valid() bool {
	return s == TournamentStatusActive || s == TournamentStatusCompleted
}

// MinParticipants is the smallest pool a tournament can be created with
const MinParticipants = 4

// Tournament is the aggregate owning its match list. Version increments on
// every write and backs compare-and-set updates.
type Tournament struct {
	ID           TournamentID     `json:"id"`
	Name         string           `json:"name"`
	ClubID       ClubID           `json:"clubId"`
	CreatedBy    UserID           `json:"createdBy"`
	Players      []PlayerID       `json:"players"`
	GuestPlayers []string         `json:"guestPlayers"`
	Matches      []Match          `json:"matches"`
	Status       TournamentStatus `json:"status"`
	Version      int64            `json:"version"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// IsActive reports whether the tournament accepts match edits
func (t *Tournament) IsActive() bool {
	return t.Status == TournamentStatusActive
}

// Participants returns member ids followed by guest ids in list order
func (t *Tournament) Participants() []PlayerID {
	ids := make([]PlayerID, 0, len(t.Players)+len(t.GuestPlayers))
	ids = append(ids, t.Players...)
	for i := range t.GuestPlayers {
		ids = append(ids, GuestPlayerID(i))
	}
	return ids
}

// ParticipantCount returns the combined number of members and guests
func (t *Tournament) ParticipantCount() int {
	return len(t.Players) + len(t.GuestPlayers)
}

// IsParticipant reports whether id is a member or valid guest of the tournament
func (t *Tournament) IsParticipant(id PlayerID) bool {
	ref, err := ParsePlayerRef(id)
	if err != nil {
		return false
	}
	if ref.IsGuest() {
		return ref.GuestIndex < len(t.GuestPlayers)
	}
	return slices.Contains(t.Players, id)
}

// GuestName returns the display name of a guest id
func (t *Tournament) GuestName(id PlayerID) (string, bool) {
	ref, err := ParsePlayerRef(id)
	if err != nil || !ref.IsGuest() || ref.GuestIndex >= len(t.GuestPlayers) {
		return "", false
	}
	return t.GuestPlayers[ref.GuestIndex], true
}

// MatchIndex returns the position of a match, or -1
func (t *Tournament) MatchIndex(id MatchID) int {
	for i := range t.Matches {
		if t.Matches[i].ID == id {
			return i
		}
	}
	return -1
}

// FindMatch returns a pointer into the match list, or nil
func (t *Tournament) FindMatch(id MatchID) *Match {
	if i := t.MatchIndex(id); i >= 0 {
		return &t.Matches[i]
	}
	return nil
}

// ReferencesGuests reports whether any match includes a guest
func (t *Tournament) ReferencesGuests() bool {
	for _, m := range t.Matches {
		for _, p := range m.Participants() {
			if IsGuestID(p) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy
func (t *Tournament) Clone() *Tournament {
	if t == nil {
		return nil
	}
	c := *t
	c.Players = slices.Clone(t.Players)
	c.GuestPlayers = slices.Clone(t.GuestPlayers)
	c.Matches = CloneMatches(t.Matches)
	if c.Players == nil {
		c.Players = []PlayerID{}
	}
	if c.GuestPlayers == nil {
		c.GuestPlayers = []string{}
	}
	return &c
}

// CloneTournaments deep-copies a tournament list
func CloneTournaments(ts []*Tournament) []*Tournament {
	out := make([]*Tournament, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

// TournamentPatch is a partial update merged field by field. A nil field is
// left untouched. Matches, when present, replaces the whole list.
type TournamentPatch struct {
	Name         *string           `json:"name,omitempty"`
	Players      *[]PlayerID       `json:"players,omitempty"`
	GuestPlayers *[]string         `json:"guestPlayers,omitempty"`
	Matches      *[]Match          `json:"matches,omitempty"`
	Status       *TournamentStatus `json:"status,omitempty"`
}

// MatchesPatch returns a patch replacing the match list
func MatchesPatch(ms []Match) TournamentPatch {
	c := CloneMatches(ms)
	return TournamentPatch{Matches: &c}
}

// StatusPatch returns a patch setting the status
func StatusPatch(s TournamentStatus) TournamentPatch {
	return TournamentPatch{Status: &s}
}

// IsEmpty reports whether the patch changes nothing
func (p TournamentPatch) IsEmpty() bool {
	return p.Name == nil && p.Players == nil && p.GuestPlayers == nil && p.Matches == nil && p.Status == nil
}

// TouchesRoster reports whether the patch changes players, guests or matches
func (p TournamentPatch) TouchesRoster() bool {
	return p.Players != nil || p.GuestPlayers != nil || p.Matches != nil
}

// Apply merges the patch into t. Slices are copied so t never aliases the patch.
func (p TournamentPatch) Apply(t *Tournament) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Players != nil {
		t.Players = slices.Clone(*p.Players)
		if t.Players == nil {
			t.Players = []PlayerID{}
		}
	}
	if p.GuestPlayers != nil {
		t.GuestPlayers = slices.Clone(*p.GuestPlayers)
		if t.GuestPlayers == nil {
			t.GuestPlayers = []string{}
		}
	}
	if p.Matches != nil {
		t.Matches = CloneMatches(*p.Matches)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

// ResolvePlayer returns a display name for a participant id. Guests resolve
// through the guest list, members through names, falling back to the raw id.
func (t *Tournament) ResolvePlayer(id PlayerID, names map[UserID]string) string {
	ref, err := ParsePlayerRef(id)
	if err != nil {
		return string(id)
	}
	if ref.IsGuest() {
		if name, ok := t.GuestName(id); ok {
			return name
		}
		return string(id)
	}
	if name, ok := names[ref.MemberID]; ok && name != "" {
		return name
	}
	return string(id)
}
