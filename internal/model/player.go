package model

import (
	"fmt"
	"strconv"
	"strings"
)

// PlayerID identifies a tournament participant. Members use their user id;
// guests use "guest-<index>", positional into the owning tournament's
// GuestPlayers list and only meaningful within that tournament.
type PlayerID string

// PlayerKind distinguishes club members from per-tournament guests
type PlayerKind string

const (
	PlayerKindMember PlayerKind = "member"
	PlayerKindGuest  PlayerKind = "guest"
)

const guestIDPrefix = "guest-"

// PlayerRef is the decoded form of a PlayerID
type PlayerRef struct {
	Kind       PlayerKind
	MemberID   UserID // set when Kind is member
	GuestIndex int    // set when Kind is guest
}

// MemberRef returns a reference to a club member
func MemberRef(id UserID) PlayerRef {
	return PlayerRef{Kind: PlayerKindMember, MemberID: id}
}

// GuestRef returns a reference to the guest at index
func GuestRef(index int) PlayerRef {
	return PlayerRef{Kind: PlayerKindGuest, GuestIndex: index}
}

// GuestPlayerID returns the wire id for the guest at index
func GuestPlayerID(index int) PlayerID {
	return PlayerID(fmt.Sprintf("%s%d", guestIDPrefix, index))
}

// GuestNameKey is the form guest names are compared in
func GuestNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// MemberPlayerID returns the wire id for a member
func MemberPlayerID(id UserID) PlayerID {
	return PlayerID(id)
}

// ParsePlayerRef decodes a wire id. Ids with the guest prefix must carry a
// non-negative integer index.
func ParsePlayerRef(id PlayerID) (PlayerRef, error) {
	s := string(id)
	if strings.TrimSpace(s) == "" {
		return PlayerRef{}, fmt.Errorf("%w: empty", ErrInvalidPlayer)
	}
	if rest, ok := strings.CutPrefix(s, guestIDPrefix); ok {
		index, err := strconv.Atoi(rest)
		if err != nil || index < 0 {
			return PlayerRef{}, fmt.Errorf("%w: %q", ErrInvalidPlayer, s)
		}
		return GuestRef(index), nil
	}
	return MemberRef(UserID(s)), nil
}

// ID returns the wire id for the reference
func (r PlayerRef) ID() PlayerID {
	if r.Kind == PlayerKindGuest {
		return GuestPlayerID(r.GuestIndex)
	}
	return MemberPlayerID(r.MemberID)
}

// IsGuest reports whether the reference points at a guest
func (r PlayerRef) IsGuest() bool {
	return r.Kind == PlayerKindGuest
}

// IsGuestID reports whether id is a guest id
func IsGuestID(id PlayerID) bool {
	ref, err := ParsePlayerRef(id)
	return err == nil && ref.IsGuest()
}
