package model

// Collection names a mirrored remote collection
type Collection string

const (
	CollectionTournaments Collection = "tournaments"
	CollectionClubs       Collection = "clubs"
	CollectionUsers       Collection = "users"
)

// Collections lists every mirrored collection
func Collections() []Collection {
	return []Collection{CollectionTournaments, CollectionClubs, CollectionUsers}
}

// Valid reports whether c is a known collection
func (c Collection) Valid() bool {
	switch c {
	case CollectionTournaments, CollectionClubs, CollectionUsers:
		return true
	}
	return false
}

// Snapshot is the full content of one collection at a point in time. Only the
// slice matching Collection is populated.
type Snapshot struct {
	Collection  Collection
	Tournaments []*Tournament
	Clubs       []*Club
	Users       []*User
}

// Len returns the number of documents in the snapshot
func (s Snapshot) Len() int {
	switch s.Collection {
	case CollectionTournaments:
		return len(s.Tournaments)
	case CollectionClubs:
		return len(s.Clubs)
	case CollectionUsers:
		return len(s.Users)
	}
	return 0
}

// Clone returns a deep copy of the snapshot
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{Collection: s.Collection}
	if s.Tournaments != nil {
		c.Tournaments = CloneTournaments(s.Tournaments)
	}
	if s.Clubs != nil {
		c.Clubs = CloneClubs(s.Clubs)
	}
	if s.Users != nil {
		c.Users = CloneUsers(s.Users)
	}
	return c
}
