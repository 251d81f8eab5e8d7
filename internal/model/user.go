package model

import "time"

// UserID uniquely identifies a registered user
type UserID string

// User is the public profile mirrored to every client
type User struct {
	ID           UserID    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	ActiveClubID ClubID    `json:"activeClubId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PlayerID returns the id the user plays under as a club member
func (u *User) PlayerID() PlayerID {
	return MemberPlayerID(u.ID)
}

// Clone returns a copy
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// CloneUsers copies a user list
func CloneUsers(us []*User) []*User {
	out := make([]*User, len(us))
	for i, u := range us {
		out[i] = u.Clone()
	}
	return out
}

// Credentials holds login data. Stored apart from User so password hashes
// never reach the mirrored users collection.
type Credentials struct {
	UserID       UserID    `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
