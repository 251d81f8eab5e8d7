package model

import (
	"slices"
	"time"
)

// ClubID identifies a club
type ClubID string

// Club is a group of members who share tournaments
type Club struct {
	ID        ClubID    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []UserID  `json:"memberIds"`
	CreatedBy UserID    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasMember reports whether the user belongs to the club
func (c *Club) HasMember(id UserID) bool {
	return slices.Contains(c.MemberIDs, id)
}

// Clone returns a deep copy
func (c *Club) Clone() *Club {
	if c == nil {
		return nil
	}
	cp := *c
	cp.MemberIDs = slices.Clone(c.MemberIDs)
	if cp.MemberIDs == nil {
		cp.MemberIDs = []UserID{}
	}
	return &cp
}

// CloneClubs deep-copies a club list
func CloneClubs(cs []*Club) []*Club {
	out := make([]*Club, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}
