package storage

import (
	"cmp"
	"slices"

	"github.com/mcoot/doublesclub/internal/model"
)

// Listings are ordered by creation time, then id, on every backend.

func SortTournaments(ts []*model.Tournament) {
	slices.SortFunc(ts, func(a, b *model.Tournament) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
}

func SortClubs(cs []*model.Club) {
	slices.SortFunc(cs, func(a, b *model.Club) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
}

func SortUsers(us []*model.User) {
	slices.SortFunc(us, func(a, b *model.User) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
}
