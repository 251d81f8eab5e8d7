package redis

import (
	"fmt"
	"strings"

	"github.com/mcoot/doublesclub/internal/model"
)

// Key prefix for all club data
const keyPrefix = "doubles"

// tournamentKey returns the Redis key for a Tournament document
func tournamentKey(id model.TournamentID) string {
	return fmt.Sprintf("%s:tournament:%s", keyPrefix, id)
}

// clubKey returns the Redis key for a Club document
func clubKey(id model.ClubID) string {
	return fmt.Sprintf("%s:club:%s", keyPrefix, id)
}

// userKey returns the Redis key for a User document
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// credentialsKey returns the Redis key for login credentials, by lowercased username
func credentialsKey(username string) string {
	return fmt.Sprintf("%s:credentials:%s", keyPrefix, strings.ToLower(username))
}

// collectionIndexKey returns the Redis key for the SET of document keys in a collection
func collectionIndexKey(c model.Collection) string {
	return fmt.Sprintf("%s:idx:%s", keyPrefix, c)
}

// changesChannel returns the pub/sub channel announcing writes to a collection
func changesChannel(c model.Collection) string {
	return fmt.Sprintf("%s:changes:%s", keyPrefix, c)
}
