package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// All cache keys share one prefix so an operator can scan or flush the
// application's keyspace without touching other tenants of the instance.
const keyPrefix = "teammatch"

// ListingLimits are the page sizes the listing caches are precomputed for.
// Requests for other sizes bypass the cache.
var ListingLimits = []int{10, 20, 50}

// IsCachedLimit reports whether a listing of this size is cache-backed
func IsCachedLimit(limit int) bool {
	for _, l := range ListingLimits {
		if l == limit {
			return true
		}
	}
	return false
}

// TeamsKey is the key for the active-team listing of a given page size
func TeamsKey(limit int) string {
	return fmt.Sprintf("%s:team:all:%d", keyPrefix, limit)
}

// TeamBasicKey is the key for a single team's basic info
func TeamBasicKey(teamID uuid.UUID) string {
	return fmt.Sprintf("%s:team:basic:%s", keyPrefix, teamID)
}

// TeamMembersKey is the key for a team's hydrated member list
func TeamMembersKey(teamID uuid.UUID) string {
	return fmt.Sprintf("%s:team:members:%s", keyPrefix, teamID)
}

// HotTeamsKey is the key for the hot-team listing of a given size
func HotTeamsKey(limit int) string {
	return fmt.Sprintf("%s:team:hot:%d", keyPrefix, limit)
}

// NewTeamsKey is the key for the newest-team listing of a given size
func NewTeamsKey(limit int) string {
	return fmt.Sprintf("%s:team:new:%d", keyPrefix, limit)
}

// RecommendTeamsKey is the key for a user's personalized team listing
func RecommendTeamsKey(userID uuid.UUID, limit int) string {
	return fmt.Sprintf("%s:team:recommend:%s:%d", keyPrefix, userID, limit)
}

// PinnedRecommendationKey is the key for a user's pinned recommendation
// override set by an administrator.
func PinnedRecommendationKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:user:pinned:%s", keyPrefix, userID)
}

// RecommendUsersKey is the key for a user's tag-matched user listing
func RecommendUsersKey(userID uuid.UUID, limit int) string {
	return fmt.Sprintf("%s:user:recommend:%s:%d", keyPrefix, userID, limit)
}

// LeaseKey is the key a distributed lease is held under
func LeaseKey(name string) string {
	return keyPrefix + ":lock:" + name
}

// MutationKeys returns every listing key invalidated by a roster or team
// mutation. Per-user recommendation keys expire on their own TTL.
func MutationKeys(teamID uuid.UUID) []string {
	keys := []string{
		TeamBasicKey(teamID),
		TeamMembersKey(teamID),
	}
	for _, limit := range ListingLimits {
		keys = append(keys, TeamsKey(limit), HotTeamsKey(limit), NewTeamsKey(limit))
	}
	return keys
}
