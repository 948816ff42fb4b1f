package idhash

import (
	"strings"

	"airdrop-scout/internal/domain"
)

// Cache key namespaces.
const (
	NamespaceOpportunities = "opportunities"
	NamespaceScore         = "score"
)

// CacheKey joins namespace and parts with ':'.
func CacheKey(namespace string, parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

// OpportunitiesKey returns "opportunities:<address>:<filterHash>".
func OpportunitiesKey(address string, filter domain.ProjectFilter) string {
	return CacheKey(NamespaceOpportunities, strings.ToLower(address), ComputeFilterHash(filter))
}

// ScoreKey returns "score:<address>:<projectID>".
func ScoreKey(address, projectID string) string {
	return CacheKey(NamespaceScore, strings.ToLower(address), projectID)
}
