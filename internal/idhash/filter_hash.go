package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"airdrop-scout/internal/domain"
)

// ComputeFilterHash computes a deterministic hash of a project filter using SHA256.
// Formula: SHA256(statuses|chains|project_ids), each list sorted and comma-joined.
// Returns hex-encoded hash (64 characters). Element order does not matter.
func ComputeFilterHash(filter domain.ProjectFilter) string {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)

	chains := make([]uint64, 0, len(filter.Chains))
	for _, c := range filter.Chains {
		chains = append(chains, uint64(c))
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	chainStrs := make([]string, 0, len(chains))
	for _, c := range chains {
		chainStrs = append(chainStrs, fmt.Sprintf("%d", c))
	}

	projectIDs := append([]string(nil), filter.ProjectIDs...)
	sort.Strings(projectIDs)

	data := fmt.Sprintf("%s|%s|%s",
		strings.Join(statuses, ","),
		strings.Join(chainStrs, ","),
		strings.Join(projectIDs, ","),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
