package registry

import (
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/agentnet/bus"
	"github.com/BaSui01/agentnet/types"
)

// Match scoring ladder for capability queries. An exact name match always
// outranks a substring name match, which outranks a description match, which
// outranks a tag match, before any reliability/load adjustment is applied.
const (
	scoreExactName       = 1.0
	scoreSubstringName   = 0.8
	scoreDescription     = 0.6
	scoreTag             = 0.4
	scoreUnnamedBaseline = 0.5
)

// QueryCapabilities searches every online agent's capabilities against the
// query. Filters are applied first: a capability that fails the category,
// tag, reliability, or cost filter is discarded before scoring. Surviving
// capabilities are scored on the match ladder, adjusted by
// +reliability*0.2 - (load/100)*0.1 with a floor of zero, kept when the
// adjusted score clears the configured minimum, sorted descending, and
// truncated to the query limit.
func (r *Registry) QueryCapabilities(query *types.CapabilityQuery) []types.CapabilityMatch {
	if query == nil {
		query = &types.CapabilityQuery{}
	}

	r.mu.RLock()
	matches := make([]types.CapabilityMatch, 0)
	for _, p := range r.profiles {
		if p.Status == types.StatusOffline {
			continue
		}
		if query.AvailableOnly && !p.Online() {
			continue
		}
		for _, c := range p.Capabilities {
			if !passesFilters(&c, query) {
				continue
			}
			score := matchScore(&c, query.Name)
			if score == 0 {
				continue
			}
			score += c.Reliability * 0.2
			score -= p.Metadata.Load / 100 * 0.1
			if score < 0 {
				score = 0
			}
			if score <= r.config.MinQueryScore {
				continue
			}
			matches = append(matches, types.CapabilityMatch{
				AgentID:    p.ID,
				Capability: c,
				Score:      score,
			})
		}
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].AgentID < matches[j].AgentID
	})
	if query.Limit > 0 && len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}

	r.publish(&bus.CapabilityDiscovered{
		Query:   query.Name,
		Matches: len(matches),
		At:      time.Now(),
	})
	return matches
}

func passesFilters(c *types.AgentCapability, query *types.CapabilityQuery) bool {
	if query.Category != "" && c.Category != query.Category {
		return false
	}
	if len(query.Tags) > 0 && !tagsIntersect(c.Tags, query.Tags) {
		return false
	}
	if query.MinReliability > 0 && c.Reliability < query.MinReliability {
		return false
	}
	if query.MaxCost > 0 && c.Cost > query.MaxCost {
		return false
	}
	return true
}

func tagsIntersect(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}

// matchScore places a capability on the scoring ladder against the queried
// name. A query without a name gets a flat baseline so filter-only queries
// still return results.
func matchScore(c *types.AgentCapability, name string) float64 {
	if name == "" {
		return scoreUnnamedBaseline
	}
	query := strings.ToLower(name)
	capName := strings.ToLower(c.Name)

	switch {
	case capName == query:
		return scoreExactName
	case strings.Contains(capName, query) || strings.Contains(query, capName):
		return scoreSubstringName
	case c.Description != "" && strings.Contains(strings.ToLower(c.Description), query):
		return scoreDescription
	case tagContains(c.Tags, query):
		return scoreTag
	}
	return 0
}

func tagContains(tags []string, query string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), query) {
			return true
		}
	}
	return false
}
