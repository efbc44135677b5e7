package hoops

import (
	"fmt"
	"sort"

	"github.com/richard-senior/hoops/internal/logger"
)

// RankingRecord is one raw ordinal ranking: a ranking system's rank for a
// team on a given day of a season. Several systems may rank the same team
// on the same day
type RankingRecord struct {
	Season        int    `json:"season"`
	RankingDayNum int    `json:"rankingDayNum"`
	SystemName    string `json:"systemName"`
	TeamID        int    `json:"teamId"`
	OrdinalRank   int    `json:"ordinalRank"`
}

// Validate checks the RankingRecord invariants
func (r *RankingRecord) Validate() error {
	if r.OrdinalRank < 1 {
		return fmt.Errorf("ranking for team %d in season %d has non-positive ordinal %d", r.TeamID, r.Season, r.OrdinalRank)
	}
	return nil
}

// TeamRanking is one processed per-team/day ranking. Rank is a float because
// a median across an even number of systems can fall between two ordinals
type TeamRanking struct {
	Season        int     `json:"season"`
	TeamID        int     `json:"teamId"`
	RankingDayNum int     `json:"rankingDayNum"`
	SystemName    string  `json:"systemName"`
	Rank          float64 `json:"rank"`
}

// MedianSystemName labels processed rankings aggregated across systems
const MedianSystemName = "MEDIAN"

/////////////////////////////////////////////////////////////////////////
////// Ranking Processor
/////////////////////////////////////////////////////////////////////////

// ProcessRankings normalizes raw ordinal rankings into one series per
// (season, team, day). With a single system name the series is that system's
// ordinals and an empty result is a configuration error. With several names,
// or none (meaning all systems), the series is the median ordinal across the
// selected systems
func ProcessRankings(records []*RankingRecord, systems []string) ([]*TeamRanking, error) {
	if len(systems) == 1 {
		return singleSystemRankings(records, systems[0])
	}
	return medianRankings(records, systems)
}

func singleSystemRankings(records []*RankingRecord, system string) ([]*TeamRanking, error) {
	out := make([]*TeamRanking, 0)
	for _, r := range records {
		if r.SystemName != system {
			continue
		}
		out = append(out, &TeamRanking{
			Season:        r.Season,
			TeamID:        r.TeamID,
			RankingDayNum: r.RankingDayNum,
			SystemName:    r.SystemName,
			Rank:          float64(r.OrdinalRank),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no rankings found for system '%s'", system)
	}
	sortRankings(out)
	logger.Info("Processed", len(out), "rankings for system", system)
	return out, nil
}

func medianRankings(records []*RankingRecord, systems []string) ([]*TeamRanking, error) {
	selected := make(map[string]bool, len(systems))
	for _, s := range systems {
		selected[s] = true
	}

	type groupKey struct {
		season, teamID, dayNum int
	}
	groups := make(map[groupKey][]float64)
	for _, r := range records {
		if len(selected) > 0 && !selected[r.SystemName] {
			continue
		}
		key := groupKey{r.Season, r.TeamID, r.RankingDayNum}
		groups[key] = append(groups[key], float64(r.OrdinalRank))
	}

	out := make([]*TeamRanking, 0, len(groups))
	for key, ordinals := range groups {
		out = append(out, &TeamRanking{
			Season:        key.season,
			TeamID:        key.teamID,
			RankingDayNum: key.dayNum,
			SystemName:    MedianSystemName,
			Rank:          median(ordinals),
		})
	}
	sortRankings(out)
	logger.Info("Processed", len(out), "median rankings across", len(systems), "selected systems")
	return out, nil
}

// median computes the stable, order-independent median: the middle value for
// an odd count, the average of the two middle values for an even count
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2.0
}

// sortRankings orders processed rankings deterministically by season, team,
// day then system name
func sortRankings(ranks []*TeamRanking) {
	sort.SliceStable(ranks, func(i, j int) bool {
		a, b := ranks[i], ranks[j]
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.TeamID != b.TeamID {
			return a.TeamID < b.TeamID
		}
		if a.RankingDayNum != b.RankingDayNum {
			return a.RankingDayNum < b.RankingDayNum
		}
		return a.SystemName < b.SystemName
	})
}

/////////////////////////////////////////////////////////////////////////
////// Temporal Ranking Joiner
/////////////////////////////////////////////////////////////////////////

type rankKey struct {
	season int
	teamID int
}

// rankingIndex groups processed rankings by (season, team), each group
// ordered by ranking day then system name so that the last qualifying entry
// is the join result
type rankingIndex map[rankKey][]*TeamRanking

func buildRankingIndex(ranks []*TeamRanking) rankingIndex {
	idx := make(rankingIndex)
	for _, r := range ranks {
		key := rankKey{r.Season, r.TeamID}
		idx[key] = append(idx[key], r)
	}
	for key := range idx {
		group := idx[key]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].RankingDayNum != group[j].RankingDayNum {
				return group[i].RankingDayNum < group[j].RankingDayNum
			}
			return group[i].SystemName < group[j].SystemName
		})
	}
	return idx
}

// latestAtOrBefore returns the most recent ranking for (season, team) whose
// ranking day is at or before dayNum, or nil when the team has no qualifying
// ranking. Ties on the ranking day resolve to the lexicographically last
// system name, which is deterministic for identical inputs
func (idx rankingIndex) latestAtOrBefore(season, teamID, dayNum int) *TeamRanking {
	group, ok := idx[rankKey{season, teamID}]
	if !ok {
		return nil
	}
	// First entry strictly after dayNum; everything before it qualifies
	n := sort.Search(len(group), func(i int) bool {
		return group[i].RankingDayNum > dayNum
	})
	if n == 0 {
		return nil
	}
	return group[n-1]
}

// AttachRankings performs the as-of join for both sides of every game and
// combines the two results on the shared (season, day) key. A side with no
// qualifying ranking gets a nil rank, never an error
func AttachRankings(games []*GameRecord, ranks []*TeamRanking) []*GameFeature {
	idx := buildRankingIndex(ranks)

	out := make([]*GameFeature, 0, len(games))
	misses := 0
	for _, g := range games {
		feature := &GameFeature{Game: g}
		if r := idx.latestAtOrBefore(g.Season, g.WTeamID, g.DayNum); r != nil {
			feature.WRank = floatPtr(r.Rank)
		} else {
			misses++
		}
		if r := idx.latestAtOrBefore(g.Season, g.LTeamID, g.DayNum); r != nil {
			feature.LRank = floatPtr(r.Rank)
		} else {
			misses++
		}
		out = append(out, feature)
	}
	if misses > 0 {
		logger.Debug("Ranking join left", misses, "game sides unranked")
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }
