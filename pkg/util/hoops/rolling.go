package hoops

import (
	"math"
	"sort"
	"sync"

	"github.com/richard-senior/hoops/internal/logger"
)

// RollingLine holds a team's trailing-window means as of one of its game
// days: the simple moving average of each raw statistic over the team's own
// most recent games, plus ratios derived from the rolled numerators and
// denominators. For compact results only Score is available and the detailed
// fields are NaN
type RollingLine struct {
	Season int `json:"season"`
	TeamID int `json:"teamId"`
	DayNum int `json:"dayNum"`

	Score float64 `json:"score" column:"score" dbtype:"REAL"`
	FGM   float64 `json:"fgm" column:"fgm" dbtype:"REAL"`
	FGA   float64 `json:"fga" column:"fga" dbtype:"REAL"`
	FGM3  float64 `json:"fgm3" column:"fgm3" dbtype:"REAL"`
	FGA3  float64 `json:"fga3" column:"fga3" dbtype:"REAL"`
	FTM   float64 `json:"ftm" column:"ftm" dbtype:"REAL"`
	FTA   float64 `json:"fta" column:"fta" dbtype:"REAL"`
	OR    float64 `json:"or" column:"oreb" dbtype:"REAL"`
	DR    float64 `json:"dr" column:"dreb" dbtype:"REAL"`
	Ast   float64 `json:"ast" column:"ast" dbtype:"REAL"`
	TO    float64 `json:"to" column:"turnover" dbtype:"REAL"`
	Stl   float64 `json:"stl" column:"stl" dbtype:"REAL"`
	Blk   float64 `json:"blk" column:"blk" dbtype:"REAL"`

	// Derived from the rolled numerators/denominators, not from pre-rolled
	// ratios, so small denominators cannot bias the window
	FGPct  float64 `json:"fgPct" column:"fg_pct" dbtype:"REAL"`
	FG3Pct float64 `json:"fg3Pct" column:"fg3_pct" dbtype:"REAL"`
	FTPct  float64 `json:"ftPct" column:"ft_pct" dbtype:"REAL"`
	TRB    float64 `json:"trb" column:"trb" dbtype:"REAL"`
}

// teamAppearance is one game from a single team's point of view
type teamAppearance struct {
	dayNum   int
	order    int // position in the input table, for a stable within-day order
	line     TeamLine
	detailed bool
}

type partitionKey struct {
	season int
	teamID int
}

/////////////////////////////////////////////////////////////////////////
////// Rolling Stats Engine
/////////////////////////////////////////////////////////////////////////

// ComputeRollingStats computes, for every (season, team, game day), the
// trailing mean of each statistic over that team's own last windowSize games
// at or before that day, with a minimum window of one game. Wins and losses
// both count toward a team's own history. Seasons are independent partitions:
// a window never crosses a season boundary, and a team's line for a day can
// never change when later games are added to the input.
//
// Each (season, team) partition depends only on that team's own games, so
// partitions are processed concurrently
func ComputeRollingStats(games []*GameRecord, windowSize int) []*RollingLine {
	if windowSize < 1 {
		windowSize = 1
	}

	// Group the game log into per-team appearance partitions
	partitions := make(map[partitionKey][]teamAppearance)
	for i, g := range games {
		wKey := partitionKey{g.Season, g.WTeamID}
		partitions[wKey] = append(partitions[wKey], teamAppearance{g.DayNum, i, g.Winner, g.Detailed})
		lKey := partitionKey{g.Season, g.LTeamID}
		partitions[lKey] = append(partitions[lKey], teamAppearance{g.DayNum, i, g.Loser, g.Detailed})
	}

	keys := make([]partitionKey, 0, len(partitions))
	for key := range partitions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].season != keys[j].season {
			return keys[i].season < keys[j].season
		}
		return keys[i].teamID < keys[j].teamID
	})

	results := make([][]*RollingLine, len(keys))
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key partitionKey) {
			defer wg.Done()
			results[i] = rollPartition(key, partitions[key], windowSize)
		}(i, key)
	}
	wg.Wait()

	out := make([]*RollingLine, 0, len(games)*2)
	for _, lines := range results {
		out = append(out, lines...)
	}
	logger.Info("Computed rolling stats for", len(keys), "team seasons, window", windowSize)
	return out
}

// rollPartition computes the trailing means for one team's one-season game
// history, in chronological order
func rollPartition(key partitionKey, appearances []teamAppearance, windowSize int) []*RollingLine {
	sort.Slice(appearances, func(i, j int) bool {
		if appearances[i].dayNum != appearances[j].dayNum {
			return appearances[i].dayNum < appearances[j].dayNum
		}
		return appearances[i].order < appearances[j].order
	})

	out := make([]*RollingLine, 0, len(appearances))
	for i := range appearances {
		start := i - windowSize + 1
		if start < 0 {
			start = 0
		}
		window := appearances[start : i+1]

		var sum TeamLine
		detailed := true
		for _, a := range window {
			sum.Score += a.line.Score
			sum.FGM += a.line.FGM
			sum.FGA += a.line.FGA
			sum.FGM3 += a.line.FGM3
			sum.FGA3 += a.line.FGA3
			sum.FTM += a.line.FTM
			sum.FTA += a.line.FTA
			sum.OR += a.line.OR
			sum.DR += a.line.DR
			sum.Ast += a.line.Ast
			sum.TO += a.line.TO
			sum.Stl += a.line.Stl
			sum.Blk += a.line.Blk
			if !a.detailed {
				detailed = false
			}
		}

		count := float64(len(window))
		line := &RollingLine{
			Season: key.season,
			TeamID: key.teamID,
			DayNum: appearances[i].dayNum,
			Score:  float64(sum.Score) / count,
		}
		if detailed {
			line.FGM = float64(sum.FGM) / count
			line.FGA = float64(sum.FGA) / count
			line.FGM3 = float64(sum.FGM3) / count
			line.FGA3 = float64(sum.FGA3) / count
			line.FTM = float64(sum.FTM) / count
			line.FTA = float64(sum.FTA) / count
			line.OR = float64(sum.OR) / count
			line.DR = float64(sum.DR) / count
			line.Ast = float64(sum.Ast) / count
			line.TO = float64(sum.TO) / count
			line.Stl = float64(sum.Stl) / count
			line.Blk = float64(sum.Blk) / count
			line.FGPct = safeRatio(float64(sum.FGM), float64(sum.FGA))
			line.FG3Pct = safeRatio(float64(sum.FGM3), float64(sum.FGA3))
			line.FTPct = safeRatio(float64(sum.FTM), float64(sum.FTA))
			line.TRB = line.OR + line.DR
		} else {
			nan := math.NaN()
			line.FGM, line.FGA, line.FGM3, line.FGA3 = nan, nan, nan, nan
			line.FTM, line.FTA, line.OR, line.DR = nan, nan, nan, nan
			line.Ast, line.TO, line.Stl, line.Blk = nan, nan, nan, nan
			line.FGPct, line.FG3Pct, line.FTPct, line.TRB = nan, nan, nan, nan
		}
		out = append(out, line)
	}
	return out
}

// safeRatio divides rolled numerator by rolled denominator, NaN when the
// team never attempted the shot inside the window
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}

// AttachRollingStats joins the rolled lines back onto each game for both
// participants. The two sides land in disjoint fields so the rolled values
// can never collide. A missing line (a team-day absent from the rolled
// table) becomes nil, never an error
func AttachRollingStats(features []*GameFeature, rolls []*RollingLine) []*GameFeature {
	type rollKey struct {
		season, teamID, dayNum int
	}
	idx := make(map[rollKey]*RollingLine, len(rolls))
	for _, r := range rolls {
		idx[rollKey{r.Season, r.TeamID, r.DayNum}] = r
	}

	out := make([]*GameFeature, 0, len(features))
	for _, f := range features {
		c := f.Clone()
		g := c.Game
		c.WRoll = idx[rollKey{g.Season, g.WTeamID, g.DayNum}]
		c.LRoll = idx[rollKey{g.Season, g.LTeamID, g.DayNum}]
		out = append(out, c)
	}
	return out
}
