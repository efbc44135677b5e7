package hoops

import (
	"fmt"

	"github.com/richard-senior/hoops/internal/logger"
)

// TeamLine holds one side's box score for a single game. Compact results
// populate Score only; the owning GameRecord's Detailed flag says which
// fields are meaningful. The column/dbtype tags are used when a line is
// flattened into the persisted feature table
type TeamLine struct {
	Score int `json:"score" column:"score" dbtype:"INTEGER DEFAULT 0"`
	FGM   int `json:"fgm" column:"fgm" dbtype:"INTEGER DEFAULT 0"`
	FGA   int `json:"fga" column:"fga" dbtype:"INTEGER DEFAULT 0"`
	FGM3  int `json:"fgm3" column:"fgm3" dbtype:"INTEGER DEFAULT 0"`
	FGA3  int `json:"fga3" column:"fga3" dbtype:"INTEGER DEFAULT 0"`
	FTM   int `json:"ftm" column:"ftm" dbtype:"INTEGER DEFAULT 0"`
	FTA   int `json:"fta" column:"fta" dbtype:"INTEGER DEFAULT 0"`
	OR    int `json:"or" column:"oreb" dbtype:"INTEGER DEFAULT 0"`
	DR    int `json:"dr" column:"dreb" dbtype:"INTEGER DEFAULT 0"`
	Ast   int `json:"ast" column:"ast" dbtype:"INTEGER DEFAULT 0"`
	TO    int `json:"to" column:"turnover" dbtype:"INTEGER DEFAULT 0"`
	Stl   int `json:"stl" column:"stl" dbtype:"INTEGER DEFAULT 0"`
	Blk   int `json:"blk" column:"blk" dbtype:"INTEGER DEFAULT 0"`
}

// GameRecord represents one completed game in winner/loser orientation
type GameRecord struct {
	Season  int    `json:"season"`
	DayNum  int    `json:"dayNum"`
	WTeamID int    `json:"wTeamId"`
	LTeamID int    `json:"lTeamId"`
	WLoc    string `json:"wLoc"` // H, A or N, from the winner's point of view
	NumOT   int    `json:"numOt"`

	Winner TeamLine `json:"winner"`
	Loser  TeamLine `json:"loser"`

	Detailed   bool `json:"detailed"`
	Tournament bool `json:"tournament"`
}

// TeamRecord maps a team id to its name, from the Teams table when present.
// Only needed by the ordinal-rankings scrape fallback
type TeamRecord struct {
	TeamID   int    `json:"teamId"`
	TeamName string `json:"teamName"`
}

// Validate checks the GameRecord invariants
func (g *GameRecord) Validate() error {
	if g.WTeamID == g.LTeamID {
		return fmt.Errorf("game in season %d day %d has identical winner and loser %d", g.Season, g.DayNum, g.WTeamID)
	}
	if g.DayNum < 0 {
		return fmt.Errorf("game in season %d has negative day number %d", g.Season, g.DayNum)
	}
	return nil
}

// LoserLoc returns the game location from the loser's point of view
func (g *GameRecord) LoserLoc() string {
	switch g.WLoc {
	case "H":
		return "A"
	case "A":
		return "H"
	default:
		return g.WLoc
	}
}

/////////////////////////////////////////////////////////////////////////
////// Result Combiner
/////////////////////////////////////////////////////////////////////////

// CombineSeasonResults merges the regular-season and tournament tables of
// each shape into a single combined table, tagging the tournament flag per
// source before concatenation. If either half of a pair is missing that
// combined table is not produced and the originals are left alone
func CombineSeasonResults(ds *Dataset) *Dataset {
	out := ds.Clone()
	combinePair(out, TableRegularSeasonDetailed, TableTourneyDetailed, TableCombinedDetailed)
	combinePair(out, TableRegularSeasonCompact, TableTourneyCompact, TableCombinedCompact)
	return out
}

func combinePair(ds *Dataset, regularName, tourneyName, combinedName string) {
	regular, haveRegular := ds.Games[regularName]
	tourney, haveTourney := ds.Games[tourneyName]
	if !haveRegular || !haveTourney {
		// Compact-only or detailed-only datasets are legitimate inputs
		logger.Debug("Skipping combination, pair incomplete for", combinedName)
		return
	}

	combined := make([]*GameRecord, 0, len(regular)+len(tourney))
	for _, g := range regular {
		c := *g
		c.Tournament = false
		combined = append(combined, &c)
	}
	for _, g := range tourney {
		c := *g
		c.Tournament = true
		combined = append(combined, &c)
	}

	ds.Games[combinedName] = combined
	delete(ds.Games, regularName)
	delete(ds.Games, tourneyName)
	logger.Info("Combined", len(regular), "regular season and", len(tourney), "tournament games into", combinedName)
}
