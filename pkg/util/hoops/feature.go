package hoops

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/richard-senior/hoops/internal/logger"
)

// GameFeature is a game annotated through the pipeline stages. The winner
// and loser annotations live in separate fields, never in renamed columns,
// so a join can never bleed one side's value into the other
type GameFeature struct {
	Game  *GameRecord
	WRank *float64
	LRank *float64
	WRoll *RollingLine
	LRoll *RollingLine
	WSeed *string
	LSeed *string
	// Bracket position, nil for regular season games
	Round      *int
	Conference *string
}

// Clone returns a shallow copy so a stage can annotate without mutating its
// input
func (f *GameFeature) Clone() *GameFeature {
	c := *f
	return &c
}

// NewGameFeatures wraps a game log in unannotated features
func NewGameFeatures(games []*GameRecord) []*GameFeature {
	out := make([]*GameFeature, 0, len(games))
	for _, g := range games {
		out = append(out, &GameFeature{Game: g})
	}
	return out
}

// SideFeatures carries everything describing one participant of a game.
// Schema roles are mapped by swapping whole SideFeatures values, which keeps
// a team's statistics, ranking and seed together no matter which slot the
// team lands in
type SideFeatures struct {
	TeamID int         `json:"teamId" column:"team_id" dbtype:"INTEGER NOT NULL" primary:"true"`
	Loc    string      `json:"loc" column:"loc" dbtype:"TEXT"`
	Rank   *float64    `json:"rank,omitempty" column:"rank" dbtype:"REAL"`
	Seed   *string     `json:"seed,omitempty" column:"seed" dbtype:"TEXT"`
	Line   TeamLine    `json:"line" prefix:""`
	Roll   RollingLine `json:"roll" prefix:"roll_"`
}

// FeatureRow is one training example: one historical game with its two
// participants assigned to slots A and B and the label saying which slot
// won. Identifier and bracket context rides alongside so rows can be
// filtered or audited after the fact
type FeatureRow struct {
	// Identifies which processed set this row belongs to, see ProcessedSet
	SetID      string  `json:"setId" column:"set_id" dbtype:"TEXT NOT NULL" primary:"true" index:"true"`
	Season     int     `json:"season" column:"season" dbtype:"INTEGER NOT NULL" primary:"true" index:"true"`
	DayNum     int     `json:"dayNum" column:"day_num" dbtype:"INTEGER NOT NULL" primary:"true"`
	NumOT      int     `json:"numOt" column:"num_ot" dbtype:"INTEGER DEFAULT 0"`
	Detailed   bool    `json:"detailed" column:"detailed" dbtype:"BOOLEAN DEFAULT 0"`
	Tournament bool    `json:"tournament" column:"tournament" dbtype:"BOOLEAN DEFAULT 0"`
	Round      *int    `json:"round,omitempty" column:"round" dbtype:"INTEGER"`
	Conference *string `json:"conference,omitempty" column:"conference" dbtype:"TEXT"`

	TeamAWins bool         `json:"teamAWins" column:"team_a_wins" dbtype:"BOOLEAN NOT NULL"`
	A         SideFeatures `json:"a" prefix:"a_"`
	B         SideFeatures `json:"b" prefix:"b_"`
}

var _ Persistable = (*FeatureRow)(nil)

func (r *FeatureRow) GetTableName() string {
	return "ProcessedFeatures"
}

func (r *FeatureRow) GetPrimaryKey() map[string]interface{} {
	return map[string]interface{}{
		"set_id":    r.SetID,
		"season":    r.Season,
		"day_num":   r.DayNum,
		"a_team_id": r.A.TeamID,
		"b_team_id": r.B.TeamID,
	}
}

func (r *FeatureRow) BeforeSave() error {
	if r.SetID == "" {
		return fmt.Errorf("feature row has no set id")
	}
	return nil
}

func (r *FeatureRow) AfterSave() error {
	return nil
}

// side builds the SideFeatures for one participant of an annotated game
func side(teamID int, loc string, line TeamLine, rank *float64, roll *RollingLine, seed *string) SideFeatures {
	s := SideFeatures{
		TeamID: teamID,
		Loc:    loc,
		Rank:   rank,
		Seed:   seed,
		Line:   line,
	}
	if roll != nil {
		s.Roll = *roll
	}
	return s
}

/////////////////////////////////////////////////////////////////////////
////// Outcome Symmetrizer
/////////////////////////////////////////////////////////////////////////

// SymmetrizeOutcomes converts winner/loser oriented games into team-A/team-B
// oriented training rows. Each game independently keeps the winner in slot A
// or swaps both sides wholesale with equal probability, so the label is near
// 50/50 and a model cannot learn that slot A always won. Exactly one row is
// produced per game and no statistic is altered, only relocated.
//
// Pass a seed for a reproducible assignment, nil to draw one from the clock
func SymmetrizeOutcomes(features []*GameFeature, seed *int64) []*FeatureRow {
	var s int64
	if seed != nil {
		s = *seed
	} else {
		s = time.Now().UnixNano()
		logger.Info("Symmetrizing with derived seed", s)
	}
	rng := rand.New(rand.NewSource(s))

	rows := make([]*FeatureRow, 0, len(features))
	swapped := 0
	for _, f := range features {
		g := f.Game
		row := &FeatureRow{
			Season:     g.Season,
			DayNum:     g.DayNum,
			NumOT:      g.NumOT,
			Detailed:   g.Detailed,
			Tournament: g.Tournament,
			Round:      f.Round,
			Conference: f.Conference,
		}
		winner := side(g.WTeamID, g.WLoc, g.Winner, f.WRank, f.WRoll, f.WSeed)
		loser := side(g.LTeamID, g.LoserLoc(), g.Loser, f.LRank, f.LRoll, f.LSeed)
		if rng.Intn(2) == 0 {
			row.A, row.B = winner, loser
			row.TeamAWins = true
		} else {
			row.A, row.B = loser, winner
			row.TeamAWins = false
			swapped++
		}
		rows = append(rows, row)
	}
	logger.Debug("Symmetrized", len(rows), "games,", swapped, "with the winner in slot B")
	return rows
}
