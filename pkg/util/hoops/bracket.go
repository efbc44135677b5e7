package hoops

import (
	"fmt"
	"sort"
	"strings"

	"github.com/richard-senior/hoops/internal/logger"
)

// SeedRecord is one tournament seeding entry, e.g. region W seed 01, or a
// play-in seed like X16a
type SeedRecord struct {
	Season int    `json:"season"`
	Seed   string `json:"seed"`
	TeamID int    `json:"teamId"`
}

func (s *SeedRecord) Validate() error {
	if len(s.Seed) < 2 {
		return fmt.Errorf("seed '%s' is too short to carry a region and a number", s.Seed)
	}
	return nil
}

// Region is the leading region character of the seed
func (s *SeedRecord) Region() string {
	return s.Seed[:1]
}

// Portion is the seed with the region stripped, e.g. "01" or "16a". A
// trailing a or b marks a play-in slot
func (s *SeedRecord) Portion() string {
	return s.Seed[1:]
}

// FinalFourConference labels a game between teams from different regions
const FinalFourConference = "Final Four"

// MaxRound is the championship game in a 64 team bracket
const MaxRound = 6

type seedKey struct {
	season int
	teamID int
}

/////////////////////////////////////////////////////////////////////////
////// Bracket Structure Resolver
/////////////////////////////////////////////////////////////////////////

// ResolveBracket annotates tournament games with their bracket position:
// the two teams' seed portions, the round number and the conference label.
// Play-in games, where both seed portions carry an a or b slot letter, are
// round 0. Every other tournament game takes the winning team's cumulative
// win count within the season as its round, so a team's fourth win is a
// round 4 game. The conference is the shared region character, or
// "Final Four" when the regions differ.
//
// Regular season games pass through untouched with nil bracket fields, and
// the full set comes back ordered by season and day
func ResolveBracket(features []*GameFeature, seeds []*SeedRecord) []*GameFeature {
	seedIdx := make(map[seedKey]*SeedRecord, len(seeds))
	for _, s := range seeds {
		seedIdx[seedKey{s.Season, s.TeamID}] = s
	}

	var regular, firstFour, mainDraw []*GameFeature
	for _, f := range features {
		c := f.Clone()
		if !c.Game.Tournament {
			regular = append(regular, c)
			continue
		}
		w := seedIdx[seedKey{c.Game.Season, c.Game.WTeamID}]
		l := seedIdx[seedKey{c.Game.Season, c.Game.LTeamID}]
		if w == nil || l == nil {
			logger.Warn("Tournament game without full seeding", c.Game.Season, c.Game.WTeamID, "v", c.Game.LTeamID)
		}
		if w != nil {
			c.WSeed = strPtr(w.Portion())
		}
		if l != nil {
			c.LSeed = strPtr(l.Portion())
		}
		c.Conference = conferenceFor(w, l)
		if isPlayIn(w) && isPlayIn(l) {
			c.Round = intPtr(0)
			firstFour = append(firstFour, c)
		} else {
			mainDraw = append(mainDraw, c)
		}
	}

	assignRounds(mainDraw)

	out := make([]*GameFeature, 0, len(features))
	out = append(out, regular...)
	out = append(out, firstFour...)
	out = append(out, mainDraw...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Game.Season != out[j].Game.Season {
			return out[i].Game.Season < out[j].Game.Season
		}
		return out[i].Game.DayNum < out[j].Game.DayNum
	})
	return out
}

// assignRounds numbers the non play-in tournament games by the winning
// team's win count so far that season, in day order
func assignRounds(games []*GameFeature) {
	sort.SliceStable(games, func(i, j int) bool {
		gi, gj := games[i].Game, games[j].Game
		if gi.Season != gj.Season {
			return gi.Season < gj.Season
		}
		if gi.WTeamID != gj.WTeamID {
			return gi.WTeamID < gj.WTeamID
		}
		return gi.DayNum < gj.DayNum
	})
	wins := make(map[seedKey]int)
	for _, f := range games {
		key := seedKey{f.Game.Season, f.Game.WTeamID}
		wins[key]++
		round := wins[key]
		if round > MaxRound {
			logger.Warn("Round", round, "exceeds bracket depth for team", f.Game.WTeamID, "season", f.Game.Season)
		}
		f.Round = intPtr(round)
	}
}

// isPlayIn reports whether the seed carries an a or b slot letter
func isPlayIn(s *SeedRecord) bool {
	if s == nil {
		return false
	}
	return strings.ContainsAny(s.Portion(), "ab")
}

// conferenceFor resolves the game's conference label from the two seeds,
// nil when either team is unseeded
func conferenceFor(w, l *SeedRecord) *string {
	if w == nil || l == nil {
		return nil
	}
	if w.Region() == l.Region() {
		return strPtr(w.Region())
	}
	return strPtr(FinalFourConference)
}

func intPtr(v int) *int {
	return &v
}

func strPtr(v string) *string {
	return &v
}
