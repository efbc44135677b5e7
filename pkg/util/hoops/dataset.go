package hoops

import (
	"github.com/richard-senior/hoops/internal/logger"
)

// Logical table names, matching the raw file stems once the gender prefix
// has been stripped
const (
	TableRegularSeasonDetailed = "RegularSeasonDetailedResults"
	TableRegularSeasonCompact  = "RegularSeasonCompactResults"
	TableTourneyDetailed       = "NCAATourneyDetailedResults"
	TableTourneyCompact        = "NCAATourneyCompactResults"
	TableCombinedDetailed      = "CombinedDetailedResults"
	TableCombinedCompact       = "CombinedCompactResults"
	TableMasseyOrdinals        = "MasseyOrdinals"
	TableTourneySeeds          = "NCAATourneySeeds"
	TableTeams                 = "Teams"
)

// Dataset is the mapping of logical table names to raw (or combined) tables
// that the pipeline stages consume. A Dataset is never mutated once handed to
// a stage; stages that change it return a fresh one
type Dataset struct {
	Games    map[string][]*GameRecord
	Rankings []*RankingRecord
	Seeds    []*SeedRecord
	Teams    []*TeamRecord
}

// NewDataset returns an empty dataset ready to be populated by a loader
func NewDataset() *Dataset {
	return &Dataset{
		Games: make(map[string][]*GameRecord),
	}
}

// Clone returns a dataset whose table map can be modified without affecting
// the receiver. The records themselves are shared; callers that change a
// record must copy it first
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Games:    make(map[string][]*GameRecord, len(d.Games)),
		Rankings: d.Rankings,
		Seeds:    d.Seeds,
		Teams:    d.Teams,
	}
	for name, games := range d.Games {
		out.Games[name] = games
	}
	return out
}

// FilterByYear returns a dataset containing only records for the given
// season year. Year 0 returns the receiver's contents unfiltered
func (d *Dataset) FilterByYear(year int) *Dataset {
	if year == 0 {
		return d.Clone()
	}

	out := NewDataset()
	for name, games := range d.Games {
		kept := make([]*GameRecord, 0, len(games))
		for _, g := range games {
			if g.Season == year {
				kept = append(kept, g)
			}
		}
		out.Games[name] = kept
	}
	for _, r := range d.Rankings {
		if r.Season == year {
			out.Rankings = append(out.Rankings, r)
		}
	}
	for _, s := range d.Seeds {
		if s.Season == year {
			out.Seeds = append(out.Seeds, s)
		}
	}
	// Team id/name records carry no season column and pass through unfiltered
	out.Teams = d.Teams
	return out
}

// CombinedGames returns the preferred combined results table, detailed when
// present, otherwise compact. The second return is false when the combiner
// produced neither table (an unpaired or empty dataset)
func (d *Dataset) CombinedGames() ([]*GameRecord, bool) {
	if games, ok := d.Games[TableCombinedDetailed]; ok {
		return games, true
	}
	if games, ok := d.Games[TableCombinedCompact]; ok {
		logger.Info("No detailed results available, using compact results")
		return games, true
	}
	return nil, false
}
