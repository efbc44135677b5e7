package hoops

import (
	"fmt"

	"github.com/richard-senior/hoops/internal/logger"
)

// ProcessDataset runs the full feature pipeline over a raw dataset and
// returns training rows: season results are combined, ranking snapshots are
// reduced and joined as of each game day, trailing form is rolled per team,
// bracket structure is resolved and the winner/loser orientation is
// symmetrized away
//
// The input dataset is not modified
func ProcessDataset(ds *Dataset, cfg *HoopsConfig) ([]*FeatureRow, error) {
	if cfg == nil {
		cfg = Config
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	combined := CombineSeasonResults(ds)
	games, ok := combined.CombinedGames()
	if !ok {
		return nil, fmt.Errorf("no combined results table, need a regular season and tournament pair")
	}
	logger.Info("Processing", len(games), "games with ranking system", cfg.SystemLabel())

	var features []*GameFeature
	if len(ds.Rankings) > 0 {
		ranks, err := ProcessRankings(ds.Rankings, cfg.RankingSystems)
		if err != nil {
			return nil, fmt.Errorf("failed to process rankings: %w", err)
		}
		features = AttachRankings(games, ranks)
	} else {
		logger.Warn("No ranking snapshots in dataset, rank columns will be null")
		features = NewGameFeatures(games)
	}

	rolls := ComputeRollingStats(games, cfg.WindowSize)
	features = AttachRollingStats(features, rolls)
	features = ResolveBracket(features, ds.Seeds)

	rows := SymmetrizeOutcomes(features, cfg.RandomSeed)
	logger.Info("Produced", len(rows), "feature rows")
	return rows, nil
}
