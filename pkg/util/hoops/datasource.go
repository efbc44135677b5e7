package hoops

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/richard-senior/hoops/internal/logger"
	"github.com/richard-senior/hoops/pkg/transport"
	"github.com/richard-senior/hoops/pkg/util"
)

// Datasource loads the raw Kaggle style season csv files from disk and can
// scrape a composite ordinal ranking page when no MasseyOrdinals file is
// present
type Datasource struct {
	OrdinalsURL string
}

var (
	datasourceInstance *Datasource
	datasourceOnce     sync.Once
)

// GetDatasourceInstance returns the singleton instance of Datasource
func GetDatasourceInstance() *Datasource {
	datasourceOnce.Do(func() {
		datasourceInstance = &Datasource{
			OrdinalsURL: Config.OrdinalsURL,
		}
	})
	return datasourceInstance
}

/////////////////////////////////////////////////////////////////////////
////// Raw csv loading
/////////////////////////////////////////////////////////////////////////

// tableForStem maps a csv file stem, minus its M or W gender prefix, to the
// table it holds. Stems that only nearly match a known table are accepted
// under fuzzy matching so a renamed download still loads
func (d *Datasource) tableForStem(stem string) string {
	if name := d.exactTableForStem(stem); name != "" {
		return name
	}
	for _, name := range knownTables {
		if util.IsFuzzyMatch(stem, name) {
			logger.Debug("Accepting", stem, "as", name, "by fuzzy match")
			return name
		}
	}
	return ""
}

func (d *Datasource) exactTableForStem(stem string) string {
	for _, name := range knownTables {
		if strings.EqualFold(stem, name) {
			return name
		}
	}
	return ""
}

var knownTables = []string{
	TableRegularSeasonDetailed,
	TableRegularSeasonCompact,
	TableTourneyDetailed,
	TableTourneyCompact,
	TableMasseyOrdinals,
	TableTourneySeeds,
	TableTeams,
}

// LoadRawDataset scans the configured data directory for the csv files of
// the configured gender and parses each recognised table. Files for the
// other gender and unrecognised files are skipped. The result is filtered
// to the configured year, year zero keeping everything
func (d *Datasource) LoadRawDataset(cfg *HoopsConfig) (*Dataset, error) {
	if cfg == nil {
		cfg = Config
	}
	entries, err := os.ReadDir(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", cfg.DataPath, err)
	}

	prefix := cfg.GenderPrefix()
	other := "W"
	if cfg.Womens {
		other = "M"
	}

	ds := NewDataset()
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		// An exact table name without a gender prefix serves either gender
		table := d.exactTableForStem(stem)
		if table == "" {
			if strings.HasPrefix(stem, other) && d.tableForStem(stem[1:]) != "" {
				continue
			}
			if strings.HasPrefix(stem, prefix) {
				stem = stem[1:]
			}
			table = d.tableForStem(stem)
		}
		if table == "" {
			logger.Debug("Skipping unrecognised file", entry.Name())
			continue
		}

		data, err := os.ReadFile(filepath.Join(cfg.DataPath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if err := d.parseTable(ds, table, string(data)); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
		}
	}

	if len(ds.Games) == 0 {
		return nil, fmt.Errorf("no results tables found in %s", cfg.DataPath)
	}
	return ds.FilterByYear(cfg.Year), nil
}

// parseTable routes one csv table into the right slot of the dataset
func (d *Datasource) parseTable(ds *Dataset, table, csvData string) error {
	switch table {
	case TableRegularSeasonDetailed, TableTourneyDetailed:
		games, err := d.ParseResultsCSV(csvData, true)
		if err != nil {
			return err
		}
		ds.Games[table] = games
	case TableRegularSeasonCompact, TableTourneyCompact:
		games, err := d.ParseResultsCSV(csvData, false)
		if err != nil {
			return err
		}
		ds.Games[table] = games
	case TableMasseyOrdinals:
		ranks, err := d.ParseOrdinalsCSV(csvData)
		if err != nil {
			return err
		}
		ds.Rankings = ranks
	case TableTourneySeeds:
		seeds, err := d.ParseSeedsCSV(csvData)
		if err != nil {
			return err
		}
		ds.Seeds = seeds
	case TableTeams:
		teams, err := d.ParseTeamsCSV(csvData)
		if err != nil {
			return err
		}
		ds.Teams = teams
	}
	return nil
}

// readRows parses csv text into header keyed row maps
func readRows(csvData string) ([]map[string]string, error) {
	reader := csv.NewReader(strings.NewReader(csvData))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	headers := records[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < len(headers) {
			logger.Warn("Skipping incomplete record at row", i+2)
			continue
		}
		row := make(map[string]string, len(headers))
		for j, value := range record {
			if j < len(headers) {
				row[headers[j]] = strings.TrimSpace(value)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// rowInt reads one integer cell, zero when absent or unparseable
func rowInt(row map[string]string, key string) int {
	if v := row[key]; v != "" {
		if n, err := util.GetAsInteger(v); err == nil {
			return n
		}
	}
	return 0
}

// ParseResultsCSV parses a results table, compact or detailed, into game
// records. Rows that fail validation are skipped with a warning rather
// than failing the whole load
func (d *Datasource) ParseResultsCSV(csvData string, detailed bool) ([]*GameRecord, error) {
	rows, err := readRows(csvData)
	if err != nil {
		return nil, err
	}

	var games []*GameRecord
	for i, row := range rows {
		g := &GameRecord{
			Season:   rowInt(row, "Season"),
			DayNum:   rowInt(row, "DayNum"),
			WTeamID:  rowInt(row, "WTeamID"),
			LTeamID:  rowInt(row, "LTeamID"),
			WLoc:     row["WLoc"],
			NumOT:    rowInt(row, "NumOT"),
			Detailed: detailed,
		}
		g.Winner.Score = rowInt(row, "WScore")
		g.Loser.Score = rowInt(row, "LScore")
		if detailed {
			g.Winner = statLine(row, "W")
			g.Loser = statLine(row, "L")
		}
		if err := g.Validate(); err != nil {
			logger.Warn("Skipping invalid game at row", i+2, err)
			continue
		}
		games = append(games, g)
	}
	return games, nil
}

// statLine reads one side's full box score using the W or L column prefix
func statLine(row map[string]string, side string) TeamLine {
	return TeamLine{
		Score: rowInt(row, side+"Score"),
		FGM:   rowInt(row, side+"FGM"),
		FGA:   rowInt(row, side+"FGA"),
		FGM3:  rowInt(row, side+"FGM3"),
		FGA3:  rowInt(row, side+"FGA3"),
		FTM:   rowInt(row, side+"FTM"),
		FTA:   rowInt(row, side+"FTA"),
		OR:    rowInt(row, side+"OR"),
		DR:    rowInt(row, side+"DR"),
		Ast:   rowInt(row, side+"Ast"),
		TO:    rowInt(row, side+"TO"),
		Stl:   rowInt(row, side+"Stl"),
		Blk:   rowInt(row, side+"Blk"),
	}
}

// ParseOrdinalsCSV parses the ranking snapshot table
func (d *Datasource) ParseOrdinalsCSV(csvData string) ([]*RankingRecord, error) {
	rows, err := readRows(csvData)
	if err != nil {
		return nil, err
	}

	var ranks []*RankingRecord
	for i, row := range rows {
		r := &RankingRecord{
			Season:        rowInt(row, "Season"),
			RankingDayNum: rowInt(row, "RankingDayNum"),
			SystemName:    row["SystemName"],
			TeamID:        rowInt(row, "TeamID"),
			OrdinalRank:   rowInt(row, "OrdinalRank"),
		}
		if err := r.Validate(); err != nil {
			logger.Warn("Skipping invalid ranking at row", i+2, err)
			continue
		}
		ranks = append(ranks, r)
	}
	return ranks, nil
}

// ParseSeedsCSV parses the tournament seeding table
func (d *Datasource) ParseSeedsCSV(csvData string) ([]*SeedRecord, error) {
	rows, err := readRows(csvData)
	if err != nil {
		return nil, err
	}

	var seeds []*SeedRecord
	for i, row := range rows {
		s := &SeedRecord{
			Season: rowInt(row, "Season"),
			Seed:   row["Seed"],
			TeamID: rowInt(row, "TeamID"),
		}
		if err := s.Validate(); err != nil {
			logger.Warn("Skipping invalid seed at row", i+2, err)
			continue
		}
		seeds = append(seeds, s)
	}
	return seeds, nil
}

// ParseTeamsCSV parses the team name lookup table
func (d *Datasource) ParseTeamsCSV(csvData string) ([]*TeamRecord, error) {
	rows, err := readRows(csvData)
	if err != nil {
		return nil, err
	}

	var teams []*TeamRecord
	for _, row := range rows {
		id := rowInt(row, "TeamID")
		name := row["TeamName"]
		if id == 0 || name == "" {
			continue
		}
		teams = append(teams, &TeamRecord{TeamID: id, TeamName: name})
	}
	return teams, nil
}

/////////////////////////////////////////////////////////////////////////
////// Ordinal ranking scrape
/////////////////////////////////////////////////////////////////////////

// FetchOrdinalRankings scrapes the configured composite ranking page and
// returns current ranking snapshots for the teams it can resolve by name.
// The page html is cached so repeat runs within a session do not refetch.
// Snapshots carry day zero, the caller decides what day the scrape is
// current for
func (d *Datasource) FetchOrdinalRankings(season int, systemName string, teams []*TeamRecord) ([]*RankingRecord, error) {
	if d.OrdinalsURL == "" {
		return nil, fmt.Errorf("no ordinals url configured")
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("cannot resolve scraped team names without a teams table")
	}

	cacheFilename := fmt.Sprintf("%sordinals-%d.html", Config.HoopsAssetsPath, season)
	var html string
	if cacheData, err := os.ReadFile(cacheFilename); err == nil {
		html = string(cacheData)
		logger.Debug("Returning ordinals page from cache for season", season)
	} else {
		logger.Info("Fetching ordinal rankings from", d.OrdinalsURL)
		response, err := transport.Get(d.OrdinalsURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch ordinal rankings: %w", err)
		}
		html = string(response)
		if err := os.MkdirAll(filepath.Dir(cacheFilename), 0755); err != nil {
			logger.Warn("Failed to create assets directory", cacheFilename, err)
		} else if err := os.WriteFile(cacheFilename, response, 0644); err != nil {
			logger.Warn("Failed to write cache file", cacheFilename, err)
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ordinal rankings page: %w", err)
	}

	var ranks []*RankingRecord
	doc.Find("table tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		rank, err := util.GetAsInteger(cells.Eq(0).Text())
		if err != nil || rank < 1 {
			return
		}
		name := strings.TrimSpace(cells.Eq(1).Text())
		teamID, err := d.teamIDForName(name, teams)
		if err != nil {
			logger.Debug("Could not resolve scraped team name", name)
			return
		}
		ranks = append(ranks, &RankingRecord{
			Season:      season,
			SystemName:  systemName,
			TeamID:      teamID,
			OrdinalRank: rank,
		})
	})

	if len(ranks) == 0 {
		return nil, fmt.Errorf("no rankings found on page %s", d.OrdinalsURL)
	}
	logger.Info("Scraped", len(ranks), "ordinal rankings for season", season)
	return ranks, nil
}

// teamIDForName resolves a scraped team name against the teams table,
// exact match first then best fuzzy score
func (d *Datasource) teamIDForName(name string, teams []*TeamRecord) (int, error) {
	for _, t := range teams {
		if strings.EqualFold(name, t.TeamName) {
			return t.TeamID, nil
		}
	}
	bestID := 0
	bestScore := 0.0
	for _, t := range teams {
		score := util.FuzzyMatchScore(name, t.TeamName)
		if score > bestScore {
			bestScore = score
			bestID = t.TeamID
		}
	}
	if bestID == 0 || bestScore < 0.8 {
		return 0, fmt.Errorf("no team matches name '%s'", name)
	}
	return bestID, nil
}
