package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/richard-senior/hoops/internal/logger"
	"github.com/richard-senior/hoops/pkg/util/hoops"
)

func main() {
	logger.SetShowDateTime(true)
	logger.SetLogOutput('c')

	args := os.Args[1:]
	if len(args) > 0 && args[0] == "process" {
		args = args[1:]
	} else if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(os.Stderr, "usage: hoops [process] [flags]")
		os.Exit(2)
	}

	if err := runProcess(args); err != nil {
		logger.Error("Processing failed:", err)
		os.Exit(1)
	}
}

// runProcess loads the raw season data, runs the feature pipeline and
// exports the result, using the cached set when one exists
func runProcess(args []string) error {
	fs := flag.NewFlagSet("process", flag.ExitOnError)
	year := fs.Int("year", 0, "season year to process, 0 for every season present")
	women := fs.Bool("women", false, "process the women's tables instead of the men's")
	system := fs.String("system", "", "comma separated ranking systems, empty for the median of all")
	window := fs.Int("window", 0, "rolling window size in games")
	seed := fs.Int64("seed", -1, "random seed for the outcome symmetrizer, -1 for nondeterministic")
	dataPath := fs.String("data", "", "directory containing the raw csv files")
	outPath := fs.String("out", "", "directory for the exported csv")
	force := fs.Bool("force", false, "recompute even when a cached set exists")
	verbose := fs.Bool("v", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *verbose {
		logger.SetLevel(logger.DEBUG)
	}

	cfg := hoops.DefaultHoopsConfig()
	cfg.Year = *year
	cfg.Womens = *women
	cfg.RankingSystems = nil
	for _, s := range strings.Split(*system, ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.RankingSystems = append(cfg.RankingSystems, s)
		}
	}
	if *window > 0 {
		cfg.WindowSize = *window
	}
	if *seed >= 0 {
		s := *seed
		cfg.RandomSeed = &s
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}
	if *outPath != "" {
		cfg.ProcessedPath = *outPath
	}
	hoops.UpdateConfig(cfg)
	defer hoops.CloseDatabase()

	rows, err := hoops.GetProcessedDataset(cfg, *force)
	if err != nil {
		return err
	}

	path, err := hoops.ExportCSV(cfg, rows)
	if err != nil {
		return err
	}
	logger.Info("Wrote", len(rows), "feature rows to", path)
	return nil
}
