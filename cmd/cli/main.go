package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/wadjakorntonsri/tinyread/pkg/app"
	"github.com/wadjakorntonsri/tinyread/pkg/config"
	"github.com/wadjakorntonsri/tinyread/pkg/core/domain"
	"github.com/wadjakorntonsri/tinyread/pkg/core/fingerprint"
	"github.com/wadjakorntonsri/tinyread/pkg/logger"
	"github.com/wadjakorntonsri/tinyread/pkg/ports"
)

const usage = "expected 'export', 'import' or 'stats' subcommands"

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")
	statsCmd := flag.NewFlagSet("stats", flag.ExitOnError)

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	cfg.Log.Format = "console"
	log := logger.NewWithWriter(cfg.Log, os.Stderr)

	ctx := context.Background()
	repo, err := app.OpenRepository(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to store")
	}
	defer repo.Close()

	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		err = doExport(ctx, repo, os.Stdout)
	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		var f *os.File
		if f, err = os.Open(*importFile); err == nil {
			var res importResult
			res, err = doImport(ctx, repo, f, log)
			f.Close()
			log.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Int("failed", res.Failed).Msg("import finished")
		}
	case "stats":
		_ = statsCmd.Parse(os.Args[2:])
		err = doStats(ctx, repo, os.Stdout)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func doExport(ctx context.Context, repo ports.SummaryStore, w io.Writer) error {
	summaries, err := repo.Dump(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(summaries)
}

type importResult struct {
	Imported int
	Skipped  int
	Failed   int
}

// doImport inserts every record; fingerprints already present are kept as
// they are. A record without a fingerprint gets one from its URL; a record
// whose fingerprint does not match its URL is rejected.
func doImport(ctx context.Context, repo ports.SummaryStore, r io.Reader, log zerolog.Logger) (importResult, error) {
	var res importResult
	var summaries []domain.Summary
	if err := json.NewDecoder(r).Decode(&summaries); err != nil {
		return res, fmt.Errorf("decode: %w", err)
	}

	for i := range summaries {
		s := &summaries[i]
		s.ID = 0
		s.Views = 0
		if err := checkFingerprint(s); err != nil {
			log.Error().Err(err).Str("url", s.URL).Msg("failed to import")
			res.Failed++
			continue
		}
		result, err := repo.Insert(ctx, s)
		switch {
		case err != nil:
			log.Error().Err(err).Str("fingerprint", s.Fingerprint).Msg("failed to import")
			res.Failed++
		case result == domain.AlreadyExists:
			log.Debug().Str("fingerprint", s.Fingerprint).Msg("skipping existing summary")
			res.Skipped++
		default:
			res.Imported++
		}
	}
	return res, nil
}

func checkFingerprint(s *domain.Summary) error {
	want, err := fingerprint.Of(s.URL)
	if err != nil {
		return err
	}
	switch s.Fingerprint {
	case "":
		s.Fingerprint = want
	case want:
	default:
		return fmt.Errorf("fingerprint %q does not match url", s.Fingerprint)
	}
	return nil
}

func doStats(ctx context.Context, repo ports.SummaryStore, w io.Writer) error {
	stats, err := repo.GlobalStats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	_, err = fmt.Fprintf(w, "summaries: %d\nviews:     %d\nreuses:    %d\n",
		stats.TotalSummaries, stats.TotalViews, stats.TotalReuses)
	return err
}
