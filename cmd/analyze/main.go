// Command analyze runs one predictive-power analysis and writes the report files.
//
//	analyze -symbol BTC-USD                     # series from ClickHouse
//	analyze -csv data/btc.csv -horizons 1,5,10  # series from a CSV export
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/repository"
	"FinScope/internal/services/report"
	"FinScope/internal/usecase"
	pkgch "FinScope/pkg/clickhouse"
	"FinScope/pkg/config"
	"FinScope/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbol := flag.String("symbol", "", "symbol to analyse (default: analysis.default_symbol)")
	csvPath := flag.String("csv", "", "read the series from this CSV file instead of ClickHouse")
	horizons := flag.String("horizons", "", "comma separated forward-return horizons, e.g. 1,5,10")
	outDir := flag.String("out", "", "output directory (default: analysis.output_dir)")
	enrich := flag.Bool("enrich", false, "derive indicator columns from OHLCV before analysing")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *horizons != "" {
		hs, err := config.ParseHorizons(*horizons)
		if err != nil {
			log.Fatalf("bad -horizons: %v", err)
		}
		cfg.Analysis.Horizons = hs
	}
	if *outDir != "" {
		cfg.Analysis.OutputDir = *outDir
	}
	if *enrich {
		cfg.Analysis.Enrich = true
	}

	l, err := logger.New(&logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Analysis.Timeout)
	defer cancel()

	var provider domrepo.SeriesProvider
	if *csvPath != "" {
		provider, err = loadCSV(ctx, *csvPath, *symbol, l)
	} else {
		var ch *pkgch.Client
		ch, err = pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		)
		if err == nil {
			defer ch.Close()
			provider, err = repository.NewCHSeriesStore(ch, cfg.ClickHouse.SeriesTable, l)
		}
	}
	if err != nil {
		l.Error("series source unavailable", logger.Error(err))
		os.Exit(1)
	}

	uc := usecase.NewAnalysisUseCase(provider, cfg, l,
		usecase.WithReportEmitter(report.NewFileEmitter(cfg.Analysis.OutputDir, l)),
	)
	r, err := uc.Run(ctx, models.AnalysisRequest{Symbol: *symbol})
	if err != nil {
		l.Error("analysis failed", logger.Error(err))
		os.Exit(1)
	}

	for i, s := range r.Ranking {
		l.Info("ranked indicator",
			logger.Int("rank", i+1),
			logger.String("indicator", s.Indicator),
			logger.Float64("score", s.Score),
			logger.Ints("horizons", s.Horizons),
			logger.String("group", s.Group),
		)
	}
	l.Info("analysis complete",
		logger.String("symbol", r.Symbol),
		logger.String("id", r.ID),
		logger.Int("redundant_pairs", len(r.Redundant)),
		logger.Int("skipped_pairs", len(r.Skipped)),
		logger.String("output_dir", cfg.Analysis.OutputDir),
	)
}

// loadCSV imports the file into an in-memory store.
func loadCSV(ctx context.Context, path, symbol string, l *logger.Logger) (domrepo.SeriesProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	store := repository.NewMemorySeriesStore()
	if _, err := usecase.NewSeriesUseCase(store, l).IngestCSV(ctx, f, usecase.IngestOptions{DefaultSymbol: symbol}); err != nil {
		return nil, err
	}
	return store, nil
}
