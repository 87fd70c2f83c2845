// Command ingest imports a CSV export of OHLCV and indicator columns into ClickHouse.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"FinScope/internal/repository"
	"FinScope/internal/usecase"
	pkgch "FinScope/pkg/clickhouse"
	"FinScope/pkg/config"
	"FinScope/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	csvPath := flag.String("csv", "", "CSV file to import (required)")
	symbol := flag.String("symbol", "", "symbol for files without a symbol column")
	replace := flag.Bool("replace", false, "delete the symbols' existing rows first")
	enrich := flag.Bool("enrich", false, "derive indicator columns from OHLCV before storing")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	l, err := logger.New(&logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: cfg.Logging.Output})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if err := run(cfg, l, *csvPath, usecase.IngestOptions{DefaultSymbol: *symbol, Replace: *replace, Enrich: *enrich}); err != nil {
		l.Error("ingest failed", logger.String("file", *csvPath), logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, l *logger.Logger, path string, opts usecase.IngestOptions) error {
	ctx := context.Background()
	ch, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.InitSchema(ctx, repository.SeriesSchema(cfg.ClickHouse.Database, cfg.ClickHouse.SeriesTable)); err != nil {
		return err
	}
	store, err := repository.NewCHSeriesStore(ch, cfg.ClickHouse.SeriesTable, l)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := usecase.NewSeriesUseCase(store, l).IngestCSV(ctx, f, opts)
	if err != nil {
		return err
	}
	l.Info("import complete",
		logger.Int("rows", res.Rows),
		logger.Strings("symbols", res.Symbols),
		logger.Strings("enriched", res.Enriched),
	)
	return nil
}
