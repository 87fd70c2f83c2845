package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"FinScope/internal/domain/models"
	"FinScope/pkg/logger"
)

// FileEmitter writes report artifacts into a directory:
//
//	<symbol>_indicator_importance.csv  ranked (indicator, score) rows
//	<symbol>_correlation_matrix.csv    the cross-correlation matrix
//	<symbol>_report.json               the full report
type FileEmitter struct {
	dir string
	l   *logger.Logger
}

func NewFileEmitter(dir string, l *logger.Logger) *FileEmitter {
	if l == nil {
		l = logger.Nop()
	}
	return &FileEmitter{dir: dir, l: l}
}

func (e *FileEmitter) Emit(ctx context.Context, r *models.AnalysisReport) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	base := fileSafe(r.Symbol)

	writers := []struct {
		name  string
		write func(*os.File) error
	}{
		{base + "_indicator_importance.csv", func(f *os.File) error { return WriteRanking(f, r.Ranking) }},
		{base + "_correlation_matrix.csv", func(f *os.File) error { return WriteMatrix(f, r.Matrix) }},
		{base + "_report.json", func(f *os.File) error {
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			return enc.Encode(r)
		}},
	}

	paths := make([]string, 0, len(writers))
	for _, w := range writers {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		path := filepath.Join(e.dir, w.name)
		if err := writeFile(path, w.write); err != nil {
			e.l.Error("report write failed", logger.String("path", path), logger.Error(err))
			return paths, err
		}
		paths = append(paths, path)
	}

	e.l.Info("report files written",
		logger.String("symbol", r.Symbol),
		logger.String("dir", e.dir),
		logger.Int("files", len(paths)),
	)
	return paths, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteRanking writes the ranked scores as CSV with an "Indicator,Predictive Score" header.
func WriteRanking(f io.Writer, ranking []models.IndicatorScore) error {
	w := csv.NewWriter(f)
	if err := w.Write([]string{"Indicator", "Predictive Score"}); err != nil {
		return err
	}
	for _, s := range ranking {
		if err := w.Write([]string{s.Indicator, formatFloat(s.Score)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteMatrix writes the matrix with the indicator names as header row and first column.
// Undefined cells are empty.
func WriteMatrix(f io.Writer, m models.CorrelationMatrix) error {
	w := csv.NewWriter(f)
	if err := w.Write(append([]string{""}, m.Names...)); err != nil {
		return err
	}
	for i, name := range m.Names {
		rec := make([]string, 0, len(m.Names)+1)
		rec = append(rec, name)
		for j := range m.Names {
			cell := m.At(i, j)
			if !cell.Valid {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, formatFloat(cell.Float64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func fileSafe(symbol string) string {
	if symbol == "" {
		return "all"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ', '*', '?':
			return '_'
		}
		return r
	}, symbol)
}
