package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type StandingRecord struct {
	Name     string
	Cutoff   int
	Trials   int
	Wins     int
	WinRate  float64
	Low      float64 // Wilson interval
	High     float64
	MeanRank float64
}

type LeaderboardRecord struct {
	Name           string
	Sector         string
	Fraction       float64
	Probability    float64
	Payout         float64
	Median         float64
	InsolvencyRate float64
	Min            float64
	Q1             float64
	Q3             float64
	Max            float64
	Mean           float64
}

type Writer struct {
	baseDir string
	runID   string
}

// NewWriter creates <root>/<name>/<timestamp>_<run id> for one experiment run.
func NewWriter(root, name string) (*Writer, error) {
	runID := uuid.NewString()
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(root, name, timestamp+"_"+runID[:8])
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
		runID:   runID,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) RunID() string {
	return w.runID
}

func (w *Writer) WriteStandings(records []StandingRecord) error {
	header := []string{"name", "cutoff", "trials", "wins", "win_rate", "win_rate_low", "win_rate_high", "mean_rank"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.Name,
			strconv.Itoa(record.Cutoff),
			strconv.Itoa(record.Trials),
			strconv.Itoa(record.Wins),
			formatFloat(record.WinRate),
			formatFloat(record.Low),
			formatFloat(record.High),
			formatFloat(record.MeanRank),
		})
	}
	return w.write("standings.csv", header, rows)
}

func (w *Writer) WriteLeaderboard(records []LeaderboardRecord) error {
	header := []string{"name", "sector", "f", "p", "b", "median", "insolvency_rate", "min", "q1", "q3", "max", "mean"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			record.Name,
			record.Sector,
			formatFloat(record.Fraction),
			formatFloat(record.Probability),
			formatFloat(record.Payout),
			formatFloat(record.Median),
			formatFloat(record.InsolvencyRate),
			formatFloat(record.Min),
			formatFloat(record.Q1),
			formatFloat(record.Q3),
			formatFloat(record.Max),
			formatFloat(record.Mean),
		})
	}
	return w.write("leaderboard.csv", header, rows)
}

// WritePaths stores one row per path with a column per round.
func (w *Writer) WritePaths(name string, paths [][]float64) error {
	width := 0
	for _, path := range paths {
		width = max(width, len(path))
	}
	header := []string{"path"}
	for t := 0; t < width; t++ {
		header = append(header, "t"+strconv.Itoa(t))
	}

	rows := make([][]string, 0, len(paths))
	for i, path := range paths {
		row := []string{strconv.Itoa(i)}
		for _, v := range path {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}
	return w.write(name+"_paths.csv", header, rows)
}

func (w *Writer) write(file string, header []string, rows [][]string) error {
	// Create a file
	path := filepath.Join(w.baseDir, file)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", file, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	// Write header
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", file, err)
	}

	// Write each row
	for _, row := range rows {
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write %s row: %w", file, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", file, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
