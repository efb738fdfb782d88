// Package storage loads volume observations and persists run history.
//
// Observations come from either a CSV export or a SQLite database with the
// same four columns. Files written by the application go through
// WriteFileAtomic so a crash never leaves a half-written report behind.
package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rewired-gh/volwatch/internal/config"
	"github.com/rewired-gh/volwatch/internal/models"
)

// CSV column names.
const (
	ColumnApp         = "app"
	ColumnMessageType = "message_type"
	ColumnWeekStart   = "week_start_date"
	ColumnVolume      = "volume"
)

// CSVHeader is the column order written by WriteCSV.
var CSVHeader = []string{ColumnApp, ColumnMessageType, ColumnWeekStart, ColumnVolume}

// Default permissions for written files and directories.
const (
	FilePermissions os.FileMode = 0o644
	DirPermissions  os.FileMode = 0o755
)

// Load reads every observation from the configured input.
func Load(ctx context.Context, in config.InputConfig) ([]models.VolumeObservation, error) {
	switch in.Format {
	case "sqlite":
		store, err := Open(in.SQLitePath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.Observations(ctx)
	case "", "csv":
		return LoadCSV(in.Path)
	default:
		return nil, fmt.Errorf("unsupported input format %q", in.Format)
	}
}

// LoadCSV reads observations from a CSV file.
func LoadCSV(path string) ([]models.VolumeObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	obs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return obs, nil
}

// ReadCSV parses observations from r. The header must name the app,
// message_type, week_start_date and volume columns in any order; extra
// columns are ignored.
func ReadCSV(r io.Reader) ([]models.VolumeObservation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty input: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	cols := make([]int, len(CSVHeader))
	for i, name := range CSVHeader {
		col, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols[i] = col
	}

	var out []models.VolumeObservation
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		date, err := models.ParseDate(strings.TrimSpace(rec[cols[2]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		count, err := parseVolume(rec[cols[3]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		out = append(out, models.VolumeObservation{
			Key: models.CategoryKey{
				AppID:         strings.TrimSpace(rec[cols[0]]),
				MessageTypeID: strings.TrimSpace(rec[cols[1]]),
			},
			PeriodStart: date,
			Count:       count,
		})
	}
	return out, nil
}

// parseVolume accepts integers and integral floats such as "1200.0".
func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.Trunc(f) != f {
		return 0, fmt.Errorf("invalid volume %q", s)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("volume %q out of range", s)
	}
	return int64(f), nil
}

// WriteCSV writes observations in CSVHeader order.
func WriteCSV(w io.Writer, obs []models.VolumeObservation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, o := range obs {
		rec := []string{
			o.Key.AppID,
			o.Key.MessageTypeID,
			o.PeriodStart.Format(models.DateLayout),
			strconv.FormatInt(o.Count, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFileAtomic writes data to a temporary sibling and renames it into
// place, creating the parent directory when needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, FilePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
