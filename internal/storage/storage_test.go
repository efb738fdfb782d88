package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/volwatch/internal/config"
	"github.com/rewired-gh/volwatch/internal/models"
)

var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func obs(app, msg string, week int, count int64) models.VolumeObservation {
	return models.VolumeObservation{
		Key:         models.CategoryKey{AppID: app, MessageTypeID: msg},
		PeriodStart: monday.AddDate(0, 0, 7*week),
		Count:       count,
	}
}

func mustStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ─── CSV ────────────────────────────────────────────────────────────────────

func TestReadCSV(t *testing.T) {
	input := "week_start_date,volume,app,message_type,region\n" +
		"2024-01-01,1200,APP_001,MT103,eu\n" +
		"2024-01-08, 1300.0 ,APP_001,MT103,eu\n" +
		"2024-01-01,0,APP_002,MT202,us\n"

	got, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, obs("APP_001", "MT103", 0, 1200), got[0])
	assert.Equal(t, obs("APP_001", "MT103", 1, 1300), got[1])
	assert.Equal(t, obs("APP_002", "MT202", 0, 0), got[2])
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "missing header"},
		{"missing column", "app,message_type,volume\nA,B,1\n", `missing column "week_start_date"`},
		{"bad date", "app,message_type,week_start_date,volume\nA,B,01/02/2024,1\n", "line 2"},
		{"bad volume", "app,message_type,week_start_date,volume\nA,B,2024-01-01,lots\n", "invalid volume"},
		{"fractional volume", "app,message_type,week_start_date,volume\nA,B,2024-01-01,1.5\n", "invalid volume"},
		{"volume beyond int64", "app,message_type,week_start_date,volume\nA,B,2024-01-01,1e19\n", "out of range"},
		{"long integer volume", "app,message_type,week_start_date,volume\nA,B,2024-01-01,99999999999999999999\n", "out of range"},
		{"ragged row", "app,message_type,week_start_date,volume\nA,B,2024-01-01\n", "failed to read row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	in := []models.VolumeObservation{obs("APP_001", "MT103", 0, 5), obs("APP_001", "MT103", 1, 7)}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, in))
	assert.Equal(t, "app,message_type,week_start_date,volume\nAPP_001,MT103,2024-01-01,5\nAPP_001,MT103,2024-01-08,7\n", buf.String())

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, back)
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out", "report.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should not be left behind")
}

func TestLoad_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volumes.csv")
	require.NoError(t, os.WriteFile(path, []byte("app,message_type,week_start_date,volume\nA,B,2024-01-01,3\n"), 0o644))

	got, err := Load(context.Background(), config.InputConfig{Path: path, Format: "csv"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].Count)

	_, err = Load(context.Background(), config.InputConfig{Path: path + ".missing", Format: "csv"})
	assert.Error(t, err)

	_, err = Load(context.Background(), config.InputConfig{Format: "parquet"})
	assert.Error(t, err)
}

// ─── SQLite ─────────────────────────────────────────────────────────────────

func TestStore_ImportAndObservations(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	n, err := s.Import(ctx, []models.VolumeObservation{
		obs("APP_002", "MT103", 1, 20),
		obs("APP_001", "MT103", 0, 10),
		obs("APP_002", "MT103", 0, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Re-importing a period replaces its volume.
	_, err = s.Import(ctx, []models.VolumeObservation{obs("APP_002", "MT103", 1, 25)})
	require.NoError(t, err)

	got, err := s.Observations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.VolumeObservation{
		obs("APP_001", "MT103", 0, 10),
		obs("APP_002", "MT103", 0, 15),
		obs("APP_002", "MT103", 1, 25),
	}, got)
}

func TestStore_ImportRejectsInvalidAtomically(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()

	_, err := s.Import(ctx, []models.VolumeObservation{
		obs("APP_001", "MT103", 0, 10),
		obs("APP_001", "MT103", 1, -4),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")

	got, err := s.Observations(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoad_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "volwatch.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Import(context.Background(), []models.VolumeObservation{obs("A", "B", 0, 1)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	got, err := Load(context.Background(), config.InputConfig{Format: "sqlite", SQLitePath: path})
	require.NoError(t, err)
	assert.Equal(t, []models.VolumeObservation{obs("A", "B", 0, 1)}, got)
}

func testAlert(id string, key models.CategoryKey, date time.Time) models.Alert {
	return models.Alert{
		ID:            id,
		Key:           key,
		AppID:         key.AppID,
		MessageTypeID: key.MessageTypeID,
		PeriodStart:   date,
		Period:        date.Format(models.DateLayout),
		Threshold:     900,
		Mean:          1000,
		RecentAvg:     1000,
		DropPct:       100,
		Severity:      models.SeverityCritical,
		Type:          models.AlertNoData,
		Message:       "No data received this period - possible system failure",
	}
}

func TestStore_RecordRun(t *testing.T) {
	s := mustStore(t)
	ctx := context.Background()
	key := models.CategoryKey{AppID: "APP_001", MessageTypeID: "MT103"}

	for week := 0; week < 2; week++ {
		date := monday.AddDate(0, 0, 7*week)
		run := &models.Run{
			ID:          "run-" + date.Format(models.DateLayout),
			CheckDate:   date,
			Sensitivity: "medium",
			StartedAt:   date.Add(8 * time.Hour),
			Duration:    1500 * time.Millisecond,
			Evaluated:   10,
			Skipped:     1,
			Alerts:      []models.Alert{testAlert("alert-"+date.Format(models.DateLayout), key, date)},
		}
		require.NoError(t, s.RecordRun(ctx, run))
	}

	n, err := s.RunCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	history, err := s.AlertHistory(ctx, key, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2024-01-08", history[0].Period)
	assert.Equal(t, models.SeverityCritical, history[0].Severity)
	assert.Equal(t, models.AlertNoData, history[0].Type)
	assert.NoError(t, history[0].Validate())

	assert.Error(t, s.RecordRun(ctx, &models.Run{}))
}

func TestNewRecorder(t *testing.T) {
	r, err := NewRecorder(false, "")
	require.NoError(t, err)
	assert.IsType(t, NopRecorder{}, r)
	assert.NoError(t, r.RecordRun(context.Background(), nil))
	assert.NoError(t, r.Close())

	r, err = NewRecorder(true, filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	assert.IsType(t, &Store{}, r)
	assert.NoError(t, r.Close())
}
