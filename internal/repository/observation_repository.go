package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AirPulse/internal/domain/models"
	domrepo "AirPulse/internal/domain/repository"
	pkgch "AirPulse/pkg/clickhouse"
	applogger "AirPulse/pkg/logger"
	"AirPulse/pkg/util"
)

// ObservationRepository implements Storage backed by ClickHouse.
type ObservationRepository struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

// NewObservationRepository creates ClickHouse-backed observation storage.
func NewObservationRepository(ch *pkgch.Client) *ObservationRepository {
	return &ObservationRepository{
		client: ch,
		db:     ch.DB(),
		table:  "airpulse.observations",
	}
}

// SetLogger injects a structured logger.
func (r *ObservationRepository) SetLogger(l *applogger.Logger) { r.l = l }

var schemaStatements = []string{
	`CREATE DATABASE IF NOT EXISTS airpulse`,
	`CREATE TABLE IF NOT EXISTS airpulse.observations (
        station_id LowCardinality(String),
        parameter  LowCardinality(String),
        ts         DateTime,
        value      Nullable(Float64),
        ingested_at DateTime DEFAULT now()
    ) ENGINE = ReplacingMergeTree(ingested_at)
    PARTITION BY toYYYYMM(ts)
    ORDER BY (station_id, parameter, ts)`,
}

func (r *ObservationRepository) Init(ctx context.Context) error {
	return r.client.InitSchema(ctx, schemaStatements)
}

func (r *ObservationRepository) Store(ctx context.Context, o *domrepo.Observation) error {
	q := fmt.Sprintf("INSERT INTO %s (station_id, parameter, ts, value) VALUES (?, ?, ?, ?)", r.table)
	_, err := r.db.ExecContext(ctx, q, o.StationID, o.Parameter, util.AlignHour(o.Timestamp), o.Value)
	if err != nil {
		return fmt.Errorf("store observation: %w", err)
	}
	return nil
}

func (r *ObservationRepository) StoreBatch(ctx context.Context, obs []*domrepo.Observation) error {
	if len(obs) == 0 {
		return nil
	}

	const chunkSize = 2000
	for start := 0; start < len(obs); start += chunkSize {
		end := start + chunkSize
		if end > len(obs) {
			end = len(obs)
		}
		if err := r.storeChunk(ctx, obs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *ObservationRepository) storeChunk(ctx context.Context, obs []*domrepo.Observation) error {
	values := make([]string, 0, len(obs))
	args := make([]interface{}, 0, len(obs)*4)
	for _, o := range obs {
		if o == nil || o.StationID == "" || o.Parameter == "" {
			continue
		}
		values = append(values, "(?, ?, ?, ?)")
		args = append(args, o.StationID, o.Parameter, util.AlignHour(o.Timestamp), o.Value)
	}
	if len(values) == 0 {
		return nil
	}

	q := fmt.Sprintf("INSERT INTO %s (station_id, parameter, ts, value) VALUES %s",
		r.table, strings.Join(values, ", "))
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		if r.l != nil {
			r.l.Error("clickhouse batch insert error",
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("store batch: %w", err)
	}
	return nil
}

// Query returns the stored series for a station and parameter, hour-aligned
// and ordered ascending. NULL values come back as missing points.
func (r *ObservationRepository) Query(ctx context.Context, stationID, parameter string, from, to time.Time, limit int) ([]models.SeriesPoint, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT ts, value
        FROM %s FINAL
        WHERE station_id = ? AND parameter = ? AND ts >= ? AND ts <= ?
        ORDER BY ts ASC
    `, r.table)
	args := []interface{}{stationID, parameter, from, to}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		if r.l != nil {
			r.l.Error("clickhouse query error",
				applogger.String("station", stationID),
				applogger.String("parameter", parameter),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	out := make([]models.SeriesPoint, 0, 1024)
	for rows.Next() {
		var (
			ts  time.Time
			val sql.NullFloat64
		)
		if err := rows.Scan(&ts, &val); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		p := models.SeriesPoint{Timestamp: ts.UTC(), Missing: !val.Valid}
		if val.Valid {
			p.Value = val.Float64
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if r.l != nil {
		r.l.Info("clickhouse query ok",
			applogger.String("station", stationID),
			applogger.String("parameter", parameter),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration", time.Since(start)),
		)
	}
	return out, nil
}

func (r *ObservationRepository) Health(ctx context.Context) error {
	return r.client.Health(ctx)
}

func (r *ObservationRepository) Close() error {
	return r.client.Close()
}
