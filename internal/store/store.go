// Package store archives study outcomes and their dispatch ledgers in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"energy-sizing/internal/lp"
	"energy-sizing/internal/model"
	"energy-sizing/internal/study"
)

var (
	// ErrDisabled is returned by every method of a nil *Store.
	ErrDisabled = errors.New("study store is disabled")
	ErrNotFound = errors.New("study not found")
)

const schema = `
CREATE TABLE IF NOT EXISTS studies (
	id                UUID PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	status            TEXT NOT NULL,
	solver            TEXT NOT NULL,
	solve_ms          BIGINT NOT NULL,
	steps             INTEGER NOT NULL,
	step_hours        DOUBLE PRECISION NOT NULL,
	days              DOUBLE PRECISION NOT NULL,
	zero_tariff_steps INTEGER NOT NULL,
	pv_mw             DOUBLE PRECISION,
	wind_mw           DOUBLE PRECISION,
	battery_mwh       DOUBLE PRECISION,
	battery_mw        DOUBLE PRECISION,
	objective         NUMERIC(20, 2),
	lcoe              NUMERIC(20, 2),
	system_lcoe       NUMERIC(20, 2),
	report            JSONB
);

CREATE TABLE IF NOT EXISTS study_dispatch (
	study_id         UUID NOT NULL REFERENCES studies(id) ON DELETE CASCADE,
	idx              INTEGER NOT NULL,
	interval_start   TIMESTAMPTZ,
	interval_end     TIMESTAMPTZ,
	demand_mwh       DOUBLE PRECISION NOT NULL,
	pv_mwh           DOUBLE PRECISION NOT NULL,
	wind_mwh         DOUBLE PRECISION NOT NULL,
	grid_import_mwh  DOUBLE PRECISION NOT NULL,
	grid_export_mwh  DOUBLE PRECISION NOT NULL,
	curtailment_mwh  DOUBLE PRECISION NOT NULL,
	action           TEXT NOT NULL,
	charge_mwh       DOUBLE PRECISION NOT NULL,
	discharge_mwh    DOUBLE PRECISION NOT NULL,
	soc_start_mwh    DOUBLE PRECISION NOT NULL,
	soc_end_mwh      DOUBLE PRECISION NOT NULL,
	feed_in_tariff   DOUBLE PRECISION NOT NULL,
	grid_cost        DOUBLE PRECISION NOT NULL,
	feed_in_revenue  DOUBLE PRECISION NOT NULL,
	net_grid_cost    DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (study_id, idx)
);
`

type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to PostgreSQL and checks the connection.
func Open(ctx context.Context, dsn string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return New(db, logger), nil
}

func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil {
		return ErrDisabled
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// StudyRow is the studies table without the report document.
type StudyRow struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	CreatedAt  time.Time        `json:"created_at"`
	Status     string           `json:"status"`
	Solver     string           `json:"solver"`
	Objective  *decimal.Decimal `json:"objective,omitempty"`
	SystemLCOE *decimal.Decimal `json:"system_lcoe,omitempty"`
}

func nullMoney(v float64, ok bool) decimal.NullDecimal {
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: study.Money(v), Valid: true}
}

// SaveStudy upserts one outcome and replaces its dispatch rows in a single transaction.
func (s *Store) SaveStudy(ctx context.Context, o *study.Outcome) error {
	if s == nil {
		return ErrDisabled
	}
	if o == nil {
		return fmt.Errorf("outcome is nil")
	}
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return fmt.Errorf("invalid study id %q: %w", o.ID, err)
	}

	var (
		report                      []byte
		pv, wind, energy, power     sql.NullFloat64
		objective, lcoe, systemLCOE decimal.NullDecimal
	)
	if r := o.Report; r != nil {
		if report, err = json.Marshal(r); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		pv = sql.NullFloat64{Float64: r.Capacities.PVMW, Valid: true}
		wind = sql.NullFloat64{Float64: r.Capacities.WindMW, Valid: true}
		energy = sql.NullFloat64{Float64: r.Capacities.BatteryMWh, Valid: true}
		power = sql.NullFloat64{Float64: r.Capacities.BatteryMW, Valid: true}
		objective = nullMoney(r.Objective, true)
		lcoe = nullMoney(r.LCOE.Value, r.LCOE.Computable)
		systemLCOE = nullMoney(r.SystemLCOE.Value, r.SystemLCOE.Computable)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO studies (
			id, name, created_at, status, solver, solve_ms, steps, step_hours, days,
			zero_tariff_steps, pv_mw, wind_mw, battery_mwh, battery_mw,
			objective, lcoe, system_lcoe, report
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			solver = EXCLUDED.solver,
			solve_ms = EXCLUDED.solve_ms,
			pv_mw = EXCLUDED.pv_mw,
			wind_mw = EXCLUDED.wind_mw,
			battery_mwh = EXCLUDED.battery_mwh,
			battery_mw = EXCLUDED.battery_mw,
			objective = EXCLUDED.objective,
			lcoe = EXCLUDED.lcoe,
			system_lcoe = EXCLUDED.system_lcoe,
			report = EXCLUDED.report
	`,
		id, o.Name, o.CreatedAt, o.Status.String(), o.Solver, o.SolveTime.Milliseconds(),
		o.Steps, o.StepHours, o.Days, o.ZeroTariffSteps,
		pv, wind, energy, power, objective, lcoe, systemLCOE, nullJSON(report),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert study: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM study_dispatch WHERE study_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete existing dispatch: %w", err)
	}

	if len(o.Ledger) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO study_dispatch (
				study_id, idx, interval_start, interval_end, demand_mwh, pv_mwh, wind_mwh,
				grid_import_mwh, grid_export_mwh, curtailment_mwh, action,
				charge_mwh, discharge_mwh, soc_start_mwh, soc_end_mwh,
				feed_in_tariff, grid_cost, feed_in_revenue, net_grid_cost
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, r := range o.Ledger {
			_, err := stmt.ExecContext(ctx,
				id, r.Index, nullTime(r.IntervalStart), nullTime(r.IntervalEnd), r.DemandMWh, r.PVMWh, r.WindMWh,
				r.ImportMWh, r.ExportMWh, r.CurtailmentMWh, string(r.Action),
				r.ChargeMWh, r.DischargeMWh, r.SOCStartMWh, r.SOCEndMWh,
				r.FeedInTariff, r.GridCost, r.FeedInRevenue, r.NetGridCost,
			)
			if err != nil {
				return fmt.Errorf("failed to insert dispatch row %d: %w", r.Index, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().Str("study", o.ID).Int("rows", len(o.Ledger)).Msg("study archived")
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullJSON(raw []byte) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}

// LoadStudy reads an archived outcome. The ledger is not loaded; see LoadDispatch.
func (s *Store) LoadStudy(ctx context.Context, id string) (*study.Outcome, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var (
		o       study.Outcome
		status  string
		solveMS int64
		report  []byte
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, created_at, status, solver, solve_ms, steps, step_hours, days,
			zero_tariff_steps, report
		FROM studies WHERE id = $1
	`, uid).Scan(&o.ID, &o.Name, &o.CreatedAt, &status, &o.Solver, &solveMS,
		&o.Steps, &o.StepHours, &o.Days, &o.ZeroTariffSteps, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load study: %w", err)
	}
	o.Status = lp.ParseStatus(status)
	o.SolveTime = time.Duration(solveMS) * time.Millisecond
	if len(report) > 0 {
		if err := json.Unmarshal(report, &o.Report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
	}
	return &o, nil
}

// LoadDispatch reads the ledger of an archived study ordered by interval.
func (s *Store) LoadDispatch(ctx context.Context, id string) ([]study.DispatchRow, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, interval_start, interval_end, demand_mwh, pv_mwh, wind_mwh,
			grid_import_mwh, grid_export_mwh, curtailment_mwh, action,
			charge_mwh, discharge_mwh, soc_start_mwh, soc_end_mwh,
			feed_in_tariff, grid_cost, feed_in_revenue, net_grid_cost
		FROM study_dispatch WHERE study_id = $1 ORDER BY idx
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch: %w", err)
	}
	defer rows.Close()

	var out []study.DispatchRow
	cum := 0.0
	for rows.Next() {
		var (
			r      study.DispatchRow
			start  sql.NullTime
			end    sql.NullTime
			action string
		)
		if err := rows.Scan(&r.Index, &start, &end, &r.DemandMWh, &r.PVMWh, &r.WindMWh,
			&r.ImportMWh, &r.ExportMWh, &r.CurtailmentMWh, &action,
			&r.ChargeMWh, &r.DischargeMWh, &r.SOCStartMWh, &r.SOCEndMWh,
			&r.FeedInTariff, &r.GridCost, &r.FeedInRevenue, &r.NetGridCost); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch row: %w", err)
		}
		if start.Valid {
			r.IntervalStart = start.Time
		}
		if end.Valid {
			r.IntervalEnd = end.Time
		}
		r.Action = model.Action(action)
		cum += r.NetGridCost
		r.CumNetCost = cum
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListStudies returns the most recent studies first.
func (s *Store) ListStudies(ctx context.Context, limit int) ([]StudyRow, error) {
	if s == nil {
		return nil, ErrDisabled
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, created_at, status, solver, objective, system_lcoe
		FROM studies ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list studies: %w", err)
	}
	defer rows.Close()

	var out []StudyRow
	for rows.Next() {
		var (
			r                     StudyRow
			objective, systemLCOE decimal.NullDecimal
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt, &r.Status, &r.Solver, &objective, &systemLCOE); err != nil {
			return nil, fmt.Errorf("failed to scan study: %w", err)
		}
		if objective.Valid {
			r.Objective = &objective.Decimal
		}
		if systemLCOE.Valid {
			r.SystemLCOE = &systemLCOE.Decimal
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
