// Package persistence provides SQLite-based simulation state storage.
// A snapshot carries everything determinism on reload requires: resource
// reserves and the held volatility shock, facility condition/experience,
// route risk history, crisis records, and every entity's wealth breakdown.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/econsim/internal/crisis"
	"github.com/talgya/econsim/internal/econ"
	"github.com/talgya/econsim/internal/engine"
	"github.com/talgya/econsim/internal/entity"
	"github.com/talgya/econsim/internal/trade"
	"github.com/talgya/econsim/internal/wealth"
)

// DB wraps a SQLite connection for simulation state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		type INTEGER PRIMARY KEY,
		base_value REAL NOT NULL,
		abundance REAL NOT NULL,
		initial_abundance REAL NOT NULL,
		tier INTEGER NOT NULL,
		technology TEXT NOT NULL,
		demand REAL NOT NULL,
		supply REAL NOT NULL,
		volatility REAL NOT NULL,
		shock REAL NOT NULL,
		reserves REAL NOT NULL,
		initial_reserves REAL NOT NULL,
		extracted REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		kind INTEGER NOT NULL,
		population INTEGER NOT NULL,
		development REAL NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		gdp REAL NOT NULL,
		growth REAL NOT NULL,
		inflation REAL NOT NULL,
		unemployment REAL NOT NULL,
		debt REAL NOT NULL,
		tax_rate REAL NOT NULL,
		openness REAL NOT NULL,
		policy_effectiveness REAL NOT NULL,
		stockpile_json TEXT NOT NULL,
		facilities_json TEXT NOT NULL,
		chains_json TEXT NOT NULL,
		wealth_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS routes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		type INTEGER NOT NULL,
		capacity REAL NOT NULL,
		efficiency REAL NOT NULL,
		distance REAL NOT NULL,
		risks_json TEXT NOT NULL,
		active INTEGER NOT NULL,
		last_risk_mean REAL NOT NULL,
		history_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS crises (
		id TEXT PRIMARY KEY,
		record_json TEXT NOT NULL,
		resolved INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		turn INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_turn ON events(turn);
	CREATE INDEX IF NOT EXISTS idx_routes_from ON routes(from_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMarket writes all resource records (full replace).
func (db *DB) SaveMarket(m *econ.Market) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM resources"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO resources
		(type, base_value, abundance, initial_abundance, tier, technology,
		 demand, supply, volatility, shock, reserves, initial_reserves, extracted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range m.Types() {
		r := m.Get(t)
		_, err := stmt.Exec(
			r.Type, r.BaseValue, r.Abundance, r.InitialAbundance, r.Tier,
			r.Technology, r.Demand, r.Supply, r.Volatility, r.Shock,
			r.Reserves, r.InitialReserves, r.Extracted,
		)
		if err != nil {
			return fmt.Errorf("insert resource %s: %w", t, err)
		}
	}

	return tx.Commit()
}

// LoadMarket reads all resource records into a fresh market.
func (db *DB) LoadMarket() (*econ.Market, error) {
	rows, err := db.conn.Queryx("SELECT * FROM resources ORDER BY type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := &econ.Market{Resources: make(map[econ.ResourceType]*econ.Resource)}
	for rows.Next() {
		var rec struct {
			Type             uint8   `db:"type"`
			BaseValue        float64 `db:"base_value"`
			Abundance        float64 `db:"abundance"`
			InitialAbundance float64 `db:"initial_abundance"`
			Tier             uint8   `db:"tier"`
			Technology       string  `db:"technology"`
			Demand           float64 `db:"demand"`
			Supply           float64 `db:"supply"`
			Volatility       float64 `db:"volatility"`
			Shock            float64 `db:"shock"`
			Reserves         float64 `db:"reserves"`
			InitialReserves  float64 `db:"initial_reserves"`
			Extracted        float64 `db:"extracted"`
		}
		if err := rows.StructScan(&rec); err != nil {
			return nil, err
		}
		t := econ.ResourceType(rec.Type)
		m.Resources[t] = &econ.Resource{
			Type:             t,
			BaseValue:        rec.BaseValue,
			Abundance:        rec.Abundance,
			InitialAbundance: rec.InitialAbundance,
			Tier:             econ.Tier(rec.Tier),
			Technology:       rec.Technology,
			Demand:           rec.Demand,
			Supply:           rec.Supply,
			Volatility:       rec.Volatility,
			Shock:            rec.Shock,
			Reserves:         rec.Reserves,
			InitialReserves:  rec.InitialReserves,
			Extracted:        rec.Extracted,
		}
	}
	return m, rows.Err()
}

// SaveEntities writes all entities (full replace). Nested ownership —
// stockpile, facilities, chains, wealth — rides in JSON blob columns.
func (db *DB) SaveEntities(entities []*entity.Entity) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entities"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO entities
		(id, name, kind, population, development, x, y, gdp, growth, inflation,
		 unemployment, debt, tax_rate, openness, policy_effectiveness,
		 stockpile_json, facilities_json, chains_json, wealth_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entities {
		stockJSON, _ := json.Marshal(e.Stockpile)
		facJSON, _ := json.Marshal(e.Facilities)
		chainJSON, _ := json.Marshal(e.Chains)
		wealthJSON, _ := json.Marshal(e.Wealth)

		_, err := stmt.Exec(
			e.EntityID, e.Name, e.Kind, e.Pop, e.Development, e.X, e.Y,
			e.GDPValue, e.Growth, e.InflationRate, e.UnemploymentRate,
			e.DebtValue, e.TaxRate, e.Openness, e.PolicyEffectiveness,
			string(stockJSON), string(facJSON), string(chainJSON), string(wealthJSON),
		)
		if err != nil {
			return fmt.Errorf("insert entity %s: %w", e.EntityID, err)
		}
	}

	return tx.Commit()
}

// LoadEntities reads all entities back.
func (db *DB) LoadEntities() ([]*entity.Entity, error) {
	rows, err := db.conn.Queryx("SELECT * FROM entities ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Entity
	for rows.Next() {
		var rec struct {
			ID                  string  `db:"id"`
			Name                string  `db:"name"`
			Kind                uint8   `db:"kind"`
			Population          int     `db:"population"`
			Development         float64 `db:"development"`
			X                   float64 `db:"x"`
			Y                   float64 `db:"y"`
			GDP                 float64 `db:"gdp"`
			Growth              float64 `db:"growth"`
			Inflation           float64 `db:"inflation"`
			Unemployment        float64 `db:"unemployment"`
			Debt                float64 `db:"debt"`
			TaxRate             float64 `db:"tax_rate"`
			Openness            float64 `db:"openness"`
			PolicyEffectiveness float64 `db:"policy_effectiveness"`
			StockpileJSON       string  `db:"stockpile_json"`
			FacilitiesJSON      string  `db:"facilities_json"`
			ChainsJSON          string  `db:"chains_json"`
			WealthJSON          string  `db:"wealth_json"`
		}
		if err := rows.StructScan(&rec); err != nil {
			return nil, err
		}

		e := &entity.Entity{
			EntityID:            rec.ID,
			Name:                rec.Name,
			Kind:                entity.Kind(rec.Kind),
			Pop:                 rec.Population,
			Development:         rec.Development,
			X:                   rec.X,
			Y:                   rec.Y,
			GDPValue:            rec.GDP,
			Growth:              rec.Growth,
			InflationRate:       rec.Inflation,
			UnemploymentRate:    rec.Unemployment,
			DebtValue:           rec.Debt,
			TaxRate:             rec.TaxRate,
			Openness:            rec.Openness,
			PolicyEffectiveness: rec.PolicyEffectiveness,
			Stockpile:           make(map[econ.ResourceType]float64),
			Wealth:              &wealth.Distribution{},
		}
		if err := json.Unmarshal([]byte(rec.StockpileJSON), &e.Stockpile); err != nil {
			return nil, fmt.Errorf("entity %s stockpile: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(rec.FacilitiesJSON), &e.Facilities); err != nil {
			return nil, fmt.Errorf("entity %s facilities: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(rec.ChainsJSON), &e.Chains); err != nil {
			return nil, fmt.Errorf("entity %s chains: %w", rec.ID, err)
		}
		if err := json.Unmarshal([]byte(rec.WealthJSON), e.Wealth); err != nil {
			return nil, fmt.Errorf("entity %s wealth: %w", rec.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveNetwork writes all routes (full replace).
func (db *DB) SaveNetwork(n *trade.Network) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM routes"); err != nil {
		return err
	}

	for _, r := range n.Routes() {
		risksJSON, _ := json.Marshal(r.Risks)
		historyJSON, _ := json.Marshal(r.RiskHistory)
		active := 0
		if r.Active {
			active = 1
		}
		_, err := tx.Exec(`INSERT INTO routes
			(from_id, to_id, type, capacity, efficiency, distance, risks_json,
			 active, last_risk_mean, history_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.From, r.To, r.Type, r.Capacity, r.Efficiency, r.Distance,
			string(risksJSON), active, r.LastRiskMean, string(historyJSON),
		)
		if err != nil {
			return fmt.Errorf("insert route %s-%s: %w", r.From, r.To, err)
		}
	}

	return tx.Commit()
}

// LoadNetwork rebuilds the trade network for the given entity ids.
func (db *DB) LoadNetwork(entityIDs []string) (*trade.Network, error) {
	n := trade.NewNetwork()
	for _, id := range entityIDs {
		n.AddEntity(id)
	}

	rows, err := db.conn.Queryx("SELECT * FROM routes ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec struct {
			ID           int64   `db:"id"`
			From         string  `db:"from_id"`
			To           string  `db:"to_id"`
			Type         uint8   `db:"type"`
			Capacity     float64 `db:"capacity"`
			Efficiency   float64 `db:"efficiency"`
			Distance     float64 `db:"distance"`
			RisksJSON    string  `db:"risks_json"`
			Active       int     `db:"active"`
			LastRiskMean float64 `db:"last_risk_mean"`
			HistoryJSON  string  `db:"history_json"`
		}
		if err := rows.StructScan(&rec); err != nil {
			return nil, err
		}

		r := &trade.Route{
			From:         rec.From,
			To:           rec.To,
			Type:         trade.RouteType(rec.Type),
			Capacity:     rec.Capacity,
			Efficiency:   rec.Efficiency,
			Distance:     rec.Distance,
			Active:       rec.Active == 1,
			LastRiskMean: rec.LastRiskMean,
			Risks:        make(map[string]float64),
		}
		if err := json.Unmarshal([]byte(rec.RisksJSON), &r.Risks); err != nil {
			return nil, fmt.Errorf("route %s-%s risks: %w", rec.From, rec.To, err)
		}
		if err := json.Unmarshal([]byte(rec.HistoryJSON), &r.RiskHistory); err != nil {
			return nil, fmt.Errorf("route %s-%s history: %w", rec.From, rec.To, err)
		}
		if err := n.AddRoute(r); err != nil {
			return nil, err
		}
	}
	return n, rows.Err()
}

// SaveCrises writes all active and historical crises (full replace).
func (db *DB) SaveCrises(m *crisis.Manager) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM crises"); err != nil {
		return err
	}

	save := func(c *crisis.Crisis, resolved int) error {
		recJSON, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.Exec(
			"INSERT INTO crises (id, record_json, resolved) VALUES (?, ?, ?)",
			c.ID, string(recJSON), resolved,
		)
		return err
	}

	for _, c := range m.Active {
		if err := save(c, 0); err != nil {
			return fmt.Errorf("insert crisis %s: %w", c.ID, err)
		}
	}
	for _, c := range m.History {
		if err := save(c, 1); err != nil {
			return fmt.Errorf("insert crisis %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// LoadCrises rebuilds the crisis manager's active set and history.
func (db *DB) LoadCrises() (*crisis.Manager, error) {
	m := crisis.NewManager()

	rows, err := db.conn.Queryx("SELECT record_json, resolved FROM crises")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var recJSON string
		var resolved int
		if err := rows.Scan(&recJSON, &resolved); err != nil {
			return nil, err
		}
		var c crisis.Crisis
		if err := json.Unmarshal([]byte(recJSON), &c); err != nil {
			return nil, err
		}
		if resolved == 1 {
			m.History = append(m.History, &c)
		} else {
			m.Active = append(m.Active, &c)
		}
	}
	return m, rows.Err()
}

// SaveEvents replaces the stored narrative event feed.
func (db *DB) SaveEvents(events []engine.Event) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM events"); err != nil {
		return err
	}

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (turn, description, category) VALUES (?, ?, ?)",
			e.Turn, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent N events, newest first.
func (db *DB) RecentEvents(limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT turn, description, category FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	return events, err
}

// LoadEvents returns the full stored feed in insertion order.
func (db *DB) LoadEvents() ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT turn, description, category FROM events ORDER BY id ASC",
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasSnapshot reports whether the database holds a saved world.
func (db *DB) HasSnapshot() bool {
	_, err := db.GetMeta("turn")
	return err == nil
}

// SaveSnapshot performs a full save of all simulation state.
func (db *DB) SaveSnapshot(sim *engine.Simulation) error {
	slog.Info("saving snapshot",
		"turn", sim.Turn,
		"entities", len(sim.Entities),
		"routes", len(sim.Network.Routes()),
		"crises_active", len(sim.Crises.Active),
	)

	if err := db.SaveMarket(sim.Market); err != nil {
		return fmt.Errorf("save market: %w", err)
	}
	if err := db.SaveEntities(sim.Entities); err != nil {
		return fmt.Errorf("save entities: %w", err)
	}
	if err := db.SaveNetwork(sim.Network); err != nil {
		return fmt.Errorf("save network: %w", err)
	}
	if err := db.SaveCrises(sim.Crises); err != nil {
		return fmt.Errorf("save crises: %w", err)
	}
	if err := db.SaveEvents(sim.Events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	dynJSON, err := json.Marshal(sim.Dynamics)
	if err != nil {
		return fmt.Errorf("marshal dynamics: %w", err)
	}
	if err := db.SaveMeta("dynamics", string(dynJSON)); err != nil {
		return fmt.Errorf("save dynamics: %w", err)
	}
	if err := db.SaveMeta("turn", strconv.FormatUint(sim.Turn, 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("seed", strconv.FormatInt(sim.Rng.Seed(), 10)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("snapshot saved")
	return nil
}

// LoadSnapshot restores a full simulation. The random stream is re-derived
// from the saved seed and turn; everything else replays from stored state.
func (db *DB) LoadSnapshot() (*engine.Simulation, error) {
	turnStr, err := db.GetMeta("turn")
	if err != nil {
		return nil, fmt.Errorf("no snapshot: %w", err)
	}
	turn, err := strconv.ParseUint(turnStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad turn meta: %w", err)
	}
	seedStr, err := db.GetMeta("seed")
	if err != nil {
		return nil, fmt.Errorf("no seed meta: %w", err)
	}
	seed, err := strconv.ParseInt(seedStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad seed meta: %w", err)
	}

	market, err := db.LoadMarket()
	if err != nil {
		return nil, fmt.Errorf("load market: %w", err)
	}
	entities, err := db.LoadEntities()
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	ids := make([]string, len(entities))
	for i, e := range entities {
		ids[i] = e.EntityID
	}
	network, err := db.LoadNetwork(ids)
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	crises, err := db.LoadCrises()
	if err != nil {
		return nil, fmt.Errorf("load crises: %w", err)
	}

	sim := engine.NewSimulation(market, network, entities, seed+int64(turn))
	sim.Turn = turn
	sim.Crises = crises

	if dynJSON, err := db.GetMeta("dynamics"); err == nil {
		if err := json.Unmarshal([]byte(dynJSON), sim.Dynamics); err != nil {
			return nil, fmt.Errorf("load dynamics: %w", err)
		}
	}
	events, err := db.LoadEvents()
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	sim.Events = events

	slog.Info("snapshot restored", "turn", turn, "entities", len(entities))
	return sim, nil
}
