package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/khadijakhan2707/Multi-factor-equity-strategy-tradsystem/internal/portfolio"
)

// TradeArchive mirrors the trade history into SQLite so reporting tooling can
// query fills without parsing the state file. The archive is write-behind and
// advisory: the JSON state file stays the source of truth.
type TradeArchive struct {
	db *sql.DB
}

// OpenTradeArchive opens (creating if needed) the archive database.
func OpenTradeArchive(path string) (*TradeArchive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS trades(
		ts TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price TEXT NOT NULL,
		resulting_cash TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init archive schema: %w", err)
	}
	return &TradeArchive{db: db}, nil
}

// Record appends fills to the archive in one transaction.
func (a *TradeArchive) Record(trades []portfolio.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}
	for _, tr := range trades {
		if _, err := tx.Exec(
			`INSERT INTO trades(ts,symbol,side,quantity,price,resulting_cash) VALUES(?,?,?,?,?,?)`,
			tr.Time.UTC().Format(time.RFC3339Nano), tr.Symbol, string(tr.Side),
			tr.Quantity, tr.Price.String(), tr.ResultingCash.String(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert trade: %w", err)
		}
	}
	return tx.Commit()
}

// Recent returns the newest fills, most recent first.
func (a *TradeArchive) Recent(limit int) ([]portfolio.TradeRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.Query(
		`SELECT ts,symbol,side,quantity,price,resulting_cash FROM trades ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []portfolio.TradeRecord
	for rows.Next() {
		var (
			ts, symbol, side, price, cash string
			quantity                      int64
		)
		if err := rows.Scan(&ts, &symbol, &side, &quantity, &price, &cash); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		when, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse trade timestamp: %w", err)
		}
		px, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse trade price: %w", err)
		}
		resulting, err := decimal.NewFromString(cash)
		if err != nil {
			return nil, fmt.Errorf("parse resulting cash: %w", err)
		}
		out = append(out, portfolio.TradeRecord{
			Time:          when.UTC(),
			Symbol:        symbol,
			Side:          portfolio.Side(side),
			Quantity:      quantity,
			Price:         px,
			ResultingCash: resulting,
		})
	}
	return out, rows.Err()
}

// Count returns the number of archived fills.
func (a *TradeArchive) Count() (int64, error) {
	var n int64
	if err := a.db.QueryRow(`SELECT COUNT(*) FROM trades`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return n, nil
}

// Close releases the database handle.
func (a *TradeArchive) Close() error { return a.db.Close() }
