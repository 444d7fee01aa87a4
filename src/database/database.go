package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"

	"github.com/username/portfoliotracker/backend/src/logger"
	"github.com/username/portfoliotracker/backend/src/models"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens the sqlite database and ensures the transactions table exists.
// The table stores normalized transactions exactly as the import layer hands
// them over; calculation state is never persisted.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY,
		type TEXT NOT NULL,
		datetime TEXT NOT NULL,
		from_asset TEXT,
		from_quantity REAL,
		from_price_usd REAL,
		to_asset TEXT NOT NULL,
		to_quantity REAL NOT NULL,
		to_price_usd REAL
	);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		logger.L.Error("failed to create tables", "error", err)
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
}

// SeedTransactionsFromFile imports normalized transactions from a JSON file.
// Existing ids are left untouched, so reseeding with the same file is a no-op.
// Returns the number of rows actually inserted.
func SeedTransactionsFromFile(filePath string) (int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, fmt.Errorf("error reading transactions seed file '%s': %w", filePath, err)
	}
	var txs []models.Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return 0, fmt.Errorf("error unmarshalling transactions seed file '%s': %w", filePath, err)
	}

	dbTx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("error beginning seed transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT OR IGNORE INTO transactions
		(id, type, datetime, from_asset, from_quantity, from_price_usd, to_asset, to_quantity, to_price_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("error preparing seed insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, tx := range txs {
		res, err := stmt.Exec(tx.ID, string(tx.Type), tx.Datetime,
			tx.FromAsset, tx.FromQuantity, tx.FromPriceUsd,
			tx.ToAsset, tx.ToQuantity, tx.ToPriceUsd)
		if err != nil {
			return 0, fmt.Errorf("error inserting transaction %d: %w", tx.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing seed transactions: %w", err)
	}
	logger.L.Info("Transactions seeded from file", "path", filePath,
		"fileCount", len(txs), "inserted", inserted)
	return inserted, nil
}

// FetchTransactions returns every stored transaction, ordered the way the
// engine expects its input (ascending datetime, then id).
func FetchTransactions() ([]models.Transaction, error) {
	rows, err := DB.Query(`SELECT id, type, datetime, from_asset, from_quantity, from_price_usd,
		to_asset, to_quantity, to_price_usd
		FROM transactions ORDER BY datetime ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var txType string
		if err := rows.Scan(&tx.ID, &txType, &tx.Datetime, &tx.FromAsset, &tx.FromQuantity,
			&tx.FromPriceUsd, &tx.ToAsset, &tx.ToQuantity, &tx.ToPriceUsd); err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}
		tx.Type = models.TransactionType(txType)
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows: %w", err)
	}
	return transactions, nil
}
