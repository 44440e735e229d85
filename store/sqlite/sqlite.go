/*
Package sqlite provides the SQLite-backed implementation of every
persistence interface in the coin engine.

PURPOSE:
  One store for users, wallets, the append-only wallet history, products,
  carts, orders, events, bookings, puzzles, game sessions, and spins.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  ledger.Store / ledger-compatible WithTx: Wallet + history persistence
  inventory.Store:                         Product reads + stock decrement

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch wallet_history. Corrections are
  adjustment entries.

STOCK FLOOR:
  DecrementStock is a conditional UPDATE:
    SET stock_available = stock_available - ? WHERE id = ? AND stock_available >= ?
  Zero rows affected means insufficient stock. Stock can never go negative
  regardless of how many checkouts race.

SPIN UNIQUENESS:
  spins has UNIQUE(user_id, spin_date); the INSERT itself enforces the
  once-per-calendar-day rule under concurrency.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, held across WithTx. In production
  with PostgreSQL, database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"plaza/coin-engine/commerce"
	"plaza/coin-engine/games"
	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	q  querier
	mu *sync.RWMutex

	// inTx marks a transaction view handed to a WithTx callback. Views
	// skip locking; the parent holds the mutex for the whole transaction.
	inTx bool
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive (each new
	// connection would otherwise see a fresh empty database).
	db.SetMaxOpenConns(1)

	store := &Store{db: db, q: db, mu: &sync.RWMutex{}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) lock()    { if !s.inTx { s.mu.Lock() } }
func (s *Store) unlock()  { if !s.inTx { s.mu.Unlock() } }
func (s *Store) rlock()   { if !s.inTx { s.mu.RLock() } }
func (s *Store) runlock() { if !s.inTx { s.mu.RUnlock() } }

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users (role drives admin-only routes)
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TEXT NOT NULL
	);

	-- Wallets (stored aggregate; mutated only alongside wallet_history)
	CREATE TABLE IF NOT EXISTS wallets (
		user_id TEXT PRIMARY KEY,
		coins INTEGER NOT NULL DEFAULT 0,
		coins_redeemed INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);

	-- Wallet history (append-only ledger)
	CREATE TABLE IF NOT EXISTS wallet_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		action TEXT NOT NULL,
		coins INTEGER NOT NULL,
		description TEXT,
		reference_id TEXT,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_user
		ON wallet_history(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_history_reference
		ON wallet_history(reference_id) WHERE reference_id IS NOT NULL;

	-- Products
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT,
		price TEXT NOT NULL,
		stock_available INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		CHECK (stock_available >= 0)
	);

	-- Cart lines (price/title snapshots taken at add time)
	CREATE TABLE IF NOT EXISTS cart_items (
		user_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT,
		price TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		added_at TEXT NOT NULL,
		PRIMARY KEY (user_id, product_id),
		CHECK (quantity >= 1)
	);

	-- Orders (immutable except status)
	CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		subtotal TEXT NOT NULL,
		tax TEXT NOT NULL,
		shipping TEXT NOT NULL,
		coins_used INTEGER NOT NULL,
		coins_earned INTEGER NOT NULL,
		final_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);

	CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL,
		product_id TEXT NOT NULL,
		title TEXT NOT NULL,
		category TEXT,
		price TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		PRIMARY KEY (order_id, product_id)
	);

	-- Events (booked_seats only increments)
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		price TEXT NOT NULL,
		coins_reward INTEGER NOT NULL DEFAULT 0,
		total_seats INTEGER NOT NULL,
		booked_seats INTEGER NOT NULL DEFAULT 0,
		starts_at TEXT,
		created_at TEXT NOT NULL,
		CHECK (booked_seats <= total_seats)
	);

	CREATE TABLE IF NOT EXISTS bookings (
		booking_id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		seats_booked INTEGER NOT NULL,
		amount_paid TEXT NOT NULL,
		coins_used INTEGER NOT NULL,
		coins_earned INTEGER NOT NULL,
		attended INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id);

	-- Sudoku levels (admin-authored)
	CREATE TABLE IF NOT EXISTS sudoku_levels (
		id TEXT PRIMARY KEY,
		grid TEXT NOT NULL,
		solution TEXT NOT NULL,
		coins INTEGER NOT NULL
	);

	-- Riddle / movie puzzles
	CREATE TABLE IF NOT EXISTS guess_puzzles (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		prompt TEXT NOT NULL,
		answer TEXT NOT NULL,
		coins INTEGER NOT NULL DEFAULT 0
	);

	-- Game sessions (per user per puzzle; one 2048 row per user)
	CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		puzzle_id TEXT NOT NULL,
		grid TEXT,
		solution TEXT,
		attempts INTEGER NOT NULL DEFAULT 0,
		hints_used INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		coins_earned INTEGER NOT NULL DEFAULT 0,
		high_score INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_user_puzzle
		ON game_sessions(user_id, kind, puzzle_id);

	-- Daily spins: the unique index IS the once-per-day rule
	CREATE TABLE IF NOT EXISTS spins (
		user_id TEXT NOT NULL,
		spin_date TEXT NOT NULL,
		reward INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (user_id, spin_date)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. The *Store passed to
// fn routes every query through the transaction; if fn returns an error
// the transaction is rolled back.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	if s.inTx {
		return fn(s) // already transactional, just nest
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	view := &Store{db: s.db, q: tx, mu: s.mu, inTx: true}
	if err := fn(view); err != nil {
		return err
	}

	return tx.Commit()
}

// WithCommerceTx adapts WithTx to the commerce.TxStore contract.
func (s *Store) WithCommerceTx(ctx context.Context, fn func(commerce.Store) error) error {
	return s.WithTx(ctx, func(tx *Store) error { return fn(tx) })
}

// WithGamesTx adapts WithTx to the games.TxStore contract.
func (s *Store) WithGamesTx(ctx context.Context, fn func(games.Store) error) error {
	return s.WithTx(ctx, func(tx *Store) error { return fn(tx) })
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// =============================================================================
// USERS
// =============================================================================

// User is a platform account. Role is "user" or "admin".
type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

func (s *Store) SaveUser(ctx context.Context, u User) error {
	s.lock()
	defer s.unlock()

	if u.Role == "" {
		u.Role = "user"
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO users (id, name, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.Role, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	s.rlock()
	defer s.runlock()

	var u User
	var createdAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, email, role, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// =============================================================================
// WALLETS (ledger.Store)
// =============================================================================

func (s *Store) CreateWallet(ctx context.Context, userID ledger.UserID) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO wallets (user_id, coins, coins_redeemed, updated_at)
		VALUES (?, 0, 0, ?)
	`, userID, time.Now().UTC().Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return ledger.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (s *Store) GetWallet(ctx context.Context, userID ledger.UserID) (*ledger.Wallet, error) {
	s.rlock()
	defer s.runlock()

	var w ledger.Wallet
	var updatedAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT user_id, coins, coins_redeemed, updated_at FROM wallets WHERE user_id = ?
	`, userID).Scan(&w.UserID, &w.Coins, &w.CoinsRedeemed, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &w, nil
}

func (s *Store) UpdateWallet(ctx context.Context, w ledger.Wallet) error {
	s.lock()
	defer s.unlock()

	res, err := s.q.ExecContext(ctx, `
		UPDATE wallets SET coins = ?, coins_redeemed = ?, updated_at = ?
		WHERE user_id = ?
	`, w.Coins, w.CoinsRedeemed, w.UpdatedAt.UTC().Format(time.RFC3339), w.UserID)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ledger.ErrUserNotFound
	}
	return nil
}

func (s *Store) AppendEntry(ctx context.Context, e ledger.Entry) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO wallet_history
		(id, user_id, action, coins, description, reference_id, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.Action, e.Coins, e.Description, e.ReferenceID,
		nullString(e.IdempotencyKey), e.CreatedAt.UTC().Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return ledger.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

func (s *Store) Entries(ctx context.Context, userID ledger.UserID) ([]ledger.Entry, error) {
	s.rlock()
	defer s.runlock()

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, action, coins, description, reference_id, idempotency_key, created_at
		FROM wallet_history
		WHERE user_id = ?
		ORDER BY created_at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var idemKey sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Coins, &e.Description,
			&e.ReferenceID, &idemKey, &createdAt); err != nil {
			return nil, err
		}
		e.IdempotencyKey = idemKey.String
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// PRODUCTS (inventory.Store)
// =============================================================================

func (s *Store) SaveProduct(ctx context.Context, p inventory.Product) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO products (id, title, category, price, stock_available, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			price = excluded.price,
			stock_available = excluded.stock_available
	`, p.ID, p.Title, p.Category, p.Price.String(), p.StockAvailable,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*inventory.Product, error) {
	s.rlock()
	defer s.runlock()

	var p inventory.Product
	var price, createdAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, title, category, price, stock_available, created_at
		FROM products WHERE id = ?
	`, id).Scan(&p.ID, &p.Title, &p.Category, &price, &p.StockAvailable, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	p.Price, _ = decimal.NewFromString(price)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	s.rlock()
	defer s.runlock()

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, title, category, price, stock_available, created_at
		FROM products ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []inventory.Product
	for rows.Next() {
		var p inventory.Product
		var price, createdAt string
		if err := rows.Scan(&p.ID, &p.Title, &p.Category, &price, &p.StockAvailable, &createdAt); err != nil {
			return nil, err
		}
		p.Price, _ = decimal.NewFromString(price)
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		products = append(products, p)
	}
	return products, rows.Err()
}

// DecrementStock atomically reduces stock_available, never below zero.
// The WHERE clause is the stock floor: zero rows affected means the
// product is missing or short.
func (s *Store) DecrementStock(ctx context.Context, id string, qty int64) error {
	s.lock()
	defer s.unlock()

	res, err := s.q.ExecContext(ctx, `
		UPDATE products SET stock_available = stock_available - ?
		WHERE id = ? AND stock_available >= ?
	`, qty, id, qty)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		p, err := s.getProductLocked(ctx, id)
		if err != nil {
			return err
		}
		return &ledger.InsufficientStockError{
			ProductID: id,
			Available: p.StockAvailable,
			Requested: qty,
		}
	}
	return nil
}

func (s *Store) getProductLocked(ctx context.Context, id string) (*inventory.Product, error) {
	var p inventory.Product
	var price string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, price, stock_available FROM products WHERE id = ?
	`, id).Scan(&p.ID, &price, &p.StockAvailable)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Price, _ = decimal.NewFromString(price)
	return &p, nil
}

// =============================================================================
// CART
// =============================================================================

func (s *Store) GetCartItem(ctx context.Context, userID, productID string) (*commerce.CartItem, error) {
	s.rlock()
	defer s.runlock()

	var c commerce.CartItem
	var price, addedAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT user_id, product_id, title, category, price, quantity, added_at
		FROM cart_items WHERE user_id = ? AND product_id = ?
	`, userID, productID).Scan(&c.UserID, &c.ProductID, &c.Title, &c.Category, &price, &c.Quantity, &addedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart item: %w", err)
	}
	c.Price, _ = decimal.NewFromString(price)
	c.AddedAt, _ = time.Parse(time.RFC3339, addedAt)
	return &c, nil
}

func (s *Store) GetCart(ctx context.Context, userID string) ([]commerce.CartItem, error) {
	s.rlock()
	defer s.runlock()

	rows, err := s.q.QueryContext(ctx, `
		SELECT user_id, product_id, title, category, price, quantity, added_at
		FROM cart_items WHERE user_id = ? ORDER BY added_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	defer rows.Close()

	var items []commerce.CartItem
	for rows.Next() {
		var c commerce.CartItem
		var price, addedAt string
		if err := rows.Scan(&c.UserID, &c.ProductID, &c.Title, &c.Category, &price, &c.Quantity, &addedAt); err != nil {
			return nil, err
		}
		c.Price, _ = decimal.NewFromString(price)
		c.AddedAt, _ = time.Parse(time.RFC3339, addedAt)
		items = append(items, c)
	}
	return items, rows.Err()
}

func (s *Store) UpsertCartItem(ctx context.Context, c commerce.CartItem) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, title, category, price, quantity, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, product_id) DO UPDATE SET quantity = excluded.quantity
	`, c.UserID, c.ProductID, c.Title, c.Category, c.Price.String(), c.Quantity,
		c.AddedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return nil
}

func (s *Store) DeleteCartItem(ctx context.Context, userID, productID string) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		DELETE FROM cart_items WHERE user_id = ? AND product_id = ?
	`, userID, productID)
	if err != nil {
		return fmt.Errorf("failed to delete cart item: %w", err)
	}
	return nil
}

func (s *Store) ClearCart(ctx context.Context, userID string) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// =============================================================================
// ORDERS
// =============================================================================

func (s *Store) SaveOrder(ctx context.Context, o commerce.Order) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO orders
		(order_id, payment_id, user_id, subtotal, tax, shipping, coins_used,
		 coins_earned, final_amount, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.OrderID, o.PaymentID, o.UserID, o.Subtotal.String(), o.Tax.String(),
		o.Shipping.String(), o.CoinsUsed, o.CoinsEarned, o.FinalAmount.String(),
		o.Status, o.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	for _, item := range o.Items {
		_, err := s.q.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, title, category, price, quantity)
			VALUES (?, ?, ?, ?, ?, ?)
		`, o.OrderID, item.ProductID, item.Title, item.Category, item.Price.String(), item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to save order item: %w", err)
		}
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*commerce.Order, error) {
	s.rlock()
	defer s.runlock()

	var o commerce.Order
	var subtotal, tax, shipping, final, createdAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT order_id, payment_id, user_id, subtotal, tax, shipping,
		       coins_used, coins_earned, final_amount, status, created_at
		FROM orders WHERE order_id = ?
	`, orderID).Scan(&o.OrderID, &o.PaymentID, &o.UserID, &subtotal, &tax, &shipping,
		&o.CoinsUsed, &o.CoinsEarned, &final, &o.Status, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	o.Subtotal, _ = decimal.NewFromString(subtotal)
	o.Tax, _ = decimal.NewFromString(tax)
	o.Shipping, _ = decimal.NewFromString(shipping)
	o.FinalAmount, _ = decimal.NewFromString(final)
	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	rows, err := s.q.QueryContext(ctx, `
		SELECT product_id, title, category, price, quantity
		FROM order_items WHERE order_id = ?
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item commerce.OrderItem
		var price string
		if err := rows.Scan(&item.ProductID, &item.Title, &item.Category, &price, &item.Quantity); err != nil {
			return nil, err
		}
		item.Price, _ = decimal.NewFromString(price)
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}

// =============================================================================
// EVENTS & BOOKINGS
// =============================================================================

func (s *Store) SaveEvent(ctx context.Context, e commerce.Event) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO events (id, title, price, coins_reward, total_seats, booked_seats, starts_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			coins_reward = excluded.coins_reward,
			total_seats = excluded.total_seats,
			starts_at = excluded.starts_at
	`, e.ID, e.Title, e.Price.String(), e.CoinsReward, e.TotalSeats, e.BookedSeats,
		e.StartsAt.UTC().Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*commerce.Event, error) {
	s.rlock()
	defer s.runlock()

	var e commerce.Event
	var price, startsAt, createdAt string
	err := s.q.QueryRowContext(ctx, `
		SELECT id, title, price, coins_reward, total_seats, booked_seats, starts_at, created_at
		FROM events WHERE id = ?
	`, id).Scan(&e.ID, &e.Title, &price, &e.CoinsReward, &e.TotalSeats, &e.BookedSeats, &startsAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	e.Price, _ = decimal.NewFromString(price)
	e.StartsAt, _ = time.Parse(time.RFC3339, startsAt)
	e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &e, nil
}

// IncrementBookedSeats atomically claims seats. Like the stock decrement,
// the WHERE clause is the capacity gate.
func (s *Store) IncrementBookedSeats(ctx context.Context, eventID string, seats int64) error {
	s.lock()
	defer s.unlock()

	res, err := s.q.ExecContext(ctx, `
		UPDATE events SET booked_seats = booked_seats + ?
		WHERE id = ? AND booked_seats + ? <= total_seats
	`, seats, eventID, seats)
	if err != nil {
		return fmt.Errorf("failed to increment booked seats: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		var exists int
		if err := s.q.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&exists); err == sql.ErrNoRows {
			return ledger.ErrEventNotFound
		}
		return ledger.ErrSoldOut
	}
	return nil
}

func (s *Store) SaveBooking(ctx context.Context, b commerce.Booking) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO bookings
		(booking_id, event_id, user_id, seats_booked, amount_paid, coins_used, coins_earned, attended, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.BookingID, b.EventID, b.UserID, b.SeatsBooked, b.AmountPaid.String(),
		b.CoinsUsed, b.CoinsEarned, boolToInt(b.Attended), b.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (*commerce.Booking, error) {
	s.rlock()
	defer s.runlock()

	var b commerce.Booking
	var amount, createdAt string
	var attended int
	err := s.q.QueryRowContext(ctx, `
		SELECT booking_id, event_id, user_id, seats_booked, amount_paid,
		       coins_used, coins_earned, attended, created_at
		FROM bookings WHERE booking_id = ?
	`, bookingID).Scan(&b.BookingID, &b.EventID, &b.UserID, &b.SeatsBooked,
		&amount, &b.CoinsUsed, &b.CoinsEarned, &attended, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	b.AmountPaid, _ = decimal.NewFromString(amount)
	b.Attended = attended != 0
	b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &b, nil
}

func (s *Store) MarkBookingAttended(ctx context.Context, bookingID string) error {
	s.lock()
	defer s.unlock()

	res, err := s.q.ExecContext(ctx, `UPDATE bookings SET attended = 1 WHERE booking_id = ?`, bookingID)
	if err != nil {
		return fmt.Errorf("failed to mark booking attended: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrBookingNotFound
	}
	return nil
}

func (s *Store) ListBookings(ctx context.Context, userID string) ([]commerce.Booking, error) {
	s.rlock()
	defer s.runlock()

	rows, err := s.q.QueryContext(ctx, `
		SELECT booking_id, event_id, user_id, seats_booked, amount_paid,
		       coins_used, coins_earned, attended, created_at
		FROM bookings WHERE user_id = ? ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []commerce.Booking
	for rows.Next() {
		var b commerce.Booking
		var amount, createdAt string
		var attended int
		if err := rows.Scan(&b.BookingID, &b.EventID, &b.UserID, &b.SeatsBooked,
			&amount, &b.CoinsUsed, &b.CoinsEarned, &attended, &createdAt); err != nil {
			return nil, err
		}
		b.AmountPaid, _ = decimal.NewFromString(amount)
		b.Attended = attended != 0
		b.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// =============================================================================
// PUZZLES & GAME SESSIONS
// =============================================================================

func (s *Store) SaveSudokuLevel(ctx context.Context, l games.SudokuLevel) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sudoku_levels (id, grid, solution, coins)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			grid = excluded.grid, solution = excluded.solution, coins = excluded.coins
	`, l.ID, l.Grid, l.Solution, l.Coins)
	if err != nil {
		return fmt.Errorf("failed to save sudoku level: %w", err)
	}
	return nil
}

func (s *Store) GetSudokuLevel(ctx context.Context, id string) (*games.SudokuLevel, error) {
	s.rlock()
	defer s.runlock()

	var l games.SudokuLevel
	err := s.q.QueryRowContext(ctx, `
		SELECT id, grid, solution, coins FROM sudoku_levels WHERE id = ?
	`, id).Scan(&l.ID, &l.Grid, &l.Solution, &l.Coins)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrPuzzleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sudoku level: %w", err)
	}
	return &l, nil
}

func (s *Store) SaveGuessPuzzle(ctx context.Context, p games.GuessPuzzle) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO guess_puzzles (id, kind, prompt, answer, coins)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			prompt = excluded.prompt, answer = excluded.answer, coins = excluded.coins
	`, p.ID, p.Kind, p.Prompt, p.Answer, p.Coins)
	if err != nil {
		return fmt.Errorf("failed to save puzzle: %w", err)
	}
	return nil
}

func (s *Store) GetGuessPuzzle(ctx context.Context, kind games.Kind, id string) (*games.GuessPuzzle, error) {
	s.rlock()
	defer s.runlock()

	var p games.GuessPuzzle
	err := s.q.QueryRowContext(ctx, `
		SELECT id, kind, prompt, answer, coins FROM guess_puzzles WHERE id = ? AND kind = ?
	`, id, kind).Scan(&p.ID, &p.Kind, &p.Prompt, &p.Answer, &p.Coins)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrPuzzleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get puzzle: %w", err)
	}
	return &p, nil
}

func (s *Store) SaveSession(ctx context.Context, sess games.Session) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO game_sessions
		(id, user_id, kind, puzzle_id, grid, solution, attempts, hints_used,
		 status, coins_earned, high_score, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			grid = excluded.grid,
			attempts = excluded.attempts,
			hints_used = excluded.hints_used,
			status = excluded.status,
			coins_earned = excluded.coins_earned,
			high_score = excluded.high_score,
			updated_at = excluded.updated_at
	`, sess.ID, sess.UserID, sess.Kind, sess.PuzzleID, sess.Grid, sess.Solution,
		sess.Attempts, sess.HintsUsed, sess.Status, sess.CoinsEarned, sess.HighScore,
		sess.CreatedAt.UTC().Format(time.RFC3339), sess.UpdatedAt.UTC().Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return ledger.ErrDuplicateEntry
	}
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*games.Session, error) {
	s.rlock()
	defer s.runlock()
	return s.querySession(ctx, `WHERE id = ?`, id)
}

// GetSessionByPuzzle finds a user's session for a given puzzle, or nil.
func (s *Store) GetSessionByPuzzle(ctx context.Context, userID ledger.UserID, kind games.Kind, puzzleID string) (*games.Session, error) {
	s.rlock()
	defer s.runlock()
	sess, err := s.querySession(ctx, `WHERE user_id = ? AND kind = ? AND puzzle_id = ?`, userID, kind, puzzleID)
	if err == ledger.ErrSessionNotFound {
		return nil, nil
	}
	return sess, err
}

func (s *Store) querySession(ctx context.Context, where string, args ...any) (*games.Session, error) {
	var sess games.Session
	var createdAt, updatedAt string
	var grid, solution sql.NullString
	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, kind, puzzle_id, grid, solution, attempts, hints_used,
		       status, coins_earned, high_score, created_at, updated_at
		FROM game_sessions `+where,
		args...,
	).Scan(&sess.ID, &sess.UserID, &sess.Kind, &sess.PuzzleID, &grid, &solution,
		&sess.Attempts, &sess.HintsUsed, &sess.Status, &sess.CoinsEarned,
		&sess.HighScore, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.Grid = grid.String
	sess.Solution = solution.String
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	sess.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &sess, nil
}

// =============================================================================
// SPINS
// =============================================================================

// RecordSpin inserts the user's spin for dayKey. The primary key makes a
// second spin on the same day fail with ErrAlreadySpunToday.
func (s *Store) RecordSpin(ctx context.Context, userID ledger.UserID, dayKey string, reward int64) error {
	s.lock()
	defer s.unlock()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO spins (user_id, spin_date, reward, created_at)
		VALUES (?, ?, ?, ?)
	`, userID, dayKey, reward, time.Now().UTC().Format(time.RFC3339))
	if isUniqueConstraintError(err) {
		return ledger.ErrAlreadySpunToday
	}
	if err != nil {
		return fmt.Errorf("failed to record spin: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
