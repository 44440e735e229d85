/*
Package factory provides JSON to Go catalog conversion.

PURPOSE:
  Converts a JSON catalog definition into domain objects and loads them
  into the store. This enables content configuration without code
  changes - operations can define products, events, and puzzles in JSON,
  and the factory creates the proper Go structs.

JSON SCHEMA:
  {
    "users": [
      {"id": "demo", "name": "Demo User", "email": "demo@example.com", "role": "user"}
    ],
    "products": [
      {"id": "p1", "title": "Widget", "category": "tools", "price": "499.00", "stock": 25}
    ],
    "events": [
      {"id": "e1", "title": "Launch Night", "price": "300", "coins_reward": 150, "total_seats": 200}
    ],
    "sudoku_levels": [
      {"id": "easy-1", "grid": "<81 digits>", "solution": "<81 digits>", "coins": 100}
    ],
    "puzzles": [
      {"id": "r1", "kind": "riddle", "prompt": "...", "answer": "echo", "coins": 20}
    ]
  }

KEY FEATURES:
  - Validates the JSON structure before any write
  - Sets sensible defaults (role=user, generated IDs)
  - Loads everything in one store transaction
  - Idempotent: existing catalog rows are upserted, existing users kept

USAGE:
  catalog, err := factory.Parse(jsonBytes)
  err = catalog.Load(ctx, store)

SEE ALSO:
  - cmd/server/main.go: the -seed flag
  - store/sqlite/sqlite.go: the upsert semantics relied on here
*/
package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plaza/coin-engine/commerce"
	"plaza/coin-engine/games"
	"plaza/coin-engine/inventory"
	"plaza/coin-engine/ledger"
	"plaza/coin-engine/store/sqlite"
)

// Catalog is the parsed, validated content definition.
type Catalog struct {
	Users        []sqlite.User
	Products     []inventory.Product
	Events       []commerce.Event
	SudokuLevels []games.SudokuLevel
	Puzzles      []games.GuessPuzzle
}

type catalogJSON struct {
	Users []struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"users"`
	Products []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Category string `json:"category"`
		Price    string `json:"price"`
		Stock    int64  `json:"stock"`
	} `json:"products"`
	Events []struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Price       string `json:"price"`
		CoinsReward int64  `json:"coins_reward"`
		TotalSeats  int64  `json:"total_seats"`
		StartsAt    string `json:"starts_at"`
	} `json:"events"`
	SudokuLevels []struct {
		ID       string `json:"id"`
		Grid     string `json:"grid"`
		Solution string `json:"solution"`
		Coins    int64  `json:"coins"`
	} `json:"sudoku_levels"`
	Puzzles []struct {
		ID     string `json:"id"`
		Kind   string `json:"kind"`
		Prompt string `json:"prompt"`
		Answer string `json:"answer"`
		Coins  int64  `json:"coins"`
	} `json:"puzzles"`
}

// Parse validates data and converts it into domain objects. Nothing is
// written; Load does the writing.
func Parse(data []byte) (*Catalog, error) {
	var raw catalogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	now := time.Now().UTC()
	c := &Catalog{}

	for i, u := range raw.Users {
		if u.Name == "" {
			return nil, fmt.Errorf("users[%d]: name is required", i)
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Role == "" {
			u.Role = "user"
		}
		c.Users = append(c.Users, sqlite.User{
			ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: now,
		})
	}

	for i, p := range raw.Products {
		price, err := parsePrice(p.Price)
		if err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, err)
		}
		if p.Title == "" {
			return nil, fmt.Errorf("products[%d]: title is required", i)
		}
		if p.Stock < 0 {
			return nil, fmt.Errorf("products[%d]: negative stock", i)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		c.Products = append(c.Products, inventory.Product{
			ID: p.ID, Title: p.Title, Category: p.Category,
			Price: price, StockAvailable: p.Stock, CreatedAt: now,
		})
	}

	for i, e := range raw.Events {
		price, err := parsePrice(e.Price)
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		if e.Title == "" {
			return nil, fmt.Errorf("events[%d]: title is required", i)
		}
		if e.TotalSeats < 1 {
			return nil, fmt.Errorf("events[%d]: total_seats must be at least 1", i)
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		var startsAt time.Time
		if e.StartsAt != "" {
			startsAt, err = time.Parse(time.RFC3339, e.StartsAt)
			if err != nil {
				return nil, fmt.Errorf("events[%d]: starts_at must be RFC3339", i)
			}
		}
		c.Events = append(c.Events, commerce.Event{
			ID: e.ID, Title: e.Title, Price: price,
			CoinsReward: e.CoinsReward, TotalSeats: e.TotalSeats,
			StartsAt: startsAt, CreatedAt: now,
		})
	}

	for i, l := range raw.SudokuLevels {
		if !games.ValidGrid(l.Grid) || !games.ValidGrid(l.Solution) {
			return nil, fmt.Errorf("sudoku_levels[%d]: grid and solution must be 81 digits", i)
		}
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		c.SudokuLevels = append(c.SudokuLevels, games.SudokuLevel{
			ID: l.ID, Grid: l.Grid, Solution: l.Solution, Coins: l.Coins,
		})
	}

	for i, p := range raw.Puzzles {
		kind := games.Kind(p.Kind)
		if kind != games.KindRiddle && kind != games.KindMovie {
			return nil, fmt.Errorf("puzzles[%d]: kind must be riddle or movie", i)
		}
		if p.Prompt == "" || p.Answer == "" {
			return nil, fmt.Errorf("puzzles[%d]: prompt and answer are required", i)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		c.Puzzles = append(c.Puzzles, games.GuessPuzzle{
			ID: p.ID, Kind: kind, Prompt: p.Prompt, Answer: p.Answer, Coins: p.Coins,
		})
	}

	return c, nil
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, errors.New("price is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid price %q", s)
	}
	return d, nil
}

// Load writes the catalog in one transaction. Catalog rows (products,
// events, levels, puzzles) are upserted; users that already exist are
// left alone, wallets included.
func (c *Catalog) Load(ctx context.Context, store *sqlite.Store) error {
	return store.WithTx(ctx, func(tx *sqlite.Store) error {
		for _, u := range c.Users {
			existing, err := tx.GetUser(ctx, u.ID)
			if err != nil && !errors.Is(err, ledger.ErrUserNotFound) {
				return err
			}
			if existing != nil {
				continue
			}
			if err := tx.SaveUser(ctx, u); err != nil {
				return err
			}
			if err := tx.CreateWallet(ctx, ledger.UserID(u.ID)); err != nil {
				return err
			}
		}
		for _, p := range c.Products {
			if err := tx.SaveProduct(ctx, p); err != nil {
				return err
			}
		}
		for _, e := range c.Events {
			if err := tx.SaveEvent(ctx, e); err != nil {
				return err
			}
		}
		for _, l := range c.SudokuLevels {
			if err := tx.SaveSudokuLevel(ctx, l); err != nil {
				return err
			}
		}
		for _, p := range c.Puzzles {
			if err := tx.SaveGuessPuzzle(ctx, p); err != nil {
				return err
			}
		}
		return nil
	})
}
