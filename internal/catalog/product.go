package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bankpilot.app/concierge/internal/model"
)

type productStore struct {
	pool *pgxpool.Pool
}

// NewProductStore creates a ProductStore backed by the products table.
func NewProductStore(pool *pgxpool.Pool) ProductStore {
	return &productStore{pool: pool}
}

const productColumns = "id, bank_name, category, product_name, attributes, summary_text, created_at, updated_at"

func (s *productStore) Count(ctx context.Context, f Filter) (int, error) {
	query := "SELECT COUNT(*) FROM products"
	conds, args := buildFilter(f)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting products: %w", err)
	}
	return count, nil
}

func (s *productStore) List(ctx context.Context, bank, category string) ([]model.Product, error) {
	// An empty category lists the bank's whole lineup.
	query := fmt.Sprintf(`SELECT %s FROM products
		WHERE LOWER(bank_name) = LOWER($1) AND ($2 = '' OR LOWER(category) = LOWER($2))
		ORDER BY category, product_name`, productColumns)

	rows, err := s.pool.Query(ctx, query, bank, category)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *productStore) Get(ctx context.Context, bank, name string) (*model.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products
		WHERE LOWER(bank_name) = LOWER($1) AND LOWER(product_name) = LOWER($2)`, productColumns)

	row := s.pool.QueryRow(ctx, query, bank, name)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *productStore) DistinctBanks(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "bank_name")
}

func (s *productStore) DistinctCategories(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "category")
}

func (s *productStore) DistinctProductNames(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, "product_name")
}

func (s *productStore) Owners(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT product_name, bank_name FROM products")
	if err != nil {
		return nil, fmt.Errorf("loading product owners: %w", err)
	}
	defer rows.Close()

	owners := make(map[string]string)
	for rows.Next() {
		var name, bank string
		if err := rows.Scan(&name, &bank); err != nil {
			return nil, fmt.Errorf("scanning product owner: %w", err)
		}
		owners[name] = bank
	}
	return owners, rows.Err()
}

func (s *productStore) distinct(ctx context.Context, column string) ([]string, error) {
	// column is one of three fixed names, never user input
	query := fmt.Sprintf("SELECT DISTINCT %s FROM products ORDER BY %s", column, column)

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func buildFilter(f Filter) ([]string, []any) {
	var conds []string
	var args []any

	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		conds = append(conds, fmt.Sprintf("LOWER(%s) = LOWER($%d)", column, len(args)))
	}

	add("bank_name", f.Bank)
	add("category", f.Category)
	add("product_name", f.ProductName)

	return conds, args
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	var attrs []byte

	if err := row.Scan(&p.ID, &p.BankName, &p.Category, &p.ProductName,
		&attrs, &p.SummaryText, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scanning product: %w", err)
	}

	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
			return nil, fmt.Errorf("decoding product attributes: %w", err)
		}
	}

	return &p, nil
}
