package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/cupitman9/family-budget-bot/internal/model"
)

const uniqueViolation = "23505"

type Storage struct {
	pool *pgxpool.Pool
}

func NewStorage(ctx context.Context, postgresDsn string) (*Storage, error) {
	poolConfig, err := pgxpool.ParseConfig(postgresDsn)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing config")
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "error connecting")
	}

	if err = pool.Ping(ctx); err != nil {
		return nil, errors.Wrap(err, "error pinging pool")
	}

	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Storage) EnsureUser(ctx context.Context, user model.User) error {
	query := `INSERT INTO users (id, display_name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	_, err := s.pool.Exec(ctx, query, user.ID, user.DisplayName)
	return errors.Wrap(err, "error upserting user")
}

func (s *Storage) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, display_name, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "error listing users")
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.DisplayName, &u.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "error scanning user")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Storage) RecordEntry(ctx context.Context, e model.NewEntry) (int64, error) {
	if err := validateEntry(e); err != nil {
		return 0, err
	}
	return insertEntry(ctx, s.pool, e)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertEntry(ctx context.Context, q queryRower, e model.NewEntry) (int64, error) {
	query := `INSERT INTO entries (owner_id, kind, label, category, subcategory, amount, credit_id)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING id`
	var id int64
	err := q.QueryRow(ctx, query, e.OwnerID, int16(e.Kind), e.Label, e.Category, e.Subcategory, e.Amount, e.CreditRef).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "error inserting entry")
	}
	return id, nil
}

func (s *Storage) Balance(ctx context.Context, ownerID int64) (model.Balance, error) {
	query := `SELECT COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0),
                     COALESCE(SUM(amount) FILTER (WHERE kind = $3), 0)
              FROM entries
              WHERE owner_id = $1`
	var b model.Balance
	err := s.pool.QueryRow(ctx, query, ownerID, int16(model.TransactionTypeIncome), int16(model.TransactionTypeExpense)).
		Scan(&b.Income, &b.Expense)
	if err != nil {
		return model.Balance{}, errors.Wrap(err, "error computing balance")
	}
	return b, nil
}

// FamilyBalance derives every owner's balance on the fly; no aggregate is
// ever stored.
func (s *Storage) FamilyBalance(ctx context.Context) (model.FamilyBalance, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return model.FamilyBalance{}, err
	}

	owners := make([]model.OwnerBalance, 0, len(users))
	for _, u := range users {
		b, err := s.Balance(ctx, u.ID)
		if err != nil {
			return model.FamilyBalance{}, err
		}
		owners = append(owners, model.OwnerBalance{Owner: u, Balance: b})
	}
	return sumFamily(owners), nil
}

func (s *Storage) ListEntries(ctx context.Context, ownerID int64) ([]model.LedgerEntry, error) {
	query := `SELECT id, owner_id, kind, label, category, subcategory, amount, credit_id, created_date
              FROM entries
              WHERE $1::bigint = 0 OR owner_id = $1
              ORDER BY created_date, id`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "error listing entries")
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var (
			e    model.LedgerEntry
			kind int16
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &kind, &e.Label, &e.Category, &e.Subcategory, &e.Amount, &e.CreditRef, &e.CreatedDate); err != nil {
			return nil, errors.Wrap(err, "error scanning entry")
		}
		e.Kind = model.EntryKind(kind)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MonthlyTotals returns per-month income and expense for the latest months
// that have entries, oldest first.
func (s *Storage) MonthlyTotals(ctx context.Context, ownerID int64, months int) ([]model.MonthlyAggregate, error) {
	query := `SELECT month, income, expense FROM (
                  SELECT to_char(created_date, 'YYYY-MM') AS month,
                         COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0) AS income,
                         COALESCE(SUM(amount) FILTER (WHERE kind = $3), 0) AS expense
                  FROM entries
                  WHERE $1::bigint = 0 OR owner_id = $1
                  GROUP BY month
                  ORDER BY month DESC
                  LIMIT $4
              ) m ORDER BY month`
	rows, err := s.pool.Query(ctx, query, ownerID, int16(model.TransactionTypeIncome), int16(model.TransactionTypeExpense), months)
	if err != nil {
		return nil, errors.Wrap(err, "error aggregating months")
	}
	defer rows.Close()

	var out []model.MonthlyAggregate
	for rows.Next() {
		var a model.MonthlyAggregate
		if err := rows.Scan(&a.Month, &a.Income, &a.Expense); err != nil {
			return nil, errors.Wrap(err, "error scanning month")
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Storage) CreateCredit(ctx context.Context, c model.NewCredit) (int64, error) {
	if err := validateCredit(c); err != nil {
		return 0, err
	}

	query := `INSERT INTO credits (owner_id, name, principal, annual_rate, pay_day, monthly_plan, next_due_date)
              VALUES ($1, $2, $3, $4, $5, $6, $7)
              RETURNING id`
	var due *time.Time
	if !c.NextDueDate.IsZero() {
		due = &c.NextDueDate
	}
	var id int64
	err := s.pool.QueryRow(ctx, query, c.OwnerID, c.Name, c.Principal, c.AnnualRatePercent, c.PayDayOfMonth, c.MonthlyPlan, due).
		Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, model.ErrDuplicateCredit
		}
		return 0, errors.Wrap(err, "error inserting credit")
	}
	return id, nil
}

const creditColumns = `id, owner_id, name, principal, amount_paid, annual_rate, pay_day, monthly_plan, next_due_date`

func scanCredit(row pgx.Row) (model.CreditAccount, error) {
	var (
		c      model.CreditAccount
		payDay int16
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Principal, &c.AmountPaid, &c.AnnualRatePercent, &payDay, &c.MonthlyPlan, &c.NextDueDate)
	c.PayDayOfMonth = int(payDay)
	return c, err
}

func (s *Storage) GetCredit(ctx context.Context, creditID int64) (model.CreditAccount, error) {
	c, err := scanCredit(s.pool.QueryRow(ctx, `SELECT `+creditColumns+` FROM credits WHERE id = $1`, creditID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.CreditAccount{}, model.ErrCreditNotFound
	}
	if err != nil {
		return model.CreditAccount{}, errors.Wrap(err, "error loading credit")
	}
	return c, nil
}

func (s *Storage) CreditNameTaken(ctx context.Context, ownerID int64, name string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM credits WHERE owner_id = $1 AND name = $2)`, ownerID, name).
		Scan(&exists)
	return exists, errors.Wrap(err, "error checking credit name")
}

// RecordCreditPayment increments amount_paid in place and books the linked
// expense in the same transaction. The row lock taken by the UPDATE
// serializes concurrent payments on one credit.
func (s *Storage) RecordCreditPayment(ctx context.Context, p CreditPayment) error {
	if !p.Amount.IsPositive() {
		return model.ErrInvalidAmount
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "error starting transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var ownerID int64
	err = tx.QueryRow(ctx, `UPDATE credits SET amount_paid = amount_paid + $2 WHERE id = $1 RETURNING owner_id`, p.CreditID, p.Amount).
		Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrCreditNotFound
	}
	if err != nil {
		return errors.Wrap(err, "error updating paid amount")
	}

	creditID := p.CreditID
	_, err = insertEntry(ctx, tx, model.NewEntry{
		OwnerID:     ownerID,
		Kind:        model.TransactionTypeExpense,
		Label:       p.Label,
		Category:    p.Category,
		Subcategory: p.Subcategory,
		Amount:      p.Amount,
		CreditRef:   &creditID,
	})
	if err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(ctx), "error committing payment")
}

func (s *Storage) ListCredits(ctx context.Context, ownerID int64) ([]model.CreditAccount, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE $1::bigint = 0 OR owner_id = $1 ORDER BY name, id`
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "error listing credits")
	}
	defer rows.Close()

	var credits []model.CreditAccount
	for rows.Next() {
		c, err := scanCredit(rows)
		if err != nil {
			return nil, errors.Wrap(err, "error scanning credit")
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

func (s *Storage) DeleteCredit(ctx context.Context, creditID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM credits WHERE id = $1`, creditID)
	return errors.Wrap(err, "error deleting credit")
}

func (s *Storage) SetNextDueDate(ctx context.Context, creditID int64, due time.Time) error {
	_, err := s.pool.Exec(ctx, `UPDATE credits SET next_due_date = $2 WHERE id = $1`, creditID, due)
	return errors.Wrap(err, "error updating due date")
}
