package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ImportTx is one atomic import. InsertPayment failures are isolated per row;
// the transaction stays usable and uncommitted work disappears on Rollback.
type ImportTx interface {
	InsertPayment(ctx context.Context, p Payment) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the persistence surface the handlers and the duplicate detector
// depend on.
type Store interface {
	NearMatchFinder
	Begin(ctx context.Context) (ImportTx, error)
	Insert(ctx context.Context, p Payment) (int64, error)
	GetByID(ctx context.Context, id int64) (Payment, error)
	List(ctx context.Context, filter ListFilter) ([]Payment, error)
	Update(ctx context.Context, p Payment) error
	Delete(ctx context.Context, id int64) error
}

const paymentColumns = `payment_date, payment_time, customer_name, project_name, account_name,
		agency_name, property_id, property_name, property_units, payment_method, description,
		status, invoice_number, paid_amount, paid_currency, amount_due, check_due_date,
		exchange_rate, amount_usd, year, month, is_deposit, is_duplicate_confirmed, notes`

const insertPaymentSQL = `
	INSERT INTO payments (` + paymentColumns + `)
	VALUES (NULLIF($1,'')::date, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, NULLIF($17,'')::date, $18, $19, $20, $21, $22, $23, $24)
	RETURNING id`

const selectPaymentSQL = `
	SELECT id, COALESCE(payment_date::text,''), payment_time, customer_name, project_name,
		account_name, agency_name, property_id, property_name, property_units, payment_method,
		description, status, invoice_number, paid_amount, paid_currency, amount_due,
		COALESCE(check_due_date::text,''), exchange_rate, amount_usd, year, month,
		is_deposit, is_duplicate_confirmed, notes, created_at, updated_at
	FROM payments`

// PgStore is the Postgres-backed Store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func insertArgs(p Payment) []interface{} {
	return []interface{}{
		p.PaymentDate, p.PaymentTime, p.CustomerName, p.ProjectName, p.AccountName,
		p.AgencyName, p.PropertyID, p.PropertyName, p.PropertyUnits, p.PaymentMethod,
		p.Description, p.Status, p.InvoiceNumber, p.PaidAmount, p.PaidCurrency,
		p.AmountDue, p.CheckDueDate, p.ExchangeRate, p.AmountUSD, p.Year, p.Month,
		p.IsDeposit, p.IsDuplicateConfirmed, p.Notes,
	}
}

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.PaymentDate, &p.PaymentTime, &p.CustomerName, &p.ProjectName,
		&p.AccountName, &p.AgencyName, &p.PropertyID, &p.PropertyName, &p.PropertyUnits,
		&p.PaymentMethod, &p.Description, &p.Status, &p.InvoiceNumber, &p.PaidAmount,
		&p.PaidCurrency, &p.AmountDue, &p.CheckDueDate, &p.ExchangeRate, &p.AmountUSD,
		&p.Year, &p.Month, &p.IsDeposit, &p.IsDuplicateConfirmed, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PgStore) Begin(ctx context.Context) (ImportTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import tx: %w", err)
	}
	return &pgImportTx{tx: tx}, nil
}

type pgImportTx struct {
	tx  pgx.Tx
	seq int
}

// InsertPayment wraps the insert in a savepoint so one bad row does not abort
// the whole transaction.
func (t *pgImportTx) InsertPayment(ctx context.Context, p Payment) error {
	t.seq++
	sp := fmt.Sprintf("row_%d", t.seq)
	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	var id int64
	if err := t.tx.QueryRow(ctx, insertPaymentSQL, insertArgs(p)...).Scan(&id); err != nil {
		if _, rbErr := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
			return fmt.Errorf("rollback to savepoint after %v: %w", err, rbErr)
		}
		return err
	}
	_, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+sp)
	return err
}

func (t *pgImportTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgImportTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

func (s *PgStore) Insert(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, insertPaymentSQL, insertArgs(p)...).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return id, nil
}

func (s *PgStore) GetByID(ctx context.Context, id int64) (Payment, error) {
	p, err := scanPayment(s.pool.QueryRow(ctx, selectPaymentSQL+" WHERE id = $1", id))
	if err != nil {
		return Payment{}, fmt.Errorf("get payment %d: %w", id, err)
	}
	return p, nil
}

func (s *PgStore) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	query := selectPaymentSQL + " WHERE 1=1"
	var args []interface{}
	add := func(clause string, val interface{}) {
		args = append(args, val)
		query += fmt.Sprintf(" AND "+clause, len(args))
	}
	if filter.StartDate != "" {
		add("payment_date >= $%d", filter.StartDate)
	}
	if filter.EndDate != "" {
		add("payment_date <= $%d", filter.EndDate)
	}
	if filter.CustomerName != "" {
		add("customer_name ILIKE $%d", "%"+filter.CustomerName+"%")
	}
	if filter.ProjectName != "" {
		add("project_name ILIKE $%d", "%"+filter.ProjectName+"%")
	}
	if filter.PropertyName != "" {
		add("property_name ILIKE $%d", "%"+filter.PropertyName+"%")
	}
	if filter.Currency != "" {
		add("paid_currency = $%d", strings.ToUpper(filter.Currency))
	}
	if len(filter.Channels) > 0 {
		add("payment_method = ANY($%d)", filter.Channels)
	}
	query += " ORDER BY payment_date DESC NULLS LAST, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PgStore) Update(ctx context.Context, p Payment) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE payments SET
			payment_date = NULLIF($1,'')::date, payment_time = $2, customer_name = $3,
			project_name = $4, account_name = $5, agency_name = $6, property_id = $7,
			property_name = $8, property_units = $9, payment_method = $10, description = $11,
			status = $12, invoice_number = $13, paid_amount = $14, paid_currency = $15,
			amount_due = $16, check_due_date = NULLIF($17,'')::date, exchange_rate = $18,
			amount_usd = $19, year = $20, month = $21, is_deposit = $22,
			is_duplicate_confirmed = $23, notes = $24, updated_at = now()
		WHERE id = $25`, append(insertArgs(p), p.ID)...)
	if err != nil {
		return fmt.Errorf("update payment %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %d not found", p.ID)
	}
	return nil
}

func (s *PgStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM payments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete payment %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %d not found", id)
	}
	return nil
}

// FindNearMatches pulls candidates for duplicate detection. Dateless records
// have nothing to window on and never match.
func (s *PgStore) FindNearMatches(ctx context.Context, p Payment, windowDays int, tolerance float64) ([]Payment, error) {
	if p.PaymentDate == "" {
		return nil, nil
	}
	band := p.PaidAmount.Abs().InexactFloat64() * tolerance
	rows, err := s.pool.Query(ctx, selectPaymentSQL+`
		WHERE payment_date BETWEEN $1::date - $2::int AND $1::date + $2::int
		  AND lower(customer_name) = lower($3)
		  AND paid_currency = $4
		  AND abs(paid_amount - $5) <= $6`,
		p.PaymentDate, windowDays, strings.TrimSpace(p.CustomerName),
		p.PaidCurrency, p.PaidAmount, band)
	if err != nil {
		return nil, fmt.Errorf("query near matches: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		match, scanErr := scanPayment(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan near match: %w", scanErr)
		}
		out = append(out, match)
	}
	return out, rows.Err()
}
