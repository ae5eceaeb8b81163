package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"opscal/internal/model"
)

var ErrNotFound = errors.New("not found")

// Store persists the five source collections in SQLite.
type Store struct {
	db  SQLDB
	loc *time.Location
}

// New creates a Store. Stored dates are calendar dates and are read back as
// midnight in loc (UTC when nil).
// PRE: db is open with the schema applied (see Open/InitDB)
func New(db SQLDB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{db: db, loc: loc}
}

// Load reads all five collections concurrently. It satisfies
// calendar.SourceLoader.
func (s *Store) Load(ctx context.Context) (model.Sources, error) {
	var src model.Sources
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		src.Tasks, err = s.ListTasks(gctx)
		return err
	})
	g.Go(func() (err error) {
		src.Orders, err = s.ListOrders(gctx)
		return err
	})
	g.Go(func() (err error) {
		src.Subscriptions, err = s.ListSubscriptions(gctx)
		return err
	})
	g.Go(func() (err error) {
		src.Invoices, err = s.ListInvoices(gctx)
		return err
	})
	g.Go(func() (err error) {
		src.CalendarEntries, err = s.ListCalendarEntries(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return model.Sources{}, fmt.Errorf("load sources: %w", err)
	}
	return src, nil
}

// SaveTask inserts or updates a task.
// PRE: none; the task is validated first
// POST: task is persisted or a validation/storage error is returned
func (s *Store) SaveTask(ctx context.Context, t model.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task (id, title, description, due_date, priority, order_id, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, description=excluded.description, due_date=excluded.due_date,
		   priority=excluded.priority, order_id=excluded.order_id, status=excluded.status`,
		t.ID, t.Title, t.Description, s.formatDate(t.DueDate), string(t.Priority), t.OrderID, t.Status,
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", t.ID, err)
	}
	return nil
}

// GetTask returns ErrNotFound when no task has the id.
func (s *Store) GetTask(ctx context.Context, id string) (model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, due_date, priority, order_id, status FROM task WHERE id = ?`, id)
	t, err := s.scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (s *Store) ListTasks(ctx context.Context) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, due_date, priority, order_id, status FROM task ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := s.scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SaveOrder(ctx context.Context, o model.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO client_order (id, title, client_name, due_date, status)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, client_name=excluded.client_name,
		   due_date=excluded.due_date, status=excluded.status`,
		o.ID, o.Title, o.ClientName, s.formatDate(o.DueDate), o.Status,
	)
	if err != nil {
		return fmt.Errorf("save order %s: %w", o.ID, err)
	}
	return nil
}

// GetOrder returns ErrNotFound when no order has the id.
func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	var o model.Order
	var due string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, client_name, due_date, status FROM client_order WHERE id = ?`, id,
	).Scan(&o.ID, &o.Title, &o.ClientName, &due, &o.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Order{}, err
	}
	o.DueDate = s.parseDate(due)
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, client_name, due_date, status FROM client_order ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var o model.Order
		var due string
		if err := rows.Scan(&o.ID, &o.Title, &o.ClientName, &due, &o.Status); err != nil {
			return nil, err
		}
		o.DueDate = s.parseDate(due)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) SaveSubscription(ctx context.Context, sub model.Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscription (id, name, active, renewal_date, billing_cycle)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, active=excluded.active,
		   renewal_date=excluded.renewal_date, billing_cycle=excluded.billing_cycle`,
		sub.ID, sub.Name, boolToInt(sub.Active), s.formatDate(sub.RenewalDate), string(sub.BillingCycle),
	)
	if err != nil {
		return fmt.Errorf("save subscription %s: %w", sub.ID, err)
	}
	return nil
}

// UpdateRenewalDate moves one subscription's renewal date.
func (s *Store) UpdateRenewalDate(ctx context.Context, id string, date time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscription SET renewal_date = ? WHERE id = ?`, s.formatDate(&date), id)
	if err != nil {
		return fmt.Errorf("update renewal %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("subscription %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, active, renewal_date, billing_cycle FROM subscription ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []model.Subscription
	for rows.Next() {
		var sub model.Subscription
		var active int
		var renewal, cycle string
		if err := rows.Scan(&sub.ID, &sub.Name, &active, &renewal, &cycle); err != nil {
			return nil, err
		}
		sub.Active = active != 0
		sub.RenewalDate = s.parseDate(renewal)
		sub.BillingCycle = model.BillingCycle(cycle)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) SaveInvoice(ctx context.Context, inv model.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invoice (id, number, client_name, due_date, status, amount)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   number=excluded.number, client_name=excluded.client_name, due_date=excluded.due_date,
		   status=excluded.status, amount=excluded.amount`,
		inv.ID, inv.Number, inv.ClientName, s.formatDate(inv.DueDate), string(inv.Status), inv.Amount,
	)
	if err != nil {
		return fmt.Errorf("save invoice %s: %w", inv.ID, err)
	}
	return nil
}

func (s *Store) ListInvoices(ctx context.Context) ([]model.Invoice, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, number, client_name, due_date, status, amount FROM invoice ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var out []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		var due, status string
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.ClientName, &due, &status, &inv.Amount); err != nil {
			return nil, err
		}
		inv.DueDate = s.parseDate(due)
		inv.Status = model.InvoiceStatus(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}

// SaveCalendarEntry inserts or updates one calendar entry. An empty Source is
// stored as local.
func (s *Store) SaveCalendarEntry(ctx context.Context, e model.CalendarEntry) error {
	return s.saveCalendarEntry(ctx, s.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) saveCalendarEntry(ctx context.Context, db execer, e model.CalendarEntry) error {
	if e.Type == "" {
		e.Type = model.TypeMeeting
	}
	if e.Source == "" {
		e.Source = model.SourceLocal
	}
	if err := e.Validate(); err != nil {
		return err
	}
	attendees, err := json.Marshal(nonNil(e.Attendees))
	if err != nil {
		return fmt.Errorf("encode attendees: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO calendar_entry (id, title, description, date, time, type, priority, attendees, location, source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, description=excluded.description, date=excluded.date,
		   time=excluded.time, type=excluded.type, priority=excluded.priority,
		   attendees=excluded.attendees, location=excluded.location, source=excluded.source`,
		e.ID, e.Title, e.Description, s.formatDate(&e.Date), e.Time, string(e.Type), string(e.Priority),
		string(attendees), e.Location, e.Source,
	)
	if err != nil {
		return fmt.Errorf("save calendar entry %s: %w", e.ID, err)
	}
	return nil
}

// ReplaceImportedEntries swaps every entry of source for entries in one
// transaction, so a failed sync leaves the previous import intact.
func (s *Store) ReplaceImportedEntries(ctx context.Context, source string, entries []model.CalendarEntry) error {
	if source == "" || source == model.SourceLocal {
		return fmt.Errorf("%w: refusing to replace entries of source %q", model.ErrInvalid, source)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM calendar_entry WHERE source = ?`, source); err != nil {
		return fmt.Errorf("clear source %s: %w", source, err)
	}
	for _, e := range entries {
		e.Source = source
		if err := s.saveCalendarEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListCalendarEntries(ctx context.Context) ([]model.CalendarEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, date, time, type, priority, attendees, location, source
		 FROM calendar_entry ORDER BY date, time, rowid`)
	if err != nil {
		return nil, fmt.Errorf("list calendar entries: %w", err)
	}
	defer rows.Close()

	var out []model.CalendarEntry
	for rows.Next() {
		var e model.CalendarEntry
		var date, typ, priority, attendees string
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &date, &e.Time, &typ, &priority,
			&attendees, &e.Location, &e.Source); err != nil {
			return nil, err
		}
		// A malformed date reads back as zero; the collector applies its fallback.
		if d := s.parseDate(date); d != nil {
			e.Date = *d
		}
		e.Type = model.Type(typ)
		e.Priority = model.Priority(priority)
		if err := json.Unmarshal([]byte(attendees), &e.Attendees); err != nil {
			e.Attendees = nil
		}
		if len(e.Attendees) == 0 {
			e.Attendees = nil
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanTask(r rowScanner) (model.Task, error) {
	var t model.Task
	var due, priority string
	if err := r.Scan(&t.ID, &t.Title, &t.Description, &due, &priority, &t.OrderID, &t.Status); err != nil {
		return model.Task{}, err
	}
	t.DueDate = s.parseDate(due)
	t.Priority = model.Priority(priority)
	return t, nil
}

func (s *Store) formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return model.FormatDate(*t, s.loc)
}

// parseDate returns nil for empty or malformed values.
func (s *Store) parseDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := model.ParseDate(v, s.loc)
	if err != nil {
		return nil
	}
	return &t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
