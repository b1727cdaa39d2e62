package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	Store(ctx context.Context, event Event) (Event, error)
	GetById(ctx context.Context, id uuid.UUID) (Event, error)
	// GetForUpdate loads the event and locks its row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (Event, error)
	Update(ctx context.Context, event Event) (Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// FindForUser returns events within period that userId owns or attends, ordered by date.
	FindForUser(ctx context.Context, userId uuid.UUID, period Period) ([]Event, error)
	ListAll(ctx context.Context) ([]Event, error)
	ListOwned(ctx context.Context, userId uuid.UUID) ([]Event, error)
	ListAttending(ctx context.Context, userId uuid.UUID) ([]Event, error)
	// AddAttendee records the attendance and takes one ticket. Returns the new tickets_sold.
	AddAttendee(ctx context.Context, eventId, userId uuid.UUID) (int, error)
	// RemoveAttendee drops the attendance and returns one ticket. Returns the new tickets_sold.
	RemoveAttendee(ctx context.Context, eventId, userId uuid.UUID) (int, error)
}

type RepositoryImpl struct {
	db *pgxpool.Pool
	tx pgx.Tx
}

func NewRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback will be a no-op if the transaction was already committed
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&RepositoryImpl{db: r.db, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const selectEvent = `SELECT e.id, e.title, e.description, e.date, e.location, e.capacity, e.ticket_price,
		e.image_urls, e.contact_info, e.tickets_sold, e.created_at, e.updated_at,
		u.id, u.name, u.email,
		ARRAY(SELECT a.user_id FROM attendance a WHERE a.event_id = e.id ORDER BY a.joined_at, a.user_id) AS attendees
	FROM events e
	JOIN users u ON u.id = e.owner_id`

func (r *RepositoryImpl) Store(ctx context.Context, event Event) (Event, error) {
	query := `INSERT INTO events (id, owner_id, title, description, date, location, capacity, ticket_price,
				image_urls, contact_info)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`
	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	var id uuid.UUID
	err := r.getQueryer().QueryRow(ctx, query,
		event.Id,
		event.Owner.Id,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.Capacity,
		event.TicketPrice,
		event.ImageUrls,
		event.ContactInfo,
	).Scan(&id)
	if err != nil {
		log.Errorf("failed to store event: %v", err)
		return Event{}, fmt.Errorf("failed to store event: %w", err)
	}
	return r.GetById(ctx, id)
}

func (r *RepositoryImpl) GetById(ctx context.Context, id uuid.UUID) (Event, error) {
	return r.getOne(ctx, selectEvent+` WHERE e.id = $1`, id)
}

func (r *RepositoryImpl) GetForUpdate(ctx context.Context, id uuid.UUID) (Event, error) {
	if r.tx == nil {
		return Event{}, errors.New("GetForUpdate requires a transaction")
	}
	return r.getOne(ctx, selectEvent+` WHERE e.id = $1 FOR UPDATE OF e`, id)
}

func (r *RepositoryImpl) Update(ctx context.Context, event Event) (Event, error) {
	query := `UPDATE events SET title = $1, description = $2, date = $3, location = $4, capacity = $5,
				ticket_price = $6, image_urls = $7, contact_info = $8, updated_at = now()
			WHERE id = $9`
	result, err := r.getQueryer().Exec(ctx, query,
		event.Title,
		event.Description,
		event.Date,
		event.Location,
		event.Capacity,
		event.TicketPrice,
		event.ImageUrls,
		event.ContactInfo,
		event.Id,
	)
	if err != nil {
		log.Errorf("failed to update event %s: %v", event.Id, err)
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return Event{}, ErrEventNotFound
	}
	return r.GetById(ctx, event.Id)
}

// Delete removes the event. Attendance rows go with it through ON DELETE CASCADE.
func (r *RepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.getQueryer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		log.Errorf("failed to delete event %s: %v", id, err)
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *RepositoryImpl) FindForUser(ctx context.Context, userId uuid.UUID, period Period) ([]Event, error) {
	endOp := "<"
	if period.EndInclusive {
		endOp = "<="
	}
	query := selectEvent + ` WHERE e.date >= $2 AND e.date ` + endOp + ` $3
		AND (e.owner_id = $1 OR EXISTS (SELECT 1 FROM attendance a WHERE a.event_id = e.id AND a.user_id = $1))
		ORDER BY e.date, e.id`
	return r.getMany(ctx, query, userId, period.Start, period.End)
}

func (r *RepositoryImpl) ListAll(ctx context.Context) ([]Event, error) {
	return r.getMany(ctx, selectEvent+` ORDER BY e.date, e.id`)
}

func (r *RepositoryImpl) ListOwned(ctx context.Context, userId uuid.UUID) ([]Event, error) {
	return r.getMany(ctx, selectEvent+` WHERE e.owner_id = $1 ORDER BY e.date, e.id`, userId)
}

func (r *RepositoryImpl) ListAttending(ctx context.Context, userId uuid.UUID) ([]Event, error) {
	query := selectEvent + ` WHERE EXISTS (SELECT 1 FROM attendance a WHERE a.event_id = e.id AND a.user_id = $1)
		ORDER BY e.date, e.id`
	return r.getMany(ctx, query, userId)
}

func (r *RepositoryImpl) AddAttendee(ctx context.Context, eventId, userId uuid.UUID) (int, error) {
	q := r.getQueryer()
	result, err := q.Exec(ctx,
		`INSERT INTO attendance (event_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, eventId, userId)
	if err != nil {
		log.Errorf("failed to add attendee %s to event %s: %v", userId, eventId, err)
		return 0, fmt.Errorf("failed to add attendee: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, ErrAlreadyJoined
	}

	// Compare-and-swap on capacity; no row means the last ticket is gone.
	var ticketsSold int
	err = q.QueryRow(ctx, `UPDATE events SET tickets_sold = tickets_sold + 1, updated_at = now()
			WHERE id = $1 AND tickets_sold < capacity
			RETURNING tickets_sold`, eventId).Scan(&ticketsSold)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrEventFull
	} else if err != nil {
		log.Errorf("failed to take ticket for event %s: %v", eventId, err)
		return 0, fmt.Errorf("failed to take ticket: %w", err)
	}
	return ticketsSold, nil
}

func (r *RepositoryImpl) RemoveAttendee(ctx context.Context, eventId, userId uuid.UUID) (int, error) {
	q := r.getQueryer()
	result, err := q.Exec(ctx, `DELETE FROM attendance WHERE event_id = $1 AND user_id = $2`, eventId, userId)
	if err != nil {
		log.Errorf("failed to remove attendee %s from event %s: %v", userId, eventId, err)
		return 0, fmt.Errorf("failed to remove attendee: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, ErrNotAttendee
	}

	var ticketsSold int
	err = q.QueryRow(ctx, `UPDATE events SET tickets_sold = GREATEST(tickets_sold - 1, 0), updated_at = now()
			WHERE id = $1
			RETURNING tickets_sold`, eventId).Scan(&ticketsSold)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrEventNotFound
	} else if err != nil {
		log.Errorf("failed to return ticket for event %s: %v", eventId, err)
		return 0, fmt.Errorf("failed to return ticket: %w", err)
	}
	return ticketsSold, nil
}

func (r *RepositoryImpl) getOne(ctx context.Context, query string, args ...any) (Event, error) {
	event, err := scanEvent(r.getQueryer().QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, ErrEventNotFound
	} else if err != nil {
		log.Errorf("failed to get event: %v", err)
		return Event{}, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (r *RepositoryImpl) getMany(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := r.getQueryer().Query(ctx, query, args...)
	if err != nil {
		log.Errorf("failed to query events: %v", err)
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			log.Errorf("failed to scan event: %v", err)
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		log.Errorf("error iterating over rows: %v", err)
		return nil, err
	}
	return events, nil
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	err := row.Scan(
		&e.Id,
		&e.Title,
		&e.Description,
		&e.Date,
		&e.Location,
		&e.Capacity,
		&e.TicketPrice,
		&e.ImageUrls,
		&e.ContactInfo,
		&e.TicketsSold,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.Owner.Id,
		&e.Owner.Name,
		&e.Owner.Email,
		&e.Attendees,
	)
	if err != nil {
		return Event{}, err
	}
	e.Date = e.Date.UTC()
	return e, nil
}
