package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"anonchat/internal/app/db"
	"anonchat/internal/app/user"
)

const userColumns = `id, COALESCE(display_name, ''), COALESCE(gender, ''), state, COALESCE(partner_id, ''), registered_at, updated_at`

// Postgres is the Directory driver backed by a PostgreSQL connection pool.
// Single-user moves are conditional UPDATEs; compound moves run in a transaction that
// locks both rows before re-checking the guard.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an already migrated pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Register(ctx context.Context, u user.User) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO users (id, display_name, gender, state, registered_at, updated_at)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), 'idle', NOW(), NOW())`,
		u.ID, u.DisplayName, string(u.Gender),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return unavailable("register", err)
	}
	return nil
}

func (p *Postgres) FindByID(ctx context.Context, id user.ID) (user.User, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrNotFound
		}
		return user.User{}, unavailable("find by id", err)
	}
	return u, nil
}

func (p *Postgres) FindByState(ctx context.Context, state user.State) ([]user.User, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE state = $1`, string(state))
	if err != nil {
		return nil, unavailable("find by state", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, unavailable("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find by state", err)
	}

	return users, nil
}

func (p *Postgres) TryTransition(ctx context.Context, id user.ID, from, to user.State) error {
	if err := checkSingleMove(from, to); err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET state = $3, updated_at = NOW()
		 WHERE id = $1 AND state = $2 AND partner_id IS NULL`,
		id, string(from), string(to),
	)
	if err != nil {
		return classify("transition", err)
	}

	if tag.RowsAffected() == 0 {
		return p.missOrConflict(ctx, id)
	}
	return nil
}

func (p *Postgres) TryCompoundPair(ctx context.Context, a, b user.ID) error {
	if err := checkPair(a, b); err != nil {
		return err
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		states, err := lockUsers(ctx, tx, a, b)
		if err != nil {
			return err
		}
		if len(states) != 2 {
			return ErrNotFound
		}
		if states[a] != user.StateWaiting || states[b] != user.StateWaiting {
			return fmt.Errorf("%w: %s and %s are not both waiting", ErrConflict, a, b)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE users
			 SET state = 'paired',
			     partner_id = CASE WHEN id = $1 THEN $2 ELSE $1 END,
			     updated_at = NOW()
			 WHERE id IN ($1, $2) AND state = 'waiting'`,
			a, b,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 2 {
			return ErrConflict
		}
		return nil
	})

	return classify("compound pair", err)
}

func (p *Postgres) TryCompoundUnpair(ctx context.Context, id user.ID) (user.ID, error) {
	var partner user.ID

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		var state string
		var partnerID *string

		err := tx.QueryRow(ctx, `SELECT state, partner_id FROM users WHERE id = $1`, id).Scan(&state, &partnerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		if user.State(state) != user.StatePaired || partnerID == nil {
			return fmt.Errorf("%w: %s is not paired", ErrConflict, id)
		}
		partner = user.ID(*partnerID)

		// Lock both rows in a stable order, then confirm the link still holds under the locks.
		states, err := lockUsers(ctx, tx, id, partner)
		if err != nil {
			return err
		}
		if states[id] != user.StatePaired || states[partner] != user.StatePaired {
			return ErrConflict
		}

		tag, err := tx.Exec(ctx,
			`UPDATE users
			 SET state = 'idle', partner_id = NULL, updated_at = NOW()
			 WHERE state = 'paired'
			   AND ((id = $1 AND partner_id = $2) OR (id = $2 AND partner_id = $1))`,
			id, partner,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 2 {
			return ErrConflict
		}
		return nil
	})
	if err != nil {
		return user.NoPartner, classify("compound unpair", err)
	}

	return partner, nil
}

func (p *Postgres) SetGender(ctx context.Context, id user.ID, gender user.Gender) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET gender = $2, updated_at = NOW() WHERE id = $1`,
		id, string(gender),
	)
	if err != nil {
		return unavailable("set gender", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// missOrConflict tells an absent user apart from a guard failure after a zero-row update.
func (p *Postgres) missOrConflict(ctx context.Context, id user.ID) error {
	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return unavailable("exists", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// lockUsers takes row locks on the given users ordered by id and returns their current states.
func lockUsers(ctx context.Context, tx pgx.Tx, a, b user.ID) (map[user.ID]user.State, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, state FROM users WHERE id IN ($1, $2) ORDER BY id FOR UPDATE`,
		a, b,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := make(map[user.ID]user.State, 2)
	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return nil, err
		}
		states[user.ID(id)] = user.State(state)
	}

	return states, rows.Err()
}

// classify maps driver errors onto the Directory taxonomy. Sentinel errors pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return err
	}

	switch {
	case db.IsRetryable(err), db.IsCheckViolation(err):
		return fmt.Errorf("%w: %s: %v", ErrConflict, op, err)
	}

	return unavailable(op, err)
}

func scanUser(row pgx.Row) (user.User, error) {
	var (
		u                          user.User
		id, name, gender, state, p string
	)

	if err := row.Scan(&id, &name, &gender, &state, &p, &u.RegisteredAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}

	u.ID = user.ID(id)
	u.DisplayName = name
	u.Gender = user.Gender(gender)
	u.State = user.State(state)
	u.PartnerID = user.ID(p)

	return u, nil
}
