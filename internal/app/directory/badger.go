package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/sethvargo/go-retry"

	"anonchat/internal/app/user"
)

var userPrefix = []byte("user:")

// setGenderAttempts bounds how often a gender write is repeated after losing to a concurrent update.
const setGenderAttempts = 5

// record is the on-disk representation of a user. Timestamps are unix nanoseconds.
type record struct {
	ID           string `cbor:"1,keyasint"`
	DisplayName  string `cbor:"2,keyasint,omitempty"`
	Gender       string `cbor:"3,keyasint,omitempty"`
	State        string `cbor:"4,keyasint"`
	PartnerID    string `cbor:"5,keyasint,omitempty"`
	RegisteredAt int64  `cbor:"6,keyasint"`
	UpdatedAt    int64  `cbor:"7,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("directory: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("directory: CBOR decoder initialization failed: " + err.Error())
	}
}

// Badger is the embedded Directory driver. Each user is one key; compound moves read and write
// both keys inside a single optimistic transaction, which badger refuses to commit if either key
// changed after the transaction started.
type Badger struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadger opens (or creates) a badger store at path. An empty path keeps everything in memory.
func OpenBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithMemTableSize(16 << 20).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}

	return NewBadger(db), nil
}

// NewBadger wraps an open badger database.
func NewBadger(db *badger.DB) *Badger {
	return &Badger{db: db, now: time.Now}
}

func (b *Badger) Register(ctx context.Context, u user.User) error {
	if err := ctx.Err(); err != nil {
		return unavailable("register", err)
	}

	now := b.now().UTC()
	rec := record{
		ID:           u.ID.String(),
		DisplayName:  u.DisplayName,
		Gender:       string(u.Gender),
		State:        string(user.StateIdle),
		RegisteredAt: now.UnixNano(),
		UpdatedAt:    now.UnixNano(),
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userKey(u.ID)); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return putRecord(txn, rec)
	})

	return b.classify("register", err)
}

func (b *Badger) FindByID(ctx context.Context, id user.ID) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, unavailable("find by id", err)
	}

	var rec record
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	if err != nil {
		return user.User{}, b.classify("find by id", err)
	}

	return rec.toUser(), nil
}

func (b *Badger) FindByState(ctx context.Context, state user.State) ([]user.User, error) {
	var users []user.User

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = userPrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var rec record
			if err := it.Item().Value(func(val []byte) error {
				return decMode.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}

			if user.State(rec.State) == state {
				users = append(users, rec.toUser())
			}
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("find by state", err)
	}

	return users, nil
}

func (b *Badger) TryTransition(ctx context.Context, id user.ID, from, to user.State) error {
	if err := checkSingleMove(from, to); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("transition", err)
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		if user.State(rec.State) != from || rec.PartnerID != "" {
			return fmt.Errorf("%w: %s is %s, expected %s", ErrConflict, id, rec.State, from)
		}

		rec.State = string(to)
		rec.UpdatedAt = b.now().UTC().UnixNano()
		return putRecord(txn, rec)
	})

	return b.classify("transition", err)
}

func (b *Badger) TryCompoundPair(ctx context.Context, a, c user.ID) error {
	if err := checkPair(a, c); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("compound pair", err)
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		first, err := getRecord(txn, a)
		if err != nil {
			return err
		}
		second, err := getRecord(txn, c)
		if err != nil {
			return err
		}

		if user.State(first.State) != user.StateWaiting || user.State(second.State) != user.StateWaiting {
			return fmt.Errorf("%w: %s and %s are not both waiting", ErrConflict, a, c)
		}

		now := b.now().UTC().UnixNano()
		first.State, first.PartnerID, first.UpdatedAt = string(user.StatePaired), second.ID, now
		second.State, second.PartnerID, second.UpdatedAt = string(user.StatePaired), first.ID, now

		if err := putRecord(txn, first); err != nil {
			return err
		}
		return putRecord(txn, second)
	})

	return b.classify("compound pair", err)
}

func (b *Badger) TryCompoundUnpair(ctx context.Context, id user.ID) (user.ID, error) {
	if err := ctx.Err(); err != nil {
		return user.NoPartner, unavailable("compound unpair", err)
	}

	var partner user.ID

	err := b.db.Update(func(txn *badger.Txn) error {
		self, err := getRecord(txn, id)
		if err != nil {
			return err
		}
		if user.State(self.State) != user.StatePaired || self.PartnerID == "" {
			return fmt.Errorf("%w: %s is not paired", ErrConflict, id)
		}

		other, err := getRecord(txn, user.ID(self.PartnerID))
		if err != nil {
			return err
		}
		if user.State(other.State) != user.StatePaired || other.PartnerID != self.ID {
			return fmt.Errorf("%w: partner link of %s is broken", ErrConflict, id)
		}

		partner = user.ID(other.ID)

		now := b.now().UTC().UnixNano()
		for _, rec := range []*record{&self, &other} {
			rec.State = string(user.StateIdle)
			rec.PartnerID = ""
			rec.UpdatedAt = now
		}

		if err := putRecord(txn, self); err != nil {
			return err
		}
		return putRecord(txn, other)
	})
	if err != nil {
		return user.NoPartner, b.classify("compound unpair", err)
	}

	return partner, nil
}

func (b *Badger) SetGender(ctx context.Context, id user.ID, gender user.Gender) error {
	if err := ctx.Err(); err != nil {
		return unavailable("set gender", err)
	}

	// A concurrent state change only invalidates the read; the gender write is safe to repeat.
	backoff := retry.WithMaxRetries(setGenderAttempts-1, retry.NewExponential(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := b.db.Update(func(txn *badger.Txn) error {
			rec, err := getRecord(txn, id)
			if err != nil {
				return err
			}

			rec.Gender = string(gender)
			rec.UpdatedAt = b.now().UTC().UnixNano()
			return putRecord(txn, rec)
		})
		if errors.Is(err, badger.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})

	return b.classify("set gender", err)
}

func (b *Badger) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return unavailable("ping", err)
	}
	if b.db.IsClosed() {
		return unavailable("ping", errors.New("database is closed"))
	}
	return nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// classify maps badger errors onto the Directory taxonomy. Sentinel errors pass through.
func (b *Badger) classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists):
		return err
	case errors.Is(err, badger.ErrKeyNotFound):
		return ErrNotFound
	case errors.Is(err, badger.ErrConflict):
		return fmt.Errorf("%w: %s: concurrent update", ErrConflict, op)
	}
	return unavailable(op, err)
}

func userKey(id user.ID) []byte {
	return append(append([]byte{}, userPrefix...), id.String()...)
}

func getRecord(txn *badger.Txn, id user.ID) (record, error) {
	var rec record

	item, err := txn.Get(userKey(id))
	if err != nil {
		return rec, err
	}

	err = item.Value(func(val []byte) error {
		return decMode.Unmarshal(val, &rec)
	})
	return rec, err
}

func putRecord(txn *badger.Txn, rec record) error {
	data, err := encMode.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal user record: %w", err)
	}
	return txn.Set(userKey(user.ID(rec.ID)), data)
}

func (r record) toUser() user.User {
	return user.User{
		ID:           user.ID(r.ID),
		DisplayName:  r.DisplayName,
		Gender:       user.Gender(r.Gender),
		State:        user.State(r.State),
		PartnerID:    user.ID(r.PartnerID),
		RegisteredAt: time.Unix(0, r.RegisteredAt).UTC(),
		UpdatedAt:    time.Unix(0, r.UpdatedAt).UTC(),
	}
}
