package directory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/stretchr/testify/require"

	"anonchat/internal/app/user"
)

func newTestBadger(t *testing.T) *Badger {
	t.Helper()

	dir, err := OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	return dir
}

func register(t *testing.T, dir Directory, ids ...user.ID) {
	t.Helper()

	for _, id := range ids {
		require.NoError(t, dir.Register(context.Background(), user.User{ID: id}))
	}
}

func waiting(t *testing.T, dir Directory, ids ...user.ID) {
	t.Helper()

	for _, id := range ids {
		require.NoError(t, dir.TryTransition(context.Background(), id, user.StateIdle, user.StateWaiting))
	}
}

func Test_Badger_Register_Stores_Idle_User(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)

	// Given a registration that claims to be paired
	err := dir.Register(ctx, user.User{ID: "u1", DisplayName: "anon", State: user.StatePaired, PartnerID: "u2"})
	req.NoError(err)

	// Then the stored user is idle and unlinked
	u, err := dir.FindByID(ctx, "u1")
	req.NoError(err)
	req.Equal(user.StateIdle, u.State)
	req.True(u.PartnerID.IsZero())
	req.Equal("anon", u.DisplayName)
	req.False(u.RegisteredAt.IsZero())

	// And a second registration with the same id fails
	req.ErrorIs(dir.Register(ctx, user.User{ID: "u1"}), ErrAlreadyExists)
}

func Test_Badger_FindByID_Unknown(t *testing.T) {
	dir := newTestBadger(t)

	_, err := dir.FindByID(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrNotFound)
}

func Test_Badger_TryTransition(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)
	register(t, dir, "u1")

	req.NoError(dir.TryTransition(ctx, "u1", user.StateIdle, user.StateWaiting))

	// Guard mismatch leaves the record untouched
	req.ErrorIs(dir.TryTransition(ctx, "u1", user.StateIdle, user.StateWaiting), ErrConflict)

	u, err := dir.FindByID(ctx, "u1")
	req.NoError(err)
	req.Equal(user.StateWaiting, u.State)

	req.NoError(dir.TryTransition(ctx, "u1", user.StateWaiting, user.StateIdle))
	req.ErrorIs(dir.TryTransition(ctx, "ghost", user.StateIdle, user.StateWaiting), ErrNotFound)
}

func Test_Badger_TryTransition_Rejects_Compound_Moves(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)
	register(t, dir, "u1")
	waiting(t, dir, "u1")

	req.ErrorIs(dir.TryTransition(ctx, "u1", user.StateWaiting, user.StatePaired), ErrConflict)
	req.ErrorIs(dir.TryTransition(ctx, "u1", user.StatePaired, user.StateIdle), ErrConflict)

	u, err := dir.FindByID(ctx, "u1")
	req.NoError(err)
	req.Equal(user.StateWaiting, u.State)
}

func Test_Badger_FindByState(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)
	register(t, dir, "u1", "u2", "u3")
	waiting(t, dir, "u1", "u3")

	found, err := dir.FindByState(ctx, user.StateWaiting)
	req.NoError(err)
	req.ElementsMatch([]user.ID{"u1", "u3"}, ids(found))

	found, err = dir.FindByState(ctx, user.StatePaired)
	req.NoError(err)
	req.Empty(found)
}

func Test_Badger_Compound_Pair_And_Unpair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)
	register(t, dir, "u1", "u2")
	waiting(t, dir, "u1", "u2")

	req.NoError(dir.TryCompoundPair(ctx, "u1", "u2"))

	a, err := dir.FindByID(ctx, "u1")
	req.NoError(err)
	b, err := dir.FindByID(ctx, "u2")
	req.NoError(err)
	req.Equal(user.StatePaired, a.State)
	req.Equal(user.StatePaired, b.State)
	req.Equal(user.ID("u2"), a.PartnerID)
	req.Equal(user.ID("u1"), b.PartnerID)

	// Pairing again fails because neither is waiting any more
	req.ErrorIs(dir.TryCompoundPair(ctx, "u1", "u2"), ErrConflict)

	partner, err := dir.TryCompoundUnpair(ctx, "u2")
	req.NoError(err)
	req.Equal(user.ID("u1"), partner)

	for _, id := range []user.ID{"u1", "u2"} {
		u, err := dir.FindByID(ctx, id)
		req.NoError(err)
		req.Equal(user.StateIdle, u.State)
		req.True(u.PartnerID.IsZero())
	}

	_, err = dir.TryCompoundUnpair(ctx, "u1")
	req.ErrorIs(err, ErrConflict)
}

func Test_Badger_Compound_Pair_Is_All_Or_Nothing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)
	register(t, dir, "u1", "u2")
	waiting(t, dir, "u1")

	// u2 is idle, so neither side may change
	req.ErrorIs(dir.TryCompoundPair(ctx, "u1", "u2"), ErrConflict)

	u1, err := dir.FindByID(ctx, "u1")
	req.NoError(err)
	req.Equal(user.StateWaiting, u1.State)
	req.True(u1.PartnerID.IsZero())

	req.ErrorIs(dir.TryCompoundPair(ctx, "u1", "u1"), ErrConflict)
	req.ErrorIs(dir.TryCompoundPair(ctx, "u1", "ghost"), ErrNotFound)
}

// A cancel racing a pairing of the same user: exactly one of them may win.
func Test_Badger_Cancel_Races_Pair(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		func() {
			dir, err := OpenBadger("")
			req.NoError(err)
			defer dir.Close()

			register(t, dir, "u1", "u2")
			waiting(t, dir, "u1", "u2")

			var (
				wg                 sync.WaitGroup
				pairErr, cancelErr error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				pairErr = dir.TryCompoundPair(ctx, "u1", "u2")
			}()
			go func() {
				defer wg.Done()
				cancelErr = dir.TryTransition(ctx, "u1", user.StateWaiting, user.StateIdle)
			}()
			wg.Wait()

			req.True((pairErr == nil) != (cancelErr == nil), "pair=%v cancel=%v", pairErr, cancelErr)

			a, err := dir.FindByID(ctx, "u1")
			req.NoError(err)
			b, err := dir.FindByID(ctx, "u2")
			req.NoError(err)
			req.True(a.Consistent())
			req.True(b.Consistent())

			if pairErr == nil {
				req.Equal(user.StatePaired, a.State)
				req.Equal(user.ID("u1"), b.PartnerID)
			} else {
				req.ErrorIs(pairErr, ErrConflict)
				req.Equal(user.StateIdle, a.State)
				req.Equal(user.StateWaiting, b.State)
			}
		}()
	}
}

func Test_Badger_SetGender(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)
	register(t, dir, "u1")

	req.NoError(dir.SetGender(ctx, "u1", user.GenderFemale))

	u, err := dir.FindByID(ctx, "u1")
	req.NoError(err)
	req.Equal(user.GenderFemale, u.Gender)

	req.ErrorIs(dir.SetGender(ctx, "ghost", user.GenderMale), ErrNotFound)
}

// touchOnClock makes every clock read inside a write rewrite the user's record from another
// transaction, so the surrounding transaction loses the race. Only the first n reads interfere.
func touchOnClock(t *testing.T, dir *Badger, id user.ID, n int) *int {
	t.Helper()

	calls := 0
	dir.now = func() time.Time {
		calls++
		if calls <= n {
			require.NoError(t, dir.db.Update(func(txn *badger.Txn) error {
				rec, err := getRecord(txn, id)
				if err != nil {
					return err
				}
				return putRecord(txn, rec)
			}))
		}
		return time.Now()
	}
	return &calls
}

func Test_Badger_SetGender_Retries_Lost_Race(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)
	register(t, dir, "u1")

	calls := touchOnClock(t, dir, "u1", 2)

	req.NoError(dir.SetGender(ctx, "u1", user.GenderOther))
	req.Equal(3, *calls)

	u, err := dir.FindByID(ctx, "u1")
	req.NoError(err)
	req.Equal(user.GenderOther, u.Gender)
}

func Test_Badger_SetGender_Gives_Up_Under_Sustained_Contention(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	dir := newTestBadger(t)
	register(t, dir, "u1")

	calls := touchOnClock(t, dir, "u1", 1000)

	req.ErrorIs(dir.SetGender(ctx, "u1", user.GenderOther), ErrConflict)
	req.Equal(setGenderAttempts, *calls)
}

func Test_Badger_Ping_After_Close(t *testing.T) {
	dir, err := OpenBadger("")
	require.NoError(t, err)

	require.NoError(t, dir.Ping(context.Background()))
	require.NoError(t, dir.Close())
	require.ErrorIs(t, dir.Ping(context.Background()), ErrUnavailable)
}

func ids(users []user.User) []user.ID {
	out := make([]user.ID, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}
