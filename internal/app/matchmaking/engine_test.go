package matchmaking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"anonchat/internal/app/directory"
	"anonchat/internal/app/matchmaking"
	"anonchat/internal/app/mocks"
	"anonchat/internal/app/user"
)

func Test_RunCycle_Without_Enough_Waiting_Users_Does_Nothing(t *testing.T) {
	for _, pool := range [][]user.User{nil, {{ID: "a", State: user.StateWaiting}}} {
		t.Run(fmt.Sprintf("%d waiting", len(pool)), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			dir := mocks.NewMockDirectory(ctrl)
			notifier := mocks.NewMockNotifier(ctrl)

			// No compound pair and no notification may happen.
			dir.EXPECT().FindByState(gomock.Any(), user.StateWaiting).Return(pool, nil)

			events := newDispatcher(t, notifier)
			engine := matchmaking.NewEngine(matchmaking.NewStateMachine(dir), events)

			paired, err := engine.RunCycle(context.Background())
			require.NoError(t, err)
			require.False(t, paired)

			events.Close()
		})
	}
}

func Test_RunCycle_Discards_Conflicts_Silently(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)

	dir.EXPECT().FindByState(gomock.Any(), user.StateWaiting).Return([]user.User{
		{ID: "a", State: user.StateWaiting},
		{ID: "b", State: user.StateWaiting},
	}, nil)
	dir.EXPECT().TryCompoundPair(gomock.Any(), gomock.Any(), gomock.Any()).Return(directory.ErrConflict)

	events := newDispatcher(t, notifier)
	engine := matchmaking.NewEngine(matchmaking.NewStateMachine(dir), events)

	paired, err := engine.RunCycle(context.Background())
	require.NoError(t, err)
	require.False(t, paired)

	events.Close()
}

func Test_RunCycle_Reports_Unavailable_Directory(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)

	dir.EXPECT().FindByState(gomock.Any(), user.StateWaiting).Return(nil, directory.ErrUnavailable)

	engine := matchmaking.NewEngine(matchmaking.NewStateMachine(dir), quietDispatcher(t))

	_, err := engine.RunCycle(context.Background())
	require.ErrorIs(t, err, matchmaking.ErrDirectoryUnavailable)
}

func Test_RunCycle_Pair_Survives_Cancelled_Caller(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)

	ctx, cancel := context.WithCancel(context.Background())

	dir.EXPECT().FindByState(gomock.Any(), user.StateWaiting).Return([]user.User{
		{ID: "a", State: user.StateWaiting},
		{ID: "b", State: user.StateWaiting},
	}, nil)
	dir.EXPECT().TryCompoundPair(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(pairCtx context.Context, _, _ user.ID) error {
			// Shutdown arrives while the transition is in flight.
			cancel()
			require.NoError(t, pairCtx.Err())
			return nil
		})

	engine := matchmaking.NewEngine(matchmaking.NewStateMachine(dir), quietDispatcher(t))

	paired, err := engine.RunCycle(ctx)
	require.NoError(t, err)
	require.True(t, paired)
}

func Test_Run_Survives_Failing_Cycles(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)

	recovered := make(chan struct{})
	var once sync.Once

	gomock.InOrder(
		dir.EXPECT().FindByState(gomock.Any(), user.StateWaiting).Return(nil, errors.New("boom")).Times(2),
		dir.EXPECT().FindByState(gomock.Any(), user.StateWaiting).DoAndReturn(
			func(context.Context, user.State) ([]user.User, error) {
				once.Do(func() { close(recovered) })
				return nil, nil
			}).AnyTimes(),
	)

	engine := matchmaking.NewEngine(matchmaking.NewStateMachine(dir), quietDispatcher(t),
		matchmaking.WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not keep cycling after errors")
	}

	cancel()
	<-done
}

func Test_Notification_Failure_Does_Not_Roll_Back_Pairing(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)

	notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), matchmaking.EventPartnerFound).
		Return(errors.New("socket closed")).AnyTimes()

	dir := newDirectory(t, "a", "b")
	sm := matchmaking.NewStateMachine(dir)
	req.NoError(sm.RequestPairing(ctx, "a"))
	req.NoError(sm.RequestPairing(ctx, "b"))

	events := newDispatcher(t, notifier)
	engine := matchmaking.NewEngine(sm, events)

	paired, err := engine.RunCycle(ctx)
	req.NoError(err)
	req.True(paired)

	events.Close()

	req.Equal(user.ID("b"), mustFind(t, dir, "a").PartnerID)
	req.Equal(user.ID("a"), mustFind(t, dir, "b").PartnerID)
}

func Test_RunCycle_Notifies_Both_Users(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)

	notifier.EXPECT().Notify(gomock.Any(), user.ID("a"), matchmaking.EventPartnerFound).Return(nil)
	notifier.EXPECT().Notify(gomock.Any(), user.ID("b"), matchmaking.EventPartnerFound).Return(nil)

	dir := newDirectory(t, "a", "b")
	sm := matchmaking.NewStateMachine(dir)
	require.NoError(t, sm.RequestPairing(ctx, "a"))
	require.NoError(t, sm.RequestPairing(ctx, "b"))

	events := newDispatcher(t, notifier)
	engine := matchmaking.NewEngine(sm, events)

	paired, err := engine.RunCycle(ctx)
	require.NoError(t, err)
	require.True(t, paired)

	events.Close()
}

// Repeated cycles eventually pair every waiting user, and every pair is symmetric.
func Test_Engine_Liveness(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	ids := make([]user.ID, 0, 20)
	for i := range 20 {
		ids = append(ids, user.ID(fmt.Sprintf("u%02d", i)))
	}

	dir := newDirectory(t, ids...)
	sm := matchmaking.NewStateMachine(dir)
	for _, id := range ids {
		req.NoError(sm.RequestPairing(ctx, id))
	}

	// Two engines share the directory.
	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for range 2 {
		engine := matchmaking.NewEngine(sm, quietDispatcher(t), matchmaking.WithInterval(time.Millisecond))
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Run(runCtx)
		}()
	}

	req.Eventually(func() bool {
		waiting, err := dir.FindByState(ctx, user.StateWaiting)
		return err == nil && len(waiting) == 0
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()

	paired, err := dir.FindByState(ctx, user.StatePaired)
	req.NoError(err)
	req.Len(paired, len(ids))

	byID := make(map[user.ID]user.User, len(paired))
	for _, u := range paired {
		byID[u.ID] = u
	}
	for _, u := range paired {
		req.True(u.Consistent())
		req.Equal(u.ID, byID[u.PartnerID].PartnerID, "partner of %s is not symmetric", u.ID)
	}
}

// A cancel racing a cycle over the same user: exactly one of them wins.
func Test_Cancel_Races_Cycle(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	for range 30 {
		func() {
			dir, err := directory.OpenBadger("")
			req.NoError(err)
			defer dir.Close()

			for _, id := range []user.ID{"a", "b"} {
				req.NoError(dir.Register(ctx, user.User{ID: id}))
			}

			sm := matchmaking.NewStateMachine(dir)
			req.NoError(sm.RequestPairing(ctx, "a"))
			req.NoError(sm.RequestPairing(ctx, "b"))

			engine := matchmaking.NewEngine(sm, quietDispatcher(t))

			var (
				wg        sync.WaitGroup
				paired    bool
				cycleErr  error
				cancelErr error
			)
			wg.Add(2)
			go func() {
				defer wg.Done()
				paired, cycleErr = engine.RunCycle(ctx)
			}()
			go func() {
				defer wg.Done()
				cancelErr = sm.Cancel(ctx, "a")
			}()
			wg.Wait()

			req.NoError(cycleErr)
			req.True(paired != (cancelErr == nil), "paired=%v cancel=%v", paired, cancelErr)
			if cancelErr != nil {
				req.ErrorIs(cancelErr, matchmaking.ErrInvalidTransition)
			}

			a := mustFind(t, dir, "a")
			req.True(a.Consistent())
		}()
	}
}
