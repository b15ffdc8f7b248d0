package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})
	prev := ""
	for range 100 {
		id := UserID()
		require.True(t, IsValidUserID(id), id)
		require.Greater(t, id, prev, "ids must be monotonic")

		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
		prev = id
	}

	require.False(t, IsValidUserID(""))
	require.False(t, IsValidUserID("not-a-ulid"))
}

func TestPickPair(t *testing.T) {
	t.Parallel()

	_, _, err := PickPair([]string{})
	require.ErrorIs(t, err, ErrPoolTooSmall)

	_, _, err = PickPair([]string{"only"})
	require.ErrorIs(t, err, ErrPoolTooSmall)

	a, b, err := PickPair([]string{"x", "y"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"x", "y"}, []string{a, b})
}

func TestPickPair_CoversEveryElement(t *testing.T) {
	t.Parallel()

	pool := []int{0, 1, 2, 3, 4}
	hits := make(map[int]int)

	for range 2000 {
		a, b, err := PickPair(pool)
		require.NoError(t, err)
		require.NotEqual(t, a, b)
		hits[a]++
		hits[b]++
	}

	for _, v := range pool {
		require.Positive(t, hits[v], "element %d never picked", v)
	}
}

func TestUserNickname(t *testing.T) {
	t.Parallel()

	name, err := UserNickname()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(name, NicknamePrefix))
	require.Len(t, name, len(NicknamePrefix)+nicknameRandomLength)
}
