/*
Package randx provides functions for generating cryptographically secure random numbers and unique identifiers.

It generates sortable ULID user identifiers, UUID message and file identifiers, random
nicknames, and the uniform random choices the pairing engine makes over the waiting pool.
*/
package randx

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// NicknamePrefix is prepended to generated display names.
	NicknamePrefix = "Anon_"

	nicknameRandomLength = 6
)

// ErrPoolTooSmall is returned by PickPair when fewer than two candidates are available.
var ErrPoolTooSmall = errors.New("randx: need at least two candidates")

var (
	entropyOnce sync.Once
	entropyMu   sync.Mutex
	entropy     *ulid.MonotonicEntropy
)

// UserID returns a new lexicographically sortable ULID string based on the current UTC time
// and a monotonic entropy source, safe for concurrent use.
func UserID() string {
	entropyOnce.Do(func() {
		entropy = ulid.Monotonic(rand.Reader, 0)
	})

	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// IsValidUserID checks that id is a well-formed ULID.
func IsValidUserID(id string) bool {
	if strings.TrimSpace(id) == "" {
		return false
	}
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// Intn returns a uniform random integer in [0, n) read from crypto/rand.
func Intn(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("randx: invalid bound %d", n)
	}

	num, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %v", err)
	}
	return int(num.Int64()), nil
}

// PickPair selects two distinct elements of pool uniformly at random.
// Every unordered pair has the same probability of being chosen.
func PickPair[T any](pool []T) (T, T, error) {
	var zero T

	if len(pool) < 2 {
		return zero, zero, ErrPoolTooSmall
	}

	i, err := Intn(len(pool))
	if err != nil {
		return zero, zero, err
	}

	// Draw the second index from the remaining n-1 slots and skip over i.
	j, err := Intn(len(pool) - 1)
	if err != nil {
		return zero, zero, err
	}
	if j >= i {
		j++
	}

	return pool[i], pool[j], nil
}

// UserNickname generates a random nickname with the NicknamePrefix and 6 random Base62 characters.
func UserNickname() (string, error) {
	result := make([]byte, nicknameRandomLength)

	for i := range nicknameRandomLength {
		num, err := Intn(int(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate nickname: %w", err)
		}
		result[i] = Base62Chars[num]
	}

	return NicknamePrefix + string(result), nil
}
