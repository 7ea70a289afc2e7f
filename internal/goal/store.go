// Package goal reads a user's step goal from a remote store.
package goal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultUserID is the fixed user the app reads its goal for.
const DefaultUserID = "user_123"

var (
	// ErrGoalNotFound means the store has no goal for the user.
	ErrGoalNotFound = errors.New("step goal not found")
	// ErrInvalidGoal means the stored value is not a non-negative integer.
	ErrInvalidGoal = errors.New("step goal is not a non-negative integer")
)

// Store is a read-only source of step goals.
type Store interface {
	StepGoal(ctx context.Context, userID string) (int, error)
}

// StaticStore always returns the same goal. It is used when no remote store is configured.
type StaticStore struct {
	Goal int
}

func (s StaticStore) StepGoal(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.Goal < 0 {
		return 0, ErrInvalidGoal
	}
	return s.Goal, nil
}

// parseGoal accepts a decimal integer, surrounding whitespace allowed.
func parseGoal(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGoal, raw)
	}
	return n, nil
}

// isPermanent reports errors that retrying cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, ErrGoalNotFound) || errors.Is(err, ErrInvalidGoal) || errors.Is(err, errClientStatus)
}
