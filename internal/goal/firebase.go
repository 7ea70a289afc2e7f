package goal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var errClientStatus = errors.New("client error status")

// FirebaseStore reads goals from a Firebase Realtime Database over its REST API.
// The goal lives at /step_goals/<user>, stored either as a string ("1000")
// or as a number.
type FirebaseStore struct {
	baseURL   string
	authToken string
	client    *http.Client
}

var _ Store = (*FirebaseStore)(nil)

// NewFirebaseStore creates a store for the database at baseURL,
// e.g. https://my-app-default-rtdb.firebaseio.com. authToken may be empty.
func NewFirebaseStore(baseURL, authToken string, client *http.Client) *FirebaseStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &FirebaseStore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		client:    client,
	}
}

func (s *FirebaseStore) goalURL(userID string) string {
	u := s.baseURL + "/step_goals/" + url.PathEscape(userID) + ".json"
	if s.authToken != "" {
		u += "?auth=" + url.QueryEscape(s.authToken)
	}
	return u
}

func (s *FirebaseStore) StepGoal(ctx context.Context, userID string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.goalURL(userID), nil)
	if err != nil {
		return 0, fmt.Errorf("build firebase request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("firebase get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return 0, fmt.Errorf("read firebase response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return 0, fmt.Errorf("firebase get: %w %d: %s", errClientStatus, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return 0, fmt.Errorf("firebase get: status %d", resp.StatusCode)
	}
	return decodeFirebaseValue(body)
}

func decodeFirebaseValue(body []byte) (int, error) {
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidGoal, err)
	}
	switch v := value.(type) {
	case nil:
		return 0, ErrGoalNotFound
	case string:
		return parseGoal(v)
	case float64:
		if v < 0 || v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %v", ErrInvalidGoal, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: unexpected %T", ErrInvalidGoal, value)
	}
}
