package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store provides persistence for availability settings.
type Store struct {
	redis           *redis.Client
	defaultTimezone string
}

// NewStore creates a new availability settings store.
func NewStore(redisClient *redis.Client, defaultTimezone string) *Store {
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &Store{redis: redisClient, defaultTimezone: defaultTimezone}
}

func (s *Store) key(practiceID string) string {
	return fmt.Sprintf("availability:settings:%s", practiceID)
}

// Get retrieves the practice settings, returning defaults if none are saved.
func (s *Store) Get(ctx context.Context, practiceID string) (*Settings, error) {
	data, err := s.redis.Get(ctx, s.key(practiceID)).Bytes()
	if err == redis.Nil {
		return DefaultSettings(practiceID, s.defaultTimezone), nil
	}
	if err != nil {
		return nil, fmt.Errorf("availability: get settings: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("availability: unmarshal settings: %w", err)
	}
	return &settings, nil
}

// Set validates and saves the practice settings.
func (s *Store) Set(ctx context.Context, settings *Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	settings.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("availability: marshal settings: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(settings.PracticeID), data, 0).Err(); err != nil {
		return fmt.Errorf("availability: set settings: %w", err)
	}
	return nil
}
