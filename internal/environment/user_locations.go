package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const userLocationExpire = 30 * 24 * time.Hour

// UserLocations remembers each user's last resolved location in redis.
// Request middleware writes it on authenticated traffic; the sync
// pipeline reads it back when fetching environment data. A user with
// no remembered location falls back to the configured default, if any.
type UserLocations struct {
	redisClient     *redis.Client
	defaultLocation *Location
}

func NewUserLocations(redisClient *redis.Client, defaultLocation *Location) *UserLocations {
	return &UserLocations{
		redisClient:     redisClient,
		defaultLocation: defaultLocation,
	}
}

func (ul *UserLocations) Set(ctx context.Context, userID string, location Location) error {
	locationBytes, err := json.Marshal(location)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	key := fmt.Sprintf("user-location::%s", userID)
	if err := ul.redisClient.Set(ctx, key, locationBytes, userLocationExpire).Err(); err != nil {
		return fmt.Errorf("set user location: %w", err)
	}
	return nil
}

func (ul *UserLocations) LastKnown(ctx context.Context, userID string) (*Location, error) {
	key := fmt.Sprintf("user-location::%s", userID)
	cmd := ul.redisClient.Get(ctx, key)
	if locationBytes := cmd.Val(); locationBytes != "" {
		var location Location
		if err := json.Unmarshal([]byte(locationBytes), &location); err == nil {
			return &location, nil
		} else {
			log.Errorf("failed to unmarshal user location for %s: %s", userID, err)
		}
	}
	return ul.defaultLocation, nil
}
