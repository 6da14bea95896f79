// Package preference reads and updates a user's feed preferences.
package preference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"newssense/internal/domain/entity"
	"newssense/internal/observability/logging"
	"newssense/internal/repository"
	"newssense/pkg/config"
)

// UpdateMode decides what happens to preference sets omitted from an update.
type UpdateMode string

const (
	// ModeReplace clears omitted sets.
	ModeReplace UpdateMode = "replace"
	// ModeMerge keeps the stored value of omitted sets.
	ModeMerge UpdateMode = "merge"
)

// ErrUserNotFound is returned when the user no longer exists.
var ErrUserNotFound = errors.New("user not found")

// ModeFromEnv reads PREFERENCES_UPDATE_MODE, defaulting to replace.
func ModeFromEnv() UpdateMode {
	return UpdateMode(config.GetEnvEnum("PREFERENCES_UPDATE_MODE", string(ModeReplace),
		string(ModeReplace), string(ModeMerge)))
}

// Update carries the sets sent by the client. A nil slice means the field was omitted.
type Update struct {
	Topics   []string
	Sources  []string
	Keywords []string
}

// Service reads and writes preferences through the user store.
type Service struct {
	Users repository.UserRepository
	Mode  UpdateMode
}

// Get returns the stored preferences of userID.
func (s *Service) Get(ctx context.Context, userID string) (entity.Preference, error) {
	user, err := s.Users.Get(ctx, userID)
	if err != nil {
		return entity.Preference{}, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return entity.Preference{}, ErrUserNotFound
	}
	return user.Preferences.Normalize(), nil
}

// Set applies upd according to the service's update mode and returns the
// normalized value that was stored.
func (s *Service) Set(ctx context.Context, userID string, upd Update) (entity.Preference, error) {
	var base entity.Preference
	if s.Mode == ModeMerge {
		current, err := s.Get(ctx, userID)
		if err != nil {
			return entity.Preference{}, err
		}
		base = current
	}

	next := Apply(base, upd).Normalize()
	if err := s.Users.UpdatePreferences(ctx, userID, next); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return entity.Preference{}, ErrUserNotFound
		}
		return entity.Preference{}, fmt.Errorf("update preferences: %w", err)
	}

	logging.FromContext(ctx).InfoContext(ctx, "preferences updated",
		slog.String("user_id", userID),
		slog.String("mode", string(s.Mode)),
		slog.Int("topics", len(next.Topics)),
		slog.Int("sources", len(next.Sources)),
		slog.Int("keywords", len(next.Keywords)))
	return next, nil
}

// Apply overlays the present fields of upd onto base.
func Apply(base entity.Preference, upd Update) entity.Preference {
	if upd.Topics != nil {
		base.Topics = upd.Topics
	}
	if upd.Sources != nil {
		base.Sources = upd.Sources
	}
	if upd.Keywords != nil {
		base.Keywords = upd.Keywords
	}
	return base
}
