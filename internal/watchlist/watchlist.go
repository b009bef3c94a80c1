// Package watchlist manages each wallet's favorite symbols.
package watchlist

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"solana-stock-swap/internal/domain"
	"solana-stock-swap/internal/storage"
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.]{1,16}$`)

// NormalizeSymbol trims and upper-cases s and checks its shape.
func NormalizeSymbol(s string) (string, error) {
	symbol := strings.ToUpper(strings.TrimSpace(s))
	if !symbolPattern.MatchString(symbol) {
		return "", domain.NewValidationError("symbol", "must be 1-16 characters of A-Z, 0-9 or '.'")
	}
	return symbol, nil
}

// Service is the favorites watchlist.
type Service struct {
	favorites storage.FavoriteStore
	users     storage.UserStore
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewService creates a watchlist Service. users may be nil.
func NewService(favorites storage.FavoriteStore, users storage.UserStore, logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		favorites: favorites,
		users:     users,
		logger:    logger.WithField("component", "watchlist"),
		now:       time.Now,
	}
}

// List returns wallet's favorites, oldest first.
func (s *Service) List(ctx context.Context, wallet string) ([]*domain.Favorite, error) {
	favs, err := s.favorites.List(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	return favs, nil
}

// Add puts symbol on wallet's watchlist. Adding twice is a no-op.
func (s *Service) Add(ctx context.Context, wallet, symbol string) (*domain.Favorite, error) {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	s.touch(ctx, wallet, now)

	fav, err := s.favorites.Add(ctx, wallet, normalized, now)
	if err != nil {
		return nil, fmt.Errorf("add favorite: %w", err)
	}
	return fav, nil
}

// Remove takes symbol off wallet's watchlist. Removing a missing symbol is a no-op.
func (s *Service) Remove(ctx context.Context, wallet, symbol string) error {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	s.touch(ctx, wallet, s.now().UTC())

	if err := s.favorites.Remove(ctx, wallet, normalized); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

func (s *Service) touch(ctx context.Context, wallet string, at time.Time) {
	if s.users == nil {
		return
	}
	if err := s.users.Touch(ctx, wallet, at); err != nil {
		s.logger.WithError(err).WithField("wallet", wallet).Warn("touch user failed")
	}
}
