package candles

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"btcdesk/models"
)

// DefaultMaxLen bounds retained history; oldest candles are dropped
// on overflow.
const DefaultMaxLen = 500

// Store holds an ordered, timestamp-unique OHLCV series. Appending a
// candle whose timestamp matches the last stored one replaces it, so
// the in-progress candle can be updated in place while its time bucket
// is still open.
type Store struct {
	mu      sync.RWMutex
	candles []models.Candle
	maxLen  int
	logger  zerolog.Logger
}

// NewStore creates a store bounded at maxLen candles. A non-positive
// maxLen falls back to DefaultMaxLen.
func NewStore(maxLen int) *Store {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Store{
		maxLen: maxLen,
		logger: log.With().Str("component", "candle_store").Logger(),
	}
}

// Append adds a candle to the series. Malformed candles and candles
// older than the current tail are dropped with a data-quality warning,
// never treated as fatal.
func (s *Store) Append(c models.Candle) {
	if !c.Valid() {
		s.logger.Warn().
			Int64("timestamp", c.Timestamp).
			Float64("open", c.Open).
			Float64("high", c.High).
			Float64("low", c.Low).
			Float64("close", c.Close).
			Msg("Dropping malformed candle")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.candles); n > 0 {
		last := s.candles[n-1].Timestamp
		if c.Timestamp == last {
			// In-progress candle update
			s.candles[n-1] = c
			return
		}
		if c.Timestamp < last {
			s.logger.Warn().
				Int64("timestamp", c.Timestamp).
				Int64("tail", last).
				Msg("Dropping out-of-order candle")
			return
		}
	}

	s.candles = append(s.candles, c)
	if len(s.candles) > s.maxLen {
		s.candles = s.candles[len(s.candles)-s.maxLen:]
	}
}

// Replace swaps the whole series for a freshly fetched history,
// keeping only valid candles in ascending timestamp order.
func (s *Store) Replace(candles []models.Candle) {
	kept := make([]models.Candle, 0, len(candles))
	var lastTS int64
	for _, c := range candles {
		if !c.Valid() || (len(kept) > 0 && c.Timestamp <= lastTS) {
			s.logger.Warn().Int64("timestamp", c.Timestamp).Msg("Dropping candle during replace")
			continue
		}
		kept = append(kept, c)
		lastTS = c.Timestamp
	}
	if len(kept) > s.maxLen {
		kept = kept[len(kept)-s.maxLen:]
	}

	s.mu.Lock()
	s.candles = kept
	s.mu.Unlock()
}

// Window returns a copy of the last n candles, or fewer if not
// available.
func (s *Store) Window(n int) []models.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > len(s.candles) {
		n = len(s.candles)
	}
	out := make([]models.Candle, n)
	copy(out, s.candles[len(s.candles)-n:])
	return out
}

// All returns a copy of the full retained series.
func (s *Store) All() []models.Candle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Candle, len(s.candles))
	copy(out, s.candles)
	return out
}

// Len returns the number of retained candles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candles)
}
