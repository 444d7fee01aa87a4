package processors

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/username/portfoliotracker/backend/src/logger"
)

// ErrMissingFxRate is returned when a needed (pair, date) was never loaded.
// Money computed on a guessed rate is worse than no computation, so callers
// must treat this as fatal for the whole calculation.
var ErrMissingFxRate = errors.New("fx rate not loaded for requested pair and date")

// rateObservation is one entry of the historical exchange rate JSON file.
type rateObservation struct {
	Date string  `json:"date"` // YYYY-MM-DD
	From string  `json:"from"`
	To   string  `json:"to"`
	Rate float64 `json:"rate"`
}

// RateStore is a pre-warmed, in-memory historical FX table. It is loaded once
// at startup and queried synchronously; there is no fetch-on-miss.
type RateStore struct {
	rates map[string]float64
}

// LoadRateStore loads historical rates from the given JSON file.
func LoadRateStore(filePath string) (*RateStore, error) {
	logger.L.Info("Loading historical exchange rates", "path", filePath)
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading historical exchange rate file '%s': %w", filePath, err)
	}

	var observations []rateObservation
	if err := json.Unmarshal(file, &observations); err != nil {
		return nil, fmt.Errorf("error unmarshalling historical exchange rates from '%s': %w", filePath, err)
	}

	store := NewRateStore()
	for _, obs := range observations {
		if obs.Rate <= 0 {
			logger.L.Warn("Ignoring non-positive exchange rate observation",
				"from", obs.From, "to", obs.To, "date", obs.Date, "rate", obs.Rate)
			continue
		}
		store.rates[rateKey(obs.From, obs.To, obs.Date)] = obs.Rate
	}
	logger.L.Info("Historical exchange rates loaded successfully.",
		"path", filePath, "observationCount", len(store.rates))
	return store, nil
}

// NewRateStore returns an empty store; Add warms it. Used directly by tests
// and by callers that source rates elsewhere.
func NewRateStore() *RateStore {
	return &RateStore{rates: make(map[string]float64)}
}

// Add warms one (pair, date) observation, both directions.
func (s *RateStore) Add(from, to string, date time.Time, rate float64) {
	day := date.UTC().Format("2006-01-02")
	s.rates[rateKey(from, to, day)] = rate
	if rate > 0 {
		s.rates[rateKey(to, from, day)] = 1 / rate
	}
}

// Rate returns the historical rate for converting from -> to on the given
// date. Identical currencies always yield 1.0; anything not pre-warmed is
// ErrMissingFxRate.
func (s *RateStore) Rate(from, to string, date time.Time) (float64, error) {
	if from == to {
		return 1.0, nil
	}
	day := date.UTC().Format("2006-01-02")
	if rate, ok := s.rates[rateKey(from, to, day)]; ok {
		return rate, nil
	}
	if inverse, ok := s.rates[rateKey(to, from, day)]; ok && inverse > 0 {
		return 1 / inverse, nil
	}
	logger.L.Warn("Exchange rate not found", "from", from, "to", to, "date", day)
	return 0, fmt.Errorf("%w: %s->%s on %s", ErrMissingFxRate, from, to, day)
}

// Lookup exposes the store as the engine's RateLookup function.
func (s *RateStore) Lookup() RateLookup {
	return s.Rate
}

func rateKey(from, to, day string) string {
	return from + "|" + to + "|" + day
}
