// Package rng provides the random number generator behind every game outcome
//
// Production play reads from crypto/rand. Seeded generators produce a
// reproducible stream for simulations and tests.
package rng

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	mrand "math/rand/v2"
	"sync"
	"time"
)

var (
	ErrInvalidRange   = errors.New("rng: invalid range")
	ErrInvalidWeights = errors.New("rng: invalid weights")
)

// Service provides uniform and weighted random selection.
// It is safe for concurrent use.
type Service struct {
	entropy io.Reader
	mu      sync.Mutex

	lastHealthCheck  time.Time
	samplesGenerated int64
}

// New creates a new RNG service using crypto/rand
func New() *Service {
	return &Service{
		entropy:         rand.Reader,
		lastHealthCheck: time.Now(),
	}
}

// NewSeeded creates a deterministic RNG service. Two services built from the
// same seed produce the same sequence.
func NewSeeded(seed uint64) *Service {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	binary.LittleEndian.PutUint64(key[8:16], seed^0x9e3779b97f4a7c15)
	return &Service{
		entropy:         mrand.NewChaCha8(key),
		lastHealthCheck: time.Now(),
	}
}

// NewFromReader creates a service drawing bytes from r
func NewFromReader(r io.Reader) *Service {
	return &Service{entropy: r, lastHealthCheck: time.Now()}
}

// GenerateInt returns a random integer in range [0, max).
// Uses rejection sampling to eliminate modulo bias.
func (s *Service) GenerateInt(max int64) (int64, error) {
	if max <= 0 {
		return 0, fmt.Errorf("%w: max must be positive, got %d", ErrInvalidRange, max)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := uint64(math.MaxInt64) - (uint64(math.MaxInt64) % uint64(max))
	var buf [8]byte
	for {
		if _, err := io.ReadFull(s.entropy, buf[:]); err != nil {
			return 0, fmt.Errorf("failed to generate random int: %w", err)
		}

		n := binary.BigEndian.Uint64(buf[:]) >> 1
		if n < threshold {
			s.samplesGenerated++
			return int64(n % uint64(max)), nil
		}
	}
}

// Intn is GenerateInt for int-sized ranges
func (s *Service) Intn(n int) (int, error) {
	v, err := s.GenerateInt(int64(n))
	return int(v), err
}

// GenerateFloat returns a random float in range [0.0, 1.0)
func (s *Service) GenerateFloat() (float64, error) {
	n, err := s.GenerateInt(1 << 53)
	if err != nil {
		return 0, err
	}
	return float64(n) / float64(1<<53), nil
}

// Chance returns true with probability p
func (s *Service) Chance(p float64) (bool, error) {
	if p <= 0 {
		return false, nil
	}
	if p >= 1 {
		return true, nil
	}
	f, err := s.GenerateFloat()
	if err != nil {
		return false, err
	}
	return f < p, nil
}

// Shuffle performs a Fisher-Yates shuffle over n elements using swap
func (s *Service) Shuffle(n int, swap func(i, j int)) error {
	for i := n - 1; i > 0; i-- {
		j, err := s.GenerateInt(int64(i + 1))
		if err != nil {
			return err
		}
		swap(i, int(j))
	}
	return nil
}

// SelectWeighted selects an index with probability proportional to its weight
func (s *Service) SelectWeighted(weights []int) (int, error) {
	if len(weights) == 0 {
		return 0, fmt.Errorf("%w: weights cannot be empty", ErrInvalidWeights)
	}

	var total int64
	for _, w := range weights {
		if w < 0 {
			return 0, fmt.Errorf("%w: weights cannot be negative", ErrInvalidWeights)
		}
		total += int64(w)
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: total weight must be positive", ErrInvalidWeights)
	}

	target, err := s.GenerateInt(total)
	if err != nil {
		return 0, err
	}

	var cumulative int64
	for i, w := range weights {
		cumulative += int64(w)
		if target < cumulative {
			return i, nil
		}
	}
	return len(weights) - 1, nil
}

// HealthCheck verifies the generator with a chi-square uniformity test
func (s *Service) HealthCheck() (*HealthResult, error) {
	s.mu.Lock()
	s.lastHealthCheck = time.Now()
	s.mu.Unlock()

	const sampleSize = 1000
	samples := make([]int64, sampleSize)
	for i := 0; i < sampleSize; i++ {
		n, err := s.GenerateInt(100)
		if err != nil {
			return &HealthResult{
				Healthy:   false,
				Timestamp: time.Now(),
				Error:     err.Error(),
			}, err
		}
		samples[i] = n
	}

	chiSquare, passed := chiSquareTest(samples, 100)

	s.mu.Lock()
	generated := s.samplesGenerated
	s.mu.Unlock()

	return &HealthResult{
		Healthy:          passed,
		Timestamp:        time.Now(),
		SamplesGenerated: generated,
		ChiSquare:        chiSquare,
		ChiSquarePassed:  passed,
	}, nil
}

// chiSquareTest performs a basic chi-square test for uniformity
func chiSquareTest(samples []int64, bins int) (float64, bool) {
	counts := make([]int, bins)
	for _, sample := range samples {
		counts[int(sample)%bins]++
	}

	expected := float64(len(samples)) / float64(bins)

	var chiSquare float64
	for _, count := range counts {
		diff := float64(count) - expected
		chiSquare += (diff * diff) / expected
	}

	// 99 degrees of freedom at 99% confidence
	criticalValue := 134.6
	if bins != 100 {
		criticalValue = float64(bins-1) + 2.576*math.Sqrt(2.0*float64(bins-1))
	}

	return chiSquare, chiSquare < criticalValue
}

// HealthResult contains RNG health check results
type HealthResult struct {
	Healthy          bool      `json:"healthy"`
	Timestamp        time.Time `json:"timestamp"`
	SamplesGenerated int64     `json:"samples_generated"`
	ChiSquare        float64   `json:"chi_square"`
	ChiSquarePassed  bool      `json:"chi_square_passed"`
	Error            string    `json:"error,omitempty"`
}
