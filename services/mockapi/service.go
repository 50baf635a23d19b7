// Package mockapi serves a stand-in for the public dashboard API so
// everything downstream can be developed and tested without hammering
// the real site.
package mockapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"telemanas-backend/lib/serviceutil"
	"time"

	"github.com/mazen160/go-random"
)

// Store owns the mock counter values. It is handed to the service
// explicitly so tests can run against their own isolated instance.
type Store struct {
	mu sync.Mutex

	totalCalls                  int64
	teleManasCells              int64
	mentoringInstitutes         int64
	regionalCoordinatingCenters int64
}

func NewStore() *Store {
	return &Store{
		totalCalls:                  1_766_724,
		teleManasCells:              53,
		mentoringInstitutes:         23,
		regionalCoordinatingCenters: 5,
	}
}

func (s *Store) CallCount() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.FormatInt(s.totalCalls, 10)
}

func (s *Store) TMCCounts() (tmc, mi, rcc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strconv.FormatInt(s.teleManasCells, 10),
		strconv.FormatInt(s.mentoringInstitutes, 10),
		strconv.FormatInt(s.regionalCoordinatingCenters, 10)
}

func (s *Store) SetCallCount(n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls = n
}

// Drift nudges the call counter upward the way the live dashboard
// does between refreshes.
func (s *Store) Drift() {
	step, err := random.IntRange(1, 50)
	if err != nil {
		step = 7
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalCalls += int64(step)
}

type Service struct {
	store *Store
}

func NewService(store *Store) Service {
	return Service{store: store}
}

// StartDrift mutates the store on an interval until ctx is cancelled.
func (s Service) StartDrift(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second * 30
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.store.Drift()
				slog.DebugContext(ctx, "mock counters drifted", "total_calls", s.store.CallCount())
			}
		}
	}()
}

// RegisterHandlers mounts the mock endpoints using the upstream's wire
// format.
func (s Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/telemanas/getCallCount", func(w http.ResponseWriter, r *http.Request) {
		serviceutil.WriteJson(w, http.StatusOK, map[string]string{
			"Total_Calls": s.store.CallCount(),
		})
	})
	mux.HandleFunc("GET /api/telemanas/getTMCcount", func(w http.ResponseWriter, r *http.Request) {
		tmc, mi, rcc := s.store.TMCCounts()
		serviceutil.WriteJson(w, http.StatusOK, map[string]string{
			"TMC": tmc,
			"MI":  mi,
			"RCC": rcc,
		})
	})
}
