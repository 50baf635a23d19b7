package dashboard

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"telemanas-backend/lib/scrapers/telemanas"
	"telemanas-backend/lib/serviceutil"
	"telemanas-backend/lib/timezone"
	"telemanas-backend/services/dashboard/db"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/dashboard")

// how long stored failure rows are kept around for the history endpoint
const retention = time.Hour * 24 * 30

type Service struct {
	db           *sql.DB
	qry          *db.Queries
	client       *telemanas.Client
	orchestrator *telemanas.Orchestrator
	cacheTtl     time.Duration

	// serializes scrapes so concurrent cache misses don't multiply
	// load on the upstream
	scrapeMu sync.Mutex
}

func NewService(database *sql.DB, client *telemanas.Client, cacheTtl time.Duration) *Service {
	if cacheTtl <= 0 {
		cacheTtl = time.Minute * 5
	}
	return &Service{
		db:           database,
		qry:          db.New(database),
		client:       client,
		orchestrator: telemanas.NewOrchestrator(client),
		cacheTtl:     cacheTtl,
	}
}

func resultFromRow(row db.ScrapeResult) telemanas.ScrapeResult {
	out := telemanas.ScrapeResult{
		Success: row.Success != 0,
		Method:  row.Method,
		Data: telemanas.Snapshot{
			TotalCalls:                  row.TotalCalls,
			TeleManasCells:              row.TeleManasCells,
			MentoringInstitutes:         row.MentoringInstitutes,
			RegionalCoordinatingCenters: row.RegionalCoordinatingCenters,
		},
		Timestamp: time.Unix(row.Time, 0).In(timezone.Location),
	}
	if !out.Success {
		out.Error = "All scraping strategies failed"
	}
	return out
}

// GetDashboard serves the most recent stored result while it is still
// fresh, scraping anew otherwise. It never fails toward the caller:
// scrape failures come back as success=false results.
func (s *Service) GetDashboard(ctx context.Context) telemanas.ScrapeResult {
	ctx, span := tracer.Start(ctx, "GetDashboard")
	defer span.End()

	row, err := s.qry.GetLatestScrapeResult(ctx)
	if err == nil && row.Success != 0 {
		age := timezone.Now().Sub(time.Unix(row.Time, 0))
		if age < s.cacheTtl {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return resultFromRow(row)
		}
	}
	if err != nil && err != sql.ErrNoRows {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to read latest scrape result", "err", err)
	}

	return s.Refresh(ctx)
}

// Refresh scrapes unconditionally and records the outcome.
func (s *Service) Refresh(ctx context.Context) telemanas.ScrapeResult {
	ctx, span := tracer.Start(ctx, "Refresh")
	defer span.End()

	s.scrapeMu.Lock()
	defer s.scrapeMu.Unlock()

	result := s.orchestrator.Scrape(ctx)
	if !result.Success {
		span.SetStatus(codes.Error, result.Error)
	}

	err := s.recordResult(ctx, result)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to record scrape result", "err", err)
	}
	return result
}

func (s *Service) recordResult(ctx context.Context, result telemanas.ScrapeResult) error {
	success := int64(0)
	if result.Success {
		success = 1
	}
	return s.qry.CreateScrapeResult(ctx, db.CreateScrapeResultParams{
		Time:                        result.Timestamp.Unix(),
		Success:                     success,
		Method:                      result.Method,
		TotalCalls:                  result.Data.TotalCalls,
		TeleManasCells:              result.Data.TeleManasCells,
		MentoringInstitutes:         result.Data.MentoringInstitutes,
		RegionalCoordinatingCenters: result.Data.RegionalCoordinatingCenters,
	})
}

// History returns every stored result at or after `since`, oldest
// first.
func (s *Service) History(ctx context.Context, since time.Time) ([]telemanas.ScrapeResult, error) {
	ctx, span := tracer.Start(ctx, "History")
	defer span.End()

	rows, err := s.qry.GetScrapeResultsSince(ctx, since.Unix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	results := make([]telemanas.ScrapeResult, len(rows))
	for i, row := range rows {
		results[i] = resultFromRow(row)
	}
	return results, nil
}

// StartRefreshDaemon re-scrapes on an interval and prunes old rows.
// The goroutine is owned by ctx, cancel it to stop.
func (s *Service) StartRefreshDaemon(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute * 30
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Refresh(ctx)

				err := s.qry.DeleteScrapeResultsBefore(ctx, timezone.Now().Add(-retention).Unix())
				if err != nil {
					slog.WarnContext(ctx, "failed to prune scrape history", "err", err)
				}
			}
		}
	}()
}

func (s *Service) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		serviceutil.WriteJson(w, http.StatusOK, s.GetDashboard(r.Context()))
	})
	mux.HandleFunc("GET /api/dashboard/refresh", func(w http.ResponseWriter, r *http.Request) {
		serviceutil.WriteJson(w, http.StatusOK, s.Refresh(r.Context()))
	})
	mux.HandleFunc("GET /api/dashboard/history", func(w http.ResponseWriter, r *http.Request) {
		hours := 24
		if raw := r.URL.Query().Get("hours"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				serviceutil.WriteJson(w, http.StatusBadRequest, map[string]string{
					"error": "hours must be a positive integer",
				})
				return
			}
			hours = parsed
		}

		since := timezone.Now().Add(-time.Duration(hours) * time.Hour)
		results, err := s.History(r.Context(), since)
		if err != nil {
			serviceutil.WriteJson(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to read history",
			})
			return
		}
		serviceutil.WriteJson(w, http.StatusOK, map[string]any{
			"results": results,
		})
	})
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		serviceutil.WriteJson(w, http.StatusOK, map[string]any{
			"ok":        s.client.TestConnection(r.Context()),
			"timestamp": timezone.Now(),
		})
	})
}
