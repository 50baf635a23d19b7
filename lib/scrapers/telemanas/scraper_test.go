package telemanas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractSnapshotScriptJson(t *testing.T) {
	markup := []byte(`<html><head>
		<script>var dashboardData = {"Total_Calls":"42","TMC":"3"};</script>
	</head><body></body></html>`)

	snapshot, err := ExtractSnapshot(markup)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "42", snapshot.TotalCalls)
	require.Equal(t, "3", snapshot.TeleManasCells)
	require.Equal(t, "0", snapshot.MentoringInstitutes)
	require.Equal(t, "0", snapshot.RegionalCoordinatingCenters)
}

func TestExtractSnapshotSkipsMalformedScriptJson(t *testing.T) {
	markup := []byte(`<html><body>
		<script>var broken = {"Total_Calls": oops not json};</script>
		<script>var good = {"Total_Calls":"77"};</script>
	</body></html>`)

	snapshot, err := ExtractSnapshot(markup)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "77", snapshot.TotalCalls)
}

func TestExtractSnapshotLabelFallback(t *testing.T) {
	markup := []byte(`<html><body>
		<div class="counter">Total Calls: <span>1,234</span></div>
		<div class="counter">Tele MANAS Cells <span>51</span></div>
		<div class="counter">Mentoring Institutes <span>23</span></div>
		<div class="counter">Regional Coordinating Centres <span>5</span></div>
	</body></html>`)

	snapshot, err := ExtractSnapshot(markup)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, Snapshot{
		TotalCalls:                  "1234",
		TeleManasCells:              "51",
		MentoringInstitutes:         "23",
		RegionalCoordinatingCenters: "5",
	}, snapshot)
}

func TestExtractSnapshotIndianDigitGrouping(t *testing.T) {
	markup := []byte(`<div>Total Calls 12,34,567</div>`)

	snapshot, err := ExtractSnapshot(markup)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "1234567", snapshot.TotalCalls)
}

func TestExtractSnapshotEmptyDocument(t *testing.T) {
	_, err := ExtractSnapshot([]byte("   \n"))
	require.Error(t, err)
}

func newTestOrchestrator(t *testing.T, baseUrl string) *Orchestrator {
	return NewOrchestrator(newTestClient(t, baseUrl, ClientOptions{MaxRetries: 1}))
}

func TestScrapePrefersApiStrategy(t *testing.T) {
	srv := dashboardApiServer(t,
		`{"Total_Calls":"1234567"}`,
		`{"TMC":"51","MI":"23","RCC":"5"}`,
	)
	o := newTestOrchestrator(t, srv.URL)

	result := o.Scrape(context.Background())
	require.True(t, result.Success)
	require.Equal(t, "Direct API Calls", result.Method)
	require.Equal(t, "1234567", result.Data.TotalCalls)
	require.Empty(t, result.Error)
	require.False(t, result.Timestamp.IsZero())
}

func TestScrapeFallsBackToWebScraping(t *testing.T) {
	mux := http.NewServeMux()
	// the API answers but with nothing in it, so the orchestrator
	// should move on to scraping the page itself
	mux.HandleFunc("/getCallCount", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Total_Calls":"0"}`))
	})
	mux.HandleFunc("/getTMCcount", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"TMC":"0","MI":"0","RCC":"0"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<script>var counters = {"Total_Calls":"500"};</script>
		</body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL)

	result := o.Scrape(context.Background())
	require.True(t, result.Success)
	require.Equal(t, "Web Scraping", result.Method)
	require.Equal(t, "500", result.Data.TotalCalls)
	require.Equal(t, "0", result.Data.TeleManasCells)
}

func TestScrapeAllStrategiesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	o := newTestOrchestrator(t, srv.URL)

	result := o.Scrape(context.Background())
	require.False(t, result.Success)
	require.Equal(t, "All scraping strategies failed", result.Error)
	require.Equal(t, ZeroSnapshot(), result.Data)
	require.Empty(t, result.Method)
	require.False(t, result.Timestamp.IsZero())
}
