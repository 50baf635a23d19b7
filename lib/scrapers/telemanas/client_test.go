package telemanas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"telemanas-backend/lib/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseUrl string, opts ClientOptions) *Client {
	opts.BaseURL = baseUrl
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 5
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Millisecond * 10
	}
	opts.Quiet = true

	client, err := NewClient(opts)
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestRequestOk(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/telemanas")
	defer cleanup()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Total_Calls":"123"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, ClientOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	res, err := client.Do(ctx, Request{Url: "/getCallCount"})
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.Ok)
	require.Equal(t, 200, res.StatusCode)
	require.Equal(t, int32(1), hits.Load())

	obj, ok := res.Json.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "123", obj["Total_Calls"])
}

func TestRequestRawBodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<!doctype html>not json at all"))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, ClientOptions{})

	res, err := client.Do(context.Background(), Request{Url: "/"})
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.Ok)
	require.Nil(t, res.Json)
	require.Equal(t, "<!doctype html>not json at all", res.Body)
}

func TestRequestClientErrorDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, ClientOptions{MaxRetries: 3})

	res, err := client.Do(context.Background(), Request{Url: "/nope"})
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, res.Ok)
	require.Equal(t, 404, res.StatusCode)
	require.Equal(t, int32(1), hits.Load())
}

func TestRequestRetriesServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"Total_Calls":"42"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, ClientOptions{MaxRetries: 3})

	res, err := client.Do(context.Background(), Request{Url: "/getCallCount"})
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.Ok)
	require.Equal(t, int32(3), hits.Load())
}

func TestRequestExhaustsRetryBudget(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, ClientOptions{MaxRetries: 3})

	_, err := client.Do(context.Background(), Request{Url: "/getCallCount"})
	require.Error(t, err)
	require.Equal(t, int32(3), hits.Load())
}

func TestRequestConnectionRefusedFailsFast(t *testing.T) {
	// nothing listens here; with a 5s retry delay any retry at all
	// would blow way past the elapsed bound below
	client := newTestClient(t, "http://127.0.0.1:1", ClientOptions{
		MaxRetries: 3,
		RetryDelay: time.Second * 5,
	})

	start := time.Now()
	_, err := client.Do(context.Background(), Request{Url: "/getCallCount"})
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second*2)
}

func TestRequestTimeoutFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, ClientOptions{
		Timeout:    time.Millisecond * 50,
		MaxRetries: 3,
		RetryDelay: time.Second * 5,
	})

	start := time.Now()
	_, err := client.Do(context.Background(), Request{Url: "/getCallCount"})
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second*2)
	require.Equal(t, int32(1), hits.Load())
}

func dashboardApiServer(t *testing.T, callCount, tmcCount string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/getCallCount", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(callCount))
	})
	mux.HandleFunc("/getTMCcount", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tmcCount))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetCallCount(t *testing.T) {
	srv := dashboardApiServer(t, `{"Total_Calls":"1234567"}`, `{}`)
	client := newTestClient(t, srv.URL, ClientOptions{})

	count, err := client.GetCallCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "1234567", count)
}

func TestGetCallCountDefaultsToZero(t *testing.T) {
	srv := dashboardApiServer(t, `{"message":"no counter here"}`, `{}`)
	client := newTestClient(t, srv.URL, ClientOptions{})

	count, err := client.GetCallCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "0", count)
}

func TestGetTMCData(t *testing.T) {
	srv := dashboardApiServer(t, `{}`, `{"TMC":"51","MI":"23","RCC":"5"}`)
	client := newTestClient(t, srv.URL, ClientOptions{})

	tmc, err := client.GetTMCData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "51", tmc.TeleManasCells)
	require.Equal(t, "23", tmc.MentoringInstitutes)
	require.Equal(t, "5", tmc.RegionalCoordinatingCenters)
}

func TestGetTMCDataNumericBody(t *testing.T) {
	srv := dashboardApiServer(t, `{}`, `{"TMC":51,"MI":23,"RCC":5}`)
	client := newTestClient(t, srv.URL, ClientOptions{})

	tmc, err := client.GetTMCData(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "51", tmc.TeleManasCells)
	require.Equal(t, "23", tmc.MentoringInstitutes)
	require.Equal(t, "5", tmc.RegionalCoordinatingCenters)
}

func TestGetAllData(t *testing.T) {
	srv := dashboardApiServer(t,
		`{"Total_Calls":"1234567"}`,
		`{"TMC":"51","MI":"23","RCC":"5"}`,
	)
	client := newTestClient(t, srv.URL, ClientOptions{})

	snapshot := client.GetAllData(context.Background())
	require.Equal(t, Snapshot{
		TotalCalls:                  "1234567",
		TeleManasCells:              "51",
		MentoringInstitutes:         "23",
		RegionalCoordinatingCenters: "5",
	}, snapshot)
}

func TestGetAllDataDegradesToZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, ClientOptions{MaxRetries: 1})

	snapshot := client.GetAllData(context.Background())
	require.Equal(t, ZeroSnapshot(), snapshot)
	require.False(t, snapshot.HasData())
}

func TestGetAllDataPartialFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/getCallCount", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Total_Calls":"999"}`))
	})
	mux.HandleFunc("/getTMCcount", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL, ClientOptions{})

	snapshot := client.GetAllData(context.Background())
	require.Equal(t, "999", snapshot.TotalCalls)
	require.Equal(t, "0", snapshot.TeleManasCells)
	require.Equal(t, "0", snapshot.MentoringInstitutes)
	require.Equal(t, "0", snapshot.RegionalCoordinatingCenters)
}

func TestTestConnection(t *testing.T) {
	srv := dashboardApiServer(t, `{"Total_Calls":"1"}`, `{}`)
	client := newTestClient(t, srv.URL, ClientOptions{})
	require.True(t, client.TestConnection(context.Background()))

	down := newTestClient(t, "http://127.0.0.1:1", ClientOptions{})
	require.False(t, down.TestConnection(context.Background()))
}
