package lookup_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwingoed13/c3pr3-2025-2/internal/config"
	"github.com/edwingoed13/c3pr3-2025-2/internal/lookup"
	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
	"github.com/edwingoed13/c3pr3-2025-2/internal/portal"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel) // Reduce noise in tests
	return logger
}

func TestFindByDocument(t *testing.T) {
	records := []models.Record{
		{"id": float64(1), "dni": "70000001"},
		{"id": float64(2), "documento": "70000002"},
		{"id": float64(3), "numero_documento": "70000003"},
		{"id": float64(4), "cedula": "70000004"},
		{"id": float64(5), "estudiante": map[string]any{"nro_documento": "70000005"}},
		{"id": float64(6), "persona": map[string]any{"dni": "70000006"}},
		{"id": float64(7), "persona": map[string]any{"numero_documento": "70000007"}},
		{"id": float64(8), "dni": float64(70000008)},
	}

	tests := []struct {
		dni    string
		wantID string
	}{
		{"70000001", "1"},
		{"70000002", "2"},
		{"70000003", "3"},
		{"70000004", "4"},
		{"70000005", "5"},
		{"70000006", "6"},
		{"70000007", "7"},
		{"70000008", "8"},
	}

	for _, tt := range tests {
		t.Run(tt.dni, func(t *testing.T) {
			match := lookup.FindByDocument(records, tt.dni)
			require.NotNil(t, match, "dni %s should match", tt.dni)

			id, err := match.ID()
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestFindByDocumentTrimsInput(t *testing.T) {
	records := []models.Record{{"dni": "70123456"}}

	assert.NotNil(t, lookup.FindByDocument(records, "  70123456  "))
}

func TestFindByDocumentNoMatch(t *testing.T) {
	records := []models.Record{
		{"dni": "70000001"},
		{"estudiante": map[string]any{"nro_documento": "70000002"}},
		nil,
		{},
	}

	assert.Nil(t, lookup.FindByDocument(records, "99999999"))
	assert.Nil(t, lookup.FindByDocument(nil, "70000001"))
}

func TestFindByDocumentSecondFieldMatches(t *testing.T) {
	// A non-matching "dni" field must not shadow a match on another field
	// of the same record.
	records := []models.Record{
		{"id": float64(1), "dni": "0", "documento": "70123456"},
	}

	match := lookup.FindByDocument(records, "70123456")
	require.NotNil(t, match)
}

func TestFindByDocumentFirstRecordWins(t *testing.T) {
	records := []models.Record{
		{"id": float64(1), "dni": "70123456"},
		{"id": float64(2), "dni": "70123456"},
	}

	match := lookup.FindByDocument(records, "70123456")
	require.NotNil(t, match)
	id, err := match.ID()
	require.NoError(t, err)
	assert.Equal(t, "1", id)
}

// newService wires a lookup service against a fake portal that serves the
// login flow and the token endpoint.
func newService(t *testing.T, tokenBody string) *lookup.Service {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			_, _ = w.Write([]byte(`<meta name="csrf-token" content="tok">`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "laravel_session", Value: "s", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/intranet/encrypt/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(tokenBody))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	cfg := &config.PortalConfig{
		Email:           "a@b.c",
		Password:        "pw",
		BaseURL:         server.URL,
		SessionDuration: 30 * time.Minute,
		LoginTimeout:    5 * time.Second,
		ListTimeout:     5 * time.Second,
	}
	sessions := portal.NewSessionManager(cfg, testLogger())
	fetcher := portal.NewFetcher(cfg, sessions, testLogger())
	return lookup.NewService(cfg, fetcher, testLogger())
}

func TestResolveDownload(t *testing.T) {
	service := newService(t, `{"token":"enc-777"}`)

	record := models.Record{"id": float64(42), "dni": "70123456"}
	resp, err := service.ResolveDownload(context.Background(), record)
	require.NoError(t, err)

	assert.Equal(t, "enc-777", resp.Token)
	assert.Contains(t, resp.DownloadURL, "/inscripciones/estudiantes/enc-777")
	assert.Equal(t, record, resp.Student)
}

func TestResolveDownloadMissingIdentifier(t *testing.T) {
	service := newService(t, `{"token":"unused"}`)

	_, err := service.ResolveDownload(context.Background(), models.Record{"dni": "70123456"})
	assert.ErrorIs(t, err, models.ErrMissingIdentifier)
}

func TestResolveDownloadEmptyToken(t *testing.T) {
	service := newService(t, `{"token":""}`)

	_, err := service.ResolveDownload(context.Background(), models.Record{"id": float64(1)})
	require.Error(t, err)
	assert.Equal(t, models.KindBadResponse, models.KindOf(err))
}
