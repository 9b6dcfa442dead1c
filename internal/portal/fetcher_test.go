package portal_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
	"github.com/edwingoed13/c3pr3-2025-2/internal/portal"
)

const (
	studentListPath = "/intranet/inscripcion/estudiante/lista/data"
	seatListPath    = "/intranet/administracion/vacantes/lista/data"
)

func newFetcher(t *testing.T, p *fakePortal) (*portal.Fetcher, *portal.SessionManager) {
	t.Helper()
	cfg := portalConfig(p.server.URL)
	sessions := portal.NewSessionManager(cfg, testLogger())
	return portal.NewFetcher(cfg, sessions, testLogger()), sessions
}

func serveJSON(p *fakePortal, path, body string) {
	p.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
}

func TestFetchStudentsEnvelopes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		records int
	}{
		{"data envelope", `{"data":[{"id":1},{"id":2}]}`, 2},
		{"legacy students envelope", `{"students":[{"id":1}]}`, 1},
		{"bare array", `[{"id":1},{"id":2},{"id":3}]`, 3},
		{"unknown envelope", `{"rows":[{"id":1}]}`, 0},
		{"empty data", `{"data":[]}`, 0},
		{"scalar body", `42`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePortal(t)
			serveJSON(p, studentListPath, tt.body)
			fetcher, _ := newFetcher(t, p)

			records, err := fetcher.FetchStudents(context.Background())
			require.NoError(t, err)
			assert.Len(t, records, tt.records)
		})
	}
}

func TestFetchSeatsIgnoresStudentsEnvelope(t *testing.T) {
	// The legacy "students" key is only honored by the student endpoint.
	p := newFakePortal(t)
	serveJSON(p, seatListPath, `{"students":[{"id":1}]}`)
	fetcher, _ := newFetcher(t, p)

	records, err := fetcher.FetchSeats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchListNonObjectItems(t *testing.T) {
	p := newFakePortal(t)
	serveJSON(p, studentListPath, `{"data":[{"id":1},"stray",null]}`)
	fetcher, _ := newFetcher(t, p)

	records, err := fetcher.FetchStudents(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.NoArea, records[1].Area())
}

func TestFetchSendsSessionHeadersAndParams(t *testing.T) {
	p := newFakePortal(t)

	var captured *http.Request
	p.mux.HandleFunc(studentListPath, func(w http.ResponseWriter, r *http.Request) {
		captured = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	fetcher, _ := newFetcher(t, p)
	_, err := fetcher.FetchStudents(context.Background())
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Contains(t, captured.Header.Get("Cookie"), "laravel_session=sess-abc")
	assert.Equal(t, "tok123", captured.Header.Get("X-CSRF-TOKEN"))
	assert.Equal(t, "XMLHttpRequest", captured.Header.Get("X-Requested-With"))
	assert.Contains(t, captured.Header.Get("Referer"), "/intranet/inscripcion/estudiante/lista")

	query := captured.URL.Query()
	assert.Equal(t, "{}", query.Get("query"))
	assert.Equal(t, "10000", query.Get("limit"))
	assert.Equal(t, "1", query.Get("page"))
	assert.Equal(t, "1", query.Get("ascending"))
	assert.Equal(t, "1", query.Get("byColumn"))
}

func TestFetchAuthRejectionMarksSessionExpired(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, 419} {
		p := newFakePortal(t)
		p.mux.HandleFunc(studentListPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		fetcher, sessions := newFetcher(t, p)

		_, err := fetcher.FetchStudents(context.Background())
		require.Error(t, err)
		assert.True(t, models.IsAuthExpired(err), "status %d", status)

		// The weak invalidation: timestamp gone, cookie bundle kept.
		assert.True(t, sessions.IsExpired())
		cookies, _, _ := sessions.Snapshot()
		assert.NotEmpty(t, cookies)
	}
}

func TestFetchUpstreamError(t *testing.T) {
	p := newFakePortal(t)
	p.mux.HandleFunc(studentListPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("portal exploded"))
	})
	fetcher, _ := newFetcher(t, p)

	_, err := fetcher.FetchStudents(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.KindUpstreamHTTP, models.KindOf(err))

	var pe *models.PortalError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusInternalServerError, pe.UpstreamStatus)
	assert.Contains(t, pe.Message, "portal exploded")
}

func TestFetchTimeoutClassification(t *testing.T) {
	p := newFakePortal(t)
	p.mux.HandleFunc(studentListPath, func(w http.ResponseWriter, r *http.Request) {
		// Stall past the list timeout; stop once the client gives up.
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	cfg := portalConfig(p.server.URL)
	cfg.ListTimeout = 100 * time.Millisecond
	sessions := portal.NewSessionManager(cfg, testLogger())
	fetcher := portal.NewFetcher(cfg, sessions, testLogger())

	_, err := fetcher.FetchStudents(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.KindTimeout, models.KindOf(err))
}

func TestFetchNonJSONBody(t *testing.T) {
	p := newFakePortal(t)
	p.mux.HandleFunc(studentListPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})
	fetcher, _ := newFetcher(t, p)

	_, err := fetcher.FetchStudents(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.KindBadResponse, models.KindOf(err))
}

func TestFetchDownloadToken(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{"object with token", `{"token":"enc-123"}`, "enc-123", false},
		{"bare json string", `"enc-456"`, "enc-456", false},
		{"raw text body", "enc-789\n", "enc-789", false},
		{"object without token", `{"otro":"x"}`, "", true},
		{"empty body", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePortal(t)
			p.mux.HandleFunc("/intranet/encrypt/", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			fetcher, _ := newFetcher(t, p)

			token, err := fetcher.FetchDownloadToken(context.Background(), "55")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, models.KindBadResponse, models.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestFetchDownloadTokenTargetsRecordEndpoint(t *testing.T) {
	p := newFakePortal(t)

	var path string
	p.mux.HandleFunc("/intranet/encrypt/", func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"token":"enc-1"}`))
	})
	fetcher, _ := newFetcher(t, p)

	_, err := fetcher.FetchDownloadToken(context.Background(), "9876")
	require.NoError(t, err)
	assert.Equal(t, "/intranet/encrypt/9876", path)
}
