package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	runehttp "github.com/amutnick/Runecast/pkg/adapters/http"
	"github.com/amutnick/Runecast/pkg/adapters/memory"
	"github.com/amutnick/Runecast/pkg/adapters/oracle"
	"github.com/amutnick/Runecast/pkg/catalog"
	"github.com/amutnick/Runecast/pkg/domain"
	"github.com/amutnick/Runecast/pkg/export"
	"github.com/amutnick/Runecast/pkg/history"
	"github.com/amutnick/Runecast/pkg/observability"
	"github.com/amutnick/Runecast/pkg/view"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler http.Handler
	history *history.Service
}

func newFixture(t *testing.T, seed ...domain.ReadingRecord) fixture {
	t.Helper()
	cat := catalog.Default()
	svc := history.New(memory.NewStore(seed...), history.WithAnalyzer(oracle.New(cat)))

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	handler, err := runehttp.NewHandler(runehttp.Config{
		Catalog:     cat,
		Interpreter: oracle.New(cat),
		History:     svc,
		Hooks:       metrics.Hooks(),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Version:     "test",
	})
	require.NoError(t, err)
	return fixture{handler: handler, history: svc}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func (f fixture) open(t *testing.T) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeSession(t, w).Handle
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) runehttp.SessionResponse {
	t.Helper()
	var resp runehttp.SessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func (f fixture) awaitStatus(t *testing.T, handle string, want domain.Status) runehttp.SessionResponse {
	t.Helper()
	var last runehttp.SessionResponse
	require.Eventually(t, func() bool {
		w := f.do(t, http.MethodGet, "/sessions/"+handle, nil)
		if w.Code != http.StatusOK {
			return false
		}
		last = decodeSession(t, w)
		return last.Session.Status == want
	}, 2*time.Second, 10*time.Millisecond)
	return last
}

func TestServer_PhysicalReadingLifecycle(t *testing.T) {
	f := newFixture(t)
	h := f.open(t)
	base := "/sessions/" + h

	w := f.do(t, http.MethodPost, base+"/mode", map[string]string{"mode": "physical"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, view.KindSelectSpread, decodeSession(t, w).Screen.Kind)

	w = f.do(t, http.MethodPost, base+"/spread", map[string]string{"spread": "three norns"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeSession(t, w)
	assert.Equal(t, view.KindSelectRunes, resp.Screen.Kind)
	assert.Equal(t, 3, resp.Screen.Remaining)
	assert.Len(t, resp.Available, 24)

	// Fehu reads differently reversed, so it waits for an orientation.
	w = f.do(t, http.MethodPost, base+"/runes", map[string]string{"rune": "fehu"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp = decodeSession(t, w)
	assert.True(t, resp.Screen.OrientationPrompt)
	assert.Equal(t, "Fehu", resp.Screen.PendingRune)

	w = f.do(t, http.MethodPost, base+"/orientation", map[string]string{"orientation": "reversed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Fuzzy names resolve; symmetric runes go straight in upright.
	for _, name := range []string{"gebo", "Isaa"} {
		w = f.do(t, http.MethodPost, base+"/runes", map[string]string{"rune": name})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	resp = f.awaitStatus(t, h, domain.StatusInterpreted)
	assert.Equal(t, view.KindResult, resp.Screen.Kind)
	assert.Equal(t, []domain.SelectedRune{
		{RuneName: "Fehu", Orientation: domain.Reversed},
		{RuneName: "Gebo", Orientation: domain.Upright},
		{RuneName: "Isa", Orientation: domain.Upright},
	}, resp.Session.Selections)

	w = f.do(t, http.MethodPost, base+"/commit", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec domain.ReadingRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, "Three Norns", rec.Spread.Name)

	resp = decodeSession(t, f.do(t, http.MethodGet, base, nil))
	assert.Equal(t, domain.StatusUnset, resp.Session.Status)

	w = f.do(t, http.MethodGet, "/readings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []domain.ReadingRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)

	w = f.do(t, http.MethodGet, "/readings/"+rec.ID+"?format=markdown", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "**Fehu** (reversed)")

	w = f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `runecast_session_transitions_total{event="commit",from="interpreted",to="unset"} 1`)
}

func TestServer_Errors(t *testing.T) {
	f := newFixture(t)
	h := f.open(t)
	base := "/sessions/" + h

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"UnknownSession", http.MethodGet, "/sessions/nope", nil, http.StatusNotFound},
		{"UnknownMode", http.MethodPost, base + "/mode", map[string]string{"mode": "astral"}, http.StatusBadRequest},
		{"SpreadBeforeMode", http.MethodPost, base + "/spread", map[string]string{"spread": "Single Rune"}, http.StatusConflict},
		{"CommitTooEarly", http.MethodPost, base + "/commit", nil, http.StatusConflict},
		{"NoPendingOrientation", http.MethodPost, base + "/orientation", map[string]string{"orientation": "upright"}, http.StatusConflict},
		{"BadOrientation", http.MethodPost, base + "/orientation", map[string]string{"orientation": "sideways"}, http.StatusBadRequest},
		{"UnknownReading", http.MethodGet, "/readings/missing", nil, http.StatusNotFound},
		{"DeleteUnknownReading", http.MethodDelete, "/readings/missing", nil, http.StatusNotFound},
		{"AnalysisLocked", http.MethodPost, "/analysis", nil, http.StatusUnprocessableEntity},
		{"BadTab", http.MethodGet, base + "?tab=nowhere", nil, http.StatusBadRequest},
		{"BadFormat", http.MethodGet, "/readings/export?format=pdf", nil, http.StatusBadRequest},
		{"BadBody", http.MethodPut, "/settings/retention", map[string]any{"weeks": 2}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_UnknownSpread(t *testing.T) {
	f := newFixture(t)
	base := "/sessions/" + f.open(t)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, base+"/mode", map[string]string{"mode": "virtual"}).Code)

	w := f.do(t, http.MethodPost, base+"/spread", map[string]string{"spread": "Twelve Houses"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_HistoryTabs(t *testing.T) {
	now := time.Now().UTC()
	var seed []domain.ReadingRecord
	for i := range 5 {
		seed = append(seed, domain.ReadingRecord{
			ID:        "r" + string(rune('a'+i)),
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
			Spread:    domain.Spread{Name: "Single Rune", RuneCount: 1},
			Runes:     []domain.SelectedRune{{RuneName: "Fehu", Orientation: domain.Upright}},
			Interpretation: domain.Interpretation{
				IndividualRunes: []domain.RuneInterpretation{{RuneName: "Fehu", Summary: "Wealth."}},
				Summary:         "Abundance.",
				Questions:       []string{"What do you value?"},
			},
		})
	}
	f := newFixture(t, seed...)
	base := "/sessions/" + f.open(t)

	resp := decodeSession(t, f.do(t, http.MethodGet, base+"?tab=analysis", nil))
	assert.Equal(t, view.KindAnalysis, resp.Screen.Kind)

	w := f.do(t, http.MethodPost, "/analysis", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var analysis domain.PatternAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.NotEmpty(t, analysis.OverallSummary)
	assert.False(t, analysis.Degraded)

	w = f.do(t, http.MethodGet, "/readings?limit=2", nil)
	var records []domain.ReadingRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 2)
	assert.Equal(t, "ra", records[0].ID)

	w = f.do(t, http.MethodGet, "/readings/export?format=html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "runecast-journal.html")
	assert.Contains(t, w.Body.String(), "<h1>"+export.JournalTitle+"</h1>")

	w = f.do(t, http.MethodPost, "/readings/prune", map[string]int{"retention_days": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removed":0,"retention_days":0}`, w.Body.String())

	w = f.do(t, http.MethodDelete, "/readings/ra", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	count, err := f.history.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	w = f.do(t, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats history.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.Total)
}

func TestServer_Retention(t *testing.T) {
	old := domain.ReadingRecord{
		ID:        "old",
		CreatedAt: time.Now().Add(-40 * 24 * time.Hour),
		Spread:    domain.Spread{Name: "Single Rune", RuneCount: 1},
	}
	f := newFixture(t, old)

	w := f.do(t, http.MethodGet, "/settings/retention", nil)
	assert.JSONEq(t, `{"days":90}`, w.Body.String())

	w = f.do(t, http.MethodPut, "/settings/retention", map[string]int{"days": 30})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"days":30}`, w.Body.String())
	assert.Equal(t, 30, f.history.Retention())

	_, err := f.history.Get(context.Background(), "old")
	assert.NoError(t, err, "changing retention must not delete readings")

	w = f.do(t, http.MethodPut, "/settings/retention", map[string]int{"days": -1})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"days":0}`, w.Body.String())
}

func TestServer_CloseSession(t *testing.T) {
	f := newFixture(t)
	h := f.open(t)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/sessions/"+h, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/sessions/"+h, nil).Code)
}

func TestServer_SessionLimit(t *testing.T) {
	svc := history.New(memory.NewStore())
	handler, err := runehttp.NewHandler(runehttp.Config{History: svc, MaxSessions: 1})
	require.NoError(t, err)
	f := fixture{handler: handler, history: svc}

	f.open(t)
	w := f.do(t, http.MethodPost, "/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestNewServer_RequiresHistory(t *testing.T) {
	_, err := runehttp.NewServer(runehttp.Config{})
	assert.Error(t, err)
}

func TestServer_SubscribeEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()
	h := f.open(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/"+h+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	require.True(t, lines.Scan())
	assert.Equal(t, "event: ping", lines.Text())

	go func() {
		body := strings.NewReader(`{"mode":"virtual"}`)
		r, err := http.Post(srv.URL+"/sessions/"+h+"/mode", "application/json", body)
		if err == nil {
			_ = r.Body.Close()
		}
	}()

	for lines.Scan() {
		line := lines.Text()
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var ev domain.TransitionEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		assert.Equal(t, "choose_mode", ev.Event)
		assert.Equal(t, domain.StatusModeChosen, ev.To)
		return
	}
	t.Fatal("stream ended before the transition event arrived")
}

func TestServer_HealthAndCatalog(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/catalog/spreads", nil)
	var spreads []domain.Spread
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spreads))
	assert.Len(t, spreads, 4)

	w = f.do(t, http.MethodGet, "/info", nil)
	assert.Contains(t, w.Body.String(), `"version":"test"`)
}
