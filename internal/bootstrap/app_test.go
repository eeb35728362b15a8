package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T, env map[string]string) {
	t.Helper()
	chdir(t, t.TempDir())
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestApp_Initialize(t *testing.T) {
	testCases := map[string]struct {
		env         map[string]string
		wantHistory bool
		wantDB      bool
	}{
		"memory store": {
			env:         map[string]string{"SESSION_STORE": "memory"},
			wantHistory: true,
		},
		"sqlite store without history": {
			env: map[string]string{
				"SESSION_STORE":   "SQLite",
				"SQLITE_PATH":     "sessions.db",
				"HISTORY_ENABLED": "false",
			},
			wantDB: true,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			setupEnv(t, tc.env)

			app := NewApp()
			require.NoError(t, app.Initialize(context.Background()))
			defer app.Close()

			assert.Equal(t, tc.wantDB, app.DB != nil)
			assert.Equal(t, tc.wantHistory, app.History != nil)

			req := httptest.NewRequest(http.MethodPut, "/api/sessions/s-1",
				strings.NewReader(`{"role":"team_leader","age":19,"dark_mode":true}`))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			app.Echo.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

			req = httptest.NewRequest(http.MethodGet, "/api/sessions/s-1", nil)
			rec = httptest.NewRecorder()
			app.Echo.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), `"dark_mode":true`)
		})
	}
}

func TestApp_InitializeSQLitePersists(t *testing.T) {
	dir := t.TempDir()
	setupEnv(t, map[string]string{
		"SESSION_STORE": "sqlite",
		"SQLITE_PATH":   filepath.Join(dir, "sessions.db"),
	})
	ctx := context.Background()

	first := NewApp()
	require.NoError(t, first.InitStores(ctx))
	require.NoError(t, first.Sessions.Save(ctx, "demo-1", map[string]string{"role": "team_leader"}))
	first.Close()

	second := NewApp()
	require.NoError(t, second.InitStores(ctx))
	defer second.Close()
	values, err := second.Sessions.Load(ctx, "demo-1")
	require.NoError(t, err)
	assert.Equal(t, "team_leader", values["role"])
}

func TestApp_InitializeErrors(t *testing.T) {
	testCases := map[string]struct {
		env     map[string]string
		wantErr string
	}{
		"unknown store": {
			env:     map[string]string{"SESSION_STORE": "redis"},
			wantErr: `unknown session store "redis"`,
		},
		"missing rate table": {
			env:     map[string]string{"RATE_TABLE_PATH": "missing.yaml"},
			wantErr: "failed to load rate table",
		},
		"bad rounding mode": {
			env:     map[string]string{"ROUNDING_MODE": "sideways"},
			wantErr: "failed to parse rounding mode",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			setupEnv(t, tc.env)

			err := NewApp().Initialize(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestApp_Routes(t *testing.T) {
	setupEnv(t, nil)

	app := NewApp()
	require.NoError(t, app.Initialize(context.Background()))

	routes := map[string]bool{}
	for _, r := range app.Echo.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /api/roles",
		"GET /api/roles/:role/rates",
		"POST /api/calculate",
		"POST /api/earnings-by-age",
		"POST /api/parse-durations",
		"GET /api/calculations",
		"GET /api/sessions",
		"POST /api/sessions",
		"GET /api/sessions/:id",
		"PUT /api/sessions/:id",
		"PATCH /api/sessions/:id/preferences",
		"DELETE /api/sessions/:id",
		"POST /api/export/xlsx",
		"POST /api/export/csv",
	} {
		assert.True(t, routes[want], want)
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent to testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}
