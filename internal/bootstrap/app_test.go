package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBackend(t *testing.T) {
	assert.Equal(t, BackendMongo, SelectBackend("mongodb://localhost:27017", "proj"))
	assert.Equal(t, BackendMongo, SelectBackend("mongodb+srv://cluster.example.net", ""))
	assert.Equal(t, BackendDatastore, SelectBackend("", "proj"))
	assert.Equal(t, BackendDatastore, SelectBackend("postgres://nope", "proj"))
	assert.Equal(t, BackendFile, SelectBackend("", ""))
	assert.Equal(t, BackendFile, SelectBackend("not a uri", ""))
}

func newFileApp(t *testing.T) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	static := filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(static, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<h1>directory</h1>"), 0o644))

	dataFile := filepath.Join(dir, "data", "employees.json")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("DATASTORE_PROJECT_ID", "")
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("EXPORT_CONFIG_PATH", "")
	t.Setenv("DATA_FILE", dataFile)
	t.Setenv("STATIC_DIR", static)
	t.Setenv("SEED_ON_START", "")

	app := NewApp()
	require.NoError(t, app.Initialize(context.Background()))
	t.Cleanup(func() { _ = app.Close(context.Background()) })
	return app, dataFile
}

func serve(app *App, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func TestInitialize_FileBackend(t *testing.T) {
	app, dataFile := newFileApp(t)
	assert.Equal(t, BackendFile, app.Backend)
	assert.Nil(t, app.Search)

	rec := serve(app, http.MethodPost, "/api/employees", `{
		"firstName": "John",
		"lastName": "Doe",
		"email": "john@example.com",
		"phone": "555-123-4567",
		"position": "Engineer",
		"department": "Engineering",
		"salary": 75000
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	_, err := os.Stat(dataFile)
	assert.NoError(t, err, "writes land in DATA_FILE")

	rec = serve(app, http.MethodGet, "/api/employees", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalEmployees":1`)
}

func TestInitialize_OperationalRoutes(t *testing.T) {
	app, _ := newFileApp(t)

	rec := serve(app, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store":"ok"}`, rec.Body.String())

	serve(app, http.MethodGet, "/api/employees/stats/summary", "")
	rec = serve(app, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "employee_directory_operations_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = serve(app, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "directory")
}

func TestInitialize_UnknownRoute(t *testing.T) {
	app, _ := newFileApp(t)

	rec := serve(app, http.MethodGet, "/api/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Route not found"}`, rec.Body.String())
}

func TestInitialize_BadExportConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	bad := filepath.Join(dir, "export.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("columns: []\n"), 0o644))

	t.Setenv("MONGODB_URI", "")
	t.Setenv("DATASTORE_PROJECT_ID", "")
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("DATA_FILE", filepath.Join(dir, "employees.json"))
	t.Setenv("EXPORT_CONFIG_PATH", bad)
	t.Setenv("SEED_ON_START", "")

	err := NewApp().Initialize(context.Background())
	assert.ErrorContains(t, err, "export config")
}

func TestInitialize_SeedOnStart(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("MONGODB_URI", "")
	t.Setenv("DATASTORE_PROJECT_ID", "")
	t.Setenv("ELASTICSEARCH_URL", "")
	t.Setenv("EXPORT_CONFIG_PATH", "")
	t.Setenv("STATIC_DIR", "")
	t.Setenv("DATA_FILE", filepath.Join(dir, "employees.json"))
	t.Setenv("SEED_ON_START", "true")

	app := NewApp()
	require.NoError(t, app.Initialize(context.Background()))
	t.Cleanup(func() { _ = app.Close(context.Background()) })

	rec := serve(app, http.MethodGet, "/api/employees", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalEmployees":5`)

	rec = serve(app, http.MethodGet, "/metrics", "")
	assert.Contains(t, rec.Body.String(), "employee_directory_employees_seeded_total 5")

	again := NewApp()
	require.NoError(t, again.Initialize(context.Background()))
	t.Cleanup(func() { _ = again.Close(context.Background()) })
	rec = serve(again, http.MethodGet, "/api/employees", "")
	assert.Contains(t, rec.Body.String(), `"totalEmployees":5`, "a non-empty store is not seeded twice")
}
