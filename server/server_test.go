package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemakit/schemakit/schema"
)

// fakeLoader serves a small fixed catalog.
type fakeLoader struct {
	schema.UnimplementedDiscovery
	pkCalls int
}

func (l *fakeLoader) LoadTableSchema(ctx context.Context, t schema.TableIdentity) (*schema.TableSchema, error) {
	if t.Name != "posts" {
		return nil, nil
	}
	return &schema.TableSchema{
		Name:     "posts",
		FullName: t.Raw,
		Columns: []schema.ColumnSchema{
			{Name: "id", Type: schema.TypeBigInt, PrimaryKey: true},
			{Name: "title", Type: schema.TypeString},
		},
		PrimaryKey: []string{"id"},
	}, nil
}

func (l *fakeLoader) LoadPrimaryKey(ctx context.Context, t schema.TableIdentity) (*schema.Constraint, error) {
	l.pkCalls++
	if t.Name != "posts" {
		return nil, nil
	}
	return &schema.Constraint{Name: "posts_pkey", Columns: []string{"id"}}, nil
}

func (l *fakeLoader) LoadUniques(ctx context.Context, t schema.TableIdentity) ([]schema.Constraint, error) {
	return nil, nil
}

func (l *fakeLoader) LoadForeignKeys(ctx context.Context, t schema.TableIdentity) ([]schema.ForeignKey, error) {
	return nil, nil
}

func (l *fakeLoader) LoadIndexes(ctx context.Context, t schema.TableIdentity) ([]schema.Index, error) {
	return nil, nil
}

func (l *fakeLoader) LoadDefaults(ctx context.Context, t schema.TableIdentity) ([]schema.DefaultValue, error) {
	return nil, nil
}

func (l *fakeLoader) LoadChecks(ctx context.Context, t schema.TableIdentity) ([]schema.Check, error) {
	return nil, nil
}

func (l *fakeLoader) FindTableNames(ctx context.Context, schemaName string) ([]string, error) {
	return []string{"posts"}, nil
}

func setupTestServer(t *testing.T) (*httptest.Server, *fakeLoader) {
	loader := &fakeLoader{}
	session := schema.NewSession(loader, schema.Config{})
	ts := httptest.NewServer(New(session, nil).Handler())
	t.Cleanup(ts.Close)
	return ts, loader
}

func getJSON(t *testing.T, url string, into interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestHandleTables(t *testing.T) {
	ts, _ := setupTestServer(t)

	var body struct {
		Tables []string `json:"tables"`
	}
	status := getJSON(t, ts.URL+"/tables", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"posts"}, body.Tables)
}

func TestHandleTableSchema(t *testing.T) {
	ts, _ := setupTestServer(t)

	var body schema.TableSchema
	status := getJSON(t, ts.URL+"/tables/posts", &body)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "posts", body.Name)
	assert.Equal(t, []string{"id"}, body.PrimaryKey)
}

func TestHandleTableSchema_NotFound(t *testing.T) {
	ts, _ := setupTestServer(t)

	status := getJSON(t, ts.URL+"/tables/ghost", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestHandleTableKind(t *testing.T) {
	ts, loader := setupTestServer(t)

	var body struct {
		PrimaryKey *schema.Constraint `json:"primary_key"`
	}
	status := getJSON(t, ts.URL+"/tables/posts/primary_key", &body)

	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, body.PrimaryKey)
	assert.Equal(t, []string{"id"}, body.PrimaryKey.Columns)
	assert.Equal(t, 1, loader.pkCalls)

	// A second fetch is served from the session's cache.
	getJSON(t, ts.URL+"/tables/posts/primary_key", nil)
	assert.Equal(t, 1, loader.pkCalls)

	// refresh=1 forces a reload.
	getJSON(t, ts.URL+"/tables/posts/primary_key?refresh=1", nil)
	assert.Equal(t, 2, loader.pkCalls)
}

func TestHandleTableKind_UnknownKind(t *testing.T) {
	ts, _ := setupTestServer(t)

	status := getJSON(t, ts.URL+"/tables/posts/sequences", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestHandleSchemas_NotSupported(t *testing.T) {
	ts, _ := setupTestServer(t)

	status := getJSON(t, ts.URL+"/schemas", nil)
	assert.Equal(t, http.StatusNotImplemented, status)
}

func TestHandleRefresh(t *testing.T) {
	ts, loader := setupTestServer(t)

	getJSON(t, ts.URL+"/tables/posts/primary_key", nil)
	require.Equal(t, 1, loader.pkCalls)

	resp, err := http.Post(ts.URL+"/refresh", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getJSON(t, ts.URL+"/tables/posts/primary_key", nil)
	assert.Equal(t, 2, loader.pkCalls)
}

func TestHandleRefreshTable(t *testing.T) {
	ts, loader := setupTestServer(t)

	getJSON(t, ts.URL+"/tables/posts/primary_key", nil)
	require.Equal(t, 1, loader.pkCalls)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/tables/posts", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	getJSON(t, ts.URL+"/tables/posts/primary_key", nil)
	assert.Equal(t, 2, loader.pkCalls)
}
