package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/ladle/internal/domain"
)

func TestReadTokenFromPipe(t *testing.T) {
	var out bytes.Buffer
	token, err := readToken(&out, strings.NewReader("  abc123 \n"))
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)
	assert.Contains(t, out.String(), "API token:")

	token, err = readToken(&out, strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", token)
}

func TestDescribeAddsHints(t *testing.T) {
	err := describe(domain.NewNetworkError(domain.KindUnauthorized, nil))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, err.Error(), "ladle login")

	err = describe(fmt.Errorf("%w: probe", domain.ErrVersionUnavailable))
	assert.Contains(t, err.Error(), "server set")

	plain := errors.New("plain")
	assert.Equal(t, plain, describe(plain))
}

// fakeMealie serves a v1 Mealie API with the given recipe names.
func fakeMealie(t *testing.T, names []string) *httptest.Server {
	t.Helper()
	favorites := map[string]bool{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/app/about", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"version": "v1.4.0", "production": true})
	})
	mux.HandleFunc("GET /api/recipes", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
		items := []map[string]any{}
		for i := (page - 1) * perPage; i < min(page*perPage, len(names)); i++ {
			items = append(items, map[string]any{
				"id":   fmt.Sprintf("id-%d", i),
				"name": names[i],
				"slug": strings.ToLower(names[i]),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"page": page, "items": items})
	})
	mux.HandleFunc("GET /api/users/self", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var slugs []string
		for slug := range favorites {
			slugs = append(slugs, slug)
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "favoriteRecipes": slugs})
	})
	mux.HandleFunc("POST /api/users/user-1/favorites/{slug}", func(w http.ResponseWriter, r *http.Request) {
		favorites[r.PathValue("slug")] = true
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, configDir, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd, closeApp := newRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", configDir}, args...))
	err := cmd.ExecuteContext(context.Background())
	require.NoError(t, closeApp())
	return out.String(), err
}

func TestCLIEndToEnd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LADLE_CACHE_DIR", filepath.Join(dir, "cache"))
	t.Setenv("LADLE_LOGGING_FILE", filepath.Join(dir, "ladle.log"))
	t.Setenv("LADLE_PAGING_PAGE_SIZE", "2")

	srv := fakeMealie(t, []string{"Cake", "Porridge", "Soup"})
	configDir := filepath.Join(dir, "config")

	out, err := runCLI(t, configDir, "", "server", "set", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "Server changed")

	out, err = runCLI(t, configDir, "", "server", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "API v1")

	_, err = runCLI(t, configDir, "", "sync")
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = runCLI(t, configDir, "secret\n", "login")
	require.NoError(t, err)

	out, err = runCLI(t, configDir, "", "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "3 recipes cached")

	_, err = runCLI(t, configDir, "", "favorite", "soup")
	require.NoError(t, err)

	out, err = runCLI(t, configDir, "", "list", "--pages", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "cake")
	assert.Contains(t, out, "porridge")
	assert.Regexp(t, `\*\s+soup\s+Soup`, out)

	out, err = runCLI(t, configDir, "", "list", "--query", "ORR")
	require.NoError(t, err)
	assert.Contains(t, out, "Porridge")
	assert.NotContains(t, out, "Cake")

	_, err = runCLI(t, configDir, "", "clear")
	require.NoError(t, err)
}
