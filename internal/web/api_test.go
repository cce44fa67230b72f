// ABOUTME: Tests for the JSON API endpoints
// ABOUTME: Token exchange, profile, and product list/create under bearer auth

package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiToken(t *testing.T, ts *httptest.Server, email, password string) string {
	t.Helper()
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/api/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	require.Greater(t, out.ExpiresIn, 0)
	return out.Token
}

func apiGet(t *testing.T, ts *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func apiPost(t *testing.T, ts *httptest.Server, path, token string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAPITokenRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	c := newBrowser(t)
	signUp(t, c, ts, "amina@example.com")

	body, err := json.Marshal(map[string]string{"email": "amina@example.com", "password": "wrong"})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/api/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIRequiresBearer(t *testing.T) {
	ts := newTestServer(t)

	resp := apiGet(t, ts, "/api/me", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = apiGet(t, ts, "/api/me", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIMeTracksOnboarding(t *testing.T) {
	ts := newTestServer(t)
	c := newBrowser(t)
	signUp(t, c, ts, "amina@example.com")
	token := apiToken(t, ts, "amina@example.com", "hunter2hunter2")

	var me map[string]any

	resp := apiGet(t, ts, "/api/me", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, "amina@example.com", me["email"])
	assert.Equal(t, false, me["has_store"])
	assert.Equal(t, false, me["has_product"])

	setUpStore(t, c, ts)
	addProduct(t, c, ts, "Basket")

	resp = apiGet(t, ts, "/api/me", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	assert.Equal(t, true, me["has_store"])
	assert.Equal(t, true, me["has_product"])

	storeObj, ok := me["store"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Kampala Crafts", storeObj["name"])
}

func TestAPIProductCreateAndList(t *testing.T) {
	ts := newTestServer(t)
	c := newBrowser(t)
	signUp(t, c, ts, "amina@example.com")
	token := apiToken(t, ts, "amina@example.com", "hunter2hunter2")

	// No store yet: creation conflicts, listing is empty
	resp := apiPost(t, ts, "/api/products", token, map[string]string{"name": "Basket", "price": "25000"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = apiGet(t, ts, "/api/products", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Products []apiProduct `json:"products"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	assert.Empty(t, listing.Products)

	setUpStore(t, c, ts)

	resp = apiPost(t, ts, "/api/products", token, map[string]string{
		"name":        "Basket",
		"price":       "25,000",
		"description": "Hand-woven",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created apiProduct
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "Basket", created.Name)
	assert.Equal(t, int64(2500000), created.PriceCents)
	assert.Equal(t, "25,000", created.Price)

	resp = apiPost(t, ts, "/api/products", token, map[string]string{"name": "", "price": "100"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = apiPost(t, ts, "/api/products", token, map[string]string{"name": "Mat", "price": "not-a-price"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = apiGet(t, ts, "/api/products", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listing))
	require.Len(t, listing.Products, 1)
	assert.Equal(t, "Basket", listing.Products[0].Name)
}
