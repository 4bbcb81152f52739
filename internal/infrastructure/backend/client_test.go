package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/productstudio/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{BaseURL: serverURL + "/api", APIKey: "test-api-key"}, nil)
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://studio.example.com/api/", APIKey: "k"}, nil)

	assert.Equal(t, "https://studio.example.com/api", client.baseURL)
	assert.Equal(t, "k", client.apiKey)
	assert.Equal(t, DefaultJSONTimeout, client.jsonTimeout)
	assert.Equal(t, DefaultFormTimeout, client.formTimeout)
	assert.Equal(t, DefaultCSVTimeout, client.csvTimeout)
	assert.NotNil(t, client.rateLimiter)
	assert.NotNil(t, client.logger)
}

func TestParseCSV_SendsMultipartForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/parse-csv", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-api-key", r.Header.Get(APIKeyHeader))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Fresh", r.FormValue("category"))
		assert.Equal(t, "https://brand.example.com", r.FormValue("brand_url"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "products.csv", header.Filename)
		assert.Equal(t, "sku,name\nA1,Oat Milk\n", string(content))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"products":[{"sku":"A1","name":"Oat Milk"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	body, err := client.ParseCSV(context.Background(), domain.CSVRequest{
		File:     domain.Upload{Filename: "products.csv", Content: []byte("sku,name\nA1,Oat Milk\n")},
		Category: domain.CategoryFresh,
		BrandURL: " https://brand.example.com ",
	})

	require.NoError(t, err)
	products := DecodeProducts(body)
	require.Len(t, products, 1)
	assert.Equal(t, "A1", products[0].SKU)
}

func TestParseCSV_OmitsEmptyBrandURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, present := r.MultipartForm.Value["brand_url"]
		assert.False(t, present)
		w.Write([]byte(`{"products":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ParseCSV(context.Background(), domain.CSVRequest{
		File:     domain.Upload{Filename: "p.csv", Content: []byte("sku\n1\n")},
		Category: domain.CategoryDrinks,
	})
	require.NoError(t, err)
}

func TestSearchProduct_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search-product", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{
			"query":       "ABC123",
			"category":    "Drinks",
			"search_type": "sku",
		}, body)

		w.Write([]byte(`[{"sku":"ABC123","name":"Cola"}]`))
	}))
	defer server.Close()

	body, err := newTestClient(server.URL).SearchProduct(context.Background(), "ABC123", domain.CategoryDrinks)

	require.NoError(t, err)
	assert.Len(t, DecodeProducts(body), 1)
}

func TestClient_NoAPIKeyHeaderWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header[http.CanonicalHeaderKey(APIKeyHeader)]
		assert.False(t, present)
		w.Write([]byte(`{"products":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/api"}, nil)
	_, err := client.ScrapeURL(context.Background(), "https://shop.example.com/p/1", domain.CategoryFresh)
	require.NoError(t, err)
}

func TestClient_RemoteErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", http.StatusBadRequest, `{"error":"Invalid category"}`, "Invalid category"},
		{"detail field", http.StatusInternalServerError, `{"detail":"Scraper crashed"}`, "Scraper crashed"},
		{"error wins over detail", http.StatusForbidden, `{"detail":"d","error":"e"}`, "e"},
		{"detail list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"bad url"}]}`, "field required; bad url"},
		{"plain text body", http.StatusBadGateway, `upstream down`, "scrape-url failed 502"},
		{"empty body", http.StatusInternalServerError, ``, "scrape-url failed 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).ScrapeURL(context.Background(), "https://x.example.com", domain.CategoryFresh)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrRemote)
			assert.Equal(t, tt.wantMsg, err.Error())

			var derr *domain.Error
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, tt.status, derr.Status)
			assert.Equal(t, EndpointScrapeURL, derr.Endpoint)
		})
	}
}

func TestClient_TimeoutBecomesTimeoutError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{BaseURL: server.URL + "/api", JSONTimeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	_, err := client.SearchProduct(context.Background(), "milk", domain.CategoryDrinks)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.NotErrorIs(t, err, domain.ErrRemote)
	assert.Contains(t, err.Error(), "try again")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestClient_UnreachableBackendIsRemoteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	_, err := newTestClient(serverURL).SearchProduct(context.Background(), "milk", domain.CategoryDrinks)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemote)
}

func TestExport_Targets(t *testing.T) {
	tests := []struct {
		target     domain.ExportTarget
		wantPath   string
		wantFormat string
	}{
		{domain.ExportShopify, "/api/export-shopify", ""},
		{domain.ExportCSV, "/api/export", "csv"},
		{domain.ExportExcel, "/api/export", "excel"},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)

				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				products, ok := body["products"].([]interface{})
				require.True(t, ok)
				assert.Len(t, products, 2)
				if tt.wantFormat == "" {
					_, present := body["format"]
					assert.False(t, present)
				} else {
					assert.Equal(t, tt.wantFormat, body["format"])
				}

				w.Header().Set("Content-Type", "application/octet-stream")
				w.Write([]byte("sku,name\n"))
			}))
			defer server.Close()

			data, err := newTestClient(server.URL).Export(context.Background(), []domain.Product{
				{ID: "a", Name: "A"}, {ID: "b", Name: "B"},
			}, tt.target)

			require.NoError(t, err)
			assert.Equal(t, "sku,name\n", string(data))
		})
	}
}

func TestExport_FailureCarriesRawText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Export(context.Background(), []domain.Product{{ID: "a"}}, domain.ExportCSV)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExport)
	assert.Equal(t, "Export failed: Internal Server Error", err.Error())
}

func TestExport_FailurePrefersJSONDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail":"No products provided"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Export(context.Background(), nil, domain.ExportExcel)

	require.Error(t, err)
	assert.Equal(t, "Export failed: No products provided", err.Error())
}

func TestCategories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/categories", r.URL.Path)
		w.Write([]byte(`{"categories":["Drinks","Fresh"]}`))
	}))
	defer server.Close()

	categories, err := newTestClient(server.URL).Categories(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"Drinks", "Fresh"}, categories)
}

func TestHealth_UsesHostRoot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	require.NoError(t, newTestClient(server.URL).Health(context.Background()))
}
