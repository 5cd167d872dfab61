package utils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skill-wager-system/models"
)

func TestMetadataKey(t *testing.T) {
	key := MetadataKey("User 42", "first_win", "0F3A")
	assert.Equal(t, "achievements/user-42/first_win-0f3a.json", key)
}

func TestRankTitle(t *testing.T) {
	assert.Equal(t, "Grandmaster", RankTitle(models.RankGrandmaster))
	assert.Equal(t, "Bronze", RankTitle(models.RankBronze))
	assert.Equal(t, "Unranked", RankTitle(models.Rank(99)))
}

func TestRankTitleConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := models.RankBronze; r <= models.RankGrandmaster; r++ {
				assert.NotEmpty(t, RankTitle(r))
			}
		}()
	}
	wg.Wait()
}

func TestPutJSON(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(b)
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewMetadataStore(context.Background(), StoreConfig{
		Endpoint:        srv.URL,
		Bucket:          "meta",
		AccessKeyID:     "key",
		AccessKeySecret: "secret",
		PublicBaseURL:   "https://cdn.example",
	})
	require.NoError(t, err)

	url, err := store.PutJSON(context.Background(), "achievements/a/b.json", []byte(`{"kind":"first_win"}`))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/achievements/a/b.json", url)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/meta/achievements/a/b.json", path)
	assert.True(t, strings.Contains(body, `"kind":"first_win"`))
}

func TestNewMetadataStoreRequiresBucket(t *testing.T) {
	_, err := NewMetadataStore(context.Background(), StoreConfig{Endpoint: "http://x"})
	require.Error(t, err)
}
