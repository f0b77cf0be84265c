package entropy

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(7)
	b := New(7)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Int63(), b.Int63())
	}
}

func TestDeriveStreamsDiffer(t *testing.T) {
	assert.NotEqual(t, Derive(7, 1).Int63(), Derive(7, 2).Int63())
	assert.Equal(t, Derive(7, 1).Int63(), Derive(7, 1).Int63())
}

func TestResolveSeed(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, int64(99), ResolveSeed(ctx, 99, nil))
	assert.Positive(t, ResolveSeed(ctx, 0, nil))
}

func TestNilClientDisabled(t *testing.T) {
	assert.Nil(t, NewClient(""))
	var c *Client
	assert.False(t, c.Enabled())
	assert.Positive(t, c.Seed(context.Background()))
}

func TestClientSeedFromPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"random":{"data":[11,22,33]}}}`)
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL

	ctx := context.Background()
	assert.Equal(t, int64(11), c.Seed(ctx))
	assert.Equal(t, int64(22), c.Seed(ctx))
	assert.Equal(t, int64(33), c.Seed(ctx))
}

func TestClientFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"message":"quota"}}`)
	}))
	defer srv.Close()

	c := NewClient("key")
	c.endpoint = srv.URL
	assert.Positive(t, c.Seed(context.Background()))
}
