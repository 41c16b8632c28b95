package vault

import (
	"context"
	"errors"
	"testing"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	mount string
	calls *int
	data  map[string]map[string]any
}

func (f fakeKV) Get(_ context.Context, p string) (*vault.KVSecret, error) {
	*f.calls++
	d, ok := f.data[f.mount+"/"+p]
	if !ok {
		return nil, errors.New("404")
	}
	return &vault.KVSecret{Data: d}, nil
}

func newFake(calls *int) *Client {
	data := map[string]map[string]any{
		"secret/cookworld": {"csrf_key": "s3cret", "port": 42},
	}
	return NewWithKV(func(mount string) KV { return fakeKV{mount: mount, calls: calls, data: data} })
}

func TestGetKV_CachesWithinTTL(t *testing.T) {
	var calls int
	c := newFake(&calls)

	for i := 0; i < 3; i++ {
		v, err := c.GetKV(context.Background(), "secret/cookworld", "csrf_key", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)
	}
	assert.Equal(t, 1, calls)
}

func TestGetKV_NoCacheWhenTTLZero(t *testing.T) {
	var calls int
	c := newFake(&calls)

	_, _ = c.GetKV(context.Background(), "secret/cookworld", "csrf_key", 0)
	_, _ = c.GetKV(context.Background(), "secret/cookworld", "csrf_key", 0)
	assert.Equal(t, 2, calls)
}

func TestGetKV_Errors(t *testing.T) {
	var calls int
	c := newFake(&calls)
	ctx := context.Background()

	_, err := c.GetKV(ctx, "", "k", 0)
	assert.Error(t, err)

	_, err = c.GetKV(ctx, "secret/missing", "k", 0)
	assert.ErrorContains(t, err, "vault get secret/missing")

	_, err = c.GetKV(ctx, "secret/cookworld", "nope", 0)
	assert.ErrorContains(t, err, `key "nope" not found`)

	_, err = c.GetKV(ctx, "secret/cookworld", "port", 0)
	assert.ErrorContains(t, err, "is not a string")
}

func TestSplitMount(t *testing.T) {
	m, r := splitMount("kv/apps/cookworld")
	assert.Equal(t, "kv", m)
	assert.Equal(t, "apps/cookworld", r)
}
