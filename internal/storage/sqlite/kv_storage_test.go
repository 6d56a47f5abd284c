package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/cart"
	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/sqlite"
)

func openTemp(t *testing.T, namespace string) *sqlite.KeyValueStorage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "storefront.db")
	kv, err := sqlite.Open(path, namespace)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}

func TestKeyValueStorage_GetSetDelete(t *testing.T) {
	kv := openTemp(t, "")

	_, err := kv.Get(domain.StorageKeyCart)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, kv.Set(domain.StorageKeyCart, `[]`))
	require.NoError(t, kv.Set(domain.StorageKeyCart, `[{"id":"a"}]`))
	got, err := kv.Get(domain.StorageKeyCart)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, got)

	require.NoError(t, kv.Delete(domain.StorageKeyCart))
	require.NoError(t, kv.Delete(domain.StorageKeyCart))
	_, err = kv.Get(domain.StorageKeyCart)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestKeyValueStorage_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.db")

	first, err := sqlite.Open(path, "shopper")
	require.NoError(t, err)
	store := cart.NewStore(first)
	require.NoError(t, store.Initialize())
	require.NoError(t, store.AddItem("sku1", "Tee", decimal.RequireFromString("29.9"), ""))
	require.NoError(t, store.AddItem("sku1", "Tee", decimal.RequireFromString("29.9"), ""))
	require.NoError(t, first.Close())

	second, err := sqlite.Open(path, "shopper")
	require.NoError(t, err)
	defer second.Close()

	reloaded := cart.NewStore(second)
	require.NoError(t, reloaded.Initialize())
	assert.Equal(t, 2, reloaded.Count())
	assert.True(t, decimal.RequireFromString("59.8").Equal(reloaded.Total()))
}

func TestKeyValueStorage_NamespacesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.db")

	alice, err := sqlite.Open(path, "alice")
	require.NoError(t, err)
	require.NoError(t, alice.Set(domain.StorageKeyWelcome, "true"))
	require.NoError(t, alice.Close())

	bob, err := sqlite.Open(path, "bob")
	require.NoError(t, err)
	defer bob.Close()
	_, err = bob.Get(domain.StorageKeyWelcome)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
