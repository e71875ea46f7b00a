package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letrinh/letrinh-backend/pkg/db/dbtest"
)

func TestFindProduct(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.MustProduct(t, conn, "P1", 25000)
	repo := NewRepository(conn)

	product, err := repo.FindProduct(context.Background(), "P1")
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "25000", product.Price.String())

	missing, err := repo.FindProduct(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindVariantOptions(t *testing.T) {
	conn := dbtest.Open(t)
	dbtest.MustVariantOption(t, conn, "size-l", "L", 5000)
	dbtest.MustVariantOption(t, conn, "top-1", "Trân châu", 3000)
	repo := NewRepository(conn)

	options, err := repo.FindVariantOptions(context.Background(), []string{"size-l", "top-1", "ghost"})
	require.NoError(t, err)
	assert.Len(t, options, 2)
	assert.Equal(t, "Trân châu", options["top-1"].Label)

	single, err := repo.FindVariantOption(context.Background(), "size-l")
	require.NoError(t, err)
	require.NotNil(t, single)
	assert.Equal(t, "5000", single.PriceChange.String())

	none, err := repo.FindVariantOptions(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestWithTxNilKeepsRepository(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	assert.Same(t, repo, repo.WithTx(nil))
}
