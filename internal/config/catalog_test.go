package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCatalogLookups(t *testing.T) {
	catalog := DefaultCatalog()
	assert.True(t, catalog.HasBeneficiaryType("familia"))
	assert.True(t, catalog.HasBeneficiaryType(" Familia "))
	assert.False(t, catalog.HasBeneficiaryType("empresa"))
	assert.True(t, catalog.HasUnit("KG"))
	assert.False(t, catalog.HasUnit("tonelada"))
	assert.True(t, Catalog{}.HasUnit("anything"))
}

func TestNewCatalogHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("catalog:\n  units: [kg, caixa]\n  beneficiaryTypes: [familia, escola]\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "catalog.yml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewCatalogHolder(zap.NewNop())
	require.NoError(t, err)

	catalog := holder.Get()
	assert.Equal(t, []string{"kg", "caixa"}, catalog.Units)
	assert.True(t, catalog.HasBeneficiaryType("escola"))
	assert.False(t, catalog.HasBeneficiaryType("individuo"))
}

func TestValidateCatalog(t *testing.T) {
	assert.Error(t, validateCatalog(Catalog{}))
	assert.Error(t, validateCatalog(Catalog{BeneficiaryTypes: []string{" "}}))
	assert.NoError(t, validateCatalog(DefaultCatalog()))
}
