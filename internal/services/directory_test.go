// internal/services/directory_test.go
package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifest = `
services:
  Erp.BO.CustomerSvc:
    GetByID: [custNum]
    Update: [ds]
  Erp.BO.PartSvc:
    GetRows: [whereClausePart, pageSize, absolutePage]
`

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))

	dir, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, 2, dir.Len())

	methods, err := dir.Methods("erp.bo.customersvc")
	require.NoError(t, err)
	assert.Equal(t, []string{"GetByID", "Update"}, methods)

	params, err := dir.Params("Erp.BO.PartSvc", "getrows")
	require.NoError(t, err)
	assert.Equal(t, []string{"whereClausePart", "pageSize", "absolutePage"}, params)
}

func TestDirectory_Unknowns(t *testing.T) {
	dir := NewStaticDirectory(map[string]map[string][]string{"A.B.C": {"M": nil}})

	_, err := dir.Methods("X.Y.Z")
	assert.ErrorIs(t, err, ErrUnknownService)

	_, err = dir.Params("X.Y.Z", "M")
	assert.ErrorIs(t, err, ErrUnknownService)

	_, err = dir.Params("A.B.C", "Nope")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	params, err := dir.Params("A.B.C", "M")
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestLoadManifest_Errors(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: [unclosed"), 0o644))
	_, err = LoadManifest(path)
	assert.Error(t, err)
}
