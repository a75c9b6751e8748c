package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/layerlint/internal/jsonc"
)

const nestedDoc = "{\n  \"a\": {\"b\": [1, 2]}\n}"

func TestRunInspect_JSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runInspect(&out, `{"a": 1}`, jsonc.Options{}, true))

	var records []record
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))

	var got *record
	for i := range records {
		if records[i].Path == "root.a" && records[i].Kind == "Property" {
			got = &records[i]
		}
	}
	require.NotNil(t, got, "property record for root.a")
	want := record{Kind: "Property", Path: "root.a", Name: "a", Value: "1", ValueType: "Number", Start: 1, End: 6, Line: 1, Column: 2}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRunInspect_Text(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runInspect(&out, nestedDoc, jsonc.Options{}, false))

	text := out.String()
	assert.Contains(t, text, "LINE:COL")
	assert.Contains(t, text, "root.a.b[1]")
	assert.Contains(t, text, "ArrayValue")
	assert.Contains(t, text, "Number")
}

func TestRunInspect_ScanError(t *testing.T) {
	var out bytes.Buffer
	err := runInspect(&out, `{"a": "unterminated`, jsonc.Options{}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan stopped")
	assert.ErrorIs(t, err, jsonc.ErrUnterminatedString)
	assert.Contains(t, out.String(), "Object", "records before the failure are printed")
}

func TestRunFind(t *testing.T) {
	t.Run("array value", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runFind(&out, nestedDoc, "root.a.b[1]", jsonc.Options{}))
		assert.Equal(t, "root.a.b[1] ArrayValue at 2:18 (bytes 19-19)\n2\n", out.String())
	})

	t.Run("container", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runFind(&out, nestedDoc, "root.a.b", jsonc.Options{}))
		assert.Contains(t, out.String(), "[1, 2]")
	})

	t.Run("custom divider", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runFind(&out, nestedDoc, "doc/a/b[0]", jsonc.Options{RootName: "doc", PathDivider: "/"}))
		assert.Contains(t, out.String(), "doc/a/b[0] ArrayValue")
	})

	t.Run("missing path", func(t *testing.T) {
		var out bytes.Buffer
		err := runFind(&out, nestedDoc, "root.zzz", jsonc.Options{})
		assert.ErrorIs(t, err, errPathNotFound)
		assert.Empty(t, out.String())
	})
}

func TestInspectAndFindCmds(t *testing.T) {
	file := filepath.Join(t.TempDir(), "doc.jsonc")
	require.NoError(t, os.WriteFile(file, []byte(nestedDoc), 0o644))
	cfgFile := createTempConfig(t, "project:\n  root_name: layer\n")

	out, err := executeCommand(t, "--config", cfgFile, "find", file, "layer.a.b[0]")
	require.NoError(t, err)
	assert.Contains(t, out, "layer.a.b[0] ArrayValue at 2:15")

	out, err = executeCommand(t, "--config", cfgFile, "inspect", "--omit-values", file)
	require.NoError(t, err)
	assert.Contains(t, out, "layer.a.b[1]")

	_, err = executeCommand(t, "--config", cfgFile, "inspect", filepath.Join(t.TempDir(), "missing.jsonc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
