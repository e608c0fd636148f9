package ai

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabels(t *testing.T) {
	tests := []struct {
		name string
		data string
		want map[int]string
	}{
		{"list", "- person\n- car\n", map[int]string{0: "person", 1: "car"}},
		{"map", "0: person\n2: truck\n", map[int]string{0: "person", 2: "truck"}},
		{"names map", "path: data\nnames:\n  0: person\n  1: car\n", map[int]string{0: "person", 1: "car"}},
		{"names list", "names: [person, car]\n", map[int]string{0: "person", 1: "car"}},
		{"empty", "", map[int]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLabels([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLabels_Invalid(t *testing.T) {
	_, err := ParseLabels([]byte("person: 0\n"))
	assert.Error(t, err)

	_, err = ParseLabels([]byte("just a string"))
	assert.Error(t, err)
}

func TestLoadLabels_MissingFileIsEmpty(t *testing.T) {
	labels, err := LoadLabels(filepath.Join(t.TempDir(), "labels.yaml"))
	require.NoError(t, err)
	assert.Empty(t, labels)

	labels, err = LoadLabels("")
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestLoadLabels_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names:\n  0: cat\n"), 0644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{0: "cat"}, labels)
}

func TestStringKeyedLabels(t *testing.T) {
	got := StringKeyedLabels(map[string]string{"0": "person", "x": "skip", "3": "dog"})
	assert.Equal(t, map[int]string{0: "person", 3: "dog"}, got)
}

func TestClassName(t *testing.T) {
	labels := map[int]string{0: "person", 1: ""}
	assert.Equal(t, "person", ClassName(labels, 0))
	assert.Equal(t, "1", ClassName(labels, 1))
	assert.Equal(t, "7", ClassName(nil, 7))
}
