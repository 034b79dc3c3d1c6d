package history

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCSV_TwoColumnLayout(t *testing.T) {
	path := writeCSV(t, "date,adj_close\n2024-01-02,100.5\n2024-01-03,101.25\n")

	series, err := LoadCSV(path)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, 100.5, series[0].AdjClose)
	assert.Equal(t, 101.25, series[1].AdjClose)
	assert.Equal(t, "2024-01-02", series[0].Date.Format("2006-01-02"))
}

func TestLoadCSV_YahooLayout(t *testing.T) {
	path := writeCSV(t,
		"Date,Open,High,Low,Close,Adj Close,Volume\n"+
			"2024-01-02,99,101,98,100,99.8,123456\n"+
			"2024-01-03,100,103,100,102,101.7,234567\n")

	series, err := LoadCSV(path)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, 99.8, series[0].AdjClose, "adjusted close wins over close")
	assert.Equal(t, 101.7, series[1].AdjClose)
}

func TestLoadCSV_FallsBackToClose(t *testing.T) {
	path := writeCSV(t, "Date,Open,Close\n2024-01-02,99,100\n")

	series, err := LoadCSV(path)
	require.NoError(t, err)

	require.Len(t, series, 1)
	assert.Equal(t, 100.0, series[0].AdjClose)
}

func TestLoadCSV_SkipsNullRows(t *testing.T) {
	path := writeCSV(t,
		"date,adj_close\n"+
			"2024-01-02,100\n"+
			"2024-01-03,null\n"+
			"2024-01-04,\n"+
			"2024-01-05,102\n")

	series, err := LoadCSV(path)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, 100.0, series[0].AdjClose)
	assert.Equal(t, 102.0, series[1].AdjClose)
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"header only", "date,adj_close\n"},
		{"unknown columns", "foo,bar\n1,2\n"},
		{"bad date", "date,adj_close\nnot-a-date,100\n"},
		{"bad price", "date,adj_close\n2024-01-02,abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(writeCSV(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadCSV_MissingFile(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
