package s0_data

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/worldmodel/internal/contracts"
	"github.com/wonny/worldmodel/pkg/logger"
)

func TestReadPricesCSV(t *testing.T) {
	input := `Date,Ticker,Close
2024-01-02,^GSPC,4742.83
2024-01-02,GC=F,
2024-01-03, SPX ,4704.81
`
	obs, err := ReadPricesCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, obs, 3)

	assert.Equal(t, contracts.AssetSPX, obs[0].Asset)
	assert.Equal(t, day("2024-01-02"), obs[0].Date)
	assert.InDelta(t, 4742.83, *obs[0].ClosePrice, 1e-9)

	assert.Equal(t, contracts.AssetGold, obs[1].Asset)
	assert.Nil(t, obs[1].ClosePrice)

	assert.Equal(t, contracts.AssetSPX, obs[2].Asset)

	// 정렬기 입력으로 바로 사용 가능
	series, err := NewAligner(logger.Nop()).Align(obs)
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestReadPricesCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty file", "", contracts.ErrInputMissing},
		{"header only", "date,asset,close\n", contracts.ErrInputMissing},
		{"missing column", "date,asset\n2024-01-02,SPX\n", contracts.ErrSchemaInconsistency},
		{"bad date", "date,asset,close\n01/02/2024,SPX,1\n", contracts.ErrSchemaInconsistency},
		{"bad close", "date,asset,close\n2024-01-02,SPX,abc\n", contracts.ErrSchemaInconsistency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPricesCSV(strings.NewReader(tt.input))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
