package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeneRule(t *testing.T) {
	tests := []struct {
		rule string
		want []string
	}{
		{"", nil},
		{"ENSG01", []string{"ENSG01"}},
		{"ENSG01 or ENSG02", []string{"ENSG01", "ENSG02"}},
		{"(ENSG01 and ENSG02) or (ENSG02 and ENSG03)", []string{"ENSG01", "ENSG02", "ENSG03"}},
		{"b0001 AND (b0002 OR b0003)", []string{"b0001", "b0002", "b0003"}},
		{"(G1)or(G2)", []string{"G1", "G2"}},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			got, err := ParseGeneRule(tt.rule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseGeneRule_Unbalanced(t *testing.T) {
	for _, rule := range []string{"(G1 or G2", "G1 or G2)", ")G1("} {
		_, err := ParseGeneRule(rule)
		require.Error(t, err, rule)
		assert.True(t, errors.Is(err, ErrIntegrity))
	}
}
