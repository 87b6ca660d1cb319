package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	recallmem "github.com/recallmem/recallmem-go/pkg/core"
)

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		maxKeywords int
		want        []string
	}{
		{
			name:        "frequency ordering",
			text:        "cache cache cache server server protocol",
			maxKeywords: 10,
			want:        []string{"cache", "server", "protocol"},
		},
		{
			name:        "stopwords and short tokens discarded",
			text:        "the server is in a rack",
			maxKeywords: 10,
			want:        []string{"server", "rack"},
		},
		{
			name:        "ties broken by first-encountered order",
			text:        "alpha beta gamma",
			maxKeywords: 10,
			want:        []string{"alpha", "beta", "gamma"},
		},
		{
			name:        "truncated to max keywords",
			text:        "one one one two two three",
			maxKeywords: 2,
			want:        []string{"one", "two"},
		},
		{
			name:        "lowercased before counting",
			text:        "Server SERVER server",
			maxKeywords: 10,
			want:        []string{"server"},
		},
		{
			name:        "cjk tokens kept",
			text:        "部署 服务器 部署",
			maxKeywords: 10,
			want:        []string{"部署", "服务器"},
		},
		{
			name:        "empty text",
			text:        "",
			maxKeywords: 10,
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recallmem.ExtractKeywords(tt.text, tt.maxKeywords)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractKeywordsZeroMax(t *testing.T) {
	assert.Nil(t, recallmem.ExtractKeywords("server rack", 0))
}
