package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		origins []string
		want    []string
	}{
		{name: "hosts only", origins: []string{"http://localhost:5173", "https://app.example.com"}, want: []string{"localhost:5173", "app.example.com"}},
		{name: "wildcard wins", origins: []string{"https://app.example.com", "*"}, want: []string{"*"}},
		{name: "skips bare words", origins: []string{"nonsense"}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, originPatterns(tt.origins))
		})
	}
}
