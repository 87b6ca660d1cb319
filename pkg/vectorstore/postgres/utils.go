package postgres

import (
	"strconv"
	"strings"
)

// vectorToString converts a vector to pgvector's text format: "[0.1,0.2,...]".
func vectorToString(vector []float64) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
