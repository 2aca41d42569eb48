package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommandVerb(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"INSERT INTO t VALUES (1)", "INSERT"},
		{"  update t set a=1", "UPDATE"},
		{"\n\tdelete from t", "DELETE"},
		{"TRUNCATE t", "TRUNCATE"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, commandVerb(tt.query), "query: %q", tt.query)
	}
}

func TestBuildCommandTag(t *testing.T) {
	assert.Equal(t, "INSERT 0 3", buildCommandTag("INSERT", 3))
	assert.Equal(t, "UPDATE 5", buildCommandTag("UPDATE", 5))
	assert.Equal(t, "DELETE 0", buildCommandTag("DELETE", 0))
	assert.Equal(t, "TRUNCATE 0", buildCommandTag("TRUNCATE", 0))
}
