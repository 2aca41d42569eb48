package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		sql  string
		want StatementKind
	}{
		{"select 1", KindRowReturning},
		{"  SELECT * FROM t", KindRowReturning},
		{"\n\tselect now()", KindRowReturning},
		{"WITH x AS (SELECT 1) SELECT * FROM x", KindRowReturning},
		{"with recursive r as (select 1) select * from r", KindRowReturning},
		{"UPDATE t SET a=1", KindCommand},
		{"DELETE FROM t", KindCommand},
		{"INSERT INTO t VALUES (1)", KindCommand},
		{"TRUNCATE t", KindCommand},
		{"CREATE TABLE t (a int)", KindCommand},
		// WITH without any SELECT is a command per the naive test.
		{"WITH d AS (DELETE FROM t RETURNING *) INSERT INTO archive TABLE d", KindCommand},
		{"", KindCommand},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.sql), "sql: %q", tt.sql)
	}
}

func TestClassifyIsPure(t *testing.T) {
	sql := "WITH x AS (SELECT 1) SELECT * FROM x"
	first := Classify(sql)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Classify(sql))
	}
}

func TestParseCommandTag(t *testing.T) {
	tests := []struct {
		tag  string
		want int64
	}{
		{"INSERT 0 3", 3},
		{"UPDATE 5", 5},
		{"DELETE 0", 0},
		{"INSERT 16384 1", 1},
		{"OK", 0},
		{"", 0},
		{"UPDATE", 0},
		{"UPDATE five", 0},
		{"SELECT 10", 10},
		{"   DELETE    7   ", 7},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCommandTag(tt.tag), "tag: %q", tt.tag)
	}
}

func TestParseCommandTagIsPure(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t, int64(3), ParseCommandTag("INSERT 0 3"))
	}
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("SELECT 1")
	b := Fingerprint("SELECT 1")
	c := Fingerprint("SELECT 2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

func TestStatementKindString(t *testing.T) {
	assert.Equal(t, "query", KindRowReturning.String())
	assert.Equal(t, "command", KindCommand.String())
}
