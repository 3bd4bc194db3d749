package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryValidator_Accepts(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	tests := []struct {
		name string
		sql  string
	}{
		{"simple select", "SELECT * FROM users"},
		{"select with where", "SELECT id, name FROM users WHERE id = 1"},
		{"cte", "WITH cte AS (SELECT id FROM users) SELECT * FROM cte"},
		{"lowercase", "select id from users"},
		{"surrounding whitespace", "  \n\tSELECT 1  \n"},
		{"trailing semicolon", "SELECT 1;"},
		{"trailing semicolon then whitespace", "SELECT 1;  \n"},
		{"keyword as part of identifier", "SELECT created_at, updated_by FROM audit_drop_log"},
		{"keyword followed by digit", "SELECT drop1 FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := v.Validate(tt.sql)
			assert.True(t, out.Accepted, "reasons: %v", out.Reasons)
			assert.Empty(t, out.Reasons)
			assert.NoError(t, out.Err())
		})
	}
}

func TestQueryValidator_BlockedKeywords(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	tests := []struct {
		sql     string
		keyword string
	}{
		{"DROP TABLE users", "DROP"},
		{"DELETE FROM users", "DELETE"},
		{"UPDATE users SET name = 'x'", "UPDATE"},
		{"INSERT INTO users VALUES (1)", "INSERT"},
		{"ALTER TABLE users ADD COLUMN x INT", "ALTER"},
		{"TRUNCATE users", "TRUNCATE"},
		{"CREATE TABLE t (id INT)", "CREATE"},
		{"GRANT ALL ON users TO bob", "GRANT"},
		{"REVOKE ALL ON users FROM bob", "REVOKE"},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			t.Parallel()
			out := v.Validate(tt.sql)
			require.False(t, out.Accepted)
			assert.Contains(t, out.Reasons, ReasonNotSelect)
			assert.Contains(t, out.Reasons, BlockedKeywordsReason(tt.keyword))
		})
	}
}

func TestQueryValidator_EmptyShortCircuits(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	for _, sql := range []string{"", "   ", "\n\t"} {
		out := v.Validate(sql)
		assert.False(t, out.Accepted)
		assert.Equal(t, []string{ReasonEmptyQuery}, out.Reasons)
	}
}

func TestQueryValidator_MultipleStatements(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	out := v.Validate("SELECT 1; DROP TABLE x")
	require.False(t, out.Accepted)
	assert.Equal(t, []string{
		"Blocked keywords found: DROP",
		ReasonMultiStatement,
	}, out.Reasons)

	out = v.Validate("SELECT 1; SELECT 2")
	assert.Equal(t, []string{ReasonMultiStatement}, out.Reasons)

	// Only one trailing terminator is tolerated.
	out = v.Validate("SELECT 1;;")
	assert.Equal(t, []string{ReasonMultiStatement}, out.Reasons)
}

func TestQueryValidator_AccumulatesAllReasons(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	out := v.Validate("delete from users; insert into users values (1); drop table users")
	require.False(t, out.Accepted)
	assert.Equal(t, []string{
		ReasonNotSelect,
		"Blocked keywords found: DELETE, DROP, INSERT",
		ReasonMultiStatement,
	}, out.Reasons)
}

func TestQueryValidator_KeywordInsideLiteral(t *testing.T) {
	t.Parallel()
	v := NewQueryValidator()

	out := v.Validate("SELECT * FROM notes WHERE body = 'please drop me'")
	assert.False(t, out.Accepted)
	assert.Equal(t, []string{"Blocked keywords found: DROP"}, out.Reasons)
}

func TestValidationOutcome_Err(t *testing.T) {
	t.Parallel()
	out := NewQueryValidator().Validate("DROP TABLE users")

	err := out.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRejected))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, out.Reasons, verr.Reasons)
	assert.Equal(t, out.Reasons, Messages(err))
}
