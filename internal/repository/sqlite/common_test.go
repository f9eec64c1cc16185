package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	apperrors "fretlog/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockResult implements sql.Result for testing
type MockResult struct {
	rowsAffected int64
	rowsErr      error
}

func (mr *MockResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (mr *MockResult) RowsAffected() (int64, error) {
	return mr.rowsAffected, mr.rowsErr
}

func TestHandleDatabaseError(t *testing.T) {
	originalErr := errors.New("database connection failed")
	result := HandleDatabaseError("test operation", originalErr)

	assert.True(t, apperrors.IsErrorType(result, apperrors.ErrorTypeDatabase))
	assert.Contains(t, result.Error(), "test operation")
	assert.Contains(t, result.Error(), "database connection failed")
}

func TestHandleNoRowsError(t *testing.T) {
	tests := []struct {
		name           string
		inputErr       error
		expectNotFound bool
	}{
		{
			name:           "ErrNoRows should return NotFoundError",
			inputErr:       sql.ErrNoRows,
			expectNotFound: true,
		},
		{
			name:           "Other error should return as-is",
			inputErr:       errors.New("some other error"),
			expectNotFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := HandleNoRowsError(tt.inputErr, "artist", "abc123")

			if tt.expectNotFound {
				assert.True(t, apperrors.IsErrorType(result, apperrors.ErrorTypeNotFound))
				assert.Contains(t, result.Error(), "artist")
				assert.Contains(t, result.Error(), "abc123")
			} else {
				assert.Equal(t, tt.inputErr, result)
			}
		})
	}
}

func TestValidateRowsAffected(t *testing.T) {
	tests := []struct {
		name           string
		result         sql.Result
		expectError    bool
		expectNotFound bool
	}{
		{
			name:   "Successful update",
			result: &MockResult{rowsAffected: 1},
		},
		{
			name:           "No rows affected",
			result:         &MockResult{},
			expectError:    true,
			expectNotFound: true,
		},
		{
			name:        "Error getting rows affected",
			result:      &MockResult{rowsErr: errors.New("database error")},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateRowsAffected(tt.result, "category", "c1")

			if !tt.expectError {
				assert.NoError(t, result)
				return
			}
			assert.Error(t, result)
			if tt.expectNotFound {
				assert.True(t, apperrors.IsErrorType(result, apperrors.ErrorTypeNotFound))
			} else {
				assert.Contains(t, result.Error(), "database error")
			}
		})
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", MemoryPath)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("CREATE TABLE things (id TEXT PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)
	return db
}

func scanThing(s Scanner) (*[2]string, error) {
	var v [2]string
	if err := s.Scan(&v[0], &v[1]); err != nil {
		return nil, err
	}
	return &v, nil
}

func TestQueryHelpers(t *testing.T) {
	ctx := context.Background()

	t.Run("should return rows in order and an empty slice when nothing matches", func(t *testing.T) {
		// Arrange
		db := openTestDB(t)
		require.NoError(t, Execute(ctx, db, "insert", "INSERT INTO things VALUES ('a', 'one'), ('b', 'two')"))

		// Act
		all, err := QueryMultiple(ctx, db, "SELECT id, name FROM things ORDER BY id", scanThing, "things")
		require.NoError(t, err)
		none, err := QueryMultiple(ctx, db, "SELECT id, name FROM things WHERE id = 'z'", scanThing, "things")
		require.NoError(t, err)

		// Assert
		assert.Equal(t, [][2]string{{"a", "one"}, {"b", "two"}}, all)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("should map a missing single row to not found", func(t *testing.T) {
		// Arrange
		db := openTestDB(t)

		// Act
		_, err := QuerySingle(ctx, db, "SELECT id, name FROM things WHERE id = ?", scanThing, "thing", "x", "x")

		// Assert
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("should report not found when an update touches no rows", func(t *testing.T) {
		// Arrange
		db := openTestDB(t)

		// Act
		err := ExecuteWithRowsAffected(ctx, db, "UPDATE things SET name = ? WHERE id = ?", "thing", "x", "new", "x")

		// Assert
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("should wrap statement failures as database errors", func(t *testing.T) {
		// Arrange
		db := openTestDB(t)

		// Act
		err := Execute(ctx, db, "broken", "INSERT INTO missing_table VALUES (1)")

		// Assert
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeDatabase))
	})
}
