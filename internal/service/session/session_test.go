package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/calftracker/internal/domain/models"
)

type operatorMap map[int64]models.Operator

func (m operatorMap) Operator(id int64) (models.Operator, bool) {
	op, ok := m[id]
	return op, ok
}

func newOperators() operatorMap {
	return operatorMap{
		1: {ID: 1, Name: "Ana", Role: models.RoleAdmin, PIN: "1234"},
		2: {ID: 2, Name: "Ben", Role: models.RoleUser},
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name       string
		operatorID int64
		pin        string
		wantErr    error
	}{
		{name: "operator without pin", operatorID: 2},
		{name: "operator with matching pin", operatorID: 1, pin: "1234"},
		{name: "wrong pin", operatorID: 1, pin: "0000", wantErr: ErrInvalidPIN},
		{name: "missing pin", operatorID: 1, wantErr: ErrInvalidPIN},
		{name: "unknown operator", operatorID: 9, wantErr: ErrUnknownOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(newOperators(), time.Hour, nil)

			token, op, err := m.Select("", tt.operatorID, tt.pin)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.Equal(t, tt.operatorID, op.ID)
			assert.Empty(t, op.PIN, "pin is never returned")

			current, ok := m.Current(token)
			require.True(t, ok)
			assert.Equal(t, tt.operatorID, current.ID)
		})
	}
}

func TestSelectSameDeviceLastWriteWins(t *testing.T) {
	m := NewManager(newOperators(), time.Hour, nil)

	token, _, err := m.Select("", 2, "")
	require.NoError(t, err)

	again, _, err := m.Select(token, 1, "1234")
	require.NoError(t, err)
	assert.Equal(t, token, again)

	current, ok := m.Current(token)
	require.True(t, ok)
	assert.Equal(t, "Ana", current.Name)
}

func TestSelectWithStaleTokenIssuesNewOne(t *testing.T) {
	m := NewManager(newOperators(), time.Hour, nil)

	token, _, err := m.Select("expired-token", 2, "")
	require.NoError(t, err)
	assert.NotEqual(t, "expired-token", token)
}

func TestClear(t *testing.T) {
	m := NewManager(newOperators(), time.Hour, nil)
	token, _, err := m.Select("", 2, "")
	require.NoError(t, err)

	m.Clear(token)

	_, ok := m.Current(token)
	assert.False(t, ok)
}

func TestCurrentDropsDeletedOperator(t *testing.T) {
	ops := newOperators()
	m := NewManager(ops, time.Hour, nil)
	token, _, err := m.Select("", 2, "")
	require.NoError(t, err)

	delete(ops, 2)

	_, ok := m.Current(token)
	assert.False(t, ok)
	_, ok = m.Current("")
	assert.False(t, ok)
}
