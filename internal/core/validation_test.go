package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorError(t *testing.T) {
	t.Run("with location", func(t *testing.T) {
		err := Errorf(KindMissingPrimaryKey, "backforge.yaml:4", "table %q has no primary_key field", "users")
		assert.Equal(t, `MissingPrimaryKey: backforge.yaml:4: table "users" has no primary_key field`, err.Error())
	})

	t.Run("without location", func(t *testing.T) {
		err := Errorf(KindUnconfirmedBreakingChange, "", "1 breaking operation(s)")
		assert.Equal(t, "UnconfirmedBreakingChange: 1 breaking operation(s)", err.Error())
	})
}

func TestErrorIs(t *testing.T) {
	err := Errorf(KindDuplicateTableName, "x.yaml", "dup")
	assert.ErrorIs(t, err, ErrDuplicateTableName)
	assert.NotErrorIs(t, err, ErrMissingPrimaryKey)

	wrapped := fmt.Errorf("resolve: %w", err)
	assert.ErrorIs(t, wrapped, ErrDuplicateTableName)
	assert.False(t, err.Is(errors.New("dup")))
}

func TestErrorList(t *testing.T) {
	list := ErrorList{
		Errorf(KindMissingPrimaryKey, "a.yaml", "no key"),
		Errorf(KindDanglingRelation, "b.yaml", "unknown table"),
		Errorf(KindMissingPrimaryKey, "c.yaml", "no key"),
	}

	assert.ErrorIs(t, list, ErrDanglingRelation)
	assert.NotErrorIs(t, list, ErrInvalidIdentifier)
	assert.Equal(t, []ErrorKind{KindMissingPrimaryKey, KindDanglingRelation, KindMissingPrimaryKey}, list.Kinds())
	assert.Len(t, list.OfKind(KindMissingPrimaryKey), 2)

	msg := list.Error()
	assert.Contains(t, msg, "3 errors:")
	assert.Contains(t, msg, "\n  - DanglingRelation: b.yaml: unknown table")

	var target *Error
	require.ErrorAs(t, list, &target)
	assert.Equal(t, KindMissingPrimaryKey, target.Kind)

	assert.Equal(t, "no errors", ErrorList{}.Error())
	assert.Equal(t, list[0].Error(), list[:1].Error())
}

func TestErrorListErr(t *testing.T) {
	var list ErrorList
	assert.NoError(t, list.Err())
	list = append(list, Errorf(KindInvalidIdentifier, "", "bad"))
	assert.Error(t, list.Err())
}

func TestAsList(t *testing.T) {
	list := ErrorList{Errorf(KindInvalidIdentifier, "", "bad")}
	assert.Equal(t, list, AsList(fmt.Errorf("wrap: %w", list)))

	single := Errorf(KindUnreadableConfig, "x.yaml", "bad yaml")
	assert.Equal(t, ErrorList{single}, AsList(single))

	assert.Nil(t, AsList(errors.New("plain")))
	assert.Nil(t, AsList(nil))
}
