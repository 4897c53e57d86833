package gojabind_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quarrydb/gojabind"
)

func TestArrayView(t *testing.T) {
	ctx := testContext(t)

	arr, err := gojabind.NewArray(mustEval(t, ctx, `["a", "b", "c"]`))
	require.NoError(t, err)

	t.Run("Len", func(t *testing.T) {
		n, err := arr.Len()
		require.NoError(t, err)
		require.Equal(t, int64(3), n)
	})

	t.Run("Get", func(t *testing.T) {
		elem, err := arr.Get(1)
		require.NoError(t, err)
		require.Equal(t, "b", elem.String())
	})

	t.Run("GetNegative", func(t *testing.T) {
		_, err := arr.Get(-1)
		var rangeErr *gojabind.OutOfRangeError
		require.ErrorAs(t, err, &rangeErr)
		require.EqualError(t, err, "Index -1 cannot be less than zero.")
	})

	t.Run("GetBeyondLength", func(t *testing.T) {
		_, err := arr.Get(5)
		var rangeErr *gojabind.OutOfRangeError
		require.ErrorAs(t, err, &rangeErr)
	})

	t.Run("Set", func(t *testing.T) {
		require.NoError(t, arr.Set(0, ctx.String("z")))
		elem, err := arr.Get(0)
		require.NoError(t, err)
		require.Equal(t, "z", elem.String())
	})

	t.Run("SetOutOfBounds", func(t *testing.T) {
		err := arr.Set(10, ctx.String("nope"))
		var rangeErr *gojabind.OutOfRangeError
		require.ErrorAs(t, err, &rangeErr)
	})

	t.Run("Has", func(t *testing.T) {
		require.True(t, arr.Has(0))
		require.False(t, arr.Has(9))
		require.False(t, arr.Has(-1))
	})

	t.Run("PushPop", func(t *testing.T) {
		n, err := arr.Push(ctx.String("d"), ctx.String("e"))
		require.NoError(t, err)
		require.Equal(t, int64(5), n)

		last, err := arr.Pop()
		require.NoError(t, err)
		require.Equal(t, "e", last.String())

		n, err = arr.Len()
		require.NoError(t, err)
		require.Equal(t, int64(4), n)
	})

	t.Run("Delete", func(t *testing.T) {
		before, err := arr.Len()
		require.NoError(t, err)
		require.NoError(t, arr.Delete(0))
		after, err := arr.Len()
		require.NoError(t, err)
		require.Equal(t, before-1, after)
	})
}

func TestNewArrayRejectsNonArrays(t *testing.T) {
	ctx := testContext(t)

	for _, code := range []string{`({})`, `"abc"`, `5`, `null`} {
		_, err := gojabind.NewArray(mustEval(t, ctx, code))
		require.EqualError(t, err, "Value is not an array.", "code %s", code)
	}
}

func TestContextArrayFactory(t *testing.T) {
	ctx := testContext(t)

	val := ctx.Array(ctx.Int64(1), ctx.String("two"), ctx.Bool(true))
	require.True(t, val.IsArray())

	arr, err := gojabind.NewArray(val)
	require.NoError(t, err)
	n, err := arr.Len()
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}
