package gojabind_test

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quarrydb/gojabind"
)

// indexedClass builds an array-like class over a native float slice.
func indexedClass(t *testing.T) *gojabind.Class {
	t.Helper()
	payloadOf := func(ctx *gojabind.Context, this gojabind.Value) (*[]float64, error) {
		payload, err := ctx.InstancePayload(this)
		if err != nil {
			return nil, err
		}
		return payload.(*[]float64), nil
	}

	cls, err := gojabind.NewClassBuilder("FloatList").
		Constructor(func(ctx *gojabind.Context, instance gojabind.Value, args []gojabind.Value) (interface{}, error) {
			items := make([]float64, 0, len(args))
			for _, arg := range args {
				n, err := arg.ToNumber()
				if err != nil {
					return nil, err
				}
				items = append(items, n)
			}
			return &items, nil
		}).
		IndexedGetter(func(ctx *gojabind.Context, this gojabind.Value, index int64) (gojabind.Value, error) {
			items, err := payloadOf(ctx, this)
			if err != nil {
				return gojabind.Value{}, err
			}
			if index >= int64(len(*items)) {
				return gojabind.Value{}, &gojabind.OutOfRangeError{
					Message: fmt.Sprintf("Index %d is out of range (length %d).", index, len(*items)),
				}
			}
			return ctx.Float64((*items)[index]), nil
		}).
		IndexedSetter(func(ctx *gojabind.Context, this gojabind.Value, index int64, value gojabind.Value) error {
			items, err := payloadOf(ctx, this)
			if err != nil {
				return err
			}
			n, err := value.ToNumber()
			if err != nil {
				return err
			}
			if index >= int64(len(*items)) {
				return &gojabind.OutOfRangeError{
					Message: fmt.Sprintf("Index %d is out of range (length %d).", index, len(*items)),
				}
			}
			(*items)[index] = n
			return nil
		}).
		Getter(func(ctx *gojabind.Context, this gojabind.Value, name string) (gojabind.Value, error) {
			if name != "length" {
				return gojabind.Value{}, nil
			}
			items, err := payloadOf(ctx, this)
			if err != nil {
				return gojabind.Value{}, err
			}
			return ctx.Int64(int64(len(*items))), nil
		}).
		PropertyNames(func(ctx *gojabind.Context, this gojabind.Value) []string {
			items, err := payloadOf(ctx, this)
			if err != nil {
				return nil
			}
			names := make([]string, len(*items))
			for i := range *items {
				names[i] = strconv.Itoa(i)
			}
			return names
		}).
		Build()
	require.NoError(t, err)
	return cls
}

func newFloatList(t *testing.T, ctx *gojabind.Context) gojabind.Value {
	t.Helper()
	return mustEval(t, ctx, `new FloatList(10, 20, 30)`)
}

func TestIndexedGetter(t *testing.T) {
	ctx := testContext(t)
	_, err := ctx.RegisterClass(indexedClass(t))
	require.NoError(t, err)
	require.NoError(t, ctx.Globals().Set("list", newFloatList(t, ctx)))

	t.Run("ValidIndexDispatches", func(t *testing.T) {
		n, err := mustEval(t, ctx, `list[1]`).ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(20), n)
	})

	t.Run("BeyondLengthReadsUndefined", func(t *testing.T) {
		// The getter reports out of range; the boundary softens it so
		// iteration patterns that probe past the end keep working.
		require.True(t, mustEval(t, ctx, `list[99]`).IsUndefined())
	})

	t.Run("NegativeIndexRaises", func(t *testing.T) {
		_, err := ctx.Eval(`list["-1"]`)
		require.Error(t, err)
		require.Contains(t, err.Error(), "Index -1 cannot be less than zero.")
	})

	t.Run("NegativeIndexIsRangeError", func(t *testing.T) {
		kind := mustEval(t, ctx, `(function() {
			try { return list[-1]; } catch (e) {
				return e instanceof RangeError ? "RangeError" : "other";
			}
		})()`)
		require.Equal(t, "RangeError", kind.String())
	})

	t.Run("UnparsableNameFallsThrough", func(t *testing.T) {
		require.True(t, mustEval(t, ctx, `list["abc"]`).IsUndefined())
	})

	t.Run("CatchAllGetter", func(t *testing.T) {
		n, err := mustEval(t, ctx, `list.length`).ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(3), n)
	})
}

func TestIndexedSetter(t *testing.T) {
	ctx := testContext(t)
	_, err := ctx.RegisterClass(indexedClass(t))
	require.NoError(t, err)

	t.Run("ValidIndexStores", func(t *testing.T) {
		n, err := mustEval(t, ctx, `(function() {
			var l = new FloatList(1, 2, 3);
			l[0] = 42;
			return l[0];
		})()`).ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(42), n)
	})

	t.Run("NegativeIndexRaises", func(t *testing.T) {
		require.NoError(t, ctx.Globals().Set("list", newFloatList(t, ctx)))
		msg := mustEval(t, ctx, `(function() {
			"use strict";
			try { list["-1"] = 5; } catch (e) { return e.message; }
			return "no error";
		})()`)
		require.Equal(t, "Index -1 cannot be less than zero.", msg.String())
	})

	t.Run("BeyondLengthRaises", func(t *testing.T) {
		// Unlike reads, writes past the end are not softened.
		require.NoError(t, ctx.Globals().Set("list", newFloatList(t, ctx)))
		msg := mustEval(t, ctx, `(function() {
			"use strict";
			try { list[99] = 5; } catch (e) { return e.message; }
			return "no error";
		})()`)
		require.Equal(t, "Index 99 is out of range (length 3).", msg.String())
	})

	t.Run("UnparsableNameStoresAsProperty", func(t *testing.T) {
		// A non-integer name raises nothing and behaves like an
		// ordinary expando property.
		res := mustEval(t, ctx, `(function() {
			var l = new FloatList(1);
			l["abc"] = "stored";
			return l["abc"];
		})()`)
		require.Equal(t, "stored", res.String())
	})
}

func TestIndexedEnumeration(t *testing.T) {
	ctx := testContext(t)
	_, err := ctx.RegisterClass(indexedClass(t))
	require.NoError(t, err)

	names := mustEval(t, ctx, `Object.keys(new FloatList(5, 6)).join(",")`)
	require.Equal(t, "0,1", names.String())
}

func TestIndexedInstancePayload(t *testing.T) {
	ctx := testContext(t)
	cls := indexedClass(t)
	_, err := ctx.RegisterClass(cls)
	require.NoError(t, err)

	instance := newFloatList(t, ctx)
	payload, err := ctx.InstancePayload(instance)
	require.NoError(t, err)
	require.Equal(t, []float64{10, 20, 30}, *payload.(*[]float64))

	require.True(t, ctx.ReleaseInstance(instance))
	require.False(t, ctx.ReleaseInstance(instance))
}
