package gojabind_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quarrydb/gojabind"
)

func TestNamespaceApply(t *testing.T) {
	ctx := testContext(t)
	cls := counterClass(t, nil)

	ns := gojabind.NewNamespaceBuilder("app").
		ExportClass(cls).
		ExportValue("version", "2.1.0").
		ExportValue("limits", map[string]int{"maxItems": 100})
	_, err := ns.Apply(ctx)
	require.NoError(t, err)

	t.Run("ClassReachable", func(t *testing.T) {
		n, err := mustEval(t, ctx, `(function() {
			var c = new app.Counter(5);
			c.increment();
			return c.count;
		})()`).ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(6), n)
	})

	t.Run("ValuesReachable", func(t *testing.T) {
		require.Equal(t, "2.1.0", mustEval(t, ctx, `app.version`).String())
		n, err := mustEval(t, ctx, `app.limits.maxItems`).ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(100), n)
	})
}

func TestNamespaceReusesRegisteredClass(t *testing.T) {
	ctx := testContext(t)
	cls := counterClass(t, nil)
	_, err := ctx.RegisterClass(cls)
	require.NoError(t, err)

	_, err = gojabind.NewNamespaceBuilder("app").ExportClass(cls).Apply(ctx)
	require.NoError(t, err)

	// The namespace points at the constructor already materialized in
	// this context rather than binding the class a second time.
	same := mustEval(t, ctx, `app.Counter === Counter`)
	require.True(t, same.Raw().ToBoolean())

	viaNS, err := mustEval(t, ctx, `new app.Counter(1)`).ToObject()
	require.NoError(t, err)
	require.True(t, ctx.IsInstanceOf(viaNS, cls))
}

func TestNamespaceValidation(t *testing.T) {
	ctx := testContext(t)
	cls := counterClass(t, nil)

	t.Run("EmptyName", func(t *testing.T) {
		_, err := gojabind.NewNamespaceBuilder("").Apply(ctx)
		require.EqualError(t, err, "namespace name cannot be empty")
	})

	t.Run("EmptyExportName", func(t *testing.T) {
		_, err := gojabind.NewNamespaceBuilder("app").ExportValue("", 1).Apply(ctx)
		require.ErrorContains(t, err, "export name cannot be empty")
	})

	t.Run("DuplicateExportName", func(t *testing.T) {
		_, err := gojabind.NewNamespaceBuilder("app").
			ExportValue("x", 1).
			ExportValue("x", 2).
			Apply(ctx)
		require.ErrorContains(t, err, "duplicate export name: x")
	})

	t.Run("ClassAndValueCollision", func(t *testing.T) {
		_, err := gojabind.NewNamespaceBuilder("app").
			ExportClass(cls).
			ExportValue("Counter", 1).
			Apply(ctx)
		require.ErrorContains(t, err, "duplicate export name: Counter")
	})

	t.Run("NilClass", func(t *testing.T) {
		_, err := gojabind.NewNamespaceBuilder("app").ExportClass(nil).Apply(ctx)
		require.ErrorContains(t, err, "exported class cannot be nil")
	})
}
