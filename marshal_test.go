package gojabind_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quarrydb/gojabind"
	"github.com/quarrydb/gojabind/schema"
)

type track struct {
	Title    string    `js:"title"`
	Plays    int       `js:"plays"`
	Rating   float64   `json:"rating"`
	Hidden   string    `js:"-"`
	Note     string    `js:"note,omitempty"`
	Released time.Time `js:"released"`
	Tags     []string  `js:"tags"`
}

func TestMarshalStruct(t *testing.T) {
	ctx := testContext(t)

	released := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	val, err := ctx.Marshal(track{
		Title:    "go round",
		Plays:    7,
		Rating:   4.5,
		Hidden:   "secret",
		Released: released,
		Tags:     []string{"a", "b"},
	})
	require.NoError(t, err)
	require.NoError(t, ctx.Globals().Set("track", val))

	t.Run("TaggedFields", func(t *testing.T) {
		require.Equal(t, "go round", mustEval(t, ctx, `track.title`).String())
		n, err := mustEval(t, ctx, `track.plays`).ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(7), n)
	})

	t.Run("JSONTagFallback", func(t *testing.T) {
		n, err := mustEval(t, ctx, `track.rating`).ToNumber()
		require.NoError(t, err)
		require.Equal(t, 4.5, n)
	})

	t.Run("DashSkipsField", func(t *testing.T) {
		require.True(t, mustEval(t, ctx, `track.Hidden`).IsUndefined())
	})

	t.Run("OmitemptySkipsZero", func(t *testing.T) {
		require.False(t, mustEval(t, ctx, `"note" in track`).Raw().ToBoolean())
	})

	t.Run("TimeBecomesDate", func(t *testing.T) {
		rel := mustEval(t, ctx, `track.released`)
		require.True(t, rel.IsDate())
		d, err := rel.ToDate()
		require.NoError(t, err)
		require.Equal(t, released.UnixMilli(), d.UnixMilli())
	})

	t.Run("SliceBecomesArray", func(t *testing.T) {
		tags := mustEval(t, ctx, `track.tags`)
		require.True(t, tags.IsArray())
		n, err := tags.ListLength()
		require.NoError(t, err)
		require.Equal(t, int64(2), n)
	})
}

func TestUnmarshalStruct(t *testing.T) {
	ctx := testContext(t)

	val := mustEval(t, ctx, `({
		title: "back again",
		plays: 3,
		rating: 2.5,
		released: new Date(86400000),
		tags: ["x"],
	})`)

	var got track
	require.NoError(t, ctx.Unmarshal(val, &got))
	require.Equal(t, "back again", got.Title)
	require.Equal(t, 3, got.Plays)
	require.Equal(t, 2.5, got.Rating)
	require.Equal(t, int64(86400000), got.Released.UnixMilli())
	require.Equal(t, []string{"x"}, got.Tags)
}

func TestMarshalPrimitives(t *testing.T) {
	ctx := testContext(t)

	t.Run("Map", func(t *testing.T) {
		val, err := ctx.Marshal(map[string]int{"a": 1, "b": 2})
		require.NoError(t, err)
		require.NoError(t, ctx.Globals().Set("m", val))
		n, err := mustEval(t, ctx, `m.a + m.b`).ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(3), n)
	})

	t.Run("Bytes", func(t *testing.T) {
		val, err := ctx.Marshal([]byte{1, 2, 3, 4})
		require.NoError(t, err)
		require.True(t, val.IsArrayBuffer())

		var back []byte
		require.NoError(t, ctx.Unmarshal(val, &back))
		require.Equal(t, []byte{1, 2, 3, 4}, back)
	})

	t.Run("NilIsNull", func(t *testing.T) {
		val, err := ctx.Marshal(nil)
		require.NoError(t, err)
		require.True(t, val.IsNull())
	})

	t.Run("Pointer", func(t *testing.T) {
		n := 9
		val, err := ctx.Marshal(&n)
		require.NoError(t, err)
		f, err := val.ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(9), f)
	})
}

func TestUnmarshalInterface(t *testing.T) {
	ctx := testContext(t)

	val := mustEval(t, ctx, `({
		name: "mixed",
		n: 1.5,
		ok: true,
		items: [1, "two", null],
	})`)

	var got interface{}
	require.NoError(t, ctx.Unmarshal(val, &got))

	m, ok := got.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "mixed", m["name"])
	require.Equal(t, 1.5, m["n"])
	require.Equal(t, true, m["ok"])
	require.Equal(t, []interface{}{float64(1), "two", nil}, m["items"])
}

func TestUnmarshalErrors(t *testing.T) {
	ctx := testContext(t)

	t.Run("NonPointerDestination", func(t *testing.T) {
		var dest track
		err := ctx.Unmarshal(mustEval(t, ctx, `({})`), dest)
		require.EqualError(t, err, "unmarshal destination must be a non-nil pointer")
	})

	t.Run("KindMismatch", func(t *testing.T) {
		var dest bool
		err := ctx.Unmarshal(mustEval(t, ctx, `"nope"`), &dest)
		require.EqualError(t, err, "Value is not a boolean.")
	})

	t.Run("NegativeIntoUnsigned", func(t *testing.T) {
		var dest uint32
		err := ctx.Unmarshal(mustEval(t, ctx, `-3`), &dest)
		var convErr *gojabind.ConversionError
		require.ErrorAs(t, err, &convErr)
		require.EqualError(t, err, "Cannot convert negative number -3 to uint32.")
	})
}

type versioned struct {
	major int
}

func (v versioned) MarshalJS(ctx *gojabind.Context) (gojabind.Value, error) {
	return ctx.String("v1"), nil
}

func (v *versioned) UnmarshalJS(ctx *gojabind.Context, val gojabind.Value) error {
	n, err := val.ToNumber()
	if err != nil {
		return err
	}
	v.major = int(n)
	return nil
}

func TestMarshalerHooks(t *testing.T) {
	ctx := testContext(t)

	t.Run("Marshaler", func(t *testing.T) {
		val, err := ctx.Marshal(versioned{major: 1})
		require.NoError(t, err)
		require.Equal(t, "v1", val.String())
	})

	t.Run("Unmarshaler", func(t *testing.T) {
		var v versioned
		require.NoError(t, ctx.Unmarshal(mustEval(t, ctx, `3`), &v))
		require.Equal(t, 3, v.major)
	})
}

func TestDictForPropertyArray(t *testing.T) {
	ctx := testContext(t)

	objectSchema := &schema.ObjectSchema{
		Name: "Track",
		Properties: []schema.Property{
			{Name: "title", Type: "string"},
			{Name: "plays", Type: "int"},
			{Name: "rating", Type: "double"},
		},
	}

	t.Run("PairsInDeclarationOrder", func(t *testing.T) {
		dict, err := gojabind.DictForPropertyArray(ctx, objectSchema, mustEval(t, ctx, `["signal", 12, 4.5]`))
		require.NoError(t, err)

		title, err := dict.StringProperty("title")
		require.NoError(t, err)
		require.Equal(t, "signal", title)

		plays, err := dict.Get("plays")
		require.NoError(t, err)
		n, err := plays.ToNumber()
		require.NoError(t, err)
		require.Equal(t, float64(12), n)
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		for _, code := range []string{`["only-title"]`, `["a", 1, 2.0, "extra"]`} {
			_, err := gojabind.DictForPropertyArray(ctx, objectSchema, mustEval(t, ctx, code))
			var mismatchErr *gojabind.SchemaMismatchError
			require.ErrorAs(t, err, &mismatchErr)
			require.EqualError(t, err, "Array must contain values for all object properties")
		}
	})

	t.Run("NotAList", func(t *testing.T) {
		_, err := gojabind.DictForPropertyArray(ctx, objectSchema, mustEval(t, ctx, `({})`))
		var missingErr *gojabind.PropertyMissingError
		require.ErrorAs(t, err, &missingErr)
	})
}
