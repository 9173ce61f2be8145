package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/spacelift-io/flows-app-aws-resources/internal/deepdiff"
)

func keysOf(m map[string]any) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k := range m {
		out[k] = struct{}{}
	}
	return out
}

func TestGenerate(t *testing.T) {
	actual := map[string]any{
		"Size":    float64(1),
		"Name":    "web",
		"Arn":     "arn:aws:autoscaling:us-east-1:123:group/web",
		"Comment": "temporary",
	}
	desired := map[string]any{
		"Size": 2,
		"Name": "web",
		"Zone": "us-east-1a",
	}

	t.Run("add replace and skip equal", func(t *testing.T) {
		ops := Generate(actual, desired, nil, keysOf(desired))
		require.Equal(t, []Operation{
			{Op: OpReplace, Path: "/Size", Value: 2},
			{Op: OpAdd, Path: "/Zone", Value: "us-east-1a"},
		}, ops)
	})

	t.Run("immutable keys never patched", func(t *testing.T) {
		immutable := map[string]struct{}{"Size": {}, "Zone": {}}
		ops := Generate(actual, desired, immutable, keysOf(desired))
		assert.Empty(t, ops)
	})

	t.Run("remove only explicitly configured keys", func(t *testing.T) {
		// Comment was configured once and since dropped from the desired
		// config; Arn is server-populated and must survive.
		explicit := keysOf(desired)
		explicit["Comment"] = struct{}{}

		ops := Generate(actual, desired, nil, explicit)
		require.Equal(t, []Operation{
			{Op: OpRemove, Path: "/Comment"},
			{Op: OpReplace, Path: "/Size", Value: 2},
			{Op: OpAdd, Path: "/Zone", Value: "us-east-1a"},
		}, ops)
	})

	t.Run("aligned documents produce no operations", func(t *testing.T) {
		same := map[string]any{"Size": 2, "Name": "web"}
		assert.Empty(t, Generate(same, same, nil, keysOf(same)))
	})

	t.Run("numeric types do not fake a diff", func(t *testing.T) {
		ops := Generate(
			map[string]any{"Size": float64(2)},
			map[string]any{"Size": 2},
			nil,
			map[string]struct{}{"Size": {}},
		)
		assert.Empty(t, ops)
	})

	t.Run("deterministic order", func(t *testing.T) {
		desired := map[string]any{"b": 1, "a": 1, "c": 1}
		ops := Generate(map[string]any{}, desired, nil, keysOf(desired))
		require.Len(t, ops, 3)
		assert.Equal(t, "/a", ops[0].Path)
		assert.Equal(t, "/b", ops[1].Path)
		assert.Equal(t, "/c", ops[2].Path)
	})
}

func TestPointerEscaping(t *testing.T) {
	assert.Equal(t, "/Size", Pointer("Size"))
	assert.Equal(t, "/a~1b", Pointer("a/b"))
	assert.Equal(t, "/a~0b", Pointer("a~b"))
	assert.Equal(t, "/~0~1", Pointer("~/"))
}

func TestApply(t *testing.T) {
	doc := map[string]any{"Size": 1, "Name": "web", "a/b": "x"}

	out := Apply(doc, []Operation{
		{Op: OpReplace, Path: "/Size", Value: 2},
		{Op: OpAdd, Path: "/Zone", Value: "us-east-1a"},
		{Op: OpRemove, Path: "/Name"},
		{Op: OpRemove, Path: "/a~1b"},
		{Op: OpRemove, Path: "/Missing"},
	})

	assert.Equal(t, map[string]any{"Size": 2, "Zone": "us-east-1a"}, out)
	// The input document is untouched.
	assert.Equal(t, map[string]any{"Size": 1, "Name": "web", "a/b": "x"}, doc)
}

// Applying a generated patch to the actual document must yield the desired
// one for every managed key, while leaving unmanaged keys alone.
func TestGenerateApplyRoundTrip(t *testing.T) {
	value := rapid.OneOf(
		rapid.Custom(func(t *rapid.T) any { return rapid.IntRange(-1000, 1000).Draw(t, "i") }),
		rapid.Custom(func(t *rapid.T) any { return rapid.StringMatching(`[a-z]{0,8}`).Draw(t, "s") }),
		rapid.Custom(func(t *rapid.T) any { return rapid.Bool().Draw(t, "b") }),
	)
	key := rapid.StringMatching(`[A-Za-z~/]{1,6}`)
	doc := rapid.MapOfN(key, value, 0, 6)

	rapid.Check(t, func(t *rapid.T) {
		actual := doc.Draw(t, "actual")
		desired := doc.Draw(t, "desired")

		ops := Generate(actual, desired, nil, keysOf(desired))
		result := Apply(actual, ops)

		for k, want := range desired {
			require.True(t, deepdiff.Equal(result[k], want, nil), "key %q not driven to desired", k)
		}
		for k, was := range actual {
			if _, managed := desired[k]; !managed {
				require.True(t, deepdiff.Equal(result[k], was, nil), "unmanaged key %q modified", k)
			}
		}

		// A second diff against the result finds nothing left to do.
		assert.Empty(t, Generate(result, desired, nil, keysOf(desired)))
	})
}
