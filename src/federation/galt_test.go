package federation

import (
	"testing"

	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestGALTSetBasic(t *testing.T) {
	g := newGALTSet()
	d := logicaltime.Integer64

	_, ok := g.Min()
	require.False(t, ok)

	g.Update(1, d.Time(5))
	g.Update(2, d.Time(3))
	g.Update(3, d.Time(9))
	m, ok := g.Min()
	require.True(t, ok)
	require.Equal(t, d.Time(3), m)

	g.Update(2, d.Time(7))
	m, _ = g.Min()
	require.Equal(t, d.Time(5), m)

	g.Remove(1)
	g.Remove(1)
	m, _ = g.Min()
	require.Equal(t, d.Time(7), m)

	// Load only changes on Publish.
	_, ok = g.Load()
	require.False(t, ok)
	g.Publish()
	m, ok = g.Load()
	require.True(t, ok)
	require.Equal(t, d.Time(7), m)
}

// The minimum held by the set always equals the minimum over a plain map
// of the same bounds.
func TestGALTSetMatchesBruteForce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := newGALTSet()
		model := make(map[handle.Federate]int64)

		ops := rapid.IntRange(1, 200).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			f := handle.Federate(rapid.IntRange(1, 8).Draw(t, "federate"))
			if rapid.Bool().Draw(t, "remove") {
				g.Remove(f)
				delete(model, f)
			} else {
				v := rapid.Int64Range(0, 1000).Draw(t, "bound")
				g.Update(f, logicaltime.Integer64.Time(float64(v)))
				model[f] = v
			}

			got, ok := g.Min()
			if len(model) == 0 {
				if ok {
					t.Fatalf("expected empty set, got %v", got)
				}
				continue
			}
			want := int64(-1)
			for _, v := range model {
				if want < 0 || v < want {
					want = v
				}
			}
			if !ok || got.Int != want {
				t.Fatalf("min = %v (%v), want %d", got, ok, want)
			}
			if g.Len() != len(model) {
				t.Fatalf("len = %d, want %d", g.Len(), len(model))
			}
		}
	})
}
