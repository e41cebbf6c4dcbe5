package linkman

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"linkchat/internal/pkg/randx"
)

func drawID(t *rapid.T, label string) string {
	raw := rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, label)
	id, err := uuid.FromBytes(raw)
	if err != nil {
		t.Fatalf("uuid.FromBytes: %v", err)
	}
	return id.String()
}

func TestPairwiseIDRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := drawID(t, "a")
		b := drawID(t, "b")
		if a == b {
			t.Skip("identical ids")
		}

		pairwise := ComputePairwiseID(a, b)

		other, ok := DeriveCounterpart(a, pairwise)
		if !ok || other != b {
			t.Fatalf("DeriveCounterpart(a) = %q, %v; want %q", other, ok, b)
		}

		other, ok = DeriveCounterpart(b, pairwise)
		if !ok || other != a {
			t.Fatalf("DeriveCounterpart(b) = %q, %v; want %q", other, ok, a)
		}

		if ComputePairwiseID(b, a) != pairwise {
			t.Fatalf("pairwise id depends on argument order")
		}

		if IsGroupID(pairwise) {
			t.Fatalf("pairwise id %q looks like a group id", pairwise)
		}
	})
}

func TestComputePairwiseIDIsSorted(t *testing.T) {
	a := "00000000-0000-4000-8000-000000000001"
	b := "ffffffff-0000-4000-8000-000000000001"

	assert.Equal(t, a+b, ComputePairwiseID(a, b))
	assert.Equal(t, a+b, ComputePairwiseID(b, a))
}

func TestDeriveCounterpartRejectsForeignIDs(t *testing.T) {
	a, b, c := randx.NewID(), randx.NewID(), randx.NewID()
	pairwise := ComputePairwiseID(a, b)

	_, ok := DeriveCounterpart(c, pairwise)
	assert.False(t, ok)

	_, ok = DeriveCounterpart("", pairwise)
	assert.False(t, ok)

	_, ok = DeriveCounterpart(a, a+"garbage")
	assert.False(t, ok)
}

func TestIsCanonical(t *testing.T) {
	a, b := randx.NewID(), randx.NewID()

	assert.True(t, IsCanonical(a, ComputePairwiseID(a, b)))
	assert.True(t, IsCanonical(b, ComputePairwiseID(a, b)))

	reversed := ComputePairwiseID(a, b)[36:] + ComputePairwiseID(a, b)[:36]
	assert.False(t, IsCanonical(a, reversed))
}

func TestIsGroupID(t *testing.T) {
	assert.True(t, IsGroupID(randx.NewID()))
	assert.False(t, IsGroupID("lobby"))
	assert.False(t, IsGroupID(ComputePairwiseID(randx.NewID(), randx.NewID())))
}
