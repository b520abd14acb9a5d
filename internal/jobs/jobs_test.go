package jobs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddGetRemove(t *testing.T) {
	b := NewBoard()
	j := b.Add(TypeBuild, 12, 0)
	assert.True(t, strings.HasPrefix(j.ID, "build_"))
	assert.Same(t, j, b.Get(j.ID))
	assert.Equal(t, 1, b.Len())

	assert.True(t, b.Remove(j.ID))
	assert.False(t, b.Remove(j.ID))
	assert.Nil(t, b.Get(j.ID))
	assert.Equal(t, 0, b.Len())
}

func TestPriorityOrdering(t *testing.T) {
	b := NewBoard()
	low := b.Add(TypeBuild, 1, 0)
	high := b.Add(TypeBuild, 2, 5)
	low2 := b.Add(TypeBuild, 3, 0)

	all := b.All()
	require.Len(t, all, 3)
	assert.Equal(t, high.ID, all[0].ID)
	assert.Equal(t, low.ID, all[1].ID)
	assert.Equal(t, low2.ID, all[2].ID)
}

func TestFirstClaimable(t *testing.T) {
	b := NewBoard()
	first := b.Add(TypeBuild, 1, 0)
	second := b.Add(TypeBuild, 2, 0)
	b.Add(TypeMine, 3, 0)

	b.Claim(first, 7)
	assert.Same(t, second, b.FirstClaimable(TypeBuild, 9))
	assert.Same(t, first, b.FirstClaimable(TypeBuild, 7), "self-assigned jobs stay claimable")

	b.Unclaim(first, 9)
	require.NotNil(t, first.Assignee)
	b.Unclaim(first, 7)
	assert.Nil(t, first.Assignee)

	assert.Nil(t, b.FirstClaimable(TypeRehabilitate, 1))
}

func TestRemoveTargeting(t *testing.T) {
	b := NewBoard()
	b.Add(TypeBuild, 1, 0)
	b.Add(TypeBuild, 2, 0)
	keep := b.Add(TypeMine, 2, 0)

	n := b.RemoveTargeting(TypeBuild, []int{1, 2, 3})
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, b.Len())
	assert.Same(t, keep, b.Find(TypeMine, 2))
	assert.Nil(t, b.Find(TypeBuild, 1))
}

func TestAllReturnsCopies(t *testing.T) {
	b := NewBoard()
	j := b.Add(TypeMine, 4, 0)
	b.Claim(j, 3)
	all := b.All()
	*all[0].Assignee = 99
	assert.Equal(t, uint64(3), *j.Assignee)
}

func TestRestore(t *testing.T) {
	b := NewBoard()
	b.Add(TypeBuild, 1, 0)
	b.Restore([]Job{{ID: "mine_a", Type: TypeMine, Target: 5}, {ID: "build_b", Type: TypeBuild, Target: 6, Priority: 2}})
	assert.Equal(t, 2, b.Len())
	assert.NotNil(t, b.Get("mine_a"))
	assert.Equal(t, "build_b", b.All()[0].ID)
}
