// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package skeleton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultLinks() []Link {
	t := Default()
	links := make([]Link, 0, Count)
	for _, l := range All() {
		links = append(links, t.Link(l))
	}
	return links
}

func TestDefault_ParentTable(t *testing.T) {
	t.Parallel()

	want := map[Limb]Link{
		LowerBack:    {LowerBack, NoParent, BasisRaw},
		Head:         {Head, LowerBack, BasisPreRotated},
		RightArm:     {RightArm, NoParent, BasisRaw},
		RightForeArm: {RightForeArm, RightArm, BasisPreRotated},
		RightHand:    {RightHand, RightForeArm, BasisPreRotated},
		LeftArm:      {LeftArm, NoParent, BasisRaw},
		LeftForeArm:  {LeftForeArm, LeftArm, BasisPreRotated},
		LeftHand:     {LeftHand, LeftForeArm, BasisPreRotated},
		RightUpLeg:   {RightUpLeg, LowerBack, BasisRaw},
		RightLeg:     {RightLeg, RightUpLeg, BasisPreRotated},
		LeftUpLeg:    {LeftUpLeg, LowerBack, BasisRaw},
		LeftLeg:      {LeftLeg, LeftUpLeg, BasisPreRotated},
	}
	topo := Default()
	for limb, link := range want {
		assert.Equal(t, link, topo.Link(limb), limb.String())
	}
}

func TestDefault_OrderRespectsParents(t *testing.T) {
	t.Parallel()

	for name, topo := range map[string]*Topology{"default": Default(), "legacy": Legacy()} {
		order := topo.Order()
		require.Len(t, order, Count, name)

		pos := map[Limb]int{}
		for i, l := range order {
			pos[l] = i
		}
		for _, l := range All() {
			link := topo.Link(l)
			if link.Parent == NoParent {
				continue
			}
			assert.Less(t, pos[link.Parent], pos[l], "%s: %s before %s", name, link.Parent, l)
		}
	}
}

func TestDefault_OrderIsIndexOrder(t *testing.T) {
	t.Parallel()
	// Every parent in the default table has a lower index than its child.
	assert.Equal(t, All(), Default().Order())
}

func TestOrder_ReturnsCopy(t *testing.T) {
	t.Parallel()
	topo := Default()
	order := topo.Order()
	order[0] = LeftLeg
	assert.Equal(t, LowerBack, topo.Order()[0])
}

func TestNewTopology_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing limb", func(t *testing.T) {
		t.Parallel()
		_, err := NewTopology(defaultLinks()[:Count-1])
		assert.ErrorIs(t, err, ErrMissingLimb)
	})

	t.Run("duplicate limb", func(t *testing.T) {
		t.Parallel()
		links := append(defaultLinks(), Link{Head, LowerBack, BasisRaw})
		_, err := NewTopology(links)
		assert.ErrorIs(t, err, ErrDuplicateLimb)
	})

	t.Run("unknown limb", func(t *testing.T) {
		t.Parallel()
		links := append(defaultLinks(), Link{Limb(12), NoParent, BasisRaw})
		_, err := NewTopology(links)
		assert.ErrorIs(t, err, ErrUnknownLimb)
	})

	t.Run("unknown parent", func(t *testing.T) {
		t.Parallel()
		links := defaultLinks()
		links[Head].Parent = Limb(42)
		_, err := NewTopology(links)
		assert.ErrorIs(t, err, ErrUnknownParent)
	})

	t.Run("self parent", func(t *testing.T) {
		t.Parallel()
		links := defaultLinks()
		links[Head].Parent = Head
		_, err := NewTopology(links)
		assert.ErrorIs(t, err, ErrUnknownParent)
	})

	t.Run("unknown basis", func(t *testing.T) {
		t.Parallel()
		links := defaultLinks()
		links[Head].Basis = Basis(7)
		_, err := NewTopology(links)
		assert.ErrorIs(t, err, ErrUnknownBasis)
	})

	t.Run("cycle", func(t *testing.T) {
		t.Parallel()
		links := defaultLinks()
		links[RightArm].Parent = RightHand
		_, err := NewTopology(links)
		assert.ErrorIs(t, err, ErrCycle)
	})
}

func TestNewTopology_ReorderedChildren(t *testing.T) {
	t.Parallel()

	// Head hangs off the left leg here, so it must be processed after it.
	links := defaultLinks()
	links[Head].Parent = LeftLeg
	topo, err := NewTopology(links)
	require.NoError(t, err)

	order := topo.Order()
	assert.Equal(t, LeftLeg, order[len(order)-2])
	assert.Equal(t, Head, order[len(order)-1])
}

func childrenOf(topo *Topology, parent Limb) []Limb {
	var out []Limb
	for _, l := range All() {
		if topo.Link(l).Parent == parent {
			out = append(out, l)
		}
	}
	return out
}

func TestDefault_Children(t *testing.T) {
	t.Parallel()
	topo := Default()
	assert.Equal(t, []Limb{Head, RightUpLeg, LeftUpLeg}, childrenOf(topo, LowerBack))
	assert.Empty(t, childrenOf(topo, RightHand))
}

func TestLimb_GroupsAndNames(t *testing.T) {
	t.Parallel()

	for _, l := range []Limb{RightArm, RightForeArm, RightHand} {
		assert.Equal(t, GroupRightArm, l.Group())
	}
	for _, l := range []Limb{LeftArm, LeftForeArm, LeftHand} {
		assert.Equal(t, GroupLeftArm, l.Group())
	}
	for _, l := range []Limb{LowerBack, Head, RightUpLeg, RightLeg, LeftUpLeg, LeftLeg} {
		assert.Equal(t, GroupNone, l.Group())
	}

	l, ok := ByName("RightForeArm")
	require.True(t, ok)
	assert.Equal(t, RightForeArm, l)
	_, ok = ByName("Hips")
	assert.False(t, ok)

	assert.Equal(t, "Limb(12)", Limb(12).String())
}

func TestByTopologyName(t *testing.T) {
	t.Parallel()

	topo, err := ByTopologyName("")
	require.NoError(t, err)
	assert.Equal(t, Default().Link(RightUpLeg), topo.Link(RightUpLeg))

	topo, err = ByTopologyName("legacy")
	require.NoError(t, err)
	assert.Equal(t, LowerBack, topo.Link(RightArm).Parent)

	_, err = ByTopologyName("mirror")
	assert.Error(t, err)
}
