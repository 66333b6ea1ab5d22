// Copyright 2024 The Bit Authors
// This file is part of bit.

package lane

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/alekstar79/bit-corelib/common"
	"github.com/alekstar79/bit-corelib/sessioncfg"
	"github.com/alekstar79/bit/core/record"
)

func newTestSession(t *testing.T) *sessioncfg.Session {
	t.Helper()
	s := sessioncfg.NewStore(afero.NewMemMapFs(), "/session.json")
	require.NoError(t, s.Load())
	return s
}

func TestCreateRejectsReservedNames(t *testing.T) {
	session := newTestSession(t)
	_, err := Create(record.DefaultLaneName, "scope", nil, session, "2026-01-01T00:00:00Z")
	require.ErrorIs(t, err, ErrReservedName)
}

func TestValidateRejectsTagHead(t *testing.T) {
	l := &record.Lane{
		Name:  "feature-x",
		Scope: "scope",
		Components: []record.LaneComponent{
			{ID: common.ComponentID{Scope: "scope", Name: "a"}, Head: common.Ref("v1.0.0")},
		},
	}
	err := Validate(l)
	require.ErrorIs(t, err, ErrHeadIsTag)
}

func TestValidateRejectsDuplicateComponent(t *testing.T) {
	id := common.ComponentID{Scope: "scope", Name: "a"}
	snap := common.Ref("1111111111111111111111111111111111111111")
	l := &record.Lane{
		Name:  "feature-x",
		Scope: "scope",
		Components: []record.LaneComponent{
			{ID: id, Head: snap},
			{ID: id, Head: snap},
		},
	}
	err := Validate(l)
	require.ErrorIs(t, err, ErrDuplicateComponent)
}

func TestAddComponentSetsHasChangedOnlyWhenHeadDiffers(t *testing.T) {
	id := common.ComponentID{Scope: "scope", Name: "a"}
	head1 := common.Ref("1111111111111111111111111111111111111111")
	head2 := common.Ref("2222222222222222222222222222222222222222")
	l := &record.Lane{Name: "feature-x", Scope: "scope"}

	AddComponent(l, id, head1)
	require.True(t, l.HasChanged)
	l.HasChanged = false

	AddComponent(l, id, head1)
	require.False(t, l.HasChanged)

	AddComponent(l, id, head2)
	require.True(t, l.HasChanged)
	require.Equal(t, head2, l.Components[0].Head)
}

func TestIsEqualIgnoresComponentOrder(t *testing.T) {
	idA := common.ComponentID{Scope: "s", Name: "a"}
	idB := common.ComponentID{Scope: "s", Name: "b"}
	h1 := common.Ref("1111111111111111111111111111111111111111")
	h2 := common.Ref("2222222222222222222222222222222222222222")

	a := &record.Lane{Name: "x", Scope: "s", Components: []record.LaneComponent{{ID: idA, Head: h1}, {ID: idB, Head: h2}}}
	b := &record.Lane{Name: "x", Scope: "s", Components: []record.LaneComponent{{ID: idB, Head: h2}, {ID: idA, Head: h1}}}
	require.True(t, IsEqual(a, b))
}

func TestParseReadmeFrontMatter(t *testing.T) {
	content := "---\ntitle: Hello\ntags: [a, b]\n---\nbody text\n"
	fm, body := ParseReadmeFrontMatter(content)
	require.Equal(t, "Hello", fm.Title)
	require.Equal(t, []string{"a", "b"}, fm.Tags)
	require.Equal(t, "body text\n", body)
}

func TestParseReadmeFrontMatterAbsent(t *testing.T) {
	fm, body := ParseReadmeFrontMatter("no front matter here")
	require.Equal(t, ReadmeFrontMatter{}, fm)
	require.Equal(t, "no front matter here", body)
}
