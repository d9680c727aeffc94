package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_SetScalar_GetRoundtrip(t *testing.T) {
	f := NewFrame()
	f.SetScalar("gender", "female")

	v, ok := f.Get("gender")
	require.True(t, ok)
	assert.Equal(t, FrameScalar, v.Kind)
	assert.Equal(t, "female", v.Scalar)
}

func TestFrame_Get_NormalizesLeadingDollar(t *testing.T) {
	f := NewFrame()
	f.SetScalar("gender", "female")

	v, ok := f.Get("$gender")
	require.True(t, ok)
	assert.Equal(t, "female", v.Scalar)
}

func TestFrame_SetList_HasList(t *testing.T) {
	f := NewFrame()
	assert.False(t, f.HasList("items"))

	f.SetList("items", &CaptureList{Items: []*CaptureItem{{Value: "a coin"}}})
	assert.True(t, f.HasList("items"))

	v, ok := f.Get("items")
	require.True(t, ok)
	assert.Equal(t, FrameList, v.Kind)
	assert.Equal(t, 1, v.List.Count())
}

func TestFrame_SetItem_Get(t *testing.T) {
	f := NewFrame()
	item := &CaptureItem{Value: "Bram", SourceTableID: "npc"}
	f.SetItem("who", item)

	v, ok := f.Get("who")
	require.True(t, ok)
	assert.Equal(t, FrameItem, v.Kind)
	assert.Same(t, item, v.Item)
}

func TestFrame_Snapshot_PreservesDeclarationOrder(t *testing.T) {
	f := NewFrame()
	f.SetScalar("b", "2")
	f.SetScalar("a", "1")
	f.SetScalar("b", "20")

	assert.Equal(t, []string{"b", "a"}, f.Snapshot())
}

func TestFrame_Instance_CachesFirstRoll(t *testing.T) {
	f := NewFrame()
	_, ok := f.Instance("villain#mainBoss")
	assert.False(t, ok)

	item := &CaptureItem{Value: "Count Vexmoor"}
	f.SetInstance("villain#mainBoss", item)

	got, ok := f.Instance("villain#mainBoss")
	require.True(t, ok)
	assert.Same(t, item, got)
}

func TestFrame_TableResult_LatestWins(t *testing.T) {
	f := NewFrame()
	_, ok := f.TableResult("character")
	assert.False(t, ok)

	first := &CaptureItem{Value: "Hero", SourceTableID: "character"}
	f.SetTableResult("character", first)
	got, ok := f.TableResult("character")
	require.True(t, ok)
	assert.Same(t, first, got)

	second := &CaptureItem{Value: "Villain", SourceTableID: "character"}
	f.SetTableResult("character", second)
	got, ok = f.TableResult("character")
	require.True(t, ok)
	assert.Same(t, second, got)
}
