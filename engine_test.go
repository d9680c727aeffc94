package rtengine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEngine(t *testing.T, docJSON string) *Engine {
	t.Helper()
	doc, err := Load([]byte(docJSON))
	require.NoError(t, err)
	e, err := NewEngine(doc)
	require.NoError(t, err)
	return e
}

func TestEngine_RollTable_Simple(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "color": {"kind": "simple", "entries": [{"id":"red","value":"red"},{"id":"blue","value":"blue"}]}
      }
    }`)

	result, err := e.RollTable(context.Background(), "color")
	require.NoError(t, err)
	assert.Contains(t, []string{"red", "blue"}, result.Text)
	assert.Equal(t, "color", result.Metadata.SourceID)
}

func TestEngine_RollTable_Unknown(t *testing.T) {
	e := mustEngine(t, `{"metadata":{"specVersion":"1.0"},"tables":{"a":{"kind":"simple","entries":[{"value":"x"}]}}}`)
	_, err := e.RollTable(context.Background(), "missing")
	require.Error(t, err)
}

func TestEngine_RollTemplate_Unknown(t *testing.T) {
	e := mustEngine(t, `{"metadata":{"specVersion":"1.0"},"tables":{"a":{"kind":"simple","entries":[{"value":"x"}]}}}`)
	_, err := e.RollTemplate(context.Background(), "missing")
	require.Error(t, err)
}

// TestEngine_Collection_FlattensRefs covers spec property: a collection
// table draws from the union of its referenced simple tables.
func TestEngine_Collection_FlattensRefs(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "warm": {"kind": "simple", "entries": [{"id":"red","value":"red"}]},
        "cool": {"kind": "simple", "entries": [{"id":"blue","value":"blue"}]},
        "any":  {"kind": "collection", "refs": ["warm", "cool"]}
      }
    }`)
	result, err := e.RollTable(context.Background(), "any")
	require.NoError(t, err)
	assert.Contains(t, []string{"red", "blue"}, result.Text)
}

// TestEngine_Composite_WeightedSourceChoice covers a composite table
// resolving to one of its weighted source tables.
func TestEngine_Composite_WeightedSourceChoice(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "forest": {"kind": "simple", "entries": [{"value": "a wolf"}]},
        "swamp":  {"kind": "simple", "entries": [{"value": "a toad"}]},
        "encounter": {"kind": "composite", "sources": [{"table": "forest", "weight": 1}, {"table": "swamp", "weight": 1}]}
      }
    }`)
	result, err := e.RollTable(context.Background(), "encounter")
	require.NoError(t, err)
	assert.Contains(t, []string{"a wolf", "a toad"}, result.Text)
}

// TestEngine_DefaultSets_MergeOrder covers spec §4.4: entry.sets overrides
// table.defaultSets, and the entry's value reads the materialized keys via
// "@tableId.key".
func TestEngine_DefaultSets_MergeOrder(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "npc": {
          "kind": "simple",
          "defaultSets": [{"key": "mood", "value": "neutral"}],
          "entries": [
            {
              "value": "{{@npc.name}} the {{@npc.mood}}",
              "sets": [
                {"key": "name", "value": "Bram"},
                {"key": "mood", "value": "grim"}
              ]
            }
          ]
        }
      }
    }`)
	result, err := e.RollTable(context.Background(), "npc")
	require.NoError(t, err)
	assert.Equal(t, "Bram the grim", result.Text)
}

// TestEngine_MultiRoll_CaptureInto_Collect covers spec §4.5's
// capture-into ">>" binding plus a later "collect" over it.
func TestEngine_MultiRoll_CaptureInto_Collect(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "loot": {"kind": "simple", "entries": [{"value": "a coin"}, {"value": "a gem"}]},
        "chest": {"kind": "simple", "entries": [{"value": "{{3*loot>>$items|silent}}Found: {{collect:$items.value}}"}]}
      }
    }`)
	result, err := e.RollTable(context.Background(), "chest")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Text, "Found: "))
	parts := strings.Split(strings.TrimPrefix(result.Text, "Found: "), ", ")
	assert.Len(t, parts, 3)
}

// TestEngine_Again_ExcludesSelf covers spec §4.5's "again" reusing the
// same table as the current entry, excluding the entry's own identity.
func TestEngine_Again_ExcludesSelf(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "omen": {
          "kind": "simple",
          "entries": [
            {"id": "a", "value": "a"},
            {"id": "b", "value": "{{again|unique}}"}
          ]
        }
      }
    }`)
	for i := 0; i < 20; i++ {
		result, err := e.RollTable(context.Background(), "omen")
		require.NoError(t, err)
		assert.NotEqual(t, "", result.Text)
	}
}

// TestEngine_Switch_FirstMatchWins covers spec §4.5's chained switch
// semantics: the first matching clause wins, else falls to the default.
func TestEngine_Switch_FirstMatchWins(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "variables": {"level": "7"},
      "tables": {
        "tier": {"kind": "simple", "entries": [
          {"value": "{{switch[$level>10:\"high\"].switch[$level>5:\"mid\"].else[\"low\"]}}"}
        ]}
      }
    }`)
	result, err := e.RollTable(context.Background(), "tier")
	require.NoError(t, err)
	assert.Equal(t, "mid", result.Text)
}

// TestEngine_Template_SharedBinding_EvaluatedOnce covers a template's shared
// binding being evaluated once per invocation: every "$who" reference in
// the pattern renders the same rolled name.
func TestEngine_Template_SharedBinding_EvaluatedOnce(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "name": {"kind": "simple", "entries": [{"value": "Aldric"}, {"value": "Maren"}]}
      },
      "templates": {
        "npc": {
          "shared": [{"name": "who", "template": "{{name}}"}],
          "pattern": "{{$who}} greets you. {{$who}} again."
        }
      }
    }`)
	result, err := e.RollTemplate(context.Background(), "npc")
	require.NoError(t, err)
	first := strings.SplitN(result.Text, " greets", 2)[0]
	assert.True(t, strings.HasPrefix(result.Text, first+" greets you. "+first+" again."))
}

func TestEngine_RecursionLimit(t *testing.T) {
	doc, err := Load([]byte(`{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "loop": {"kind": "simple", "entries": [{"value": "{{loop}}"}]}
      }
    }`))
	require.NoError(t, err)
	e, err := NewEngine(doc, WithMaxRecursionDepth(5))
	require.NoError(t, err)
	_, err = e.RollTable(context.Background(), "loop")
	require.Error(t, err)
}

func TestEngine_ListTablesAndTemplates(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {"b": {"kind":"simple","entries":[{"value":"x"}]}, "a": {"kind":"simple","entries":[{"value":"y"}]}},
      "templates": {"z": {"pattern": "hi"}}
    }`)
	assert.Equal(t, []string{"a", "b"}, e.ListTables())
	assert.Equal(t, []string{"z"}, e.ListTemplates())
}

func TestEngine_MissingVariable_RendersEmpty(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {"a": {"kind": "simple", "entries": [{"value": "[{{$missing}}]"}]}}
    }`)
	result, err := e.RollTable(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "[]", result.Text)
}

func TestEngine_UnknownTableRef_IsFatal(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {"a": {"kind": "simple", "entries": [{"value": "{{doesNotExist}}"}]}}
    }`)
	_, err := e.RollTable(context.Background(), "a")
	require.Error(t, err)
}

// TestEngine_IntraSetReference_MathAcrossSharedBinding covers spec §9's
// "Intra-set reference + math" scenario: a table's own sets reference each
// other via "@tableId.key" (including through a math: substitution), and
// a shared binding that rolls the table earlier makes "@tableId.key"
// resolve from the template pattern too.
func TestEngine_IntraSetReference_MathAcrossSharedBinding(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "character": {
          "kind": "simple",
          "entries": [
            {"value": "Hero", "sets": [
              {"key": "level", "value": "5"},
              {"key": "bonus", "value": "{{math:@character.level * 2}}"}
            ]}
          ]
        }
      },
      "templates": {
        "hero": {
          "shared": [{"name": "_init", "template": "{{character}}"}],
          "pattern": "Level {{@character.level}} with bonus {{@character.bonus}}"
        }
      }
    }`)
	result, err := e.RollTemplate(context.Background(), "hero")
	require.NoError(t, err)
	assert.Equal(t, "Level 5 with bonus 10", result.Text)
}

// TestEngine_AttachedSwitch_DollarRefersToBase covers spec §4.5's attached
// switch: the bare "$" symbol in each clause's condition refers to the
// base expression's own scalar result, not a frame variable named "$".
func TestEngine_AttachedSwitch_DollarRefersToBase(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "rank": {"kind": "simple", "entries": [{"value": "captain"}]},
        "title": {"kind": "simple", "entries": [
          {"value": "{{rank.switch[$==\"captain\":\"Captain\"].else[\"Soldier\"]}}"}
        ]}
      }
    }`)
	result, err := e.RollTable(context.Background(), "title")
	require.NoError(t, err)
	assert.Equal(t, "Captain", result.Text)
}

// TestEngine_RollTable_Placeholders covers spec §6: the Result's
// Placeholders field is a flat copy of the top-level roll's materialized
// sets, available for a bare table roll (not just a template's shared
// bindings).
func TestEngine_RollTable_Placeholders(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "npc": {"kind": "simple", "entries": [
          {"value": "Bram", "sets": [{"key": "mood", "value": "grim"}]}
        ]}
      }
    }`)
	result, err := e.RollTable(context.Background(), "npc")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mood": "grim"}, result.Placeholders)
}

func TestEngine_DiceAndMath(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {"a": {"kind": "simple", "entries": [{"value": "{{dice:1d1}} hp, {{math:2+2}} arms"}]}}
    }`)
	result, err := e.RollTable(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "1 hp, 4 arms", result.Text)
}

// TestEngine_ExplicitZeroWeight_IsUnreachable covers spec §3.1: an entry
// with an explicit weight of 0 is legal but never drawn, unlike an entry
// with no weight field at all (which defaults to 1).
func TestEngine_ExplicitZeroWeight_IsUnreachable(t *testing.T) {
	e := mustEngine(t, `{
      "metadata": {"specVersion": "1.0"},
      "tables": {
        "coin": {"kind": "simple", "entries": [
          {"id": "heads", "value": "heads"},
          {"id": "never", "value": "never", "weight": 0}
        ]}
      }
    }`)
	for i := 0; i < 20; i++ {
		result, err := e.RollTable(context.Background(), "coin")
		require.NoError(t, err)
		assert.Equal(t, "heads", result.Text)
	}
}
