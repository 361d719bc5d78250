package resource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kasuganosora/sentrysim/game/geom"
	"github.com/kasuganosora/sentrysim/game/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const warehouse = `{
  "name": "warehouse",
  "player": {"position": [0, 0, -10], "health": 100},
  "obstacles": [
    {"name": "crate", "layer": "obstacle", "shape": "box", "center": [0, 1, 0], "size": [2, 2, 2]},
    {"name": "pillar", "layer": "obstacle", "shape": "sphere", "center": [5, 1, 5], "radius": 1},
    {"name": "window", "layer": "glass", "center": [-5, 1, 0], "size": [4, 2, 0.1]}
  ],
  "combat": {"attack_range": 12, "ignore_layers": ["glass"]},
  "agents": [
    {"name": "guard-1", "position": [0, 0, 10], "heading": 180,
     "route": [[0, 0, 10], [10, 0, 10]],
     "combat": {"search_duration": "3s", "fire_interval": "250ms"}},
    {"name": "guard-2", "position": [10, 0, 0]}
  ]
}`

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "warehouse.json", warehouse)
	writeFile(t, dir, "README.txt", "not an arena")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "drafts"), 0o755))

	l := NewLoader(dir)
	require.NoError(t, l.Load())
	assert.Equal(t, []string{"warehouse"}, l.Names())

	a, ok := l.Arena("warehouse")
	require.True(t, ok)
	assert.Equal(t, geom.V(0, 0, -10), a.Player.Position)
	require.Len(t, a.Obstacles, 3)
	require.Len(t, a.Agents, 2)
	assert.Equal(t, 180.0, a.Agents[0].Heading)
	assert.Len(t, a.Agents[0].Route, 2)
	require.NotNil(t, a.Agents[0].Combat.SearchDuration)
	assert.Equal(t, 3*time.Second, a.Agents[0].Combat.SearchDuration.Std())
	assert.Equal(t, 250*time.Millisecond, a.Agents[0].Combat.FireInterval.Std())

	_, ok = l.Arena("nope")
	assert.False(t, ok)
}

func TestLoader_NameFromFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "yard.json", `{"agents": [{"name": "a"}]}`)
	l := NewLoader(dir)
	require.NoError(t, l.Load())
	_, ok := l.Arena("yard")
	assert.True(t, ok)
}

func TestLoader_Errors(t *testing.T) {
	cases := map[string]string{
		"bad json":      `{`,
		"no agents":     `{"name": "x"}`,
		"dup agents":    `{"name": "x", "agents": [{"name": "a"}, {"name": "a"}]}`,
		"bad layer":     `{"name": "x", "agents": [{"name": "a"}], "obstacles": [{"layer": "lava", "size": [1,1,1]}]}`,
		"bad shape":     `{"name": "x", "agents": [{"name": "a"}], "obstacles": [{"shape": "cone"}]}`,
		"flat box":      `{"name": "x", "agents": [{"name": "a"}], "obstacles": [{"size": [1,0,1]}]}`,
		"zero sphere":   `{"name": "x", "agents": [{"name": "a"}], "obstacles": [{"shape": "sphere"}]}`,
		"bad duration":  `{"name": "x", "agents": [{"name": "a", "combat": {"search_duration": 5}}]}`,
		"bad range":     `{"name": "x", "agents": [{"name": "a", "combat": {"attack_range": 0}}]}`,
		"bad ignore":    `{"name": "x", "combat": {"ignore_layers": ["fog"]}, "agents": [{"name": "a"}]}`,
		"unnamed agent": `{"name": "x", "agents": [{}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "a.json", body)
			assert.Error(t, NewLoader(dir).Load())
		})
	}
}

func TestLoader_FailedReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "warehouse.json", warehouse)
	l := NewLoader(dir)
	require.NoError(t, l.Load())

	writeFile(t, dir, "broken.json", `{`)
	assert.Error(t, l.Load())
	assert.Equal(t, []string{"warehouse"}, l.Names())
}

func TestLoader_MissingDir(t *testing.T) {
	assert.Error(t, NewLoader(filepath.Join(t.TempDir(), "none")).Load())
}

func TestLoader_Put(t *testing.T) {
	l := NewLoader("")
	assert.Error(t, l.Put(&Arena{Name: "empty"}))
	require.NoError(t, l.Put(&Arena{Name: "solo", Agents: []AgentSpawn{{Name: "a"}}}))
	assert.Equal(t, []string{"solo"}, l.Names())
}

func TestCombatOverrides_Merge(t *testing.T) {
	r10, r5 := 10.0, 5.0
	yes := true
	base := CombatOverrides{AttackRange: &r10, IgnoreLayers: []string{"glass"}}
	top := CombatOverrides{AttackRange: &r5, AlertOnFire: &yes}
	m := top.Merge(base)
	assert.Equal(t, 5.0, *m.AttackRange)
	assert.True(t, *m.AlertOnFire)
	assert.Equal(t, []string{"glass"}, m.IgnoreLayers)
	assert.Nil(t, m.Damage)
}

func TestParseMask(t *testing.T) {
	m, err := ParseMask([]string{"glass", "agent"})
	require.NoError(t, err)
	assert.True(t, m.Has(physics.LayerGlass))
	assert.True(t, m.Has(physics.LayerAgent))
	assert.False(t, m.Has(physics.LayerObstacle))

	_, err = ParseMask([]string{"fog"})
	assert.Error(t, err)
}

func TestObstacle_Collider(t *testing.T) {
	layer, shape := Obstacle{Layer: "glass", Center: geom.V(1, 1, 1), Size: geom.V(2, 2, 2)}.Collider()
	assert.Equal(t, physics.LayerGlass, layer)
	assert.Equal(t, geom.V(1, 1, 1), shape.Center())

	_, shape = Obstacle{Shape: "sphere", Center: geom.V(3, 0, 0), Radius: 1}.Collider()
	assert.IsType(t, physics.Sphere{}, shape)
}

func TestDuration_RoundTrip(t *testing.T) {
	d := Duration(1500 * time.Millisecond)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1.5s"`, string(raw))
}
