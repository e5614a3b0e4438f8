package bridge

import (
	"context"
	"testing"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/aj-geddes/revitpy-sub005/infrastructure/memmodel"
	"github.com/aj-geddes/revitpy-sub005/testing/scripttest"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/require"
)

// TestHostModules drives the element, geometry and parameter modules from
// scripts. Cases run in order and share one model.
func TestHostModules(t *testing.T) {
	model := memmodel.FromSnapshot(entities.ModelSnapshot{Elements: []entities.Element{
		{
			ID: 1, Category: "Walls", Name: "north",
			Geometry:   entities.Geometry{Points: []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 3}}},
			Parameters: map[string]entities.Value{"Height": entities.FloatValue(3)},
		},
		{
			ID: 2, Category: "Walls", Name: "south",
			Geometry: entities.Geometry{Points: []r3.Vector{{X: 0, Y: 4, Z: 0}}},
		},
	}}, memmodel.WithLogger(quietLogger()))

	b, err := New(entities.NewConfig(entities.WithCapacity(2)), model, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, b.Initialize(context.Background()))
	defer func() { require.NoError(t, b.Close(context.Background())) }()

	scripttest.RunScriptTests(t, b, []scripttest.TestCase{
		{
			Name: "read element",
			Code: `
e = element.get(1)
print(e["name"], e["category"], e["parameters"]["Height"])
`,
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertSuccess(t, r)
				scripttest.AssertOutput(t, r, "north Walls 3.0")
			},
		},
		{
			Name: "handles stand in for ids",
			Code: `
e = element.get(1)
print(geometry.location(e["handle"]))
print(geometry.distance(1, 2))
`,
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertSuccess(t, r)
				scripttest.AssertOutput(t, r, "[0.0, 0.0, 0.0]", "4.0")
			},
		},
		{
			Name:    "bounding box",
			Code:    `box = geometry.bounding_box(target)` + "\n" + `print(box["min"], box["max"])`,
			Globals: map[string]any{"target": entities.ElementID(1)},
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertSuccess(t, r)
				scripttest.AssertOutput(t, r, "[0.0, 0.0, 0.0] [10.0, 0.0, 3.0]")
			},
		},
		{
			Name:        "move in transaction",
			Transaction: true,
			Code: `
geometry.move(2, [1, 1, 0])
parameter.set(2, "Offset", 1)
`,
			Validate: scripttest.AssertSuccess,
		},
		{
			Name: "move is committed",
			Code: `
print(geometry.location(2))
print(parameter.get(2, "Offset"))
`,
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertSuccess(t, r)
				scripttest.AssertOutput(t, r, "[1.0, 5.0, 0.0]", "1")
			},
		},
		{
			Name:        "create element without points",
			Transaction: true,
			Code:        `element.create("Doors", "front")`,
			Validate:    scripttest.AssertSuccess,
		},
		{
			Name: "no geometry",
			Code: `geometry.location(element.find("Doors")[0]["id"])`,
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertFailure(t, r, "element has no geometry")
			},
		},
		{
			Name:        "bad point",
			Code:        `geometry.move(1, [1, 2])`,
			Transaction: true,
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertFailure(t, r, "expected a point")
			},
		},
		{
			Name:        "missing argument",
			Code:        `parameter.set(1, "Height")`,
			Transaction: true,
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertFailure(t, r, `missing required argument "value"`)
			},
		},
		{
			Name: "height kept after failed set",
			Code: `print(parameter.get(1, "Height"))`,
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertSuccess(t, r)
				scripttest.AssertOutput(t, r, "3.0")
			},
		},
		{
			Name: "unknown keyword",
			Code: `element.get(id = 1, color = "red")`,
			Validate: func(t *testing.T, r *entities.ExecutionResult) {
				scripttest.AssertFailure(t, r, "color")
			},
		},
	})
}
