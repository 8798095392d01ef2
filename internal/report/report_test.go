package report

import (
	"brickcore/internal/core"
	"brickcore/pkg/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

// sampleInventory holds a set containing a part that contains another part,
// a second set occurrence (which cascades the subtree) and an unknown-kind
// root item.
func sampleInventory(t *testing.T) *core.Inventory {
	t.Helper()
	inv := core.NewInventory(core.Options{})
	sets, err := inv.Push(core.ItemConfig{
		Identity:    domain.Identity{Num: "6990-1", Kind: domain.KindSet},
		Description: "Future Car",
		Instances:   []core.InstanceConfig{{ExpectedQty: 1, HaveQty: 1}},
	})
	require.NoError(t, err)
	plate, err := inv.Push(core.ItemConfig{
		Identity:  domain.Identity{Num: "3001", Variant: 5, Kind: domain.KindPart},
		Instances: []core.InstanceConfig{{Parent: sets.Instances[0], Section: domain.SectionRegular, ExpectedQty: 2, HaveQty: 1}},
	})
	require.NoError(t, err)
	_, err = inv.Push(core.ItemConfig{
		Identity:  domain.Identity{Num: "4073", Variant: 1, Kind: domain.KindPart},
		Notes:     "round",
		Instances: []core.InstanceConfig{{Parent: plate.Instances[0], Section: domain.SectionExtra, ExpectedQty: 4, HaveQty: 4}},
	})
	require.NoError(t, err)
	_, err = inv.Push(core.ItemConfig{Identity: domain.Identity{Num: "6990-1", Kind: domain.KindSet}})
	require.NoError(t, err)
	_, err = inv.Push(core.ItemConfig{Identity: domain.Identity{Num: "bag", Kind: domain.KindUnknown}})
	require.NoError(t, err)
	require.Equal(t, 7, inv.InstanceCount())
	return inv
}
