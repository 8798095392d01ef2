package report

import (
	"brickcore/pkg/domain"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOutlineByKind(t *testing.T) {
	inv := sampleInventory(t)
	out := Outline(inv, OutlineOptions{ByKind: true})

	sets := strings.Index(out, "# Sets\nThis inventory has 2 set(s), including:\n\n## Set 6990-1\n")
	parts := strings.Index(out, "# Parts\nThis inventory has 4 part(s), including:\n\n## Part 3001 C5\n")
	other := strings.Index(out, "# Other Items\nThis inventory has 1 other item(s), including:\n\n## Unknown bag C0\n")
	require.True(t, sets >= 0 && parts > sets && other > parts, "kind sections out of order:\n%s", out)
	require.NotContains(t, out, "# Minifigs")

	require.Contains(t, out, "*Catalog > Sets > User Added Item*\n\n")
	require.Contains(t, out, "Description:\n > Future Car\n\n")
	require.Contains(t, out, "Notes:\n > round\n\n")
	require.Contains(t, out, "<summary>2 Unique Instances</summary>")
	require.Contains(t, out, "### Part 3001 C5 I1\nFound In: [Set 6990-1 I1](#set-6990-1-i1)\n\n")
	require.Contains(t, out, "<summary>1 Sub-Item(s):</summary>")
	require.Contains(t, out, `2x [Part 3001 C5 I0](#part-3001-c5-i0)`)
	require.Contains(t, out, "\n    - ![4073](")
	require.Contains(t, out, `4x [Part 4073 C1 I0](#part-4073-c1-i0)`)
	require.Equal(t, strings.Count(out, "<details>"), strings.Count(out, "</details>"))
}

func TestOutlineInventoryLinkOnlyForItemsWithContents(t *testing.T) {
	inv := sampleInventory(t)
	set, _ := inv.FindItemByID("set:6990-1:0")
	leaf, _ := inv.FindItemByID("part:4073:1")

	out := Outline(inv, OutlineOptions{Item: set.IDString()})
	require.Contains(t, out, "[BrickLink Inventory Page]("+set.CatalogURL()+")")
	require.Contains(t, out, `<img src="`+set.ImageURL()+`" alt="Image of Set 6990-1 from BrickLink.com" width="250"/>`)

	out = Outline(inv, OutlineOptions{Item: leaf.IDString(), ImageWidth: 64})
	require.NotContains(t, out, "BrickLink Inventory Page")
	require.Contains(t, out, `width="64"`)
	require.NotContains(t, out, "## Set")
}

func TestOutlineFlatAndFiltered(t *testing.T) {
	inv := sampleInventory(t)
	flat := Outline(inv, OutlineOptions{})
	require.NotContains(t, flat, "\n# ")
	require.True(t, strings.HasPrefix(flat, "## Set 6990-1\n"))
	require.Equal(t, 4, strings.Count(flat, "\n## ")+1)

	only := Outline(inv, OutlineOptions{ByKind: true, Kinds: []domain.ItemKind{domain.KindUnknown}})
	require.True(t, strings.HasPrefix(only, "# Other Items\n"))
	require.NotContains(t, only, "## Set")
	require.NotContains(t, only, "<img")

	one := Outline(inv, OutlineOptions{ByKind: true, Item: "part:4073:1"})
	require.True(t, strings.HasPrefix(one, "# Parts\nThis inventory has 2 part(s), including:\n\n## Part 4073 C1\n"), one)
	require.NotContains(t, one, "# Sets")
	require.NotContains(t, one, "## Part 3001 C5\n")

	var b strings.Builder
	err := WriteOutline(&b, inv, OutlineOptions{Item: "part:9999:0"})
	require.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestKindHeading(t *testing.T) {
	cases := map[domain.ItemKind][2]string{
		domain.KindPart:    {"Parts", "part(s)"},
		domain.KindMinifig: {"Minifigs", "minifig(s)"},
		domain.KindGear:    {"Gear", "piece(s) of gear"},
		domain.KindUnknown: {"Other Items", "other item(s)"},
	}
	for kind, want := range cases {
		heading, noun := kindHeading(kind)
		require.Equal(t, want[0], heading)
		require.Equal(t, want[1], noun)
	}
}
