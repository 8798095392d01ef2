package report

import (
	"brickcore/internal/core"
	"brickcore/pkg/domain"
	"fmt"
	"io"
	"strings"
)

// OutlineOptions selects what the outline covers.
type OutlineOptions struct {
	// ByKind groups items under one heading per catalog kind.
	ByKind bool
	// Kinds restricts and orders the kind sections; empty means every kind
	// followed by unknown-kind items.
	Kinds []domain.ItemKind
	// Item restricts the outline to one item id ("part:3001:5").
	Item string
	// ImageWidth is the width attribute of item images (default 250).
	ImageWidth int
}

// Outline renders inv as Markdown with collapsible sections per item and
// occurrence, cross referenced by heading anchors.
func Outline(inv *core.Inventory, opts OutlineOptions) string {
	var b strings.Builder
	_ = WriteOutline(&b, inv, opts)
	return b.String()
}

// WriteOutline streams the outline of inv to w.
func WriteOutline(w io.Writer, inv *core.Inventory, opts OutlineOptions) error {
	if opts.ImageWidth <= 0 {
		opts.ImageWidth = 250
	}
	ow := &outlineWriter{w: w, opts: opts}
	items := inv.Items()
	if opts.Item != "" {
		item, ok := inv.FindItemByID(opts.Item)
		if !ok {
			return domain.NotFound("item", opts.Item)
		}
		items = []core.CatalogItem{item}
	}
	if !opts.ByKind {
		for _, item := range items {
			ow.item(item)
		}
		return ow.err
	}
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = append(domain.Kinds(), domain.KindUnknown)
	}
	for _, kind := range kinds {
		group := inv.ItemsOfKind(kind)
		if opts.Item != "" {
			group = nil
			if items[0].Identity().Kind == kind {
				group = items
			}
		}
		total := 0
		for _, item := range group {
			total += item.Instances().Len()
		}
		if len(group) == 0 {
			continue
		}
		heading, noun := kindHeading(kind)
		ow.printf("# %s\n", heading)
		ow.printf("This inventory has %d %s, including:\n\n", total, noun)
		for _, item := range group {
			ow.item(item)
		}
		ow.printf("\n")
	}
	return ow.err
}

func kindHeading(kind domain.ItemKind) (heading, noun string) {
	switch kind {
	case domain.KindGear:
		return "Gear", "piece(s) of gear"
	case domain.KindUnknown:
		return "Other Items", "other item(s)"
	}
	return string(kind) + "s", strings.ToLower(string(kind)) + "(s)"
}

type outlineWriter struct {
	w    io.Writer
	opts OutlineOptions
	err  error
}

func (o *outlineWriter) printf(format string, args ...any) {
	if o.err != nil {
		return
	}
	_, o.err = fmt.Fprintf(o.w, format, args...)
}

func (o *outlineWriter) item(item core.CatalogItem) {
	name := item.DisplayName()
	o.printf("## %s\n", name)
	o.printf("*%s*\n\n", item.CategoryPath())
	if img := item.ImageURL(); img != "" {
		o.printf("<img src=%q alt=\"Image of %s from BrickLink.com\" width=\"%d\"/>\n\n", img, name, o.opts.ImageWidth)
	}
	if first, ok := item.Instances().First(); ok && first.Children().Len() > 0 && item.CatalogURL() != "" {
		o.printf("[BrickLink Inventory Page](%s)\n\n", item.CatalogURL())
	}
	if d := item.Description(); d != "" {
		o.printf("Description:\n > %s\n\n", d)
	}
	if n := item.Notes(); n != "" {
		o.printf("Notes:\n > %s\n\n", n)
	}
	o.printf("<details>\n<summary>%d Unique Instances</summary>\n\n", item.Instances().Len())
	for _, inst := range item.Instances().All() {
		o.instance(inst)
	}
	o.printf("</details>\n")
}

func (o *outlineWriter) instance(inst core.Instance) {
	o.printf("<details>\n<summary>Instance %d</summary>\n\n", inst.Ordinal())
	o.printf("### %s\n", inst.DisplayName())
	if p, ok := inst.Parent(); ok {
		o.printf("Found In: [%s](%s)\n\n", p.DisplayName(), p.Anchor())
	}
	if n := inst.Children().Len(); n > 0 {
		o.printf("<details>\n<summary>%d Sub-Item(s):</summary>\n\n", n)
		_ = core.WalkFrom(inst, func(d core.Instance, depth int) error {
			if depth == 0 {
				return nil
			}
			item := d.Item()
			num := item.Identity().Num
			o.printf("%s- ", strings.Repeat("  ", 2*(depth-1)))
			if img := item.ImageURL(); img != "" {
				o.printf("![%s](%s %q) ", num, img, num)
			}
			o.printf("%dx [%s](%s)\n", d.ExpectedQty(), d.DisplayName(), d.Anchor())
			return nil
		})
		o.printf("\n</details>\n")
	}
	o.printf("</details>\n")
}
