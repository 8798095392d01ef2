// Package report renders read-only projections of an inventory: a plain
// text tree, a Markdown outline and artifacts published to the blob store.
// None of these outputs can be fed back into the model.
package report

import (
	"brickcore/internal/core"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	branch = " │  "
	last   = " └  "
)

// WriteTree writes every item of inv, in item order, each framed by branch
// prefixes and followed by a blank line.
func WriteTree(w io.Writer, inv *core.Inventory) error {
	for i, item := range inv.Items() {
		lines := append([]string{fmt.Sprintf("Item %d:", i)}, frame(strings.Split(ItemTree(item), "\n"))...)
		if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// ItemTree describes one catalog item followed by each of its occurrences.
func ItemTree(item core.CatalogItem) string {
	lines := []string{
		fmt.Sprintf("Item ID: %q", item.IDString()),
		"Description: " + item.Description(),
		"Notes: " + item.Notes(),
		"Inventory URL: " + item.CatalogURL(),
		"Category: " + item.CategoryPath(),
		fmt.Sprintf("%d Instance(s)", item.Instances().Len()),
	}
	var occ []string
	for ord, inst := range item.Instances().All() {
		occ = append(occ, fmt.Sprintf("Instance %d:", ord))
		occ = append(occ, frame(strings.Split(InstanceTree(inst), "\n"))...)
	}
	return strings.Join(append(lines, frame(occ)...), "\n")
}

// InstanceTree describes one occurrence and its whole subtree, one line per
// descendant indented by depth.
func InstanceTree(inst core.Instance) string {
	parent := "None"
	if p, ok := inst.Parent(); ok {
		parent = p.IDString()
	}
	lines := []string{
		"Instance ID: " + inst.IDString(),
		"Item: " + inst.Item().IDString(),
		"Parent: " + parent,
		fmt.Sprintf("%d Child(ren)", inst.Children().Len()),
	}
	var sub []string
	_ = core.WalkFrom(inst, func(d core.Instance, depth int) error {
		if depth == 0 {
			return nil
		}
		sub = append(sub, fmt.Sprintf("%s%s Qty: %d (%d) Notes: %s",
			strings.Repeat(" ", 2*(depth-1)), d.IDString(), d.ExpectedQty(), d.HaveQty(), d.Notes()))
		return nil
	})
	lines = append(lines, frame(sub)...)
	return strings.Join(append(lines,
		"Section: "+string(inst.Section()),
		fmt.Sprintf("Expected (Have) Quantity: %d (%d)", inst.ExpectedQty(), inst.HaveQty()),
		"Hidden: "+strconv.FormatBool(inst.Hidden()),
		"Notes: "+inst.Notes(),
	), "\n")
}

// frame prefixes every line with a branch and the final one with a corner.
func frame(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		if i == len(lines)-1 {
			out[i] = last + l
			continue
		}
		out[i] = branch + l
	}
	return out
}
