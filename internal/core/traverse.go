package core

import "errors"

// SkipChildren may be returned by a WalkFunc to skip an instance's subtree.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for each instance visited by Walk with its depth below
// the walk root.
type WalkFunc func(inst Instance, depth int) error

// Walk visits every root instance in insertion order and, depth first, the
// children of each in child insertion order.
func (inv *Inventory) Walk(fn WalkFunc) error {
	for _, root := range inv.Roots() {
		if err := walk(root, 0, fn); err != nil {
			return err
		}
	}
	return nil
}

// WalkFrom visits inst and its subtree depth first.
func WalkFrom(inst Instance, fn WalkFunc) error {
	return walk(inst, 0, fn)
}

func walk(inst Instance, depth int, fn WalkFunc) error {
	err := fn(inst, depth)
	if errors.Is(err, SkipChildren) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, child := range inst.Children().All() {
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Descendants returns inst's subtree (excluding inst) in depth-first order.
func Descendants(inst Instance) []Instance {
	var out []Instance
	_ = walk(inst, 0, func(i Instance, depth int) error {
		if depth > 0 {
			out = append(out, i)
		}
		return nil
	})
	return out
}

// Ancestors returns the parent chain of inst, nearest first.
func Ancestors(inst Instance) []Instance {
	var out []Instance
	for p, ok := inst.Parent(); ok; p, ok = p.Parent() {
		out = append(out, p)
	}
	return out
}
