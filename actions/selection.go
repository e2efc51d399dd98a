package actions

import (
	"fmt"

	"dupfinder/bridge"
)

// Selection marks files across exported duplicate groups. Group and entry
// order follow the export order.
type Selection struct {
	groups [][]bridge.Entry
	marked [][]bool
}

// NewSelection starts with nothing selected.
func NewSelection(groups [][]bridge.Entry) *Selection {
	s := &Selection{groups: groups, marked: make([][]bool, len(groups))}
	for i, group := range groups {
		s.marked[i] = make([]bool, len(group))
	}
	return s
}

func (s *Selection) SelectAll()  { s.fill(func(int, int) bool { return true }) }
func (s *Selection) SelectNone() { s.fill(func(int, int) bool { return false }) }

// SelectDuplicates selects every file except the first of each group.
func (s *Selection) SelectDuplicates() {
	s.fill(func(_, j int) bool { return j > 0 })
}

func (s *Selection) InvertSelection() {
	s.fill(func(i, j int) bool { return !s.marked[i][j] })
}

func (s *Selection) fill(mark func(group, index int) bool) {
	for i := range s.marked {
		for j := range s.marked[i] {
			s.marked[i][j] = mark(i, j)
		}
	}
}

// Set marks a single file.
func (s *Selection) Set(group, index int, selected bool) error {
	if group < 0 || group >= len(s.marked) || index < 0 || index >= len(s.marked[group]) {
		return fmt.Errorf("no file at group %d index %d", group, index)
	}
	s.marked[group][index] = selected
	return nil
}

func (s *Selection) IsSelected(group, index int) bool {
	if group < 0 || group >= len(s.marked) || index < 0 || index >= len(s.marked[group]) {
		return false
	}
	return s.marked[group][index]
}

// Selected returns the selected paths in group order.
func (s *Selection) Selected() []string {
	var paths []string
	for i, group := range s.groups {
		for j, entry := range group {
			if s.marked[i][j] {
				paths = append(paths, entry.Path)
			}
		}
	}
	return paths
}

func (s *Selection) Count() int {
	n := 0
	for _, marks := range s.marked {
		for _, m := range marks {
			if m {
				n++
			}
		}
	}
	return n
}

// groupPlan is one group split into the file kept and the files acted on.
type groupPlan struct {
	original bridge.Entry
	targets  []bridge.Entry
}

// plan keeps the first unselected file of each group as the original. When
// a whole group is selected its first file is kept instead, so every group
// retains one copy.
func (s *Selection) plan() []groupPlan {
	var plans []groupPlan
	for i, group := range s.groups {
		var p groupPlan
		kept := false
		for j, entry := range group {
			switch {
			case s.marked[i][j]:
				p.targets = append(p.targets, entry)
			case !kept:
				p.original = entry
				kept = true
			}
		}
		if !kept && len(p.targets) > 0 {
			p.original = p.targets[0]
			p.targets = p.targets[1:]
		}
		if len(p.targets) > 0 {
			plans = append(plans, p)
		}
	}
	return plans
}
