// Package hierarchy holds the immutable class hierarchy snapshot taken
// before detectors start scanning.
package hierarchy

import (
	"github.com/sarang1991/findbugs/pkg/classfile"
)

// ClassInfo is the hierarchy view of one class. Names are dotted.
type ClassInfo struct {
	Name        string
	Super       string
	Interfaces  []string
	IsInterface bool

	// Class is the parsed classfile the entry was built from.
	Class *classfile.Class
}

// Snapshot maps class names to their hierarchy edges. It is never mutated
// after New returns, so concurrent readers need no locking.
type Snapshot struct {
	classes map[string]*ClassInfo
}

// New builds a snapshot from classes. When a name occurs more than once the
// first occurrence wins, matching classpath order.
func New(classes []*classfile.Class) *Snapshot {
	s := &Snapshot{classes: make(map[string]*ClassInfo, len(classes))}
	for _, c := range classes {
		if _, ok := s.classes[c.Name]; ok {
			continue
		}
		s.classes[c.Name] = &ClassInfo{
			Name:        c.Name,
			Super:       c.Super,
			Interfaces:  c.Interfaces,
			IsInterface: c.IsInterface(),
			Class:       c,
		}
	}
	return s
}

// Lookup returns the entry for name. ok is false when the class is not on
// the classpath.
func (s *Snapshot) Lookup(name string) (*ClassInfo, bool) {
	info, ok := s.classes[name]
	return info, ok
}

// Len returns the number of classes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.classes)
}

// Ancestors returns the resolvable ancestors of name in breadth-first
// order: the superclass chain nearest first, then interfaces level by level
// in declaration order. Each class appears once. Unresolvable classes are
// skipped and contribute no further ancestors.
func (s *Snapshot) Ancestors(name string) []*ClassInfo {
	start, ok := s.Lookup(name)
	if !ok {
		return nil
	}
	visited := map[string]bool{name: true}
	var out []*ClassInfo

	// Superclass chain first.
	var level []*ClassInfo
	level = append(level, start)
	for c := start; c.Super != "" && !visited[c.Super]; {
		visited[c.Super] = true
		next, ok := s.Lookup(c.Super)
		if !ok {
			break
		}
		out = append(out, next)
		level = append(level, next)
		c = next
	}

	// Then interfaces, one level at a time.
	for len(level) > 0 {
		var next []*ClassInfo
		for _, c := range level {
			for _, iface := range c.Interfaces {
				if visited[iface] {
					continue
				}
				visited[iface] = true
				info, ok := s.Lookup(iface)
				if !ok {
					continue
				}
				out = append(out, info)
				next = append(next, info)
			}
		}
		level = next
	}
	return out
}
