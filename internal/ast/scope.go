package ast

import "fmt"

// Scope indexes a File's declarations by identifier and resolves the
// inheritance relationships PDL's `: ParentID` constraint-extension syntax
// establishes, so internal/lower never has to re-walk File.Declarations
// looking things up by name.
type Scope struct {
	file    *File
	byID    map[string]*Decl
	parent  map[string]*Decl // child ID -> parent Decl, only for declared ParentID
	childOf map[string][]*Decl
}

// NewScope builds the lookup tables for a File and validates that every
// TypeID/ParentID/GroupID reference names an existing declaration; the kind
// of the referenced declaration is not checked. It is the only validation
// this package performs; all
// other semantic analysis is the external analyzer's job (spec §6.1).
func NewScope(file *File) (*Scope, error) {
	s := &Scope{
		file:    file,
		byID:    make(map[string]*Decl, len(file.Declarations)),
		parent:  make(map[string]*Decl),
		childOf: make(map[string][]*Decl),
	}
	for _, d := range file.Declarations {
		if _, dup := s.byID[d.ID]; dup {
			return nil, fmt.Errorf("ast: duplicate declaration id %q", d.ID)
		}
		s.byID[d.ID] = d
	}
	for _, d := range file.Declarations {
		if d.ParentID == "" {
			continue
		}
		parent, ok := s.byID[d.ParentID]
		if !ok {
			return nil, fmt.Errorf("ast: %q inherits from unknown declaration %q", d.ID, d.ParentID)
		}
		s.parent[d.ID] = parent
		s.childOf[d.ParentID] = append(s.childOf[d.ParentID], d)
	}
	for _, d := range file.Declarations {
		for _, f := range d.DeclFields {
			if err := s.validateField(d, f); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Scope) validateField(owner *Decl, f *Field) error {
	switch f.Kind {
	case FieldTypedef, FieldTypedefArray, FieldFixedEnum:
		if _, ok := s.byID[f.TypeID]; !ok {
			return fmt.Errorf("ast: field %q of %q references unknown type %q", f.ID, owner.ID, f.TypeID)
		}
	case FieldGroup:
		if _, ok := s.byID[f.GroupID]; !ok {
			return fmt.Errorf("ast: field of %q references unknown group %q", owner.ID, f.GroupID)
		}
	}
	return nil
}

// Lookup returns the declaration with the given identifier.
func (s *Scope) Lookup(id string) (*Decl, bool) {
	d, ok := s.byID[id]
	return d, ok
}

// Parent returns the declaration named in d's ParentID, if any.
func (s *Scope) Parent(d *Decl) (*Decl, bool) {
	p, ok := s.parent[d.ID]
	return p, ok
}

// Children returns every declaration that names d as its parent, in source
// order — the packets/structs that extend d via constraint inheritance.
func (s *Scope) Children(d *Decl) []*Decl {
	return s.childOf[d.ID]
}

// Fields returns d's complete field list: the parent chain's fields
// (root-first) followed by d's own DeclFields, matching the wire layout a
// child declaration actually has. A group reference is replaced by the
// group's own fields, recursively; the FieldGroup entry itself is kept only
// where the group is unknown or already being expanded.
func (s *Scope) Fields(d *Decl) []*Field {
	var chain []*Decl
	for cur := d; cur != nil; {
		chain = append(chain, cur)
		p, ok := s.Parent(cur)
		if !ok {
			break
		}
		cur = p
	}
	var fields []*Field
	var expand func(fs []*Field, seen map[string]bool)
	expand = func(fs []*Field, seen map[string]bool) {
		for _, f := range fs {
			g, ok := s.byID[f.GroupID]
			if f.Kind != FieldGroup || !ok || seen[g.ID] {
				fields = append(fields, f)
				continue
			}
			seen[g.ID] = true
			expand(g.DeclFields, seen)
			delete(seen, g.ID)
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		expand(chain[i].DeclFields, map[string]bool{})
	}
	return fields
}

// AllConstraints returns the constraints pinned along d's entire parent
// chain (root-first), combining InheritConstraints at each link.
func (s *Scope) AllConstraints(d *Decl) []Constraint {
	var chain []*Decl
	for cur := d; cur != nil; {
		chain = append(chain, cur)
		p, ok := s.Parent(cur)
		if !ok {
			break
		}
		cur = p
	}
	var out []Constraint
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].InheritConstraints...)
	}
	return out
}

// File returns the Scope's underlying File.
func (s *Scope) File() *File { return s.file }
