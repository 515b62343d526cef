package ast

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewScopeRejectsDuplicateID(t *testing.T) {
	f := &File{Declarations: []*Decl{
		{ID: "Foo", Kind: DeclStruct},
		{ID: "Foo", Kind: DeclStruct},
	}}
	_, err := NewScope(f)
	require.Error(t, err)
}

func TestNewScopeRejectsUnknownParent(t *testing.T) {
	f := &File{Declarations: []*Decl{
		{ID: "Child", Kind: DeclStruct, ParentID: "NoSuchParent"},
	}}
	_, err := NewScope(f)
	require.Error(t, err)
}

func TestNewScopeRejectsUnknownTypedefTarget(t *testing.T) {
	f := &File{Declarations: []*Decl{
		{ID: "Foo", Kind: DeclStruct, DeclFields: []*Field{
			{ID: "x", Kind: FieldTypedef, TypeID: "NoSuchType"},
		}},
	}}
	_, err := NewScope(f)
	require.Error(t, err)
}

func TestNewScopeRejectsUnknownGroupReference(t *testing.T) {
	f := &File{Declarations: []*Decl{
		{ID: "Foo", Kind: DeclStruct, DeclFields: []*Field{
			{Kind: FieldGroup, GroupID: "NoSuchGroup"},
		}},
	}}
	_, err := NewScope(f)
	require.Error(t, err)
}

// Fields flattens a declaration's parent chain root-first, matching the
// wire layout a child declaration actually has: the parent's own fields
// precede the child's.
func TestScopeFieldsFlattensParentChainRootFirst(t *testing.T) {
	parent := &Decl{ID: "Header", Kind: DeclStruct, DeclFields: []*Field{
		{ID: "opcode", Kind: FieldScalar, Width: 8},
	}}
	child := &Decl{ID: "Message", Kind: DeclPacket, ParentID: "Header", DeclFields: []*Field{
		{ID: "payload_len", Kind: FieldScalar, Width: 16},
	}}
	scope, err := NewScope(&File{Declarations: []*Decl{parent, child}})
	require.NoError(t, err)

	fields := scope.Fields(child)
	require.Len(t, fields, 2)
	require.Equal(t, "opcode", fields[0].ID)
	require.Equal(t, "payload_len", fields[1].ID)
}

// AllConstraints combines InheritConstraints along the entire parent chain,
// root-first, so a grandchild declaration carries both its own constraint
// and every ancestor's.
func TestScopeAllConstraintsCombinesParentChain(t *testing.T) {
	v1, v2 := 1, 2
	grandparent := &Decl{ID: "A", Kind: DeclStruct}
	parent := &Decl{ID: "B", Kind: DeclStruct, ParentID: "A",
		InheritConstraints: []Constraint{{ID: "x", Value: &v1}}}
	child := &Decl{ID: "C", Kind: DeclPacket, ParentID: "B",
		InheritConstraints: []Constraint{{ID: "y", Value: &v2}}}
	scope, err := NewScope(&File{Declarations: []*Decl{grandparent, parent, child}})
	require.NoError(t, err)

	cs := scope.AllConstraints(child)
	require.Len(t, cs, 2)
	require.Equal(t, "x", cs[0].ID)
	require.Equal(t, "y", cs[1].ID)
}

func TestScopeChildrenReturnsDeclaredSubtypes(t *testing.T) {
	parent := &Decl{ID: "Request", Kind: DeclPacket}
	childA := &Decl{ID: "GetRequest", Kind: DeclPacket, ParentID: "Request"}
	childB := &Decl{ID: "SetRequest", Kind: DeclPacket, ParentID: "Request"}
	scope, err := NewScope(&File{Declarations: []*Decl{parent, childA, childB}})
	require.NoError(t, err)

	children := scope.Children(parent)
	require.Len(t, children, 2)
	require.Equal(t, "GetRequest", children[0].ID)
	require.Equal(t, "SetRequest", children[1].ID)
}
