// Package lower implements lowering (spec component E): turning the
// analyzed ast.File into the internal/model dissector model, one
// declaration at a time. This is where every per-kind rule in spec §4.E
// lives — Size/Count sibling resolution, the padding-fold rule, optional
// field gating via Flag siblings, and enum-type resolution for group/
// inheritance constraints.
package lower

import (
	"github.com/sirupsen/logrus"

	"github.com/oakmoss/pdl2lua/internal/ast"
	"github.com/oakmoss/pdl2lua/internal/diag"
	"github.com/oakmoss/pdl2lua/internal/lenalg"
	"github.com/oakmoss/pdl2lua/internal/model"
)

// Lowerer holds the state lowering needs across every declaration in a
// file: the resolved scope, a logger (ambient stack, threaded the way the
// teacher threads log.Printf through Generator methods), and a cache of
// already-lowered declarations so Typedef fields can look up a sibling
// declaration's total length without re-lowering it.
type Lowerer struct {
	scope *ast.Scope
	log   *logrus.Logger
	cache map[string]model.DeclModel
}

// New returns a Lowerer for scope, logging through log.
func New(scope *ast.Scope, log *logrus.Logger) *Lowerer {
	if log == nil {
		log = logrus.New()
	}
	return &Lowerer{scope: scope, log: log, cache: make(map[string]model.DeclModel)}
}

// Decl lowers the named declaration, memoizing the result. Returns
// (nil, nil) for a custom_field declaration: custom_field declarations have
// no dissect function of their own (spec.md is silent on them; they are
// lowered transparently wherever a Typedef field names one, as a Scalar of
// the declared width — see fieldCtx.lowerTypedef).
func (lw *Lowerer) Decl(id string) (model.DeclModel, error) {
	if m, ok := lw.cache[id]; ok {
		return m, nil
	}
	d, ok := lw.scope.Lookup(id)
	if !ok {
		return nil, diag.New(diag.TypedefUnresolved, "no declaration named %q", id)
	}
	m, err := lw.declToModel(d)
	if err != nil {
		return nil, err
	}
	lw.cache[id] = m
	return m, nil
}

func (lw *Lowerer) declToModel(d *ast.Decl) (model.DeclModel, error) {
	switch d.Kind {
	case ast.DeclEnum:
		return lw.lowerEnum(d), nil
	case ast.DeclChecksum:
		return &model.Checksum{NameValue: d.ID, Width: lenalg.BitLen(d.Width), Endian: lw.scope.File().Endianness, CommentText: d.Comment}, nil
	case ast.DeclCustomField:
		lw.log.Debugf("lower: %s is a custom_field, no standalone dissect function", d.ID)
		return nil, nil
	case ast.DeclPacket, ast.DeclStruct, ast.DeclGroup:
		return lw.lowerSequence(d)
	default:
		return nil, diag.At(diag.BadInput, d.Loc, "unknown declaration kind for %q", d.ID)
	}
}

func (lw *Lowerer) lowerEnum(d *ast.Decl) *model.Enum {
	tags := make([]ast.Tag, len(d.Tags))
	copy(tags, d.Tags)
	hasOther := false
	for _, t := range tags {
		if t.Kind == ast.TagOther {
			hasOther = true
		}
	}
	if !hasOther {
		// Invariant I4: every enum dissects a catch-all arm even if the
		// source declaration didn't name one explicitly.
		tags = append(tags, ast.Tag{Kind: ast.TagOther, ID: "unknown"})
	}
	return &model.Enum{NameValue: d.ID, Width: lenalg.BitLen(d.Width), Tags: tags, CommentText: d.Comment}
}

// fieldCtx tracks the running state lowering a declaration's field list
// needs: the bit offset threaded field to field (invariant I1), and the
// Size/Count and Flag tables, filled up front from the whole field list (for
// sibling lookups). The padding-fold lookahead lives in lowerFieldList.
type fieldCtx struct {
	lw        *Lowerer
	ownerID   string
	endian    ast.Endianness
	bitOffset lenalg.BitLen
	sizeOf    map[string]sizeSibling // target field ID -> its governing Size/Count field
	flagIDs   map[string]bool        // declared Flag field IDs, for optional-gate validation
	fixedIdx  int                    // allocates index-suffixed abbrs for Reserved/FixedScalar/FixedEnum fields
}

type sizeSibling struct {
	abbr     string
	isCount  bool
	modifier int
}

func (lw *Lowerer) lowerSequence(d *ast.Decl) (*model.Sequence, error) {
	constraints, err := lw.sequenceConstraints(d)
	if err != nil {
		return nil, err
	}
	return lw.lowerFieldList(d, lw.scope.Fields(d), d.ID, constraints)
}

// DeclOwnFields lowers only d's own (non-inherited) DeclFields, under a
// "<id>_body" name, for Payload/Body dispatch children: by the time a
// dispatching field is reached, the parent has already dissected the shared
// prefix it and its children hold in common, so the dispatched child must
// only dissect the fields it adds beyond that prefix rather than
// re-dissecting the inherited ones scope.Fields(d) would also return (spec
// §4.F Payload dispatch).
func (lw *Lowerer) DeclOwnFields(id string) (*model.Sequence, error) {
	key := id + "$body"
	if m, ok := lw.cache[key]; ok {
		return m.(*model.Sequence), nil
	}
	d, ok := lw.scope.Lookup(id)
	if !ok {
		return nil, diag.New(diag.TypedefUnresolved, "no declaration named %q", id)
	}
	m, err := lw.lowerFieldList(d, d.DeclFields, id+"_body", nil)
	if err != nil {
		return nil, err
	}
	lw.cache[key] = m
	return m, nil
}

// lowerFieldList lowers fields (either d's full parent-chain-flattened field
// list, or just its own DeclFields for DeclOwnFields) into a Sequence named
// nameValue.
func (lw *Lowerer) lowerFieldList(d *ast.Decl, fields []*ast.Field, nameValue string, constraints []model.ConstraintModel) (*model.Sequence, error) {
	ctx := &fieldCtx{
		lw:      lw,
		ownerID: d.ID,
		endian:  lw.scope.File().Endianness,
		sizeOf:  make(map[string]sizeSibling),
		flagIDs: make(map[string]bool),
	}
	// Record every Size/Count field's target, and every declared Flag's id,
	// up front so later fields can be resolved regardless of whether the
	// governing field precedes or follows them in source order.
	for _, f := range fields {
		if f.Kind == ast.FieldSize || f.Kind == ast.FieldCount {
			ctx.sizeOf[f.ID] = sizeSibling{abbr: abbrOf(f), isCount: f.Kind == ast.FieldCount, modifier: f.SizeModifier}
		}
		if f.Kind == ast.FieldFlag {
			ctx.flagIDs[f.ID] = true
		}
	}

	var out []model.FieldModel
	var pendingArray model.FieldModel // awaiting fold-check against a following Padding field

	flush := func() {
		if pendingArray != nil {
			out = append(out, pendingArray)
			pendingArray = nil
		}
	}

	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f.Kind == ast.FieldPadding && pendingArray != nil {
			foldPadding(pendingArray, f.PadToSize)
			out = append(out, pendingArray)
			pendingArray = nil
			// A padded array always ends on the declared byte boundary.
			ctx.bitOffset = 0
			continue
		}
		flush()

		fm, err := ctx.fieldToModel(f)
		if err != nil {
			return nil, err
		}
		if fm == nil {
			continue // group reference: contributes no field model of its own
		}
		ctx.advance(fm)

		switch fm.(type) {
		case *model.ScalarArray, *model.TypedefArray:
			pendingArray = fm
		default:
			out = append(out, fm)
		}
	}
	flush()

	if constraints == nil {
		var err error
		constraints, err = lw.sequenceConstraints(d)
		if err != nil {
			return nil, err
		}
	}

	total := lenalg.Empty()
	for _, fm := range out {
		total = total.Add(fm.Len())
	}

	return &model.Sequence{NameValue: nameValue, Fields: out, Constraints: constraints, Len: total, CommentText: d.Comment}, nil
}

// advance threads the running bit offset across a run of unaligned fields
// (invariant I1/I3): fm's own CommonField.BitOffset was already set by
// common() to the cumulative offset at fm's start within the current run;
// advance folds in fm's own bit length and resets to 0 once the cumulative
// total lands on a byte boundary, closing the run. For a 3/9/4/3/4-bit
// sequence the offsets are {0, 3, 12, 0, 3}: the first three fields close a
// 16-bit run, and the next two start a new one.
func (c *fieldCtx) advance(fm model.FieldModel) {
	w := fm.Len()
	if !w.IsBounded() {
		c.bitOffset = 0
		return
	}
	total := c.bitOffset + w.ConstBits()
	if total%8 == 0 {
		c.bitOffset = 0
	} else {
		c.bitOffset = total
	}
}

// foldPadding merges a following Padding field's target size into an array
// field's ArrayAttrs (spec Design Notes padding-fold rule), rather than
// emitting the padding as a field model of its own.
func foldPadding(fm model.FieldModel, padToSize int) {
	size := padToSize
	switch v := fm.(type) {
	case *model.ScalarArray:
		v.PadToSize = &size
	case *model.TypedefArray:
		v.PadToSize = &size
	}
}

func (lw *Lowerer) sequenceConstraints(d *ast.Decl) ([]model.ConstraintModel, error) {
	var out []model.ConstraintModel
	for _, c := range lw.scope.AllConstraints(d) {
		cm, err := lw.constraintToModel(d, c)
		if err != nil {
			return nil, err
		}
		out = append(out, cm)
	}
	for _, f := range d.DeclFields {
		if f.Kind != ast.FieldGroup {
			continue
		}
		for _, c := range f.GroupConstraints {
			cm, err := lw.constraintToModel(d, c)
			if err != nil {
				return nil, err
			}
			out = append(out, cm)
		}
	}
	return out, nil
}

func (lw *Lowerer) constraintToModel(owner *ast.Decl, c ast.Constraint) (model.ConstraintModel, error) {
	if c.Value != nil {
		return model.ValueMatch{FieldAbbr: c.ID, Value: *c.Value}, nil
	}
	enumName, err := lw.enumTypeOfField(owner, c.ID)
	if err != nil {
		return nil, err
	}
	return model.EnumMatch{FieldAbbr: c.ID, EnumName: enumName, TagID: *c.TagID}, nil
}

// enumTypeOfField walks owner's flattened field list looking for a Typedef
// field named id and resolves the enum declaration it names.
func (lw *Lowerer) enumTypeOfField(owner *ast.Decl, id string) (string, error) {
	for _, f := range lw.scope.Fields(owner) {
		if f.ID == id && (f.Kind == ast.FieldTypedef || f.Kind == ast.FieldFixedEnum) {
			return f.TypeID, nil
		}
	}
	return "", diag.At(diag.TypedefUnresolved, owner.Loc, "constraint on %q in %q: no enum-typed field found", id, owner.ID)
}

// abbrOf returns a field's own Lua-side abbreviation. Size/Count fields
// carry the governed field's identifier (they have no name of their own on
// the wire, spec §4.E), so their abbr is suffixed to avoid colliding with
// the governed field's own abbr when both appear in the same declaration
// (e.g. `_count_(items): 8, items: 8[]` — a very common PDL array shape).
func abbrOf(f *ast.Field) string {
	switch f.Kind {
	case ast.FieldSize:
		return f.ID + "_size"
	case ast.FieldCount:
		return f.ID + "_count"
	default:
		return f.ID
	}
}
