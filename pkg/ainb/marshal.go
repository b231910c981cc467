package ainb

import (
	"strings"

	"github.com/pkg/errors"
)

type span struct {
	index, count int
}

type nodeLayout struct {
	immediate [numParamTypes]span
	inputs    [numParamTypes]span
	outputs   [numParamTypes]span
	pre       span
	multi     int
	bodyField uint32
}

type inputRef struct {
	prm   *InputParameter
	node  int16
	param int16
}

type encoder struct {
	doc  *Document
	w    writer
	pool *stringPool
	err  error

	immediates [numParamTypes][]*InternalParameter
	inputs     [numParamTypes][]inputRef
	outputs    [numParamTypes][]*OutputParameter
	multi      []Source
	pre        []int
	layouts    []nodeLayout
}

// MarshalBinary encodes the document as an AINB file. The output depends only
// on the document, so encoding a parsed file reproduces it byte for byte.
func (d *Document) MarshalBinary() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	e := &encoder{doc: d, pool: newStringPool()}
	e.flatten()
	e.encode()
	if e.err != nil {
		return nil, e.err
	}
	return e.w.bytes(), nil
}

func (e *encoder) str(s string) uint32 {
	if strings.IndexByte(s, 0) >= 0 && e.err == nil {
		e.err = errors.Wrapf(ErrInvalidDocument, "string %q contains a NUL byte", s)
	}
	return e.pool.add(s)
}

// flatten concatenates per-node parameter lists into the file-wide tables
// and records where each node's slice starts.
func (e *encoder) flatten() {
	e.layouts = make([]nodeLayout, len(e.doc.Nodes))
	for i := range e.doc.Nodes {
		n := &e.doc.Nodes[i]
		l := &e.layouts[i]
		for _, t := range ParamTypes() {
			l.immediate[t] = span{len(e.immediates[t]), len(n.Internal[t])}
			for j := range n.Internal[t] {
				e.immediates[t] = append(e.immediates[t], &n.Internal[t][j])
			}

			l.inputs[t] = span{len(e.inputs[t]), len(n.Inputs[t])}
			for j := range n.Inputs[t] {
				p := &n.Inputs[t][j]
				ref := inputRef{prm: p, node: int16(p.NodeIndex), param: int16(p.ParameterIndex)}
				if len(p.Sources) > 0 {
					ref.node = int16(multiBase - len(e.multi))
					ref.param = int16(len(p.Sources))
					e.multi = append(e.multi, p.Sources...)
					l.multi += len(p.Sources)
				}
				e.inputs[t] = append(e.inputs[t], ref)
			}

			l.outputs[t] = span{len(e.outputs[t]), len(n.Outputs[t])}
			for j := range n.Outputs[t] {
				e.outputs[t] = append(e.outputs[t], &n.Outputs[t][j])
			}
		}
		l.pre = span{len(e.pre), len(n.Preconditions)}
		e.pre = append(e.pre, n.Preconditions...)
	}
}

func (e *encoder) encode() {
	d := e.doc
	w := &e.w
	h := header{
		version:           uint32(d.Info.Version),
		commandCount:      uint32(len(d.Commands)),
		nodeCount:         uint32(len(d.Nodes)),
		preconditionCount: uint32(len(e.pre)),
	}
	h.filename = e.str(d.Info.Filename)
	h.categoryName = e.str(d.Info.FileCategory)
	category, _ := ParseCategory(d.Info.FileCategory)
	h.category = uint32(category)

	w.zeros(headerSize)
	e.writeCommands()
	e.writeNodeTable(&h)
	h.global = w.pos()
	e.writeGlobals()
	e.writeBodies()
	h.immediate = w.pos()
	e.writeImmediates()
	h.resident = w.pos()
	h.io = w.pos()
	e.writeIO()
	h.multi = w.pos()
	for _, s := range e.multi {
		w.i16(int16(s.NodeIndex))
		w.i16(int16(s.ParameterIndex))
	}
	h.attachParam = w.pos()
	h.attachIndex = w.pos()
	h.precondition = w.pos()
	for _, p := range e.pre {
		w.u16(uint16(p))
		w.u16(0)
	}
	h.replacement = w.pos()
	e.writeReplacements()
	h.embedded = w.pos()
	e.writeEmbedded()
	h.entryStrings = w.pos()
	e.writeEntryStrings()
	h.resolve = w.pos()
	w.u32(0)
	h.unknown = w.pos()
	w.u32(0)
	h.hash = w.pos()
	w.u64(uint64(d.FileHashes.Unknown))
	h.strings = w.pos()
	w.buf.Write(e.pool.bytes())

	e.patchHeader(&h)
}

func (e *encoder) patchHeader(h *header) {
	w := &e.w
	copy(w.bytes()[hdrMagic:], Magic)
	for _, f := range []struct {
		off uint32
		v   uint32
	}{
		{hdrVersion, h.version},
		{hdrFilename, h.filename},
		{hdrCommandCount, h.commandCount},
		{hdrNodeCount, h.nodeCount},
		{hdrPreconditionCount, h.preconditionCount},
		{hdrAttachmentCount, 0},
		{hdrOutputCount, h.outputCount},
		{hdrGlobalOffset, h.global},
		{hdrStringOffset, h.strings},
		{hdrResolveOffset, h.resolve},
		{hdrImmediateOffset, h.immediate},
		{hdrResidentOffset, h.resident},
		{hdrIOOffset, h.io},
		{hdrMultiOffset, h.multi},
		{hdrAttachParamOffset, h.attachParam},
		{hdrAttachIndexOffset, h.attachIndex},
		{hdrExpressionOffset, 0},
		{hdrReplacementOffset, h.replacement},
		{hdrPreconditionOffset, h.precondition},
		{hdrEmbeddedOffset, h.embedded},
		{hdrCategoryName, h.categoryName},
		{hdrCategory, h.category},
		{hdrEntryStringOffset, h.entryStrings},
		{hdrUnknownOffset, h.unknown},
		{hdrHashOffset, h.hash},
	} {
		w.putU32At(f.off, f.v)
	}
}

func (e *encoder) writeCommands() {
	w := &e.w
	for _, c := range e.doc.Commands {
		w.u32(e.str(c.Name))
		w.guid(c.GUID)
		w.i16(int16(c.LeftNodeIndex))
		w.i16(int16(c.RightNodeIndex))
	}
}

func (e *encoder) writeNodeTable(h *header) {
	w := &e.w
	for i := range e.doc.Nodes {
		n := &e.doc.Nodes[i]
		l := &e.layouts[i]
		typ, _ := ParseNodeType(n.Type)
		flags, _ := flagBits(n.Flags)
		if isOutputNode(typ) {
			h.outputCount++
		}

		w.u16(typ)
		w.u16(uint16(n.Index))
		w.u16(0)
		w.u8(flags)
		w.u8(0)
		w.u32(e.str(n.Name))
		w.u32(0)
		w.u32(0)
		l.bodyField = w.pos()
		w.u32(0)
		w.u16(0)
		w.u16(0)
		w.u16(uint16(l.multi))
		w.u16(0)
		w.u32(0)
		w.u16(uint16(l.pre.index))
		w.u16(uint16(l.pre.count))
		w.u32(0)
		w.guid(n.GUID)
	}
}

func (e *encoder) value(t ParamType, v Value) {
	w := &e.w
	switch t {
	case ParamInt:
		w.i32(v.Int)
	case ParamBool:
		if v.Bool {
			w.u32(1)
		} else {
			w.u32(0)
		}
	case ParamFloat:
		w.f32(v.Float)
	case ParamString:
		w.u32(e.str(v.String))
	case ParamVec3f:
		for _, c := range v.Vec3f {
			w.f32(c)
		}
	default:
		w.u32(v.UserDefined)
	}
}

func (e *encoder) writeGlobals() {
	w := &e.w
	g := &e.doc.GlobalParameters
	index, valueOff := 0, 0
	for _, t := range ParamTypes() {
		n := len(g.Of(t))
		w.u16(uint16(n))
		w.u16(uint16(index))
		w.u16(uint16(valueOff))
		w.u16(0)
		index += n
		valueOff += n * int(globalValueSize(t))
	}
	if valueOff > 0xFFFF && e.err == nil {
		e.err = errors.Wrapf(ErrInvalidDocument, "global parameter values need %d bytes, at most %d fit", valueOff, 0xFFFF)
	}
	for _, t := range ParamTypes() {
		for _, p := range g.Of(t) {
			w.u32(e.str(p.Name))
			w.u32(e.str(p.Notes))
		}
	}
	for _, t := range ParamTypes() {
		for _, p := range g.Of(t) {
			e.value(t, p.InitValue)
		}
	}
}

func (e *encoder) writeBodies() {
	w := &e.w
	for i := range e.doc.Nodes {
		n := &e.doc.Nodes[i]
		l := &e.layouts[i]
		w.putU32At(l.bodyField, w.pos())
		for _, t := range ParamTypes() {
			w.u32(uint32(l.immediate[t].index))
			w.u32(uint32(l.immediate[t].count))
		}
		for _, t := range ParamTypes() {
			w.u32(uint32(l.inputs[t].index))
			w.u32(uint32(l.inputs[t].count))
			w.u32(uint32(l.outputs[t].index))
			w.u32(uint32(l.outputs[t].count))
		}
		for _, lt := range allLinkTypes() {
			w.u8(uint8(len(n.Links.Of(lt))))
		}
		w.u16(0)
		for _, lt := range allLinkTypes() {
			for _, link := range n.Links.Of(lt) {
				w.u32(uint32(link.NodeIndex))
				w.u32(e.str(link.Parameter))
			}
		}
	}
}

func (e *encoder) writeImmediates() {
	w := &e.w
	table := w.pos()
	w.zeros(numParamTypes * 4)
	for _, t := range ParamTypes() {
		w.putU32At(table+uint32(t)*4, w.pos())
		for _, p := range e.immediates[t] {
			w.u32(e.str(p.Name))
			if t == ParamUserDefined {
				w.u32(e.str(p.Class))
			}
			e.value(t, p.Value)
		}
	}
}

func (e *encoder) writeIO() {
	w := &e.w
	table := w.pos()
	w.zeros(2 * numParamTypes * 4)
	for _, t := range ParamTypes() {
		w.putU32At(table+uint32(2*t)*4, w.pos())
		for _, ref := range e.inputs[t] {
			w.u32(e.str(ref.prm.Name))
			if t == ParamUserDefined {
				w.u32(e.str(ref.prm.Class))
			}
			w.i16(ref.node)
			w.i16(ref.param)
			e.value(t, ref.prm.Value)
		}
		w.putU32At(table+uint32(2*t+1)*4, w.pos())
		for _, p := range e.outputs[t] {
			w.u32(e.str(p.Name))
			if t == ParamUserDefined {
				w.u32(e.str(p.Class))
			}
		}
	}
}

func (e *encoder) writeReplacements() {
	w := &e.w
	w.u16(0)
	w.u16(uint16(len(e.doc.Replacements)))
	w.u32(0)
	for _, r := range e.doc.Replacements {
		w.u8(r.Type)
		w.u8(0)
		w.u16(uint16(r.NodeIndex))
		w.u16(uint16(r.ChangeIndex))
		w.i16(int16(r.ReplacementIndex))
	}
}

func (e *encoder) writeEmbedded() {
	w := &e.w
	w.u32(uint32(len(e.doc.EmbeddedFiles)))
	for _, f := range e.doc.EmbeddedFiles {
		w.u32(e.str(f.FilePath))
		w.u32(e.str(f.FileCategory))
		w.u32(f.Count)
	}
}

func (e *encoder) writeEntryStrings() {
	w := &e.w
	w.u32(uint32(len(e.doc.EntryStrings)))
	for _, s := range e.doc.EntryStrings {
		w.u32(uint32(s.NodeIndex))
		w.u32(e.str(s.MainState))
		w.u32(e.str(s.State))
	}
}
