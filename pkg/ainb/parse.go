package ainb

import (
	"github.com/pkg/errors"
)

type header struct {
	version           uint32
	filename          uint32
	commandCount      uint32
	nodeCount         uint32
	preconditionCount uint32
	attachmentCount   uint32
	outputCount       uint32
	global            uint32
	strings           uint32
	resolve           uint32
	immediate         uint32
	resident          uint32
	io                uint32
	multi             uint32
	attachParam       uint32
	attachIndex       uint32
	expression        uint32
	replacement       uint32
	precondition      uint32
	embedded          uint32
	categoryName      uint32
	category          uint32
	entryStrings      uint32
	unknown           uint32
	hash              uint32
}

type parser struct {
	r   *reader
	hdr header
}

type rawNode struct {
	typ          uint16
	index        uint16
	attachments  uint16
	flags        uint8
	name         uint32
	body         uint32
	exbFunctions uint16
	basePre      uint16
	preCount     uint16
	guid         GUID
}

// Parse decodes an AINB file.
func Parse(data []byte) (*Document, error) {
	if len(data) < headerSize {
		return nil, errors.Wrapf(ErrTruncated, "header needs %d bytes, have %d", headerSize, len(data))
	}
	if string(data[:4]) != Magic {
		return nil, errors.Wrapf(ErrInvalidMagic, "got %q", data[:4])
	}

	p := &parser{r: newReader(data)}
	p.readHeader()
	h := &p.hdr

	if h.version != VersionSplatoon && h.version != VersionTotK {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "0x%x", h.version)
	}
	if h.attachmentCount != 0 {
		return nil, errors.Wrapf(ErrUnsupported, "%d node attachments", h.attachmentCount)
	}
	if h.expression != 0 {
		return nil, errors.Wrap(ErrUnsupported, "expression block")
	}
	if int(h.strings) >= len(data) {
		return nil, errors.Wrapf(ErrBadOffset, "string pool at 0x%x", h.strings)
	}

	doc := &Document{
		Info: Info{
			Magic:    Magic,
			Version:  Version(h.version),
			Filename: p.str(h.filename),
		},
	}
	doc.Info.FileCategory = p.str(h.categoryName)
	if doc.Info.FileCategory == "" {
		doc.Info.FileCategory = Category(h.category).String()
	}
	if err := p.check("header"); err != nil {
		return nil, err
	}

	doc.Commands = p.readCommands()
	if err := p.check("commands"); err != nil {
		return nil, err
	}

	multi := p.readMulti()
	if err := p.check("multi-source table"); err != nil {
		return nil, err
	}
	immediates := p.readImmediates()
	if err := p.check("internal parameters"); err != nil {
		return nil, err
	}
	inputs, outputs := p.readIO(multi)
	if err := p.check("input/output parameters"); err != nil {
		return nil, err
	}
	pre := p.readPreconditions()
	if err := p.check("precondition table"); err != nil {
		return nil, err
	}

	nodes, err := p.readNodes(&immediates, &inputs, &outputs, pre)
	if err != nil {
		return nil, err
	}
	doc.Nodes = nodes

	doc.GlobalParameters = p.readGlobals()
	if err := p.check("global parameters"); err != nil {
		return nil, err
	}
	doc.EmbeddedFiles = p.readEmbedded()
	doc.EntryStrings = p.readEntryStrings()
	doc.Replacements = p.readReplacements()
	if h.hash != 0 {
		p.r.seek(h.hash)
		doc.FileHashes.Unknown = Hash(p.r.u64())
	}
	if err := p.check("trailing sections"); err != nil {
		return nil, err
	}
	// anything accepted here must be writable again
	if err := doc.Validate(); err != nil {
		return nil, errors.Wrap(err, "parsed document")
	}
	return doc, nil
}

func (p *parser) check(section string) error {
	if p.r.err != nil {
		return errors.Wrap(p.r.err, section)
	}
	return nil
}

func (p *parser) fail(err error) {
	if p.r.err == nil {
		p.r.err = err
	}
}

func (p *parser) str(off uint32) string {
	abs := uint64(p.hdr.strings) + uint64(off)
	if abs >= uint64(len(p.r.buf)) {
		p.fail(errors.Wrapf(ErrBadOffset, "string offset 0x%x", off))
		return ""
	}
	return p.r.cstring(uint32(abs))
}

// count returns how many entries of size fit exactly in [start, end).
func (p *parser) count(start, end, size uint32) int {
	if end < start || (end-start)%size != 0 {
		p.fail(errors.Wrapf(ErrBadOffset, "section [0x%x, 0x%x) is not a multiple of %d", start, end, size))
		return 0
	}
	return int((end - start) / size)
}

func (p *parser) readHeader() {
	r := p.r
	h := &p.hdr
	r.seek(hdrVersion)
	h.version = r.u32()
	h.filename = r.u32()
	h.commandCount = r.u32()
	h.nodeCount = r.u32()
	h.preconditionCount = r.u32()
	h.attachmentCount = r.u32()
	h.outputCount = r.u32()
	h.global = r.u32()
	h.strings = r.u32()
	h.resolve = r.u32()
	h.immediate = r.u32()
	h.resident = r.u32()
	h.io = r.u32()
	h.multi = r.u32()
	h.attachParam = r.u32()
	h.attachIndex = r.u32()
	h.expression = r.u32()
	h.replacement = r.u32()
	h.precondition = r.u32()
	r.seek(hdrEmbeddedOffset)
	h.embedded = r.u32()
	h.categoryName = r.u32()
	h.category = r.u32()
	h.entryStrings = r.u32()
	h.unknown = r.u32()
	h.hash = r.u32()
}

func (p *parser) readCommands() []Command {
	r := p.r
	r.seek(headerSize)
	if p.hdr.commandCount == 0 {
		return []Command{}
	}
	if !r.fits(p.hdr.commandCount, commandSize) {
		return nil
	}
	cmds := make([]Command, 0, p.hdr.commandCount)
	for i := uint32(0); i < p.hdr.commandCount && r.err == nil; i++ {
		var c Command
		c.Name = p.str(r.u32())
		c.GUID = r.guid()
		c.LeftNodeIndex = int(r.i16())
		c.RightNodeIndex = int(r.i16())
		cmds = append(cmds, c)
	}
	return cmds
}

func (p *parser) value(t ParamType) Value {
	r := p.r
	switch t {
	case ParamInt:
		return IntValue(r.i32())
	case ParamBool:
		return BoolValue(r.u32() != 0)
	case ParamFloat:
		return FloatValue(r.f32())
	case ParamString:
		return StringValue(p.str(r.u32()))
	case ParamVec3f:
		return Vec3fValue(r.f32(), r.f32(), r.f32())
	default:
		return UserDefinedValue(r.u32())
	}
}

func (p *parser) readImmediates() [numParamTypes][]InternalParameter {
	var out [numParamTypes][]InternalParameter
	r := p.r
	r.seek(p.hdr.immediate)
	var offs [numParamTypes]uint32
	for i := range offs {
		offs[i] = r.u32()
	}
	for _, t := range ParamTypes() {
		end := p.hdr.resident
		if int(t)+1 < numParamTypes {
			end = offs[t+1]
		}
		n := p.count(offs[t], end, immediateSize(t))
		r.seek(offs[t])
		list := make([]InternalParameter, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			var prm InternalParameter
			prm.Name = p.str(r.u32())
			if t == ParamUserDefined {
				prm.Class = p.str(r.u32())
			}
			prm.Value = p.value(t)
			list = append(list, prm)
		}
		out[t] = list
	}
	return out
}

func (p *parser) readMulti() []Source {
	r := p.r
	n := p.count(p.hdr.multi, p.hdr.attachParam, multiSize)
	r.seek(p.hdr.multi)
	out := make([]Source, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		node := r.i16()
		param := r.i16()
		out = append(out, Source{NodeIndex: int(node), ParameterIndex: int(param)})
	}
	return out
}

func (p *parser) readIO(multi []Source) (in [numParamTypes][]InputParameter, out [numParamTypes][]OutputParameter) {
	r := p.r
	r.seek(p.hdr.io)
	var offs [2 * numParamTypes]uint32
	for i := range offs {
		offs[i] = r.u32()
	}
	for _, t := range ParamTypes() {
		inStart, outStart := offs[2*t], offs[2*t+1]
		outEnd := p.hdr.multi
		if int(t)+1 < numParamTypes {
			outEnd = offs[2*t+2]
		}

		n := p.count(inStart, outStart, inputSize(t))
		r.seek(inStart)
		inputs := make([]InputParameter, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			var prm InputParameter
			prm.Name = p.str(r.u32())
			if t == ParamUserDefined {
				prm.Class = p.str(r.u32())
			}
			node := int(r.i16())
			param := int(r.i16())
			prm.Value = p.value(t)
			if node <= multiBase && node >= multiFloor {
				start := multiBase - node
				if start+param > len(multi) || param < 0 {
					p.fail(errors.Wrapf(ErrBadOffset, "%s input %q: sources [%d, %d) beyond multi-source table", t, prm.Name, start, start+param))
					break
				}
				prm.NodeIndex, prm.ParameterIndex = -1, -1
				prm.Sources = append([]Source(nil), multi[start:start+param]...)
			} else {
				prm.NodeIndex, prm.ParameterIndex = node, param
			}
			inputs = append(inputs, prm)
		}
		in[t] = inputs

		n = p.count(outStart, outEnd, outputSize(t))
		r.seek(outStart)
		outputs := make([]OutputParameter, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			var prm OutputParameter
			prm.Name = p.str(r.u32())
			if t == ParamUserDefined {
				prm.Class = p.str(r.u32())
			}
			outputs = append(outputs, prm)
		}
		out[t] = outputs
	}
	return in, out
}

func (p *parser) readPreconditions() []int {
	r := p.r
	r.seek(p.hdr.precondition)
	if !r.fits(p.hdr.preconditionCount, preconditionSize) {
		return nil
	}
	out := make([]int, 0, p.hdr.preconditionCount)
	for i := uint32(0); i < p.hdr.preconditionCount && r.err == nil; i++ {
		out = append(out, int(r.u16()))
		r.u16()
	}
	return out
}

func (p *parser) readNodes(
	immediates *[numParamTypes][]InternalParameter,
	inputs *[numParamTypes][]InputParameter,
	outputs *[numParamTypes][]OutputParameter,
	pre []int,
) ([]Node, error) {
	r := p.r
	r.seek(headerSize + p.hdr.commandCount*commandSize)
	if !r.fits(p.hdr.nodeCount, nodeSize) {
		return nil, p.check("node table")
	}

	raws := make([]rawNode, 0, p.hdr.nodeCount)
	for i := uint32(0); i < p.hdr.nodeCount && r.err == nil; i++ {
		var n rawNode
		n.typ = r.u16()
		n.index = r.u16()
		n.attachments = r.u16()
		n.flags = r.u8()
		r.u8()
		n.name = r.u32()
		r.u32()
		r.u32()
		n.body = r.u32()
		n.exbFunctions = r.u16()
		r.u16()
		r.u16() // multi-source count, recomputed on write
		r.u16()
		r.u32()
		n.basePre = r.u16()
		n.preCount = r.u16()
		r.u32()
		n.guid = r.guid()
		raws = append(raws, n)
	}
	if err := p.check("node table"); err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, len(raws))
	for i, raw := range raws {
		node, err := p.readNode(raw, immediates, inputs, outputs, pre)
		if err != nil {
			return nil, errors.Wrapf(err, "node %d", i)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (p *parser) readNode(
	raw rawNode,
	immediates *[numParamTypes][]InternalParameter,
	inputs *[numParamTypes][]InputParameter,
	outputs *[numParamTypes][]OutputParameter,
	pre []int,
) (Node, error) {
	r := p.r
	typeName, ok := NodeTypeName(raw.typ)
	if !ok {
		return Node{}, errors.Wrapf(ErrUnsupported, "node type %d", raw.typ)
	}
	if raw.attachments != 0 || raw.exbFunctions != 0 {
		return Node{}, errors.Wrap(ErrUnsupported, "node attachments or expressions")
	}
	flags, err := flagNames(raw.flags)
	if err != nil {
		return Node{}, errors.Wrap(ErrUnsupported, err.Error())
	}

	node := Node{
		Type:  typeName,
		Index: int(raw.index),
		Flags: flags,
		Name:  p.str(raw.name),
		GUID:  raw.guid,
	}

	start, end := int(raw.basePre), int(raw.basePre)+int(raw.preCount)
	if end > len(pre) {
		return Node{}, errors.Wrapf(ErrBadOffset, "preconditions [%d, %d)", start, end)
	}
	if raw.preCount > 0 {
		node.Preconditions = append([]int(nil), pre[start:end]...)
	}

	r.seek(raw.body)
	for _, t := range ParamTypes() {
		idx, n := r.u32(), r.u32()
		list, err := window(immediates[t], idx, n)
		if err != nil {
			return Node{}, errors.Wrapf(err, "%s internal parameters", t)
		}
		node.Internal[t] = list
	}
	for _, t := range ParamTypes() {
		inIdx, inN, outIdx, outN := r.u32(), r.u32(), r.u32(), r.u32()
		in, err := window(inputs[t], inIdx, inN)
		if err != nil {
			return Node{}, errors.Wrapf(err, "%s input parameters", t)
		}
		out, err := window(outputs[t], outIdx, outN)
		if err != nil {
			return Node{}, errors.Wrapf(err, "%s output parameters", t)
		}
		node.Inputs[t] = in
		node.Outputs[t] = out
	}
	var counts [numLinkTypes]uint8
	for i := range counts {
		counts[i] = r.u8()
	}
	r.u16()
	for lt, c := range counts {
		if c == 0 {
			continue
		}
		links := make([]Link, 0, c)
		for i := 0; i < int(c); i++ {
			target := r.u32()
			links = append(links, Link{NodeIndex: int(target), Parameter: p.str(r.u32())})
		}
		node.Links[lt] = links
	}
	if r.err != nil {
		return Node{}, errors.Wrap(r.err, "node body")
	}
	return node, nil
}

// window copies list[idx:idx+n], returning nil for empty ranges.
func window[T any](list []T, idx, n uint32) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	if uint64(idx)+uint64(n) > uint64(len(list)) {
		return nil, errors.Wrapf(ErrBadOffset, "range [%d, %d) beyond %d entries", idx, uint64(idx)+uint64(n), len(list))
	}
	return append([]T(nil), list[idx:idx+n]...), nil
}

func (p *parser) readGlobals() GlobalParameters {
	var out GlobalParameters
	if p.hdr.global == 0 {
		return out
	}
	r := p.r
	r.seek(p.hdr.global)
	type span struct{ count, index, valueOff uint16 }
	var spans [numParamTypes]span
	total := 0
	for i := range spans {
		spans[i] = span{count: r.u16(), index: r.u16(), valueOff: r.u16()}
		r.u16()
		total += int(spans[i].count)
	}
	entries := p.hdr.global + globalHeaderSize
	values := entries + uint32(total)*globalEntrySize
	for _, t := range ParamTypes() {
		s := spans[t]
		if s.count == 0 {
			continue
		}
		if int(s.index)+int(s.count) > total {
			p.fail(errors.Wrapf(ErrBadOffset, "%s globals [%d, %d) beyond %d entries", t, s.index, int(s.index)+int(s.count), total))
			return out
		}
		list := make([]GlobalParameter, s.count)
		r.seek(entries + uint32(s.index)*globalEntrySize)
		for i := range list {
			list[i].Name = p.str(r.u32())
			list[i].Notes = p.str(r.u32())
		}
		r.seek(values + uint32(s.valueOff))
		for i := range list {
			list[i].InitValue = p.value(t)
		}
		out[t] = list
	}
	return out
}

func (p *parser) readEmbedded() []EmbeddedFile {
	if p.hdr.embedded == 0 {
		return nil
	}
	r := p.r
	r.seek(p.hdr.embedded)
	n := r.u32()
	var out []EmbeddedFile
	for i := uint32(0); i < n && r.err == nil; i++ {
		var e EmbeddedFile
		e.FilePath = p.str(r.u32())
		e.FileCategory = p.str(r.u32())
		e.Count = r.u32()
		out = append(out, e)
	}
	return out
}

func (p *parser) readEntryStrings() []EntryString {
	if p.hdr.entryStrings == 0 {
		return nil
	}
	r := p.r
	r.seek(p.hdr.entryStrings)
	n := r.u32()
	var out []EntryString
	for i := uint32(0); i < n && r.err == nil; i++ {
		var e EntryString
		e.NodeIndex = int(r.u32())
		e.MainState = p.str(r.u32())
		e.State = p.str(r.u32())
		out = append(out, e)
	}
	return out
}

func (p *parser) readReplacements() []Replacement {
	if p.hdr.replacement == 0 {
		return nil
	}
	r := p.r
	r.seek(p.hdr.replacement)
	r.u16()
	n := r.u16()
	r.u32()
	var out []Replacement
	for i := uint16(0); i < n && r.err == nil; i++ {
		var e Replacement
		e.Type = r.u8()
		r.u8()
		e.NodeIndex = int(r.u16())
		e.ChangeIndex = int(r.u16())
		e.ReplacementIndex = int(r.i16())
		out = append(out, e)
	}
	return out
}
