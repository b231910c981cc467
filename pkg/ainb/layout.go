package ainb

// File layout. All integers are little-endian; offsets are absolute unless
// noted, string offsets are relative to the string pool.
const (
	headerSize = 0x74

	hdrMagic              = 0x00
	hdrVersion            = 0x04
	hdrFilename           = 0x08
	hdrCommandCount       = 0x0C
	hdrNodeCount          = 0x10
	hdrPreconditionCount  = 0x14
	hdrAttachmentCount    = 0x18
	hdrOutputCount        = 0x1C
	hdrGlobalOffset       = 0x20
	hdrStringOffset       = 0x24
	hdrResolveOffset      = 0x28
	hdrImmediateOffset    = 0x2C
	hdrResidentOffset     = 0x30
	hdrIOOffset           = 0x34
	hdrMultiOffset        = 0x38
	hdrAttachParamOffset  = 0x3C
	hdrAttachIndexOffset  = 0x40
	hdrExpressionOffset   = 0x44
	hdrReplacementOffset  = 0x48
	hdrPreconditionOffset = 0x4C
	hdrEmbeddedOffset     = 0x5C
	hdrCategoryName       = 0x60
	hdrCategory           = 0x64
	hdrEntryStringOffset  = 0x68
	hdrUnknownOffset      = 0x6C
	hdrHashOffset         = 0x70

	commandSize = 0x18
	nodeSize    = 0x3C

	// node body: immediate ranges, io ranges, link counts
	bodyImmediateSize = numParamTypes * 8
	bodyIOSize        = numParamTypes * 16
	bodyLinkCountSize = numLinkTypes + 2
	linkSize          = 8

	globalHeaderSize = numParamTypes * 8
	globalEntrySize  = 8

	multiSize        = 4
	preconditionSize = 4
	replacementSize  = 8
	embeddedSize     = 12
	entryStringSize  = 12

	// Inputs whose source node index is at or below multiBase reference
	// multiBase-index in the multi-source table.
	multiBase  = -100
	multiFloor = -8192
)

func immediateSize(t ParamType) uint32 {
	switch t {
	case ParamVec3f:
		return 16
	case ParamUserDefined:
		return 12
	default:
		return 8
	}
}

func inputSize(t ParamType) uint32 {
	switch t {
	case ParamVec3f:
		return 20
	case ParamUserDefined:
		return 16
	default:
		return 12
	}
}

func outputSize(t ParamType) uint32 {
	if t == ParamUserDefined {
		return 8
	}
	return 4
}

func globalValueSize(t ParamType) uint32 {
	if t == ParamVec3f {
		return 12
	}
	return 4
}
