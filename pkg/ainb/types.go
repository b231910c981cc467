package ainb

import (
	"fmt"
	"sort"
)

const (
	// Magic is the four byte signature at the start of every AINB file.
	Magic = "AIB "

	VersionSplatoon uint32 = 0x404
	VersionTotK     uint32 = 0x407
)

// ParamType identifies one of the typed parameter lists carried by nodes and
// by the global parameter section. The order is the on-disk order.
type ParamType int

const (
	ParamInt ParamType = iota
	ParamBool
	ParamFloat
	ParamString
	ParamVec3f
	ParamUserDefined

	numParamTypes = 6
)

var paramTypeNames = [numParamTypes]string{"int", "bool", "float", "string", "vec3f", "userdefined"}

func (t ParamType) String() string {
	if t < 0 || int(t) >= numParamTypes {
		return fmt.Sprintf("ParamType(%d)", int(t))
	}
	return paramTypeNames[t]
}

// ParamTypes returns every parameter type in on-disk order.
func ParamTypes() []ParamType {
	return []ParamType{ParamInt, ParamBool, ParamFloat, ParamString, ParamVec3f, ParamUserDefined}
}

func parseParamType(s string) (ParamType, bool) {
	for i, n := range paramTypeNames {
		if n == s {
			return ParamType(i), true
		}
	}
	return 0, false
}

// Category is the kind of logic a file holds.
type Category uint32

const (
	CategoryAI Category = iota
	CategoryLogic
	CategorySequence
)

var categoryNames = map[Category]string{
	CategoryAI:       "AI",
	CategoryLogic:    "Logic",
	CategorySequence: "Sequence",
}

func (c Category) String() string {
	if n, ok := categoryNames[c]; ok {
		return n
	}
	return fmt.Sprintf("Category(%d)", uint32(c))
}

// ParseCategory maps a category name back to its numeric value.
func ParseCategory(s string) (Category, error) {
	for c, n := range categoryNames {
		if n == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown file category %q", s)
}

var nodeTypeNames = map[uint16]string{
	0:   "UserDefined",
	1:   "Element_S32Selector",
	2:   "Element_Sequential",
	3:   "Element_Simultaneous",
	4:   "Element_F32Selector",
	5:   "Element_StringSelector",
	6:   "Element_RandomSelector",
	7:   "Element_BoolSelector",
	8:   "Element_Fork",
	9:   "Element_Join",
	10:  "Element_Alert",
	20:  "Element_Expression",
	100: "Element_ModuleIF_Input_S32",
	101: "Element_ModuleIF_Input_F32",
	102: "Element_ModuleIF_Input_Vec3f",
	103: "Element_ModuleIF_Input_String",
	104: "Element_ModuleIF_Input_Bool",
	105: "Element_ModuleIF_Input_Ptr",
	200: "Element_ModuleIF_Output_S32",
	201: "Element_ModuleIF_Output_F32",
	202: "Element_ModuleIF_Output_Vec3f",
	203: "Element_ModuleIF_Output_String",
	204: "Element_ModuleIF_Output_Bool",
	205: "Element_ModuleIF_Output_Ptr",
	300: "Element_ModuleIF_Child",
	400: "Element_StateEnd",
	500: "Element_SplitTiming",
}

// NodeTypeName returns the symbolic name of a numeric node type.
func NodeTypeName(t uint16) (string, bool) {
	n, ok := nodeTypeNames[t]
	return n, ok
}

// ParseNodeType maps a node type name back to its numeric value.
func ParseNodeType(s string) (uint16, error) {
	for t, n := range nodeTypeNames {
		if n == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q", s)
}

// NodeTypes lists all known node type names ordered by numeric value.
func NodeTypes() []string {
	keys := make([]int, 0, len(nodeTypeNames))
	for k := range nodeTypeNames {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, nodeTypeNames[uint16(k)])
	}
	return names
}

func isOutputNode(t uint16) bool {
	return t >= 200 && t <= 205
}

const (
	FlagPrecondition = "Is Precondition Node"
	FlagExternalAINB = "Is External AINB"
	FlagResident     = "Is Resident Node"
)

var nodeFlags = []struct {
	bit  uint8
	name string
}{
	{0x1, FlagPrecondition},
	{0x2, FlagExternalAINB},
	{0x4, FlagResident},
}

func flagNames(bits uint8) ([]string, error) {
	var names []string
	for _, f := range nodeFlags {
		if bits&f.bit != 0 {
			names = append(names, f.name)
			bits &^= f.bit
		}
	}
	if bits != 0 {
		return nil, fmt.Errorf("unknown node flag bits 0x%x", bits)
	}
	return names, nil
}

func flagBits(names []string) (uint8, error) {
	var bits uint8
next:
	for _, n := range names {
		for _, f := range nodeFlags {
			if f.name == n {
				bits |= f.bit
				continue next
			}
		}
		return 0, fmt.Errorf("unknown node flag %q", n)
	}
	return bits, nil
}

// LinkType identifies one of the linked node tables of a node.
type LinkType int

const numLinkTypes = 10

var linkTypeNames = [numLinkTypes]string{
	"Bool/Float Input Link and Output Link",
	"Input Link",
	"Standard Link",
	"Resident Update Link",
	"String Input Link",
	"Int Input Link",
	"Link Type 6",
	"Link Type 7",
	"Link Type 8",
	"Link Type 9",
}

func (t LinkType) String() string {
	if t < 0 || int(t) >= numLinkTypes {
		return fmt.Sprintf("LinkType(%d)", int(t))
	}
	return linkTypeNames[t]
}

func parseLinkType(s string) (LinkType, bool) {
	for i, n := range linkTypeNames {
		if n == s {
			return LinkType(i), true
		}
	}
	return 0, false
}
