package ainb

import (
	"fmt"
	"math"
	"strings"
)

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid document: " + e.Problems[0]
	}
	return fmt.Sprintf("invalid document: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

type validator struct {
	nodes    int
	problems []string
}

func (v *validator) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) nodeRef(what string, idx int, allowNone bool) {
	if allowNone && idx == -1 {
		return
	}
	if idx < 0 || idx >= v.nodes {
		v.addf("%s references node %d, have %d nodes", what, idx, v.nodes)
	}
}

// Validate checks that the document can be written as a binary file and that
// every cross reference points at an existing node.
func (d *Document) Validate() error {
	v := &validator{nodes: len(d.Nodes)}

	if d.Info.Magic != Magic {
		v.addf("magic %q, want %q", d.Info.Magic, Magic)
	}
	if uint32(d.Info.Version) != VersionSplatoon && uint32(d.Info.Version) != VersionTotK {
		v.addf("unsupported version %v", d.Info.Version)
	}
	if _, err := ParseCategory(d.Info.FileCategory); err != nil {
		v.addf("%v", err)
	}
	if len(d.Nodes) > math.MaxUint16 {
		v.addf("%d nodes, at most %d fit", len(d.Nodes), math.MaxUint16)
	}

	for i, c := range d.Commands {
		what := fmt.Sprintf("command %d (%s)", i, c.Name)
		v.nodeRef(what+" left node", c.LeftNodeIndex, true)
		v.nodeRef(what+" right node", c.RightNodeIndex, true)
	}

	multi := 0
	pre := 0
	for i := range d.Nodes {
		n := &d.Nodes[i]
		what := fmt.Sprintf("node %d (%s)", i, n.Name)
		if n.Index != i {
			v.addf("%s has index %d, want %d", what, n.Index, i)
		}
		if _, err := ParseNodeType(n.Type); err != nil {
			v.addf("%s: %v", what, err)
		}
		if _, err := flagBits(n.Flags); err != nil {
			v.addf("%s: %v", what, err)
		}
		for _, p := range n.Preconditions {
			v.nodeRef(what+" precondition", p, false)
		}
		pre += len(n.Preconditions)

		for _, t := range ParamTypes() {
			for _, p := range n.Internal.Of(t) {
				if p.Class != "" && t != ParamUserDefined {
					v.addf("%s internal %s parameter %q has a class", what, t, p.Name)
				}
				if p.Value.Type != t {
					v.addf("%s internal %s parameter %q has a %s value", what, t, p.Name, p.Value.Type)
				}
			}
			for _, p := range n.Inputs.Of(t) {
				pw := fmt.Sprintf("%s input %s parameter %q", what, t, p.Name)
				if p.Class != "" && t != ParamUserDefined {
					v.addf("%s has a class", pw)
				}
				if p.Value.Type != t {
					v.addf("%s has a %s value", pw, p.Value.Type)
				}
				if len(p.Sources) > 0 {
					if p.NodeIndex != -1 || p.ParameterIndex != -1 {
						v.addf("%s has both a single source and multiple sources", pw)
					}
					if len(p.Sources) > math.MaxInt16 {
						v.addf("%s has %d sources", pw, len(p.Sources))
					}
					for _, s := range p.Sources {
						v.nodeRef(pw+" source", s.NodeIndex, false)
						if s.ParameterIndex < 0 || s.ParameterIndex > math.MaxInt16 {
							v.addf("%s source parameter index %d out of range", pw, s.ParameterIndex)
						}
					}
					multi += len(p.Sources)
					continue
				}
				v.nodeRef(pw, p.NodeIndex, true)
				if p.ParameterIndex < -1 || p.ParameterIndex > math.MaxInt16 {
					v.addf("%s parameter index %d out of range", pw, p.ParameterIndex)
				}
			}
			for _, p := range n.Outputs.Of(t) {
				if p.Class != "" && t != ParamUserDefined {
					v.addf("%s output %s parameter %q has a class", what, t, p.Name)
				}
			}
		}
		for _, lt := range allLinkTypes() {
			links := n.Links.Of(lt)
			if len(links) > math.MaxUint8 {
				v.addf("%s has %d %s entries, at most %d fit", what, len(links), lt, math.MaxUint8)
			}
			for _, l := range links {
				v.nodeRef(fmt.Sprintf("%s %s", what, lt), l.NodeIndex, false)
			}
		}
	}
	if multi > multiBase-multiFloor {
		v.addf("%d multi-source entries, at most %d fit", multi, multiBase-multiFloor)
	}
	if pre > math.MaxUint16 {
		v.addf("%d precondition entries, at most %d fit", pre, math.MaxUint16)
	}

	for _, t := range ParamTypes() {
		for _, p := range d.GlobalParameters.Of(t) {
			if p.InitValue.Type != t {
				v.addf("global %s parameter %q has a %s value", t, p.Name, p.InitValue.Type)
			}
		}
	}
	if d.GlobalParameters.Len() > math.MaxUint16 {
		v.addf("%d global parameters, at most %d fit", d.GlobalParameters.Len(), math.MaxUint16)
	}

	for i, e := range d.EmbeddedFiles {
		if _, err := ParseCategory(e.FileCategory); err != nil {
			v.addf("embedded file %d (%s): %v", i, e.FilePath, err)
		}
	}
	for i, e := range d.EntryStrings {
		v.nodeRef(fmt.Sprintf("entry string %d", i), e.NodeIndex, false)
	}
	for i, r := range d.Replacements {
		what := fmt.Sprintf("replacement %d", i)
		v.nodeRef(what, r.NodeIndex, false)
		if r.ChangeIndex < 0 || r.ChangeIndex > math.MaxUint16 {
			v.addf("%s change index %d out of range", what, r.ChangeIndex)
		}
		if r.ReplacementIndex < math.MinInt16 || r.ReplacementIndex > math.MaxInt16 {
			v.addf("%s replacement index %d out of range", what, r.ReplacementIndex)
		}
	}
	if len(d.Replacements) > math.MaxUint16 {
		v.addf("%d replacements, at most %d fit", len(d.Replacements), math.MaxUint16)
	}

	if len(v.problems) > 0 {
		return &ValidationError{Problems: v.problems}
	}
	return nil
}

func allLinkTypes() []LinkType {
	out := make([]LinkType, numLinkTypes)
	for i := range out {
		out[i] = LinkType(i)
	}
	return out
}
