package ainb

// stringPool collects the NUL-terminated strings of a file. Offsets are
// relative to the start of the pool and each distinct string is stored once.
type stringPool struct {
	data    []byte
	offsets map[string]uint32
}

func newStringPool() *stringPool {
	return &stringPool{offsets: make(map[string]uint32)}
}

func (p *stringPool) add(s string) uint32 {
	if off, ok := p.offsets[s]; ok {
		return off
	}
	off := uint32(len(p.data))
	p.data = append(p.data, s...)
	p.data = append(p.data, 0)
	p.offsets[s] = off
	return off
}

func (p *stringPool) bytes() []byte { return p.data }
