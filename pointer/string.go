package pointer

import (
	"runtime"

	"github.com/wippyai/ffi-memory/errors"
)

// GetString reads the NUL-terminated string at off. On a bounded pointer a
// missing terminator within the bound is an out-of-bounds error.
func (p *Pointer) GetString(off uintptr) (string, error) {
	defer runtime.KeepAlive(p)
	if p.addr == 0 {
		return "", errors.NullPointer(errors.PhaseRead, "char*")
	}
	var buf []byte
	for i := off; ; i++ {
		b, err := p.view(errors.PhaseRead, i, 1, "char")
		if err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
}

// GetStringN reads exactly n bytes at off as a string. NUL bytes are kept.
func (p *Pointer) GetStringN(off uintptr, n int) (string, error) {
	defer runtime.KeepAlive(p)
	b, err := arrayView(p, errors.PhaseRead, off, n, 1, "char")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PutString writes s followed by a NUL terminator at off.
func (p *Pointer) PutString(off uintptr, s string) error {
	defer runtime.KeepAlive(p)
	b, err := p.view(errors.PhaseWrite, off, uintptr(len(s))+1, "char")
	if err != nil {
		return err
	}
	copy(b, s)
	b[len(s)] = 0
	return nil
}

// GetBytes copies n bytes starting at off.
func (p *Pointer) GetBytes(off uintptr, n int) ([]byte, error) {
	defer runtime.KeepAlive(p)
	b, err := arrayView(p, errors.PhaseRead, off, n, 1, "uint8")
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// PutBytes copies data to off without a terminator.
func (p *Pointer) PutBytes(off uintptr, data []byte) error {
	defer runtime.KeepAlive(p)
	b, err := arrayView(p, errors.PhaseWrite, off, len(data), 1, "uint8")
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// Fill sets n bytes at off to v.
func (p *Pointer) Fill(off uintptr, n int, v byte) error {
	defer runtime.KeepAlive(p)
	b, err := arrayView(p, errors.PhaseWrite, off, n, 1, "uint8")
	if err != nil {
		return err
	}
	for i := range b {
		b[i] = v
	}
	return nil
}

func (p *Pointer) ReadString() (string, error)       { return p.GetString(0) }
func (p *Pointer) ReadStringN(n int) (string, error) { return p.GetStringN(0, n) }
func (p *Pointer) WriteString(s string) error        { return p.PutString(0, s) }
func (p *Pointer) ReadBytes(n int) ([]byte, error)   { return p.GetBytes(0, n) }
func (p *Pointer) WriteBytes(data []byte) error      { return p.PutBytes(0, data) }
func (p *Pointer) Clear(n int) error                 { return p.Fill(0, n, 0) }
