package pointer

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ffi-memory/errors"
	"github.com/wippyai/ffi-memory/linear"
)

func mustAllocate(t *testing.T, size uintptr, opts ...Option) *MemoryPointer {
	t.Helper()
	mp, err := Allocate(size, opts...)
	if err != nil {
		t.Fatalf("Allocate(%d): %v", size, err)
	}
	t.Cleanup(mp.Free)
	return mp
}

func newLinear(t *testing.T, opts ...linear.Option) *linear.Space {
	t.Helper()
	ctx := context.Background()
	sp, err := linear.New(ctx, opts...)
	if err != nil {
		t.Fatalf("linear.New: %v", err)
	}
	t.Cleanup(func() { _ = sp.Close(ctx) })
	return sp
}

func TestScalarRoundTrip(t *testing.T) {
	mp := mustAllocate(t, 16)

	tests := []struct {
		name string
		run  func(p *Pointer) (any, any, error)
	}{
		{"int8", func(p *Pointer) (any, any, error) {
			if err := p.PutInt8(3, -128); err != nil {
				return nil, nil, err
			}
			v, err := p.GetInt8(3)
			return v, int8(-128), err
		}},
		{"uint8", func(p *Pointer) (any, any, error) {
			if err := p.WriteUint8(255); err != nil {
				return nil, nil, err
			}
			v, err := p.ReadUint8()
			return v, uint8(255), err
		}},
		{"int16", func(p *Pointer) (any, any, error) {
			if err := p.PutInt16(2, math.MinInt16); err != nil {
				return nil, nil, err
			}
			v, err := p.GetInt16(2)
			return v, int16(math.MinInt16), err
		}},
		{"uint16", func(p *Pointer) (any, any, error) {
			if err := p.WriteUint16(0xBEEF); err != nil {
				return nil, nil, err
			}
			v, err := p.ReadUint16()
			return v, uint16(0xBEEF), err
		}},
		{"int32", func(p *Pointer) (any, any, error) {
			if err := p.PutInt32(4, -1); err != nil {
				return nil, nil, err
			}
			v, err := p.GetInt32(4)
			return v, int32(-1), err
		}},
		{"uint32", func(p *Pointer) (any, any, error) {
			if err := p.WriteUint32(math.MaxUint32); err != nil {
				return nil, nil, err
			}
			v, err := p.ReadUint32()
			return v, uint32(math.MaxUint32), err
		}},
		{"int64", func(p *Pointer) (any, any, error) {
			if err := p.PutInt64(8, math.MinInt64); err != nil {
				return nil, nil, err
			}
			v, err := p.GetInt64(8)
			return v, int64(math.MinInt64), err
		}},
		{"uint64", func(p *Pointer) (any, any, error) {
			if err := p.WriteUint64(math.MaxUint64); err != nil {
				return nil, nil, err
			}
			v, err := p.ReadUint64()
			return v, uint64(math.MaxUint64), err
		}},
		{"float32", func(p *Pointer) (any, any, error) {
			if err := p.PutFloat32(4, 3.5); err != nil {
				return nil, nil, err
			}
			v, err := p.GetFloat32(4)
			return v, float32(3.5), err
		}},
		{"float64", func(p *Pointer) (any, any, error) {
			if err := p.WriteFloat64(-0.125); err != nil {
				return nil, nil, err
			}
			v, err := p.ReadFloat64()
			return v, -0.125, err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, want, err := tt.run(mp.Pointer)
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Errorf("got %v, want %v", got, want)
			}
		})
	}
}

func TestSignExtension(t *testing.T) {
	mp := mustAllocate(t, 8)
	if err := mp.WriteUint8(0xFF); err != nil {
		t.Fatal(err)
	}
	i, _ := mp.ReadInt8()
	u, _ := mp.ReadUint8()
	if i != -1 || u != 255 {
		t.Errorf("int8=%d uint8=%d, want -1 and 255", i, u)
	}
}

func TestByteOrder(t *testing.T) {
	mp := mustAllocate(t, 8)

	be := mp.Order(BigEndian)
	if err := be.WriteUint32(0x01020304); err != nil {
		t.Fatal(err)
	}
	raw, err := mp.ReadBytes(4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3, 4}, raw); diff != "" {
		t.Errorf("big endian bytes (-want +got):\n%s", diff)
	}

	le, _ := mp.Order(LittleEndian).ReadUint32()
	if le != 0x04030201 {
		t.Errorf("little endian = %#x", le)
	}

	if mp.Order(NativeOrder) != mp.Pointer {
		t.Error("Order with the current order must return the receiver")
	}
	if be.Order(Network) != be {
		t.Error("Network must equal BigEndian")
	}
}

func TestParseByteOrder(t *testing.T) {
	tests := []struct {
		in   string
		want ByteOrder
		ok   bool
	}{
		{"network", BigEndian, true},
		{"big", BigEndian, true},
		{"little", LittleEndian, true},
		{"", NativeOrder, true},
		{"middle", NativeOrder, false},
	}
	for _, tt := range tests {
		got, ok := ParseByteOrder(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseByteOrder(%q) = %v, %v", tt.in, got, ok)
		}
	}
}

func TestNullAccess(t *testing.T) {
	if !Null.IsNull() {
		t.Fatal("Null is not null")
	}
	if _, err := Null.ReadInt32(); !errors.Is(err, errors.ErrNullPointer) {
		t.Errorf("ReadInt32 on NULL: %v", err)
	}
	if err := Null.PutFloat64(8, 1); !errors.Is(err, errors.ErrNullPointer) {
		t.Errorf("PutFloat64 on NULL: %v", err)
	}
	if _, err := Null.ReadString(); !errors.Is(err, errors.ErrNullPointer) {
		t.Errorf("ReadString on NULL: %v", err)
	}
	if _, err := Null.ReadArrayOfInt32(2); !errors.Is(err, errors.ErrNullPointer) {
		t.Errorf("ReadArrayOfInt32 on NULL: %v", err)
	}
}

func TestZeroLengthArrayOnNull(t *testing.T) {
	got, err := Null.ReadArrayOfInt32(0)
	if err != nil {
		t.Fatalf("ReadArrayOfInt32(0): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d", len(got))
	}
	if err := Null.WriteArrayOfFloat64(nil); err != nil {
		t.Errorf("WriteArrayOfFloat64(nil): %v", err)
	}
	if ps, err := Null.ReadArrayOfPointer(0); err != nil || len(ps) != 0 {
		t.Errorf("ReadArrayOfPointer(0) = %v, %v", ps, err)
	}
	if _, err := Null.ReadArrayOfInt8(-1); !errors.Is(err, errors.ErrArgument) {
		t.Errorf("negative count: %v", err)
	}
}

func TestArrays(t *testing.T) {
	mp := mustAllocate(t, 64)

	in := []int16{1, -2, 3, math.MaxInt16}
	if err := mp.WriteArrayOfInt16(in); err != nil {
		t.Fatal(err)
	}
	out, err := mp.ReadArrayOfInt16(len(in))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("int16 array (-want +got):\n%s", diff)
	}

	floats := []float64{0.5, -1.25}
	if err := PutArray(mp.Pointer, 16, floats); err != nil {
		t.Fatal(err)
	}
	gotFloats, err := GetArray[float64](mp.Pointer, 16, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(floats, gotFloats); diff != "" {
		t.Errorf("float64 array (-want +got):\n%s", diff)
	}

	// the whole range is checked before anything is written
	before, _ := mp.ReadBytes(64)
	if err := PutArray(mp.Pointer, 60, []uint32{1, 2}); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Fatalf("expected out of bounds, got %v", err)
	}
	after, _ := mp.ReadBytes(64)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("failed write modified memory:\n%s", diff)
	}
}

func TestBounds(t *testing.T) {
	mp := mustAllocate(t, 16)

	p, err := mp.Slice(4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.WriteInt32(9); err != nil {
		t.Fatal(err)
	}
	if v, _ := mp.GetInt32(4); v != 9 {
		t.Errorf("write through slice landed elsewhere: %d", v)
	}
	if _, err := p.GetInt32(1); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("GetInt32(1): %v", err)
	}
	if _, err := p.Offset(5); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("Offset(5): %v", err)
	}
	if _, err := p.Offset(-1); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("Offset(-1): %v", err)
	}
	end, err := p.Offset(4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := end.ReadUint8(); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("read at end: %v", err)
	}
	if _, err := mp.Slice(8, 9); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("Slice past allocation: %v", err)
	}

	q, _ := mp.Offset(2)
	if !q.Equal(New(mp.Memory(), mp.Address()+2)) {
		t.Errorf("%v != base+2", q)
	}
}

func TestStrings(t *testing.T) {
	mp := mustAllocate(t, 32)

	if err := mp.WriteString("hello"); err != nil {
		t.Fatal(err)
	}
	if s, _ := mp.ReadString(); s != "hello" {
		t.Errorf("ReadString = %q", s)
	}
	if s, _ := mp.ReadStringN(3); s != "hel" {
		t.Errorf("ReadStringN = %q", s)
	}
	if s, _ := mp.GetString(1); s != "ello" {
		t.Errorf("GetString(1) = %q", s)
	}

	short, _ := mp.Slice(0, 3)
	if _, err := short.ReadString(); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("unterminated bounded string: %v", err)
	}
	if err := short.WriteString("abc"); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("no room for terminator: %v", err)
	}
}

func TestClearAndFill(t *testing.T) {
	mp := mustAllocate(t, 8)
	if err := mp.Fill(0, 8, 0xAA); err != nil {
		t.Fatal(err)
	}
	if err := mp.Clear(4); err != nil {
		t.Fatal(err)
	}
	got, _ := mp.ReadBytes(8)
	want := []byte{0, 0, 0, 0, 0xAA, 0xAA, 0xAA, 0xAA}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCopy(t *testing.T) {
	src := mustAllocate(t, 8)
	dst := mustAllocate(t, 8)
	_ = src.WriteUint64(0x1122334455667788)
	if err := Copy(dst.Pointer, src.Pointer, 8); err != nil {
		t.Fatal(err)
	}
	if v, _ := dst.ReadUint64(); v != 0x1122334455667788 {
		t.Errorf("copied %#x", v)
	}
	if err := Copy(dst.Pointer, Null, 1); !errors.Is(err, errors.ErrNullPointer) {
		t.Errorf("copy from NULL: %v", err)
	}
}

func TestLinearPointers(t *testing.T) {
	sp := newLinear(t)
	mp := mustAllocate(t, 16, WithSpace(sp))

	if mp.ByteOrder() != LittleEndian {
		t.Errorf("linear memory order = %v", mp.ByteOrder())
	}
	if err := mp.PutPointer(0, New(sp, 0x1234)); err != nil {
		t.Fatal(err)
	}
	if v, _ := mp.GetUint32(0); v != 0x1234 {
		t.Errorf("stored %#x, want 4-byte address", v)
	}
	q, err := mp.ReadPointer()
	if err != nil {
		t.Fatal(err)
	}
	if q.Address() != 0x1234 || q.Memory() != sp {
		t.Errorf("ReadPointer = %v in %T", q, q.Memory())
	}

	ps := []*Pointer{New(sp, 8), nil}
	if err := mp.PutPointerArray(4, ps); err != nil {
		t.Fatal(err)
	}
	back, err := mp.GetPointerArray(4, 2)
	if err != nil {
		t.Fatal(err)
	}
	if back[0].Address() != 8 || !back[1].IsNull() {
		t.Errorf("pointer array = %v", back)
	}

	if ^uintptr(0) == math.MaxUint32 {
		t.Skip("32-bit host")
	}
	big := uint64(1) << 32
	if err := mp.PutAddress(0, uintptr(big)); !errors.Is(err, &errors.Error{Kind: errors.KindOverflow}) {
		t.Errorf("oversized address: %v", err)
	}
}

func TestLinearOutOfRange(t *testing.T) {
	sp := newLinear(t, linear.WithPages(1))
	p := New(sp, linear.PageSize-2)
	if _, err := p.ReadUint32(); !errors.Is(err, errors.ErrOutOfBounds) {
		t.Errorf("read across end of memory: %v", err)
	}
}
