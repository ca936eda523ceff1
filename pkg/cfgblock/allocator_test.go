package cfgblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asysbus/asb-go/pkg/storage"
)

func newAllocator(t *testing.T, size int) (*Allocator, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory(size)
	a, err := New(mem, 0, size, nil)
	require.NoError(t, err)
	return a, mem
}

func TestSizeClass(t *testing.T) {
	tests := []struct {
		required int
		want     uint8
	}{
		{1, 0},
		{6, 0},
		{7, 1},
		{9, 2},
		{10, 3},
		{13, 3},
		{14, 4},
		{1<<15 + 5, 15},
	}
	for _, tt := range tests {
		got, err := SizeClass(tt.required)
		require.NoError(t, err, "required %d", tt.required)
		assert.Equal(t, tt.want, got, "required %d", tt.required)
	}

	_, err := SizeClass(1<<15 + 6)
	assert.ErrorIs(t, err, ErrBlockTooLarge)
}

func TestFindFreeBlockMonotonicPlacement(t *testing.T) {
	for _, size := range []int{3, 6, 12} {
		class, err := SizeClass(size + 1)
		require.NoError(t, err)
		spacing := 1<<class + 5

		a, mem := newAllocator(t, 256)
		prev := 0
		for i := 0; i < 4; i++ {
			addr, err := a.FindFreeBlock(size, 3)
			require.NoError(t, err)
			if i == 0 {
				assert.Equal(t, NodeIDSize, addr)
			} else {
				assert.Equal(t, prev+spacing, addr, "size %d call %d", size, i)
			}
			h, err := mem.ReadByteAt(addr)
			require.NoError(t, err)
			assert.Equal(t, Header(3, class), h)
			prev = addr
		}
	}
}

func TestFindFreeBlockSkipsOtherModules(t *testing.T) {
	a, _ := newAllocator(t, 64)

	first, err := a.FindFreeBlock(3, 1)
	require.NoError(t, err)
	second, err := a.FindFreeBlock(3, 2)
	require.NoError(t, err)
	assert.Equal(t, first+6, second)
}

func TestFindFreeBlockReusesFreedBlock(t *testing.T) {
	a, mem := newAllocator(t, 128)

	var addrs []int
	for i := 0; i < 3; i++ {
		addr, err := a.FindFreeBlock(8, 5)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}

	// Mark the middle block free by clearing its owner nibble.
	h, err := mem.ReadByteAt(addrs[1])
	require.NoError(t, err)
	require.NoError(t, mem.WriteByteAt(addrs[1], h&0x0F))

	got, err := a.FindFreeBlock(4, 7)
	require.NoError(t, err)
	assert.Equal(t, addrs[1], got)

	// Reuse keeps the original class.
	h2, err := mem.ReadByteAt(got)
	require.NoError(t, err)
	assert.Equal(t, Header(7, h&0x0F), h2)

	next, err := a.FindFreeBlock(4, 7)
	require.NoError(t, err)
	assert.NotEqual(t, got, next, "a reused block is not handed out twice")
}

func TestFindFreeBlockSkipsTooSmallFreedBlock(t *testing.T) {
	a, _ := newAllocator(t, 128)

	small, err := a.FindFreeBlock(6, 1) // class 1, 7 bytes
	require.NoError(t, err)
	require.NoError(t, a.Free(small))

	big, err := a.FindFreeBlock(20, 1)
	require.NoError(t, err)
	assert.Equal(t, small+7, big)
}

func TestFindFreeBlockExhaustion(t *testing.T) {
	t.Run("class too large", func(t *testing.T) {
		a, _ := newAllocator(t, 64)
		_, err := a.FindFreeBlock(1<<15+5, 1)
		assert.ErrorIs(t, err, ErrBlockTooLarge)
	})

	t.Run("region smaller than record", func(t *testing.T) {
		a, _ := newAllocator(t, 6)
		_, err := a.FindFreeBlock(4, 1)
		assert.ErrorIs(t, err, ErrRegionTooSmall)
	})

	t.Run("region full", func(t *testing.T) {
		a, _ := newAllocator(t, 2+6*3)
		for i := 0; i < 3; i++ {
			_, err := a.FindFreeBlock(3, 1)
			require.NoError(t, err)
		}
		_, err := a.FindFreeBlock(3, 1)
		assert.ErrorIs(t, err, ErrNoSpace)
	})

	t.Run("empty region", func(t *testing.T) {
		a, err := New(storage.NewMemory(16), 4, 5, nil)
		require.NoError(t, err)
		assert.True(t, a.Empty())
		_, err = a.FindFreeBlock(1, 1)
		assert.ErrorIs(t, err, ErrRegionTooSmall)
	})
}

func TestFindFreeBlockRejectsModuleID(t *testing.T) {
	a, _ := newAllocator(t, 64)
	for _, id := range []uint8{0, 15, 127} {
		_, err := a.FindFreeBlock(1, id)
		assert.ErrorIs(t, err, ErrInvalidModule, "module %d", id)
	}
}

func TestRecordsAndCount(t *testing.T) {
	a, _ := newAllocator(t, 128)

	b1, err := a.WriteRecord(2, []byte{0x12, 0x34, 0x01})
	require.NoError(t, err)
	_, err = a.WriteRecord(3, []byte{0xFF})
	require.NoError(t, err)
	b3, err := a.WriteRecord(2, []byte{0x00, 0x10, 0x00})
	require.NoError(t, err)

	recs, err := a.Records(2)
	require.NoError(t, err)
	assert.Equal(t, []Block{b1, b3}, recs)

	n, err := a.Count(3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	buf := make([]byte, 3)
	require.NoError(t, a.ReadRecord(recs[1], buf))
	assert.Equal(t, []byte{0x00, 0x10, 0x00}, buf)

	all, err := a.Blocks()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestFree(t *testing.T) {
	a, _ := newAllocator(t, 128)

	b, err := a.WriteRecord(4, make([]byte, 10))
	require.NoError(t, err)
	require.NoError(t, a.Free(b.Addr))

	n, err := a.Count(4)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, a.Free(b.Addr), ErrNotBlock)
	assert.ErrorIs(t, a.Free(b.Addr+1), ErrNotBlock)

	small, err := a.WriteRecord(4, []byte{1})
	require.NoError(t, err)
	assert.Equal(t, b.Addr, small.Addr, "freed block is reused")

	tiny, err := a.FindFreeBlock(1, 6)
	require.NoError(t, err)
	assert.ErrorIs(t, a.Free(tiny), ErrClassZero)
}

func TestNodeIDRecord(t *testing.T) {
	mem := storage.NewMemory(32)
	a, err := New(mem, 8, 32, nil)
	require.NoError(t, err)

	id, err := a.NodeID()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), id)

	require.NoError(t, a.SetNodeID(0x0123))
	id, err = a.NodeID()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0123), id)

	lo, _ := mem.ReadByteAt(8)
	hi, _ := mem.ReadByteAt(9)
	assert.Equal(t, []byte{0x23, 0x01}, []byte{lo, hi})

	// Blocks start after the node ID record.
	addr, err := a.FindFreeBlock(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, addr)
}

func TestNewRejectsBadRegion(t *testing.T) {
	mem := storage.NewMemory(16)
	_, err := New(mem, 0, 17, nil)
	assert.ErrorIs(t, err, ErrInvalidRegion)
	_, err = New(mem, 8, 4, nil)
	assert.ErrorIs(t, err, ErrInvalidRegion)
	_, err = New(nil, 0, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidRegion)
}
