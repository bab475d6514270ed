package transceiver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/devlink/internal/frame"
	"github.com/danmuck/devlink/internal/testutil/testlog"
)

// wireFrame renders a valid 16-byte frame with a tag byte at offset 1.
func wireFrame(tag byte) []byte {
	b := make([]byte, 16)
	b[0] = frame.HeadByte
	b[1] = tag
	b[15] = frame.TailByte
	return b
}

func taggedFrame(t *testing.T, tag byte) *frame.Frame {
	t.Helper()
	f := frame.New(16)
	require.True(t, frame.Put(f, tag, 1))
	return f
}

func TestNewValidation(t *testing.T) {
	testlog.Start(t)

	_, err := New(16, nil)
	require.ErrorIs(t, err, ErrNilTransport)

	_, err = New(2, &scriptTransport{})
	require.ErrorIs(t, err, ErrBadCapacity)
}

func TestSendPacketValidation(t *testing.T) {
	testlog.Start(t)
	tx, err := New(16, &scriptTransport{})
	require.NoError(t, err)

	require.ErrorIs(t, tx.SendPacket(nil), ErrSendFailed)
	require.ErrorIs(t, tx.SendPacket(frame.New(32)), ErrCapacityMismatch)
}

func TestSyncSendWritesFullFrame(t *testing.T) {
	testlog.Start(t)
	tr := &scriptTransport{open: true}
	tx, err := New(16, tr)
	require.NoError(t, err)

	require.NoError(t, tx.SendPacket(taggedFrame(t, 0x11)))
	require.Equal(t, 1, tr.writeCount())
	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.Equal(t, wireFrame(0x11), tr.writes[0])
}

func TestSyncSendShortWriteReconnects(t *testing.T) {
	testlog.Start(t)
	tr := &scriptTransport{open: true, shortWrites: 1}
	tx, err := New(16, tr)
	require.NoError(t, err)

	err = tx.SendPacket(taggedFrame(t, 0x22))
	require.ErrorIs(t, err, ErrSendFailed)
	require.Equal(t, 1, tr.reopenCount())

	// Link recovered: the next send goes through.
	require.NoError(t, tx.SendPacket(taggedFrame(t, 0x23)))
}

func TestRecvFastPath(t *testing.T) {
	testlog.Start(t)
	tr := &scriptTransport{open: true, reads: [][]byte{wireFrame(0x31)}}
	tx, err := New(16, tr)
	require.NoError(t, err)

	out := frame.New(16)
	require.NoError(t, tx.RecvPacket(out))
	require.Equal(t, wireFrame(0x31), out.Bytes())
}

func TestRecvValidation(t *testing.T) {
	testlog.Start(t)
	tx, err := New(16, &scriptTransport{open: true})
	require.NoError(t, err)

	require.ErrorIs(t, tx.RecvPacket(nil), ErrReadFailed)
	require.ErrorIs(t, tx.RecvPacket(frame.New(8)), ErrCapacityMismatch)
}

func TestRecvSplitFrameResyncs(t *testing.T) {
	testlog.Start(t)
	full := wireFrame(0x42)
	tr := &scriptTransport{open: true, reads: [][]byte{full[:10], full[10:]}}
	tx, err := New(16, tr)
	require.NoError(t, err)

	out := frame.New(16)
	require.ErrorIs(t, tx.RecvPacket(out), ErrIncompleteFrame)
	require.NoError(t, tx.RecvPacket(out))
	require.Equal(t, full, out.Bytes())
}

func TestRecvSkipsGarbagePrefix(t *testing.T) {
	testlog.Start(t)
	full := wireFrame(0x55)
	garbage := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	chunk1 := append(append([]byte(nil), garbage...), full[:10]...)
	tr := &scriptTransport{open: true, reads: [][]byte{chunk1, full[10:]}}
	tx, err := New(16, tr)
	require.NoError(t, err)

	out := frame.New(16)
	require.ErrorIs(t, tx.RecvPacket(out), ErrIncompleteFrame)
	require.NoError(t, tx.RecvPacket(out))
	require.Equal(t, full, out.Bytes())
}

func TestRecvLeftCompactKeepsTrailingFrame(t *testing.T) {
	testlog.Start(t)
	first := wireFrame(0x61)
	second := wireFrame(0x62)

	// Misaligned stream: 8 junk bytes, then two back-to-back frames split
	// across three reads.
	chunk1 := append(make([]byte, 8), first[:8]...)
	chunk2 := append(append([]byte(nil), first[8:]...), second[:8]...)
	chunk3 := second[8:]
	tr := &scriptTransport{open: true, reads: [][]byte{chunk1, chunk2, chunk3}}
	tx, err := New(16, tr)
	require.NoError(t, err)

	out := frame.New(16)
	require.ErrorIs(t, tx.RecvPacket(out), ErrIncompleteFrame)
	require.NoError(t, tx.RecvPacket(out))
	require.Equal(t, first, out.Bytes())
	require.NoError(t, tx.RecvPacket(out))
	require.Equal(t, second, out.Bytes())
}

func TestRecvNoDataReconnects(t *testing.T) {
	testlog.Start(t)
	tr := &scriptTransport{open: true}
	tx, err := New(16, tr)
	require.NoError(t, err)

	require.ErrorIs(t, tx.RecvPacket(frame.New(16)), ErrReadFailed)
	require.Equal(t, 1, tr.reopenCount())
	require.True(t, tx.IsOpen())
}

func TestRealtimeSendDrainsQueue(t *testing.T) {
	testlog.Start(t)
	tr := &scriptTransport{open: true}
	tx, err := New(16, tr)
	require.NoError(t, err)

	tx.EnableRealtimeSend(true)
	defer tx.Close()

	for tag := byte(1); tag <= 3; tag++ {
		require.NoError(t, tx.SendPacket(taggedFrame(t, tag)))
	}
	require.Eventually(t, func() bool {
		return tr.writeCount() == 3
	}, time.Second, pollInterval)

	tx.EnableRealtimeSend(false)
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for i, w := range tr.writes {
		require.Equal(t, byte(i+1), w[1], "frames must leave in queue order")
	}
}

func TestRealtimeReadLatestPacket(t *testing.T) {
	testlog.Start(t)
	tr := &scriptTransport{open: true, replay: wireFrame(0x77)}
	tx, err := New(16, tr)
	require.NoError(t, err)

	_, ok := tx.LatestPacket()
	require.False(t, ok)

	tx.EnableRealtimeRead(true)
	defer tx.Close()

	require.Eventually(t, func() bool {
		_, ok := tx.LatestPacket()
		return ok
	}, time.Second, pollInterval)

	got, ok := tx.LatestPacket()
	require.True(t, ok)
	require.Equal(t, wireFrame(0x77), got.Bytes())
}

func TestRealtimeTogglesIdempotent(t *testing.T) {
	testlog.Start(t)
	tx, err := New(16, &scriptTransport{open: true})
	require.NoError(t, err)

	tx.EnableRealtimeSend(true)
	tx.EnableRealtimeSend(true)
	tx.EnableRealtimeRead(true)
	tx.EnableRealtimeRead(true)
	tx.Close()
	tx.Close()
}

func TestRealtimeSendQueuesInsteadOfWriting(t *testing.T) {
	testlog.Start(t)
	tr := &scriptTransport{open: true}
	tx, err := New(16, tr)
	require.NoError(t, err)

	// Worker not started yet: toggling the flag is what routes sends to the
	// queue, so queue depth must grow while nothing hits the wire.
	tx.realtimeSend.Store(true)
	require.NoError(t, tx.SendPacket(taggedFrame(t, 0x01)))
	require.NoError(t, tx.SendPacket(taggedFrame(t, 0x02)))
	_, _, depth := tx.QueueStatus()
	require.Equal(t, 2, depth)
	require.Equal(t, 0, tr.writeCount())
	tx.realtimeSend.Store(false)
}
