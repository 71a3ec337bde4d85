package i2cx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSlavePort struct {
	listen    bool
	enables   int
	rxBuf     []byte
	txPayload []byte
}

func (p *fakeSlavePort) EnableListen() error  { p.listen = true; p.enables++; return nil }
func (p *fakeSlavePort) DisableListen() error { p.listen = false; return nil }
func (p *fakeSlavePort) StartReceive(buf []byte) error {
	p.rxBuf = buf
	return nil
}
func (p *fakeSlavePort) StartTransmit(buf []byte) error {
	p.txPayload = append([]byte(nil), buf...)
	return nil
}

// hostWrite simulates the host writing frame to the board.
func hostWrite(s *Slave, p *fakeSlavePort, frame []byte) {
	s.OnAddress(DirWrite)
	n := copy(p.rxBuf, frame)
	s.OnReceiveComplete(n)
}

func TestSlaveReceiveDeliversFrameOnce(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)
	require.NoError(t, s.Listen())

	hostWrite(s, p, []byte{0x02, 1, 2, 3})
	require.True(t, p.listen, "listen must be re-armed after receive")

	dst := make([]byte, RxBufferSize)
	n, ok := s.TakeCommand(dst)
	require.True(t, ok)
	require.Equal(t, []byte{0x02, 1, 2, 3}, dst[:n])

	_, ok = s.TakeCommand(dst)
	require.False(t, ok)
}

func TestSlaveTransmitsLatestPublished(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)
	require.NoError(t, s.Listen())

	s.Publish([]byte{1, 2, 3}, nil)
	s.Publish([]byte{4, 5}, nil)
	s.OnAddress(DirRead)
	require.Equal(t, []byte{4, 5}, p.txPayload)
	require.False(t, s.TakeServed(), "not served until transmit completes")

	s.OnTransmitComplete()
	require.True(t, s.TakeServed())
	require.False(t, s.TakeServed())
}

func TestSlaveSwitchesToAfterResponseOnceServed(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)
	require.NoError(t, s.Listen())

	s.Publish([]byte{1, 2, 3}, []byte{1, 0, 0})
	s.OnAddress(DirRead)
	require.Equal(t, []byte{1, 2, 3}, p.txPayload)
	s.OnTransmitComplete()

	s.OnAddress(DirRead)
	require.Equal(t, []byte{1, 0, 0}, p.txPayload)
	s.OnTransmitComplete()

	// Without a new Publish the cleared response keeps being served.
	s.OnAddress(DirRead)
	require.Equal(t, []byte{1, 0, 0}, p.txPayload)
}

func TestSlaveKeepsResponseWithoutAfter(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)
	require.NoError(t, s.Listen())

	s.Publish([]byte{7, 8}, nil)
	for i := 0; i < 2; i++ {
		s.OnAddress(DirRead)
		require.Equal(t, []byte{7, 8}, p.txPayload)
		s.OnTransmitComplete()
	}
}

func TestSlaveIgnoresEventsWhenNotListening(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)

	s.OnAddress(DirWrite)
	require.Nil(t, p.rxBuf)
	s.OnTransmitComplete()
	require.False(t, s.TakeServed())
	require.Zero(t, p.enables)
}

func TestSlaveStopDropsPendingFrame(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)
	require.NoError(t, s.Listen())
	hostWrite(s, p, []byte{0x01})

	require.NoError(t, s.Stop())
	require.False(t, p.listen)
	_, ok := s.TakeCommand(make([]byte, 8))
	require.False(t, ok)
}

func TestSlaveOverwriteCountsDrop(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)
	require.NoError(t, s.Listen())

	hostWrite(s, p, []byte{0x01})
	hostWrite(s, p, []byte{0x02})

	dst := make([]byte, 8)
	n, ok := s.TakeCommand(dst)
	require.True(t, ok)
	require.Equal(t, []byte{0x02}, dst[:n])
	_, dropped := s.Stats()
	require.Equal(t, uint32(1), dropped)
}

func TestSlaveErrorRelistens(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)
	require.NoError(t, s.Listen())

	s.OnAddress(DirWrite)
	require.False(t, p.listen)
	s.OnError()
	require.True(t, p.listen)

	errs, _ := s.Stats()
	require.Equal(t, uint32(1), errs)
	s.OnReceiveComplete(4)
	_, ok := s.TakeCommand(make([]byte, 8))
	require.False(t, ok, "completion after error must not produce a frame")
}

func TestSlaveNotifiesOnFrameAndServe(t *testing.T) {
	p := &fakeSlavePort{}
	s := NewSlave(p)
	var n int
	s.SetNotify(func() { n++ })
	require.NoError(t, s.Listen())

	hostWrite(s, p, []byte{0x01})
	s.OnAddress(DirRead)
	s.OnTransmitComplete()
	require.Equal(t, 2, n)
}
