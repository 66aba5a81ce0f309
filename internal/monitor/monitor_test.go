package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/config"
	"github.com/inango/chandler/internal/kernel/ports"
	"github.com/inango/chandler/internal/logging"
	"github.com/inango/chandler/internal/probe"
)

type fakeConn struct {
	sent    []byte
	replies [][]byte
	recvErr error
	closed  bool
}

func (c *fakeConn) Fd() int { return 7 }

func (c *fakeConn) Send(p []byte) (int, error) {
	c.sent = append(c.sent, p...)
	return len(p), nil
}

func (c *fakeConn) Recv(p []byte) (int, error) {
	if len(c.replies) == 0 {
		if c.recvErr != nil {
			return 0, c.recvErr
		}
		return 0, nil
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return copy(p, reply), nil
}

func (c *fakeConn) SetRecvTimeout(time.Duration) error { return nil }

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

type fakeDialer struct {
	conn ports.Conn
	err  error
}

func (d *fakeDialer) ConnectStream(string) (ports.Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func quietLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.New(logging.Options{Level: logging.LevelError})
	require.NoError(t, err)
	return log
}

// okReply is a handshake response whose snapshot reports every controller
// connected.
const okReply = `{"id":0,"result":{"Controller":{"u1":{"new":{"is_connected":true}}}},"error":null}`

func createSession(t *testing.T, conn *fakeConn, fired *int) *Session {
	t.Helper()

	cfg := config.Default()
	cfg.UnixsockDB = "/var/run/openvswitch/db.sock"
	cfg.ReceiveTimeout = 100

	session, status := Create(cfg, quietLogger(t), &fakeDialer{conn: conn}, func() { *fired++ })
	require.Equal(t, probe.Success, status)
	require.NotNil(t, session)
	return session
}

func TestCreateSendsSubscription(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{[]byte(okReply)}}
	fired := 0

	createSession(t, conn, &fired)

	assert.Equal(t, subscribeRequest, string(conn.sent))
	assert.Zero(t, fired)
	assert.False(t, conn.closed)
}

func TestCreateSnapshotReportsDisconnect(t *testing.T) {
	// The initial snapshot flows through the change handler: a false row
	// fires the hook before the engine ever polls.
	reply := `{"id":0,"result":{"Controller":{` +
		`"u1":{"new":{"is_connected":true}},` +
		`"u2":{"new":{"is_connected":false}}}},"error":null}`
	conn := &fakeConn{replies: [][]byte{[]byte(reply)}}
	fired := 0

	createSession(t, conn, &fired)

	assert.Equal(t, 1, fired)
}

func TestCreateErrorReply(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{[]byte(`{"id":0,"result":null,"error":"permission denied"}`)}}

	cfg := config.Default()
	cfg.UnixsockDB = "/tmp/db.sock"

	session, status := Create(cfg, quietLogger(t), &fakeDialer{conn: conn}, nil)

	assert.Equal(t, probe.ReturnedError, status)
	assert.Nil(t, session)
	assert.True(t, conn.closed)
}

func TestCreateProtocolError(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{[]byte(`{"id":null,"method":"update","params":[null,{}]}`)}}

	cfg := config.Default()
	cfg.UnixsockDB = "/tmp/db.sock"

	session, status := Create(cfg, quietLogger(t), &fakeDialer{conn: conn}, nil)

	assert.Equal(t, probe.ProtocolError, status)
	assert.Nil(t, session)
}

func TestCreateNoConnection(t *testing.T) {
	cfg := config.Default()
	cfg.UnixsockDB = "/tmp/db.sock"

	session, status := Create(cfg, quietLogger(t), &fakeDialer{err: unix.ECONNREFUSED}, nil)

	assert.Equal(t, probe.NoConnection, status)
	assert.Nil(t, session)
}

func TestCreateHandshakeTimeout(t *testing.T) {
	conn := &fakeConn{recvErr: unix.EAGAIN}

	cfg := config.Default()
	cfg.UnixsockDB = "/tmp/db.sock"

	_, status := Create(cfg, quietLogger(t), &fakeDialer{conn: conn}, nil)

	assert.Equal(t, probe.ReceiveTimeout, status)
}

func TestOnReadDisconnectNotification(t *testing.T) {
	notification := `{"id":null,"method":"update","params":[null,{"Controller":{` +
		`"u1":{"new":{"is_connected":false}},` +
		`"u2":{"new":{"is_connected":false}}}}]}`

	conn := &fakeConn{replies: [][]byte{[]byte(okReply)}}
	fired := 0
	session := createSession(t, conn, &fired)

	conn.replies = [][]byte{[]byte(notification)}
	status := session.OnRead()

	assert.Equal(t, probe.Success, status)
	// Two false rows in one notification coalesce into a single firing.
	assert.Equal(t, 1, fired)
	assert.Zero(t, session.size)
}

func TestOnReadPipelinedNotifications(t *testing.T) {
	notification := `{"id":null,"method":"update","params":[null,{"Controller":{` +
		`"u1":{"new":{"is_connected":false}}}}]}`

	conn := &fakeConn{replies: [][]byte{[]byte(okReply)}}
	fired := 0
	session := createSession(t, conn, &fired)

	// Two concatenated frames in one receive: the hook fires once per frame.
	conn.replies = [][]byte{[]byte(notification + notification)}
	status := session.OnRead()

	assert.Equal(t, probe.Success, status)
	assert.Equal(t, 2, fired)
	assert.Zero(t, session.size)
}

func TestOnReadPartialFrame(t *testing.T) {
	notification := `{"id":null,"method":"update","params":[null,{"Controller":{` +
		`"u1":{"new":{"is_connected":false}}}}]}`
	half := len(notification) / 2

	conn := &fakeConn{replies: [][]byte{[]byte(okReply)}}
	fired := 0
	session := createSession(t, conn, &fired)

	conn.replies = [][]byte{[]byte(notification[:half])}
	require.Equal(t, probe.Success, session.OnRead())
	assert.Zero(t, fired)
	assert.Equal(t, half, session.size)

	conn.replies = [][]byte{[]byte(notification[half:])}
	require.Equal(t, probe.Success, session.OnRead())
	assert.Equal(t, 1, fired)
	assert.Zero(t, session.size)
}

func TestOnReadIgnoresOldRows(t *testing.T) {
	notification := `{"id":null,"method":"update","params":[null,{"Controller":{` +
		`"u1":{"old":{"is_connected":false}},` +
		`"u2":{"new":{"is_connected":true}}}}]}`

	conn := &fakeConn{replies: [][]byte{[]byte(okReply)}}
	fired := 0
	session := createSession(t, conn, &fired)

	conn.replies = [][]byte{[]byte(notification)}
	require.Equal(t, probe.Success, session.OnRead())

	assert.Zero(t, fired)
	assert.Zero(t, session.size)
}

func TestOnReadConnectionClosed(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{[]byte(okReply)}}
	fired := 0
	session := createSession(t, conn, &fired)

	assert.Equal(t, probe.ConnectionClosed, session.OnRead())
}

func TestOnReadTimeout(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{[]byte(okReply)}}
	fired := 0
	session := createSession(t, conn, &fired)

	conn.recvErr = unix.EAGAIN
	assert.Equal(t, probe.ReceiveTimeout, session.OnRead())
}

func TestHandshakeRetainsPipelinedBytes(t *testing.T) {
	// A notification already buffered behind the handshake reply is
	// processed during creation.
	notification := `{"id":null,"method":"update","params":[null,{"Controller":{` +
		`"u1":{"new":{"is_connected":false}}}}]}`
	conn := &fakeConn{replies: [][]byte{[]byte(okReply + notification)}}
	fired := 0

	session := createSession(t, conn, &fired)

	assert.Equal(t, 1, fired)
	assert.Zero(t, session.size)
}

func TestOnReadMalformedFrameKeepsBuffer(t *testing.T) {
	conn := &fakeConn{replies: [][]byte{[]byte(okReply)}}
	fired := 0
	session := createSession(t, conn, &fired)

	// Not valid JSON yet: the parser reports a partial document and the
	// buffer keeps accumulating.
	conn.replies = [][]byte{[]byte(`{"id":null,"method":"upd`)}
	require.Equal(t, probe.Success, session.OnRead())

	assert.Equal(t, len(`{"id":null,"method":"upd`), session.size)
	assert.Zero(t, fired)
}
