package probe

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/inango/chandler/internal/config"
	"github.com/inango/chandler/internal/jrpc"
	"github.com/inango/chandler/internal/kernel/ports"
	"github.com/inango/chandler/internal/logging"
)

// request is the fixed liveness probe, sent byte-exact with no framing.
const request = `{"id":0,"method":"list-commands","params":[]}`

// responseBufferSize bounds how much reply a probe will accumulate.
const responseBufferSize = 32768

// Prober issues liveness probes against daemon control sockets.
type Prober struct {
	cfg      *config.Config
	log      *logging.Logger
	dialer   ports.Dialer
	finder   ports.ProcessFinder
	signaler ports.Signaler
}

// New creates a Prober.
func New(cfg *config.Config, log *logging.Logger, dialer ports.Dialer, finder ports.ProcessFinder, signaler ports.Signaler) *Prober {
	return &Prober{
		cfg:      cfg,
		log:      log,
		dialer:   dialer,
		finder:   finder,
		signaler: signaler,
	}
}

// SocketPath composes the control socket path for target. An absolute
// target is used verbatim; otherwise the conventional
// <run_dir>/<target>.<pid>.ctl name is composed, which requires a
// positive pid.
func SocketPath(runDir, target string, pid int) (string, error) {
	if strings.HasPrefix(target, "/") {
		return target, nil
	}
	if pid <= 0 {
		return "", fmt.Errorf("no pid to compose control socket for %q", target)
	}
	return fmt.Sprintf("%s/%s.%d.ctl", runDir, target, pid), nil
}

// Query performs one list-commands round trip against target's control
// socket. A well-formed response with id 0 is the liveness signal,
// regardless of its result or error payload.
func (p *Prober) Query(target string, pid int) QueryStatus {
	socketName, err := SocketPath(p.cfg.RunDir, target, pid)
	if err != nil {
		p.log.Errorf("failed to get unix socket name for \"%s\"", target)
		return UnixSocketNameError
	}

	p.log.Debugf("got unix socket name %s for \"%s\"", socketName, target)

	conn, err := p.dialer.ConnectStream(socketName)
	if err != nil {
		p.log.Errorf("failed to connect to unix socket %s: %v", socketName, err)
		return classifyConnectError(err)
	}
	defer conn.Close()

	if n, err := conn.Send([]byte(request)); err != nil || n != len(request) {
		p.log.Errorf("failed to send a request: %s", request)
		return SocketError
	}

	p.log.Debugf("sent a request: %s", request)

	timeout := time.Duration(p.cfg.ReceiveTimeout) * time.Millisecond
	if err := conn.SetRecvTimeout(timeout); err != nil {
		p.log.Errorf("failed to set receive timeout: %v", err)
		return SocketError
	}

	buf := make([]byte, responseBufferSize)
	total := 0
	var msg jrpc.Message

	for {
		count, err := conn.Recv(buf[total:])
		if err != nil {
			p.log.Debugf("recv failed: %v", err)
			if errors.Is(err, unix.EAGAIN) {
				return ReceiveTimeout
			}
			return SocketError
		}

		if count == 0 {
			p.log.Debugf("connection closed")
			return ReceiveTimeout
		}

		p.log.Debugf("received %d bytes", count)
		total += count

		if jrpc.Parse(&msg, buf[:total]) {
			if msg.ID == 0 && msg.Type == jrpc.TypeResponse {
				p.log.Debugf("received valid JSON in response")
				p.logBody(buf[:total], &msg)
				return Success
			}
		}

		if total == len(buf) {
			// No space left to receive data.
			return SystemError
		}
	}
}

// logBody dumps the result and error fields of a parsed reply at debug level.
func (p *Prober) logBody(js []byte, msg *jrpc.Message) {
	if p.log.Level() < logging.LevelDebug {
		return
	}
	if msg.Result >= 0 {
		t := msg.Tokens[msg.Result]
		p.log.Debugf("  result: %s", js[t.Start:t.End])
	}
	if msg.Error >= 0 {
		t := msg.Tokens[msg.Error]
		p.log.Debugf("  error : %s", js[t.Start:t.End])
	}
}

// classifyConnectError maps a connect errno onto the probe taxonomy.
func classifyConnectError(err error) QueryStatus {
	switch {
	case errors.Is(err, unix.ETIMEDOUT),
		errors.Is(err, unix.ENETUNREACH),
		errors.Is(err, unix.ECONNREFUSED),
		errors.Is(err, unix.EADDRNOTAVAIL):
		return NoConnection
	default:
		return SocketError
	}
}

// Status resolves target's pid and probes it, refining probe silence into
// the kill/respawn taxonomy with a null-signal existence check.
// The returned pid is the engine's kill target.
func (p *Prober) Status(target, pidfile, unixctl string) (DaemonStatus, int) {
	p.log.Infof("checking process \"%s\"...", target)

	pid := p.resolvePid(target, pidfile)
	if pid <= 0 {
		p.log.Warnf("failed to get pid from pidfile for process \"%s\"", target)
		pid, _ = p.finder.FindByName(target)
	}

	if pid <= 0 {
		p.log.Errorf("failed to find pid by name for process \"%s\"", target)
		return NoProcess, pid
	}

	p.log.Debugf("found process \"%s\" with pid: %d", target, pid)

	socketTarget := target
	if unixctl != "" {
		socketTarget = unixctl
	}

	switch qs := p.Query(socketTarget, pid); qs {
	case Success:
		p.log.Infof("process \"%s\" is alive", target)
		return Alive, pid

	case ReceiveTimeout, NoConnection:
		if !p.signaler.Exists(pid) {
			p.log.Warnf("process \"%s\" is not responding", target)
			return NoResponse, pid
		}
		p.log.Errorf("process \"%s\" is not alive", target)
		return NotAlive, pid

	default:
		return SystemErr, pid
	}
}

// resolvePid reads the pid from the configured or conventional pidfile.
func (p *Prober) resolvePid(target, pidfile string) int {
	var path string
	switch {
	case pidfile == "":
		path = filepath.Join(p.cfg.RunDir, target+".pid")
	case strings.HasPrefix(pidfile, "/"):
		path = pidfile
	default:
		path = filepath.Join(p.cfg.RunDir, pidfile)
	}

	pid, err := p.finder.ReadPidFile(path)
	if err != nil {
		p.log.Errorf("failed to read pid from \"%s\": %v", path, err)
		return 0
	}
	return pid
}
