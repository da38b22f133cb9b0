// Package daemon holds the process plumbing around the scheduler: the
// control socket, signal wiring, pid and health files, config hot-reload
// and the metrics endpoint.
package daemon

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// IPCHandler processes incoming IPC commands. Implementations dispatch
// commands to the appropriate daemon subsystem.
type IPCHandler interface {
	HandleCommand(cmd string, args map[string]string) (string, error)
}

// IPCServer listens on a Unix domain socket for line-based text commands
// and returns JSON responses.
//
// Protocol:
//   - Client sends a single line: COMMAND [arg1] [arg2] ...
//   - Server responds with a JSON line followed by a newline.
//   - Supported commands: HEALTH, REFRESH, RESTART, SIGNAL {n},
//     CLICK {name} {instance} {button}
type IPCServer struct {
	socketPath string
	handler    IPCHandler
	logger     *slog.Logger
	listener   net.Listener
	wg         sync.WaitGroup
	done       chan struct{}
	stopOnce   sync.Once
}

// NewIPCServer creates an IPC server that will listen on socketPath and
// dispatch commands to handler.
func NewIPCServer(socketPath string, handler IPCHandler, logger *slog.Logger) *IPCServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &IPCServer{
		socketPath: socketPath,
		handler:    handler,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start begins listening for connections on the Unix socket. The socket file
// is created with mode 0600. Any existing socket file at the path is
// removed first.
func (s *IPCServer) Start() error {
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()
	s.logger.Debug("control socket listening", "path", s.socketPath)
	return nil
}

// Stop closes the listener, waits for active connections to finish and
// removes the socket file. It is safe to call more than once.
func (s *IPCServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}
		s.wg.Wait()
		os.Remove(s.socketPath)
	})
}

func (s *IPCServer) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Warn("control socket accept failed", "error", err)
				time.Sleep(50 * time.Millisecond)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn reads one command line, dispatches it and writes the response.
func (s *IPCServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return
	}

	cmd, args, err := parseIPCCommand(line)
	var response string
	if err == nil {
		response, err = s.handler.HandleCommand(cmd, args)
	}
	if err != nil {
		s.logger.Debug("control command failed", "command", cmd, "error", err)
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(conn, "%s\n", data)
		return
	}

	// The line protocol needs single-line JSON; non-JSON is sent as-is.
	if compacted, err := compactJSON(response); err == nil {
		response = compacted
	}
	fmt.Fprintf(conn, "%s\n", response)
}

// parseIPCCommand parses a command line into the command name and its
// named arguments.
//
//	HEALTH                -> cmd="HEALTH", args={}
//	REFRESH               -> cmd="REFRESH", args={}
//	RESTART               -> cmd="RESTART", args={}
//	SIGNAL 4              -> cmd="SIGNAL", args={signal:4}
//	CLICK cpu 0 left      -> cmd="CLICK", args={name:cpu, instance:0, button:left}
func parseIPCCommand(line string) (string, map[string]string, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}

	cmd := strings.ToUpper(parts[0])
	args := make(map[string]string)

	switch cmd {
	case "SIGNAL":
		if len(parts) != 2 {
			return cmd, nil, fmt.Errorf("usage: SIGNAL <n>")
		}
		args["signal"] = parts[1]
	case "CLICK":
		if len(parts) != 4 {
			return cmd, nil, fmt.Errorf("usage: CLICK <name> <instance> <button>")
		}
		args["name"] = parts[1]
		args["instance"] = parts[2]
		args["button"] = parts[3]
	}

	return cmd, args, nil
}

// IPCClient connects to a running daemon via Unix socket to send commands.
type IPCClient struct {
	socketPath string
	timeout    time.Duration
}

// NewIPCClient creates a client that will connect to the daemon at socketPath.
func NewIPCClient(socketPath string) *IPCClient {
	return &IPCClient{socketPath: socketPath, timeout: 5 * time.Second}
}

// SendCommand sends a text command to the daemon and returns the raw
// response line. A response carrying an "error" key is returned as an
// error.
func (c *IPCClient) SendCommand(cmd string) (string, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return "", fmt.Errorf("connect to daemon: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := fmt.Fprintf(conn, "%s\n", cmd); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
		return "", fmt.Errorf("empty response from daemon")
	}

	resp := scanner.Text()
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(resp), &e) == nil && e.Error != "" {
		return "", fmt.Errorf("daemon: %s", e.Error)
	}
	return resp, nil
}

// compactJSON removes whitespace from JSON to produce a single-line string
// suitable for line-based IPC transport.
func compactJSON(s string) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
