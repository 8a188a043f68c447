// Package console accepts the command paths over a serial line, one per
// line, either bare ("/blink/2/200/100") or as an HTTP request line
// ("GET /blink/2/200/100 HTTP/1.1"). Every line is answered with "200 OK".
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.bug.st/serial"
)

const reply = "200 OK\r\n"

// Executor runs a command path.
type Executor interface {
	Execute(ctx context.Context, path string) (string, error)
}

type Console struct {
	port serial.Port
	name string
	exec Executor
}

// Open opens the serial port name at baud, 8N1.
func Open(name string, baud int, exec Executor) (*Console, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return &Console{port: port, name: name, exec: exec}, nil
}

// Run serves the port until ctx is done or the port fails.
func (c *Console) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		// unblocks the pending read
		c.port.Close()
	}()
	slog.Info("Serial console listening", "port", c.name)
	err := Serve(ctx, c.port, c.exec)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Serve reads command lines from rw until EOF or ctx is done.
func Serve(ctx context.Context, rw io.ReadWriter, exec Executor) error {
	scanner := bufio.NewScanner(rw)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		path, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		name, err := exec.Execute(ctx, path)
		if err != nil {
			slog.Warn("Serial command not executed", "path", path, "error", err)
		} else {
			slog.Debug("Serial command", "path", path, "command", name)
		}
		if _, err := io.WriteString(rw, reply); err != nil {
			return fmt.Errorf("write reply: %w", err)
		}
	}
	return scanner.Err()
}

// Ports lists the serial ports of the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

func parseLine(line string) (string, bool) {
	fields := strings.Fields(line)
	switch {
	case len(fields) == 0:
		return "", false
	case len(fields) >= 2 && fields[0] == "GET":
		return fields[1], true
	default:
		return fields[0], true
	}
}
