package ratelimit

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Minimal RESP client side: commands go out as arrays of bulk strings and
// only simple string, integer and error replies are accepted back.

const crlf = "\r\n"

type reply struct {
	kind byte
	str  string
	n    int64
}

func writeCommand(buf *bytes.Buffer, args ...string) {
	buf.WriteByte('*')
	buf.WriteString(strconv.Itoa(len(args)))
	buf.WriteString(crlf)
	for _, arg := range args {
		buf.WriteByte('$')
		buf.WriteString(strconv.Itoa(len(arg)))
		buf.WriteString(crlf)
		buf.WriteString(arg)
		buf.WriteString(crlf)
	}
}

func readReply(r *bufio.Reader) (reply, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return reply{}, fmt.Errorf("%w: reply line too long", ErrProtocol)
		}
		return reply{}, err
	}
	if len(line) < 3 || line[len(line)-2] != '\r' {
		return reply{}, fmt.Errorf("%w: malformed reply line", ErrProtocol)
	}
	body := string(line[1 : len(line)-2])

	switch line[0] {
	case '+':
		return reply{kind: '+', str: body}, nil
	case ':':
		n, err := strconv.ParseInt(body, 10, 64)
		if err != nil {
			return reply{}, fmt.Errorf("%w: bad integer reply %q", ErrProtocol, body)
		}
		return reply{kind: ':', n: n}, nil
	case '-':
		return reply{}, &ServerError{Message: body}
	default:
		return reply{}, fmt.Errorf("%w: unsupported reply type %q", ErrProtocol, line[0])
	}
}

// exchange pipelines cmds in a single write and reads one reply per command,
// in order. The first error reply aborts the exchange.
func exchange(w io.Writer, r *bufio.Reader, cmds ...[]string) ([]reply, error) {
	var buf bytes.Buffer
	for _, cmd := range cmds {
		writeCommand(&buf, cmd...)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("ratelimit: write: %w", err)
	}

	replies := make([]reply, 0, len(cmds))
	for range cmds {
		rep, err := readReply(r)
		if err != nil {
			return nil, err
		}
		replies = append(replies, rep)
	}
	return replies, nil
}

func (r reply) integer() (int64, error) {
	if r.kind != ':' {
		return 0, fmt.Errorf("%w: expected integer reply", ErrProtocol)
	}
	return r.n, nil
}
