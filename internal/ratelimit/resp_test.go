package ratelimit

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCommand(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	writeCommand(&buf, "INCR", "auth:login:10.0.0.1")
	assert.Equal(t, "*2\r\n$4\r\nINCR\r\n$19\r\nauth:login:10.0.0.1\r\n", buf.String())

	buf.Reset()
	writeCommand(&buf, "AUTH", "")
	assert.Equal(t, "*2\r\n$4\r\nAUTH\r\n$0\r\n\r\n", buf.String())
}

func TestReadReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    reply
		wantErr error
	}{
		{name: "simple string", in: "+OK\r\n", want: reply{kind: '+', str: "OK"}},
		{name: "empty simple string", in: "+\r\n", want: reply{kind: '+'}},
		{name: "integer", in: ":42\r\n", want: reply{kind: ':', n: 42}},
		{name: "negative integer", in: ":-2\r\n", want: reply{kind: ':', n: -2}},
		{name: "bad integer", in: ":4x\r\n", wantErr: ErrProtocol},
		{name: "bulk string", in: "$2\r\nhi\r\n", wantErr: ErrProtocol},
		{name: "array", in: "*0\r\n", wantErr: ErrProtocol},
		{name: "missing cr", in: "+OK\n", wantErr: ErrProtocol},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := readReply(bufio.NewReader(strings.NewReader(tt.in)))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadReply_ServerError(t *testing.T) {
	t.Parallel()

	_, err := readReply(bufio.NewReader(strings.NewReader("-WRONGPASS invalid password\r\n")))
	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, "WRONGPASS invalid password", srvErr.Message)
}

func TestReadReply_LineTooLong(t *testing.T) {
	t.Parallel()

	in := "+" + strings.Repeat("a", 64) + "\r\n"
	_, err := readReply(bufio.NewReaderSize(strings.NewReader(in), 16))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestExchange_StopsAtErrorReply(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader("+OK\r\n-ERR nope\r\n:1\r\n"))

	_, err := exchange(&out, in, []string{"AUTH", "pw"}, []string{"SELECT", "1"}, []string{"INCR", "k"})
	var srvErr *ServerError
	require.ErrorAs(t, err, &srvErr)
	assert.Equal(t, "ERR nope", srvErr.Message)
	assert.Equal(t, 3, strings.Count(out.String(), "*"), "all commands go out in one write")
}
