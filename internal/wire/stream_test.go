package wire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer writes rawResponse to its end of a net.Pipe as soon as it
// has read a full request head (terminated by "\r\n\r\n"), then closes.
func fakeServer(t *testing.T, rawResponse string) net.Conn {
	t.Helper()
	client, server := net.Pipe()
	go func() {
		defer server.Close()
		br := bufio.NewReader(server)
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if line == "\r\n" {
				break
			}
		}
		_, _ = io.Copy(server, strings.NewReader(rawResponse))
	}()
	return client
}

func TestRunContentLengthResponse(t *testing.T) {
	t.Parallel()
	conn := fakeServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	defer conn.Close()

	result, err := Run(context.Background(), Exchange{
		Tx:   conn,
		Head: []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, result.Status.Status)
	assert.Equal(t, "hello", string(result.Body))
	assert.True(t, result.KeepAlive)
}

func TestRunChunkedResponse(t *testing.T) {
	t.Parallel()
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n0\r\n\r\n"
	conn := fakeServer(t, raw)
	defer conn.Close()

	result, err := Run(context.Background(), Exchange{
		Tx:   conn,
		Head: []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(result.Body))
}

func TestRunCloseDelimitedResponse(t *testing.T) {
	t.Parallel()
	raw := "HTTP/1.1 200 OK\r\n\r\ngoodbye"
	conn := fakeServer(t, raw)
	defer conn.Close()

	result, err := Run(context.Background(), Exchange{
		Tx:   conn,
		Head: []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "goodbye", string(result.Body))
	assert.False(t, result.KeepAlive, "close-delimited framing can't support keep-alive")
}

func TestRunHeadMethodSkipsBody(t *testing.T) {
	t.Parallel()
	conn := fakeServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n")
	defer conn.Close()

	result, err := Run(context.Background(), Exchange{
		Tx:         conn,
		Head:       []byte("HEAD / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
		HeadMethod: true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Body)
}

func TestRunRequestBodyIsUploaded(t *testing.T) {
	t.Parallel()
	client, server := net.Pipe()
	defer client.Close()

	uploaded := make(chan string, 1)
	go func() {
		defer server.Close()
		br := bufio.NewReader(server)
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if line == "\r\n" {
				break
			}
		}
		buf := make([]byte, 11)
		_, _ = io.ReadFull(br, buf)
		uploaded <- string(buf)
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	}()

	result, err := Run(context.Background(), Exchange{
		Tx:   client,
		Head: []byte("POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 11\r\n\r\n"),
		Body: bytes.NewReader([]byte("hello world")),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, result.Status.Status)
	assert.Equal(t, "hello world", <-uploaded)
}

func TestRunExpectContinueGatesBody(t *testing.T) {
	t.Parallel()
	client, server := net.Pipe()
	defer client.Close()

	go func() {
		defer server.Close()
		br := bufio.NewReader(server)
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if line == "\r\n" {
				break
			}
		}
		_, _ = server.Write([]byte("HTTP/1.1 100 Continue\r\n\r\n"))
		buf := make([]byte, 5)
		_, _ = io.ReadFull(br, buf)
		_, _ = server.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 0\r\n\r\n"))
	}()

	result, err := Run(context.Background(), Exchange{
		Tx:             client,
		Head:           []byte("POST / HTTP/1.1\r\nHost: example.com\r\nExpect: 100-continue\r\nContent-Length: 5\r\n\r\n"),
		Body:           bytes.NewReader([]byte("hello")),
		ExpectContinue: true,
		ExpectTimeout:  time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, result.Status.Status)
}

func TestRunResponseSinkReceivesBody(t *testing.T) {
	t.Parallel()
	conn := fakeServer(t, "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello")
	defer conn.Close()

	var sink bytes.Buffer
	result, err := Run(context.Background(), Exchange{
		Tx:           conn,
		Head:         []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
		ResponseSink: &sink,
	})
	require.NoError(t, err)
	assert.Empty(t, result.Body)
	assert.Equal(t, "hello", sink.String())
}

func TestRunMalformedStatusLineIsParsingErrorNotIOError(t *testing.T) {
	t.Parallel()
	conn := fakeServer(t, "not a status line\r\n\r\n")
	defer conn.Close()

	_, err := Run(context.Background(), Exchange{
		Tx:   conn,
		Head: []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	})
	require.Error(t, err)
	var parseErr *ParsingError
	assert.ErrorAs(t, err, &parseErr, "malformed wire bytes must surface as ParsingError, never IOError")
	var ioErr *IOError
	assert.False(t, errors.As(err, &ioErr), "a ParsingError must not also satisfy IOError")
}

func TestRunMalformedHeaderIsParsingError(t *testing.T) {
	t.Parallel()
	conn := fakeServer(t, "HTTP/1.1 200 OK\r\nnot-a-header-line\r\n\r\n")
	defer conn.Close()

	_, err := Run(context.Background(), Exchange{
		Tx:   conn,
		Head: []byte("GET / HTTP/1.1\r\nHost: example.com\r\n\r\n"),
	})
	require.Error(t, err)
	var parseErr *ParsingError
	assert.ErrorAs(t, err, &parseErr)
}

func TestParserReadHeadersPreservesOrderAndDuplicates(t *testing.T) {
	t.Parallel()
	raw := "Set-Cookie: a=1\r\nSet-Cookie: b=2\r\nContent-Type: text/plain\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(raw))
	p := NewParser(br)
	headers, err := p.ReadHeaders()
	require.NoError(t, err)
	require.Len(t, headers, 3)
	assert.Equal(t, "Set-Cookie", headers[0].Name)
	assert.Equal(t, "a=1", headers[0].Value)
	assert.Equal(t, "Set-Cookie", headers[1].Name)
	assert.Equal(t, "b=2", headers[1].Value)
	assert.Equal(t, "Content-Type", headers[2].Name)
}

func TestParserReadStatusLine(t *testing.T) {
	t.Parallel()
	br := bufio.NewReader(strings.NewReader("HTTP/1.1 404 Not Found\r\n"))
	p := NewParser(br)
	sl, err := p.ReadStatusLine()
	require.NoError(t, err)
	assert.Equal(t, 404, sl.Status)
	assert.Equal(t, "Not Found", sl.Reason)
	assert.Equal(t, 1, sl.Major)
	assert.Equal(t, 1, sl.Minor)
}
