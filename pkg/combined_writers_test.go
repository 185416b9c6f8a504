package pkg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestCombinedWriter(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	cw := NewCombinedWriter(&buf1, &buf2)

	n, err := cw.Write([]byte("test message"))
	require.NoError(t, err)
	assert.Equal(t, 2*len("test message"), n)
	assert.Equal(t, "test message", buf1.String())
	assert.Equal(t, "test message", buf2.String())
}

func TestCombinedWriter_WriterFails(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCombinedWriter(&buf, failingWriter{})

	n, err := cw.Write([]byte("test message"))
	assert.Error(t, err)
	assert.Equal(t, len("test message"), n)
	assert.Equal(t, "test message", buf.String())
}
