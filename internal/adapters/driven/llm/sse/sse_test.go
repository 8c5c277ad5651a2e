package sse

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	input := ": keep-alive\n" +
		"event: message\n" +
		"data: {\"a\":1}\n\n" +
		"data:{\"a\":2}\n\n" +
		"data: \n\n" +
		"data: [DONE]\n\n" +
		"data: {\"a\":3}\n\n"

	var got []string
	err := Read(strings.NewReader(input), func(data string) error {
		got = append(got, data)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, got)
}

func TestRead_HandlerStops(t *testing.T) {
	input := "data: one\n\ndata: two\n\ndata: three\n\n"

	var got []string
	err := Read(strings.NewReader(input), func(data string) error {
		got = append(got, data)
		if data == "two" {
			return ErrDone
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)

	boom := errors.New("boom")
	err = Read(strings.NewReader(input), func(string) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestReadLines(t *testing.T) {
	input := "{\"n\":1}\n\n  {\"n\":2}  \n"

	var got []string
	err := ReadLines(strings.NewReader(input), func(line string) error {
		got = append(got, line)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, got)
}
