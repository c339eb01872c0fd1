package clipboard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatURL, "URL": FormatURL, "md": FormatMarkdown, "markdown": FormatMarkdown, "title": FormatTitle} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestText(t *testing.T) {
	n := bookmark.Node{ID: "1", Title: "Go [docs] #go", URL: "https://go.dev"}

	got, err := Text(n, FormatURL)
	require.NoError(t, err)
	assert.Equal(t, "https://go.dev", got)

	got, err = Text(n, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, `[Go \[docs\] #go](https://go.dev)`, got)

	got, err = Text(bookmark.Node{ID: "2", URL: "https://x.dev"}, FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "[https://x.dev](https://x.dev)", got)

	_, err = Text(bookmark.Node{ID: "2", URL: "https://x.dev"}, FormatTitle)
	assert.ErrorIs(t, err, ErrNothingToCopy)

	_, err = Text(bookmark.Node{ID: "3", Title: "Folder"}, FormatURL)
	assert.ErrorIs(t, err, ErrNothingToCopy)
}

func TestCopyEmpty(t *testing.T) {
	_, err := (&Copier{}).Copy("")
	assert.ErrorIs(t, err, ErrNothingToCopy)
}

func TestCopySystem(t *testing.T) {
	var got string
	c := &Copier{Write: func(text string) error { got = text; return nil }}
	res, err := c.Copy("https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, "system", res.Method)
	assert.Equal(t, "https://go.dev", got)
	assert.Equal(t, len("https://go.dev"), res.ByteSize)
}

func TestCopyFallsBackToOSC52(t *testing.T) {
	var buf bytes.Buffer
	c := &Copier{
		Write:  func(string) error { return errors.New("xclip not found") },
		Getenv: func(string) string { return "" },
		TTY:    func() (io.WriteCloser, error) { return nopCloser{&buf}, nil },
	}
	res, err := c.Copy("hi")
	require.NoError(t, err)
	assert.Equal(t, "osc52", res.Method)
	assert.Equal(t, "\x1b]52;c;"+base64.StdEncoding.EncodeToString([]byte("hi"))+"\x07", buf.String())
}

func TestCopyOSC52InsideTmux(t *testing.T) {
	var buf bytes.Buffer
	c := &Copier{
		Getenv: func(k string) string {
			if k == "TMUX" {
				return "/tmp/tmux-1000/default,1,0"
			}
			return ""
		},
		TTY: func() (io.WriteCloser, error) { return nopCloser{&buf}, nil },
	}
	_, err := c.Copy("hi")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "\x1bPtmux;"))
}

func TestCopyNoMethod(t *testing.T) {
	c := &Copier{Write: func(string) error { return errors.New("not found") }}
	_, err := c.Copy("hi")
	assert.Error(t, err)

	_, err = (&Copier{}).Copy("hi")
	assert.Error(t, err)
}

func TestOSC52Sequence(t *testing.T) {
	assert.Equal(t, "\x1b]52;c;aGk=\x07", osc52Sequence("aGk=", false))
	assert.Equal(t, "\x1bPtmux;\x1b\x1b]52;c;aGk=\x07\x1b\\", osc52Sequence("aGk=", true))
}
