// Package clipboard copies bookmark links to the system clipboard.
package clipboard

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	sysclip "github.com/atotto/clipboard"

	"github.com/asheshgoplani/bookmark-deck/internal/bookmark"
)

// ErrNothingToCopy is returned for folders and empty text.
var ErrNothingToCopy = errors.New("nothing to copy")

// Format selects how a bookmark is rendered onto the clipboard.
type Format string

const (
	FormatURL      Format = "url"
	FormatMarkdown Format = "markdown"
	FormatTitle    Format = "title"
)

// ParseFormat validates a format name. Empty means FormatURL.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatURL:
		return FormatURL, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatTitle:
		return FormatTitle, nil
	}
	return "", fmt.Errorf("unknown copy format %q (want url, markdown or title)", s)
}

// Text renders a bookmark in the given format.
func Text(n bookmark.Node, format Format) (string, error) {
	if n.IsFolder() {
		return "", ErrNothingToCopy
	}
	switch format {
	case FormatMarkdown:
		title := strings.TrimSpace(n.Title)
		if title == "" {
			title = n.URL
		}
		title = strings.NewReplacer("[", `\[`, "]", `\]`).Replace(title)
		return "[" + title + "](" + n.URL + ")", nil
	case FormatTitle:
		if strings.TrimSpace(n.Title) == "" {
			return "", ErrNothingToCopy
		}
		return n.Title, nil
	default:
		return n.URL, nil
	}
}

// Result records how the text reached the clipboard.
type Result struct {
	Method   string // system or osc52
	ByteSize int
}

// Copier writes text to the clipboard: the system clipboard first, then
// OSC 52 through the terminal.
type Copier struct {
	// Write puts text on the system clipboard. Nil skips it.
	Write func(string) error
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// TTY opens the terminal for OSC 52. Nil disables the fallback.
	TTY func() (io.WriteCloser, error)
}

// Default returns a copier for the current machine.
func Default() *Copier {
	c := &Copier{
		Getenv: os.Getenv,
		TTY: func() (io.WriteCloser, error) {
			return os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		},
	}
	if !sysclip.Unsupported {
		c.Write = sysclip.WriteAll
	}
	return c
}

// Copy places text on the clipboard.
func (c *Copier) Copy(text string) (*Result, error) {
	if text == "" {
		return nil, ErrNothingToCopy
	}
	err := errNoSystemClipboard
	if c.Write != nil {
		if err = c.Write(text); err == nil {
			return &Result{Method: "system", ByteSize: len(text)}, nil
		}
	}
	if c.TTY == nil {
		return nil, err
	}
	if oscErr := c.copyOSC52(text); oscErr != nil {
		return nil, fmt.Errorf("no clipboard method available (install pbcopy, xclip, xsel, or wl-copy): %w", errors.Join(err, oscErr))
	}
	return &Result{Method: "osc52", ByteSize: len(text)}, nil
}

var errNoSystemClipboard = errors.New("system clipboard unavailable")

func (c *Copier) copyOSC52(text string) error {
	getenv := c.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	tty, err := c.TTY()
	if err != nil {
		return fmt.Errorf("cannot open terminal: %w", err)
	}
	defer tty.Close()

	seq := osc52Sequence(base64.StdEncoding.EncodeToString([]byte(text)), getenv("TMUX") != "")
	_, err = io.WriteString(tty, seq)
	return err
}

// osc52Sequence wraps the payload in a DCS passthrough inside tmux.
func osc52Sequence(payload string, inTmux bool) string {
	osc := "\x1b]52;c;" + payload + "\x07"
	if inTmux {
		return "\x1bPtmux;\x1b" + osc + "\x1b\\"
	}
	return osc
}
