package resolve

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// Navigator opens a URI, e.g. by printing it or launching a browser.
type Navigator interface {
	Navigate(ctx context.Context, uri string) error
}

// Clipboard writes text to the user's clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Outcome reports what Trigger did. Copy failures show up here, never as errors.
type Outcome struct {
	Navigated bool
	Copied    bool
	CopyErr   error
}

// ErrNoNavigator is returned when a navigate action is triggered without a Navigator.
var ErrNoNavigator = errors.New("no navigator configured")

// Trigger performs the side effect for action. Navigation failures are returned;
// clipboard failures are only recorded in the Outcome.
func Trigger(ctx context.Context, action Action, navigator Navigator, clipboard Clipboard) (Outcome, error) {
	switch action.Kind {
	case KindNavigate:
		if navigator == nil {
			return Outcome{}, ErrNoNavigator
		}
		if err := navigator.Navigate(ctx, action.URI); err != nil {
			return Outcome{}, fmt.Errorf("failed to open %s: %w", action.URI, err)
		}
		return Outcome{Navigated: true}, nil
	default:
		return copyText(ctx, clipboard, action.Text), nil
	}
}

func copyText(ctx context.Context, clipboard Clipboard, text string) (outcome Outcome) {
	if clipboard == nil {
		return Outcome{CopyErr: errors.New("no clipboard available")}
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{CopyErr: fmt.Errorf("clipboard panic: %v", r)}
		}
	}()
	if err := clipboard.WriteText(ctx, text); err != nil {
		return Outcome{CopyErr: err}
	}
	return Outcome{Copied: true}
}

// OSC52Clipboard copies text through the terminal's OSC 52 escape sequence.
type OSC52Clipboard struct {
	Out io.Writer
}

func (c OSC52Clipboard) WriteText(ctx context.Context, text string) error {
	if c.Out == nil {
		return errors.New("no terminal output")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.Out, "\x1b]52;c;%s\x07", base64.StdEncoding.EncodeToString([]byte(text)))
	return err
}

// WriterNavigator "navigates" by printing the URI, for terminals without a browser.
type WriterNavigator struct {
	Out io.Writer
}

func (n WriterNavigator) Navigate(ctx context.Context, uri string) error {
	_, err := fmt.Fprintln(n.Out, uri)
	return err
}
