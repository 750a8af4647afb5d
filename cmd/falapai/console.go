package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"

	"github.com/osa030/falapai/internal/app/phrases"
	"github.com/osa030/falapai/internal/app/playback"
	"github.com/osa030/falapai/internal/domain/phrase"
)

var (
	colorRequesting = color.New(color.FgYellow)
	colorPlaying    = color.New(color.FgGreen, color.Bold)
	colorPaused     = color.New(color.FgCyan)
	colorError      = color.New(color.FgRed, color.Bold)
	colorMuted      = color.New(color.Faint)
)

const consoleHelp = `Type text and press Enter to speak it. Enter on an empty line pauses or resumes it.
  /list          show quick phrases and saved texts
  /q N           speak (or pause/resume) quick phrase N
  /s N           speak (or pause/resume) saved text N
  /pause /resume /stop
  /ok            dismiss an error
  /add TEXT      add a quick phrase
  /save TITLE    save the last typed text under TITLE
  /exit`

// say speaks text once and waits for it to finish.
func say(ctrl *playback.Controller, text string, sigCh <-chan os.Signal, w io.Writer) error {
	if !ctrl.Request(text) {
		return errors.New("nothing to say")
	}

	for {
		select {
		case ev, ok := <-ctrl.Events():
			if !ok {
				return nil
			}
			switch ev.Type {
			case playback.EventCompleted:
				return nil
			case playback.EventFailed:
				return errors.New(ev.Snapshot.Message)
			default:
				printSnapshot(w, ev.Snapshot)
			}
		case <-sigCh:
			ctrl.Stop()
			return nil
		}
	}
}

// console is the interactive speaking loop.
type console struct {
	ctrl  *playback.Controller
	store *phrases.Store
	in    io.Reader
	out   io.Writer

	last string // Last typed text, the target of an empty line
}

func newConsole(ctrl *playback.Controller, store *phrases.Store, in io.Reader, out io.Writer) *console {
	return &console{ctrl: ctrl, store: store, in: in, out: out}
}

// run reads commands until /exit, end of input or a signal.
// Input lines and playback events are handled on the same goroutine.
func (c *console) run(sigCh <-chan os.Signal) error {
	fmt.Fprintln(c.out, consoleHelp)

	done := make(chan struct{})
	defer close(done)

	// The reader goroutine ends at EOF. After /exit or a signal it may stay
	// blocked in Scan until c.in is closed; for os.Stdin that is process exit.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.handle(line); quit {
				return nil
			}
		case ev, ok := <-c.ctrl.Events():
			if !ok {
				return nil
			}
			c.render(ev)
		case <-sigCh:
			c.ctrl.Stop()
			return nil
		}
	}
}

// handle executes one input line and reports whether the console should exit.
func (c *console) handle(line string) bool {
	trimmed := strings.TrimSpace(line)

	if trimmed == "" {
		if c.last != "" {
			c.toggle(c.last)
		}
		return false
	}

	if !strings.HasPrefix(trimmed, "/") {
		if c.ctrl.InputLocked() {
			colorMuted.Fprintln(c.out, "Speaking. Press Enter to pause or /stop to cancel.")
			return false
		}
		c.last = trimmed
		c.toggle(trimmed)
		return false
	}

	cmd, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/help":
		fmt.Fprintln(c.out, consoleHelp)
	case "/list":
		printQuickPhrases(c.out, c.store.QuickPhrases())
		printSavedTexts(c.out, c.store.SavedTexts())
	case "/q":
		quick := c.store.QuickPhrases()
		if i, ok := c.index(arg, len(quick)); ok {
			c.toggle(quick[i])
		}
	case "/s":
		saved := c.store.SavedTexts()
		if i, ok := c.index(arg, len(saved)); ok {
			c.toggle(saved[i].Content)
		}
	case "/pause":
		c.report(c.ctrl.Pause())
	case "/resume":
		c.report(c.ctrl.Resume())
	case "/stop":
		c.ctrl.Stop()
	case "/ok":
		c.ctrl.Acknowledge()
	case "/add":
		if arg == "" {
			colorMuted.Fprintln(c.out, "Usage: /add TEXT")
			return false
		}
		c.report(c.store.AddQuickPhrase(arg))
	case "/save":
		if arg == "" || c.last == "" {
			colorMuted.Fprintln(c.out, "Type a text first, then /save TITLE")
			return false
		}
		c.report(c.store.AddSavedText(arg, c.last))
	default:
		colorMuted.Fprintf(c.out, "Unknown command %s, try /help\n", cmd)
	}
	return false
}

func (c *console) toggle(text string) {
	c.report(c.ctrl.Toggle(text))
}

// index parses a 1-based position into a slice index.
func (c *console) index(arg string, n int) (int, bool) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		colorMuted.Fprintf(c.out, "Pick a number between 1 and %d\n", n)
		return 0, false
	}
	return i - 1, true
}

func (c *console) report(err error) {
	if err != nil {
		colorError.Fprintf(c.out, "%v\n", err)
	}
}

func (c *console) render(ev playback.Event) {
	switch ev.Type {
	case playback.EventCompleted:
		colorMuted.Fprintln(c.out, "done")
	case playback.EventFailed:
		colorError.Fprintln(c.out, ev.Snapshot.Message)
		colorMuted.Fprintln(c.out, "Type /ok to dismiss.")
	default:
		printSnapshot(c.out, ev.Snapshot)
	}
}

func printSnapshot(w io.Writer, s playback.Snapshot) {
	switch s.Status {
	case playback.StatusRequesting:
		colorRequesting.Fprintf(w, "… %s\n", s.Text)
	case playback.StatusPlaying:
		colorPlaying.Fprintf(w, "▶ %s\n", s.Text)
	case playback.StatusPaused:
		colorPaused.Fprintf(w, "⏸ %s\n", s.Text)
	case playback.StatusError:
		colorError.Fprintln(w, s.Message)
	default:
		colorMuted.Fprintln(w, "■")
	}
}

func printQuickPhrases(w io.Writer, list []string) {
	fmt.Fprintln(w, "Quick phrases:")
	for i, p := range list {
		fmt.Fprintf(w, "  %2d. %s\n", i+1, p)
	}
}

func printSavedTexts(w io.Writer, list []phrase.SavedText) {
	fmt.Fprintln(w, "Saved texts:")
	if len(list) == 0 {
		colorMuted.Fprintln(w, "  (none)")
		return
	}
	for i, t := range list {
		fmt.Fprintf(w, "  %2d. %s  %s\n", i+1, t.Title, colorMuted.Sprint(t.ID))
		fmt.Fprintf(w, "      %s\n", t.Content)
	}
}
