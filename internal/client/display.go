package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/wtask/synchat/internal/chat/message"
	"github.com/wtask/synchat/internal/clock"
)

// Display - presentation surface for inbound messages and clock readings.
type Display interface {
	ShowChat(m message.Message)
	ShowNotice(text string)
	ShowClocks(local, synced float64)
}

// Terminal - line oriented Display writing to out.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	location *time.Location
}

// NewTerminal - builds Terminal rendering times in loc, local zone when nil.
func NewTerminal(out io.Writer, loc *time.Location) *Terminal {
	if loc == nil {
		loc = time.Local
	}
	return &Terminal{out: out, location: loc}
}

func (t *Terminal) stamp(ts *float64) string {
	if ts == nil {
		return "--:--:--"
	}
	return clock.Time(*ts).In(t.location).Format("15:04:05")
}

func (t *Terminal) println(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

// ShowChat - renders chat line with both stamps.
func (t *Terminal) ShowChat(m message.Message) {
	t.println(fmt.Sprintf("[client %s | server %s] %s: %s", t.stamp(m.ClientTS), t.stamp(m.ServerTS), m.From, m.Text))
}

// ShowNotice - renders notice as is.
func (t *Terminal) ShowNotice(text string) {
	t.println(text)
}

// ShowClocks - renders both clock readings.
func (t *Terminal) ShowClocks(local, synced float64) {
	t.println(fmt.Sprintf("Local: %s  Synced: %s", t.stamp(&local), t.stamp(&synced)))
}

// echo - local copy of sent chat.
func (t *Terminal) echo(m message.Message) {
	t.println(fmt.Sprintf("[%s] you: %s", t.stamp(m.ClientTS), m.Text))
}

// Consume - drains inbox into display until ctx is done or the inbox is closed.
// Messages the display has no use for, a late sync reply for instance, are dropped.
func Consume(ctx context.Context, inbox *Inbox, display Display) error {
	for {
		m, err := inbox.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrInboxClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch m.Type {
		case message.KindChat:
			display.ShowChat(m)
		case message.KindInfo:
			text := m.Text
			if text == "" {
				text = "[info]"
			}
			display.ShowNotice(text)
		}
	}
}

// RefreshClocks - shows clock readings every interval until ctx is done.
func RefreshClocks(ctx context.Context, source clockwork.Clock, every time.Duration, clk *clock.Clock, display Display) error {
	ticker := source.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			display.ShowClocks(clk.NowLocal(), clk.NowSynced())
		}
	}
}

// Sender - sends chat text.
type Sender interface {
	SendChat(text string) (message.Message, error)
}

// ReadInput - sends every non-empty input line as chat message until input ends.
// "/clock" shows clock readings instead. Send failures are shown and do not stop reading.
func ReadInput(ctx context.Context, input io.Reader, sender Sender, clk *clock.Clock, terminal *Terminal) error {
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		text := strings.TrimSpace(scanner.Text())
		switch {
		case text == "":
			continue
		case text == "/clock":
			terminal.ShowClocks(clk.NowLocal(), clk.NowSynced())
			continue
		}
		m, err := sender.SendChat(text)
		if err != nil {
			terminal.ShowNotice(fmt.Sprintf("[error] %v", err))
			continue
		}
		terminal.echo(m)
	}
	return errors.Wrap(scanner.Err(), "read input failed")
}

// ReportTo - builds Reporter showing round outcomes as notices.
func ReportTo(display Display) Reporter {
	return func(r Round) {
		switch r.Outcome {
		case OutcomeAdjusted:
			display.ShowNotice("[sync] clock adjusted")
		case OutcomeNoReply:
			if r.Err == nil {
				display.ShowNotice("[sync] no reply")
			}
		case OutcomeInvalidServerTime:
			display.ShowNotice("[sync] invalid server time")
		case OutcomeSendFailed:
			display.ShowNotice(fmt.Sprintf("[sync error] %v", r.Err))
		}
	}
}
