// Package inject delivers clicks and keystrokes through an ordered list of
// input strategies. The first strategy that completes wins; when every
// strategy fails the operation reports false and the caller decides whether
// to retry.
package inject

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/mj1618/screen-macro/internal/model"
	"github.com/mj1618/screen-macro/internal/platform"
)

// Options configures an Injector.
type Options struct {
	// FocusSettle is the pause after bringing a target window forward.
	FocusSettle time.Duration
	// KeyDelay is the pause between typed characters.
	KeyDelay time.Duration
	// ClearSettle is the pause after select-all and after delete when a
	// field is cleared before typing.
	ClearSettle time.Duration
	// Shortcut is the modifier for select-all (a) and paste (v). Defaults
	// to cmd on macOS and ctrl elsewhere.
	Shortcut string
	// Paste enters text through the clipboard instead of typing it.
	Paste bool
}

// Injector simulates user input against the screen or a target window.
type Injector struct {
	inputters []platform.Inputter
	windows   platform.WindowManager
	clipboard platform.Clipboard
	opts      Options
	sleep     func(context.Context, time.Duration) error
	log       *slog.Logger
}

// New creates an Injector that tries inputters in order. windows may be nil,
// in which case targets are never resolved.
func New(inputters []platform.Inputter, windows platform.WindowManager, opts Options) *Injector {
	if opts.Shortcut == "" {
		opts.Shortcut = "ctrl"
		if runtime.GOOS == "darwin" {
			opts.Shortcut = "cmd"
		}
	}
	return &Injector{
		inputters: inputters,
		windows:   windows,
		opts:      opts,
		sleep:     sleepCtx,
		log:       slog.Default().With("component", "inject"),
	}
}

// NewFromProvider creates an Injector from a platform provider. The
// provider's clipboard, when present, backs paste entry.
func NewFromProvider(p *platform.Provider, opts Options) *Injector {
	inj := New(p.Inputters, p.WindowManager, opts)
	inj.clipboard = p.Clipboard
	return inj
}

// Click performs a left click at absolute screen coordinates.
func (inj *Injector) Click(ctx context.Context, x, y int, target string) bool {
	return inj.click(ctx, x, y, platform.MouseLeft, 1, target)
}

// DoubleClick performs a left double click at absolute screen coordinates.
func (inj *Injector) DoubleClick(ctx context.Context, x, y int, target string) bool {
	return inj.click(ctx, x, y, platform.MouseLeft, 2, target)
}

// RightClick performs a right click at absolute screen coordinates.
func (inj *Injector) RightClick(ctx context.Context, x, y int, target string) bool {
	return inj.click(ctx, x, y, platform.MouseRight, 1, target)
}

func (inj *Injector) click(ctx context.Context, x, y int, button platform.MouseButton, count int, target string) bool {
	win, ok := inj.prepare(ctx, target)
	if !ok {
		return false
	}
	return inj.chain("click", func(in platform.Inputter) error {
		return in.Click(x, y, button, count, win)
	}, "x", x, "y", y, "button", button.String(), "count", count)
}

// EnterText enters text into the focused field. With clearExisting the field
// is first emptied with select-all and delete. Text is typed, or pasted
// through the clipboard when Paste is set; a failed typing attempt falls
// back to pasting when a clipboard is available.
func (inj *Injector) EnterText(ctx context.Context, text string, clearExisting bool, target string) bool {
	win, ok := inj.prepare(ctx, target)
	if !ok {
		return false
	}
	if clearExisting && !inj.clear(ctx, win) {
		return false
	}
	if inj.opts.Paste && inj.clipboard != nil {
		return inj.paste(text, win)
	}
	typed := inj.chain("type", func(in platform.Inputter) error {
		return in.TypeText(text, inj.opts.KeyDelay, win)
	}, "chars", len([]rune(text)))
	if typed || inj.clipboard == nil || ctx.Err() != nil {
		return typed
	}
	inj.log.Info("typing failed, pasting through the clipboard")
	return inj.paste(text, win)
}

// clear selects the field's contents and deletes them, letting the field
// settle after each combination.
func (inj *Injector) clear(ctx context.Context, win *model.Window) bool {
	for _, keys := range [][]string{{inj.opts.Shortcut, "a"}, {"delete"}} {
		if !inj.combo(keys, win) {
			return false
		}
		if err := inj.sleep(ctx, inj.opts.ClearSettle); err != nil {
			return false
		}
	}
	return true
}

func (inj *Injector) paste(text string, win *model.Window) bool {
	if err := inj.clipboard.SetText(text); err != nil {
		inj.log.Warn("cannot set clipboard", "error", err)
		return false
	}
	return inj.combo([]string{inj.opts.Shortcut, "v"}, win)
}

// PressKey presses a key or combination ("enter", "ctrl+a") repeat times,
// pausing interval between presses.
func (inj *Injector) PressKey(ctx context.Context, key string, repeat int, interval time.Duration, target string) bool {
	keys, err := platform.ParseKeyCombo(key)
	if err != nil {
		inj.log.Warn("invalid key", "key", key, "error", err)
		return false
	}
	win, ok := inj.prepare(ctx, target)
	if !ok {
		return false
	}
	if repeat < 1 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		if i > 0 {
			if err := inj.sleep(ctx, interval); err != nil {
				return false
			}
		}
		if !inj.combo(keys, win) {
			return false
		}
	}
	return true
}

// Focus resolves a window title and brings the window forward.
func (inj *Injector) Focus(ctx context.Context, title string) (model.Window, bool) {
	win, ok := inj.prepare(ctx, title)
	if !ok || win == nil {
		return model.Window{}, false
	}
	return *win, true
}

// Windows lists top-level windows.
func (inj *Injector) Windows(opts platform.ListOptions) ([]model.Window, error) {
	if inj.windows == nil {
		return nil, errors.New("window listing is not available on this platform")
	}
	return inj.windows.ListWindows(opts)
}

// prepare resolves and focuses target. An unresolvable target is logged and
// the action proceeds against the screen; only cancellation aborts.
func (inj *Injector) prepare(ctx context.Context, target string) (*model.Window, bool) {
	if ctx.Err() != nil {
		return nil, false
	}
	if target == "" || inj.windows == nil {
		return nil, true
	}
	all, err := inj.windows.ListWindows(platform.ListOptions{})
	if err != nil {
		inj.log.Warn("cannot list windows", "error", err)
		return nil, true
	}
	win, found := model.FindWindow(all, target)
	if !found {
		inj.log.Warn("target window not found", "window", target)
		return nil, true
	}
	if err := inj.windows.FocusWindow(win); err != nil {
		inj.log.Warn("cannot focus window", "window", win.Title, "error", err)
		return &win, true
	}
	if err := inj.sleep(ctx, inj.opts.FocusSettle); err != nil {
		return nil, false
	}
	return &win, true
}

func (inj *Injector) combo(keys []string, win *model.Window) bool {
	return inj.chain("key", func(in platform.Inputter) error {
		return in.KeyCombo(keys, win)
	}, "keys", keys)
}

// chain runs op against each inputter in priority order until one succeeds.
func (inj *Injector) chain(op string, fn func(platform.Inputter) error, attrs ...any) bool {
	for _, in := range inj.inputters {
		err := fn(in)
		if err == nil {
			inj.log.Debug("input delivered", append([]any{"op", op, "strategy", in.Name()}, attrs...)...)
			return true
		}
		if errors.Is(err, platform.ErrUnsupported) {
			inj.log.Debug("strategy cannot serve input", "op", op, "strategy", in.Name(), "reason", err)
			continue
		}
		inj.log.Warn("input strategy failed", "op", op, "strategy", in.Name(), "error", err)
	}
	inj.log.Warn("all input strategies failed", append([]any{"op", op}, attrs...)...)
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
