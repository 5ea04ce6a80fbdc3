package common

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// palette groups the colors used by ColorHandler. Each handler owns its own
// palette so enabling or disabling colors never touches the global color.NoColor.
type palette struct {
	time, debug, info, warn, err, key, msg, number, duration, fail, ok *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		time:     color.New(color.FgHiBlack),
		debug:    color.New(color.FgHiBlack),
		info:     color.New(color.FgGreen),
		warn:     color.New(color.FgYellow),
		err:      color.New(color.FgRed, color.Bold),
		key:      color.New(color.FgCyan),
		msg:      color.New(color.FgWhite),
		number:   color.New(color.FgMagenta),
		duration: color.New(color.FgYellow),
		fail:     color.New(color.FgRed),
		ok:       color.New(color.FgGreen),
	}
	p.set(enabled)
	return p
}

func (p *palette) set(enabled bool) {
	for _, c := range []*color.Color{p.time, p.debug, p.info, p.warn, p.err, p.key, p.msg, p.number, p.duration, p.fail, p.ok} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// ColorHandler is a slog.Handler producing compact, colorized single-line records:
//
//	2024-01-02T15:04:05Z [INFO ] [executor] request completed status=200 elapsed=12ms
type ColorHandler struct {
	opts     *slog.HandlerOptions
	writer   io.Writer
	mu       *sync.Mutex
	attrs    []slog.Attr
	groups   []string
	masker   *Masker
	colors   *palette
	useColor bool
}

// NewColorHandler creates a new color handler
func NewColorHandler(w io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	useColor := shouldUseColor(w)
	return &ColorHandler{
		opts:     opts,
		writer:   w,
		mu:       &sync.Mutex{},
		masker:   NewMasker(),
		colors:   newPalette(useColor),
		useColor: useColor,
	}
}

// shouldUseColor reports whether w is a terminal on a platform where ANSI
// colors are expected to work.
func shouldUseColor(w io.Writer) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}

// Enabled reports whether the handler handles records at the given level
func (h *ColorHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle handles the Record
func (h *ColorHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	if !r.Time.IsZero() {
		b.WriteString(h.colors.time.Sprint(r.Time.Format(time.RFC3339)))
		b.WriteByte(' ')
	}
	b.WriteString(h.formatLevel(r.Level))
	b.WriteByte(' ')
	if len(h.groups) > 0 {
		b.WriteString(h.colors.key.Sprintf("[%s]", strings.Join(h.groups, ".")))
		b.WriteByte(' ')
	}
	b.WriteString(h.colors.msg.Sprint(r.Message))

	attrs := make([]slog.Attr, 0, r.NumAttrs()+len(h.attrs))
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	for _, a := range h.maskAttributes(attrs) {
		b.WriteByte(' ')
		b.WriteString(h.colors.key.Sprint(a.Key))
		b.WriteByte('=')
		b.WriteString(h.formatValue(a.Value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *ColorHandler) formatLevel(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return h.colors.debug.Sprint("[DEBUG]")
	case level < slog.LevelWarn:
		return h.colors.info.Sprint("[INFO ]")
	case level < slog.LevelError:
		return h.colors.warn.Sprint("[WARN ]")
	default:
		return h.colors.err.Sprint("[ERROR]")
	}
}

func (h *ColorHandler) formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		switch {
		case isErrorLike(s):
			return h.colors.fail.Sprintf("%q", s)
		case isSuccessLike(s):
			return h.colors.ok.Sprintf("%q", s)
		default:
			return h.colors.msg.Sprintf("%q", s)
		}
	case slog.KindInt64:
		return h.colors.number.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return h.colors.number.Sprintf("%d", v.Uint64())
	case slog.KindFloat64:
		return h.colors.number.Sprintf("%g", v.Float64())
	case slog.KindBool:
		if v.Bool() {
			return h.colors.ok.Sprint("true")
		}
		return h.colors.fail.Sprint("false")
	case slog.KindDuration:
		return h.colors.duration.Sprint(v.Duration().String())
	case slog.KindTime:
		return h.colors.time.Sprint(v.Time().Format(time.RFC3339))
	default:
		return h.colors.msg.Sprint(fmt.Sprint(v.Any()))
	}
}

func isErrorLike(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "error") || strings.Contains(s, "fail")
}

func isSuccessLike(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "success") || strings.Contains(s, "pass") || s == "ok"
}

func (h *ColorHandler) maskAttributes(attrs []slog.Attr) []slog.Attr {
	if h.masker == nil || !h.masker.IsEnabled() {
		return attrs
	}
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		if s, ok := h.masker.MaskValue(a.Key, a.Value.Any()).(string); ok && s == MaskedValue {
			masked[i] = slog.String(a.Key, s)
			continue
		}
		masked[i] = a
	}
	return masked
}

func (h *ColorHandler) clone() *ColorHandler {
	c := *h
	c.attrs = append([]slog.Attr(nil), h.attrs...)
	c.groups = append([]string(nil), h.groups...)
	return &c
}

// WithAttrs returns a new ColorHandler with the given attributes added
func (h *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	c.attrs = append(c.attrs, attrs...)
	return c
}

// WithGroup returns a new ColorHandler with the given group name added
func (h *ColorHandler) WithGroup(name string) slog.Handler {
	c := h.clone()
	c.groups = append(c.groups, name)
	return c
}

// SetColorEnabled enables or disables colors
func (h *ColorHandler) SetColorEnabled(enabled bool) {
	h.useColor = enabled
	h.colors.set(enabled)
}
