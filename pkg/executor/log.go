package executor

import (
	"log/slog"

	"github.com/loykin/apicontract/internal/common"
)

// LogDetail selects which parts of a response are logged.
type LogDetail int

const (
	LogAll LogDetail = iota
	LogStatus
	LogHeaders
	LogCookies
	LogBody
)

// LogCondition decides whether a response is logged at all.
type LogCondition func(*Response) bool

// Always logs every response.
func Always(*Response) bool { return true }

// IfError logs responses with a status of 400 or above.
func IfError(r *Response) bool { return r.StatusCode() >= 400 }

// IfStatus logs responses with exactly the given status.
func IfStatus(code int) LogCondition {
	return func(r *Response) bool { return r.StatusCode() == code }
}

// LogOptions configures LogResponse. The zero value logs everything, always.
type LogOptions struct {
	Detail LogDetail
	When   LogCondition
}

// LogResponse writes the selected parts of resp to logger when the
// condition holds, and reports whether it logged. Sensitive header and
// cookie values go through the global masker.
func LogResponse(logger *common.Logger, resp *Response, opts LogOptions) bool {
	if resp == nil {
		return false
	}
	when := opts.When
	if when == nil {
		when = Always
	}
	if !when(resp) {
		return false
	}
	if logger == nil {
		logger = common.GetLogger()
	}
	masker := common.GetGlobalMasker()
	log := logger.WithRequest(resp.Method(), resp.URL())

	attrs := []any{}
	all := opts.Detail == LogAll
	if all || opts.Detail == LogStatus {
		attrs = append(attrs, "status_line", resp.StatusLine(), "elapsed", resp.Elapsed())
	}
	if all || opts.Detail == LogHeaders {
		hs := make([]any, 0, len(resp.headers))
		for _, h := range resp.headers {
			hs = append(hs, slog.String(h.Name, masker.MaskHeader(h.Name, h.Value)))
		}
		attrs = append(attrs, slog.Group("headers", hs...))
	}
	if all || opts.Detail == LogCookies {
		cs := make([]any, 0, len(resp.cookies))
		for _, c := range resp.cookies {
			cs = append(cs, slog.String(c.Name, masker.MaskHeader("cookie", c.Value)))
		}
		attrs = append(attrs, slog.Group("cookies", cs...))
	}
	if all || opts.Detail == LogBody {
		attrs = append(attrs, "body", masker.MaskString(resp.String()))
	}
	log.Info("response", attrs...)
	return true
}
