package policy

import (
	"log/slog"

	"github.com/aj-geddes/revitpy-sub005/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.DenialHandler = (*LogDenialHandler)(nil)
var _ ports.DenialHandler = (*NopDenialHandler)(nil)
var _ ports.ImportPolicy = (*Policy)(nil)

// LogDenialHandler logs denials through slog.
// A nil Logger uses slog.Default().
type LogDenialHandler struct {
	Logger *slog.Logger
}

func (h *LogDenialHandler) OnDenial(kind, subject, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("import policy denied request", "kind", kind, "subject", subject, "reason", reason)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(kind, subject, reason string) {}
