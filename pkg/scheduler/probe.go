package scheduler

import (
	"context"
	"log/slog"

	"gitlab.com/tinyland/lab/barpulse/pkg/blocks"
	"gitlab.com/tinyland/lab/barpulse/pkg/widget"
)

// Probe builds the block described by spec, runs one update and renders
// it exactly as a running unit would. The block is closed before Probe
// returns. Errors carry the same short messages the bar would show.
func Probe(ctx context.Context, spec SlotSpec, logger *slog.Logger) (widget.Widget, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u := newUnit(0, 0, &spec, nil, ShellRunner, logger)

	pair, err := widget.CompileFormats(spec.FormatFull, spec.FormatShort)
	if err != nil {
		return widget.Widget{}, blocks.Fail("format error", err)
	}
	blk, err := spec.Type.New(spec.Settings, blocks.Env{Logger: u.logger, Name: spec.Name, Instance: spec.Instance})
	if err != nil {
		return widget.Widget{}, err
	}
	defer closeBlock(blk, u.logger)

	out, err := blk.Update(ctx)
	if err != nil {
		return widget.Widget{}, err
	}
	w, err := u.render(out, pair)
	if err != nil {
		return widget.Widget{}, blocks.Fail("format error", err)
	}
	return w, nil
}
