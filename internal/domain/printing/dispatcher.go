package printing

import (
	"context"
	"log/slog"

	"github.com/astro-web3/print-gateway/pkg/logger"
	"github.com/astro-web3/print-gateway/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

type Dispatcher struct {
	converter Converter
	printer   Printer
}

// NewDispatcher wires a converter chosen at startup to the print subsystem.
// A nil converter means no conversion.
func NewDispatcher(converter Converter, printer Printer) *Dispatcher {
	if converter == nil {
		converter = Passthrough{}
	}
	return &Dispatcher{
		converter: converter,
		printer:   printer,
	}
}

// Dispatch converts the job if the host needs it and hands it to the
// printer. Errors are either *ConversionError or *DispatchError. There is
// no retry; ctx bounds the whole call.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) (string, error) {
	ctx, span := tracer.Start(ctx, "domain.printing.Dispatch")
	defer span.End()

	if job.Format == "" {
		job.Format = DefaultFormat
	}

	span.SetAttributes(
		attribute.String("print.printer", job.Printer),
		attribute.String("print.format", job.Format),
		attribute.Int("print.bytes", len(job.Data)),
	)

	data, format, err := d.converter.Convert(ctx, job.Data, job.Format)
	if err != nil {
		convErr := &ConversionError{From: job.Format, To: FormatEMF, Err: err}
		tracer.Fail(span, convErr)
		logger.ErrorContext(ctx, "job conversion failed",
			slog.String("printer", job.Printer),
			slog.String("format", job.Format),
			slog.String("error", err.Error()),
		)
		return "", convErr
	}
	if format != job.Format {
		span.SetAttributes(attribute.String("print.converted_format", format))
		logger.DebugContext(ctx, "job converted",
			slog.String("from", job.Format),
			slog.String("to", format),
			slog.Int("bytes", len(data)),
		)
	}

	jobID, err := d.printer.PrintDirect(ctx, Job{Data: data, Format: format, Printer: job.Printer})
	if err != nil {
		tracer.Fail(span, err)
		return "", &DispatchError{Err: err}
	}
	if jobID == "" {
		tracer.Fail(span, ErrNoPrinterOutput)
		return "", &DispatchError{Err: ErrNoPrinterOutput}
	}

	span.SetAttributes(attribute.String("print.job_id", jobID))
	return jobID, nil
}

// Printers lists the printers known to the print subsystem.
func (d *Dispatcher) Printers(ctx context.Context) ([]PrinterInfo, error) {
	return d.printer.Printers(ctx)
}
