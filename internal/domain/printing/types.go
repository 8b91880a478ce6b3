package printing

import (
	"context"
	"errors"
)

// Formats understood by the gateway. Clients may send others; they are
// passed through to the printer unchanged.
const (
	FormatPDF = "PDF"
	FormatEMF = "EMF"
	FormatRAW = "RAW"
)

// DefaultFormat applies when a job does not name one.
const DefaultFormat = FormatPDF

type Job struct {
	Data    []byte
	Format  string
	Printer string
}

type PrinterInfo struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// Printer is the host print subsystem.
type Printer interface {
	PrintDirect(ctx context.Context, job Job) (string, error)
	Printers(ctx context.Context) ([]PrinterInfo, error)
}

// Converter prepares job bytes for a print subsystem that cannot consume
// them as sent. It returns the bytes and format label to print with.
type Converter interface {
	Convert(ctx context.Context, data []byte, format string) ([]byte, string, error)
}

// Passthrough is the Converter for hosts that print every format natively.
type Passthrough struct{}

func (Passthrough) Convert(_ context.Context, data []byte, format string) ([]byte, string, error) {
	return data, format, nil
}

var ErrNoPrinterOutput = errors.New("printer returned no job id")

// ConversionError means the host could not convert the job. It points at a
// broken host setup rather than a bad request.
type ConversionError struct {
	From, To string
	Err      error
}

func (e *ConversionError) Error() string {
	return "converting " + e.From + " to " + e.To + ": " + e.Err.Error()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// DispatchError wraps a failure reported by the print subsystem. Its text
// is the subsystem's own message.
type DispatchError struct {
	Err error
}

func (e *DispatchError) Error() string { return e.Err.Error() }

func (e *DispatchError) Unwrap() error { return e.Err }
