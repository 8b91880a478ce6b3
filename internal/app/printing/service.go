package printing

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/astro-web3/print-gateway/internal/domain/authz"
	printdomain "github.com/astro-web3/print-gateway/internal/domain/printing"
	"github.com/astro-web3/print-gateway/pkg/logger"
	"github.com/astro-web3/print-gateway/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

var ErrMissingData = errors.New("file data not found")

// DeniedError carries the first claim the request failed to satisfy.
type DeniedError struct {
	Reason string
}

func (e *DeniedError) Error() string { return e.Reason }

// PrintCommand is a print request as received from a client.
type PrintCommand struct {
	// Data is the base64 encoded job.
	Data string
	// Type is the format exactly as sent; empty when the client omitted it.
	Type    string
	Printer string
}

type Dispatcher interface {
	Dispatch(ctx context.Context, job printdomain.Job) (string, error)
	Printers(ctx context.Context) ([]printdomain.PrinterInfo, error)
}

type Service interface {
	ListPrinters(ctx context.Context, claims *authz.Claims) ([]printdomain.PrinterInfo, error)
	Print(ctx context.Context, claims *authz.Claims, cmd PrintCommand) (string, error)
}

type service struct {
	dispatcher Dispatcher
}

func NewService(dispatcher Dispatcher) Service {
	return &service{dispatcher: dispatcher}
}

func (s *service) ListPrinters(ctx context.Context, claims *authz.Claims) ([]printdomain.PrinterInfo, error) {
	ctx, span := tracer.Start(ctx, "app.printing.ListPrinters")
	defer span.End()

	if err := s.authorize(ctx, claims, authz.Request{Action: authz.ActionGetPrinters}); err != nil {
		return nil, err
	}

	printers, err := s.dispatcher.Printers(ctx)
	if err != nil {
		tracer.Fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("print.printer_count", len(printers)))
	return printers, nil
}

// Print checks the request scope against claims, then decodes the payload,
// verifies its checksum and dispatches it. The format defaults to PDF for
// dispatch only; a type claim is compared with the type as the client sent it.
func (s *service) Print(ctx context.Context, claims *authz.Claims, cmd PrintCommand) (string, error) {
	ctx, span := tracer.Start(ctx, "app.printing.Print")
	defer span.End()

	span.SetAttributes(
		attribute.String("print.printer", cmd.Printer),
		attribute.String("print.type", cmd.Type),
	)

	req := authz.Request{
		Action:  authz.ActionPrint,
		Printer: cmd.Printer,
		Type:    cmd.Type,
	}
	if err := s.enforce(ctx, req, authz.AuthorizeScope(claims, req)); err != nil {
		return "", err
	}

	if cmd.Data == "" {
		return "", ErrMissingData
	}
	data := decodeData(cmd.Data)

	if err := s.enforce(ctx, req, authz.VerifyCheckSum(claims, data)); err != nil {
		return "", err
	}

	format := cmd.Type
	if format == "" {
		format = printdomain.DefaultFormat
	}

	jobID, err := s.dispatcher.Dispatch(ctx, printdomain.Job{
		Data:    data,
		Format:  format,
		Printer: cmd.Printer,
	})
	if err != nil {
		tracer.Fail(span, err)
		return "", err
	}

	span.SetAttributes(attribute.String("print.job_id", jobID))
	logger.InfoContext(ctx, "print job dispatched",
		slog.String("job_id", jobID),
		slog.String("printer", cmd.Printer),
		slog.String("format", format),
		slog.Int("bytes", len(data)),
	)

	return jobID, nil
}

func (s *service) authorize(ctx context.Context, claims *authz.Claims, req authz.Request) error {
	return s.enforce(ctx, req, authz.Authorize(claims, req))
}

func (s *service) enforce(ctx context.Context, req authz.Request, decision authz.Decision) error {
	if decision.Allow {
		return nil
	}

	logger.WarnContext(ctx, "authorization denied",
		slog.String("action", string(req.Action)),
		slog.String("reason", decision.Reason),
	)
	return &DeniedError{Reason: decision.Reason}
}

// decodeData never rejects input. It reads both the standard and URL-safe
// alphabets, skips any other character, stops at the first '=' and drops a
// dangling sextet that cannot form a byte.
func decodeData(s string) []byte {
	buf := make([]byte, 0, len(s))
scan:
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '=':
			break scan
		case c == '-':
			buf = append(buf, '+')
		case c == '_':
			buf = append(buf, '/')
		case c == '+', c == '/',
			c >= 'A' && c <= 'Z',
			c >= 'a' && c <= 'z',
			c >= '0' && c <= '9':
			buf = append(buf, c)
		}
	}
	if len(buf)%4 == 1 {
		buf = buf[:len(buf)-1]
	}

	out := make([]byte, base64.RawStdEncoding.DecodedLen(len(buf)))
	n, _ := base64.RawStdEncoding.Decode(out, buf)
	return out[:n]
}
