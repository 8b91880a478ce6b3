package cups

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/astro-web3/print-gateway/internal/domain/printing"
	"github.com/astro-web3/print-gateway/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

const jobTitle = "print-gateway"

var (
	requestIDPattern = regexp.MustCompile(`request id is (\S+)`)
	printerPattern   = regexp.MustCompile(`^printer\s+(\S+)`)
)

var ErrUnexpectedOutput = errors.New("unexpected lp output")

// Client prints through the CUPS command line tools.
type Client struct {
	lpBin     string
	lpstatBin string
}

// New resolves both binaries up front so a host without CUPS fails at
// startup instead of on the first job.
func New(lpBin, lpstatBin string) (*Client, error) {
	lp, err := exec.LookPath(lpBin)
	if err != nil {
		return nil, fmt.Errorf("lp not available: %w", err)
	}
	lpstat, err := exec.LookPath(lpstatBin)
	if err != nil {
		return nil, fmt.Errorf("lpstat not available: %w", err)
	}
	return &Client{lpBin: lp, lpstatBin: lpstat}, nil
}

func (c *Client) PrintDirect(ctx context.Context, job printing.Job) (string, error) {
	ctx, span := tracer.Start(ctx, "infra.cups.PrintDirect")
	defer span.End()

	args := []string{"-t", jobTitle}
	if job.Printer != "" {
		args = append(args, "-d", job.Printer)
	}
	if strings.EqualFold(job.Format, printing.FormatRAW) {
		args = append(args, "-o", "raw")
	}
	args = append(args, "-")

	out, err := c.run(ctx, c.lpBin, bytes.NewReader(job.Data), args...)
	if err != nil {
		tracer.Fail(span, err)
		return "", err
	}

	m := requestIDPattern.FindSubmatch(out)
	if m == nil {
		err := fmt.Errorf("%w: %q", ErrUnexpectedOutput, strings.TrimSpace(string(out)))
		tracer.Fail(span, err)
		return "", err
	}

	span.SetAttributes(attribute.String("print.job_id", string(m[1])))
	return string(m[1]), nil
}

func (c *Client) Printers(ctx context.Context) ([]printing.PrinterInfo, error) {
	ctx, span := tracer.Start(ctx, "infra.cups.Printers")
	defer span.End()

	out, err := c.run(ctx, c.lpstatBin, nil, "-p")
	if err != nil {
		if strings.Contains(err.Error(), "No destinations") {
			return []printing.PrinterInfo{}, nil
		}
		tracer.Fail(span, err)
		return nil, err
	}
	names := parsePrinters(out)

	// lpstat -d exits non-zero on some systems when no default is set
	def := ""
	if dout, err := c.run(ctx, c.lpstatBin, nil, "-d"); err == nil {
		def = parseDefault(dout)
	}

	printers := make([]printing.PrinterInfo, 0, len(names))
	for _, name := range names {
		printers = append(printers, printing.PrinterInfo{Name: name, IsDefault: name == def})
	}

	span.SetAttributes(attribute.Int("print.printer_count", len(printers)))
	return printers, nil
}

func (c *Client) run(ctx context.Context, bin string, stdin *bytes.Reader, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %s", bin, msg)
		}
		return nil, fmt.Errorf("%s: %w", bin, err)
	}
	return out, nil
}

func parsePrinters(out []byte) []string {
	var names []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if m := printerPattern.FindStringSubmatch(sc.Text()); m != nil {
			names = append(names, m[1])
		}
	}
	return names
}

func parseDefault(out []byte) string {
	line := strings.TrimSpace(string(out))
	const marker = "system default destination:"
	i := strings.Index(line, marker)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(line[i+len(marker):])
}
