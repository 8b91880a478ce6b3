package imagemagick

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/astro-web3/print-gateway/internal/domain/printing"
	"github.com/astro-web3/print-gateway/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
)

const defaultDensity = 300

var ErrEmptyOutput = errors.New("converter produced no output")

// Converter turns PDF jobs into EMF with the ImageMagick CLI. Other formats
// pass through untouched.
type Converter struct {
	bin     string
	density int
}

// New fails when bin cannot be found, so a host that needs conversion but
// lacks ImageMagick refuses to start.
func New(bin string, density int) (*Converter, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("imagemagick is required to print PDF on this host: %w", err)
	}
	if density <= 0 {
		density = defaultDensity
	}
	return &Converter{bin: path, density: density}, nil
}

func (c *Converter) Convert(ctx context.Context, data []byte, format string) ([]byte, string, error) {
	if !strings.EqualFold(format, printing.FormatPDF) {
		return data, format, nil
	}

	ctx, span := tracer.Start(ctx, "infra.imagemagick.Convert")
	defer span.End()
	span.SetAttributes(
		attribute.Int("convert.input_bytes", len(data)),
		attribute.Int("convert.density", c.density),
	)

	cmd := exec.CommandContext(ctx, c.bin, "-density", strconv.Itoa(c.density), "pdf:-", "emf:-")
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		tracer.Fail(span, err)
		return nil, "", err
	}
	if stdout.Len() == 0 {
		tracer.Fail(span, ErrEmptyOutput)
		return nil, "", ErrEmptyOutput
	}

	span.SetAttributes(attribute.Int("convert.output_bytes", stdout.Len()))
	return stdout.Bytes(), printing.FormatEMF, nil
}
