package spooler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/astro-web3/print-gateway/internal/domain/printing"
	httpclient "github.com/astro-web3/print-gateway/pkg/http"
	"github.com/astro-web3/print-gateway/pkg/logger"
	"github.com/go-resty/resty/v2"
)

var ErrMissingJobID = errors.New("spooler response has no jobId")

type jobRequest struct {
	Printer string `json:"printer"`
	Type    string `json:"type"`
	Data    string `json:"data"`
}

type jobResponse struct {
	JobID string `json:"jobId"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e *errorResponse) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// Client hands jobs to a remote print agent that owns the physical
// printers, for hosts where the gateway cannot reach a local spooler.
type Client struct {
	http *httpclient.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		http: httpclient.NewClient(
			httpclient.WithBaseURL(baseURL),
			httpclient.WithTimeout(timeout),
			httpclient.WithDefaultAuthToken(token),
		),
	}
}

func (c *Client) PrintDirect(ctx context.Context, job printing.Job) (string, error) {
	var result jobResponse
	var errResult errorResponse

	resp, err := c.http.Post(ctx, "/jobs",
		httpclient.WithBody(jobRequest{
			Printer: job.Printer,
			Type:    job.Format,
			Data:    base64.StdEncoding.EncodeToString(job.Data),
		}),
		httpclient.WithResult(&result),
		httpclient.WithError(&errResult),
	)
	if err != nil {
		return "", fmt.Errorf("spooler request failed: %w", err)
	}
	if err := statusError(resp, &errResult); err != nil {
		logger.WarnContext(ctx, "spooler rejected job",
			slog.String("printer", job.Printer),
			slog.Int("status", resp.StatusCode()),
		)
		return "", err
	}
	if result.JobID == "" {
		return "", ErrMissingJobID
	}

	return result.JobID, nil
}

func (c *Client) Printers(ctx context.Context) ([]printing.PrinterInfo, error) {
	var printers []printing.PrinterInfo
	var errResult errorResponse

	resp, err := c.http.Get(ctx, "/printers",
		httpclient.WithResult(&printers),
		httpclient.WithError(&errResult),
	)
	if err != nil {
		return nil, fmt.Errorf("spooler request failed: %w", err)
	}
	if err := statusError(resp, &errResult); err != nil {
		return nil, err
	}
	if printers == nil {
		printers = []printing.PrinterInfo{}
	}

	return printers, nil
}

func statusError(resp *resty.Response, errResult *errorResponse) error {
	if !resp.IsError() {
		return nil
	}
	if msg := errResult.text(); msg != "" {
		return fmt.Errorf("spooler returned %d: %s", resp.StatusCode(), msg)
	}
	return fmt.Errorf("spooler returned %d: %s", resp.StatusCode(), string(resp.Body()))
}
