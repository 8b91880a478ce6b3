package http

import (
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/astro-web3/print-gateway/internal/app/printing"
	printdomain "github.com/astro-web3/print-gateway/internal/domain/printing"
	"github.com/astro-web3/print-gateway/pkg/logger"
	"github.com/astro-web3/print-gateway/pkg/tracer"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.opentelemetry.io/otel/attribute"
)

const readyMessage = "Ready for print!"

type printRequest struct {
	Data    string `json:"data"`
	Type    string `json:"type"`
	Printer string `json:"printer"`
}

type Handler struct {
	appService printing.Service
}

func NewHandler(appService printing.Service) *Handler {
	return &Handler{appService: appService}
}

func (h *Handler) Ready(c *gin.Context) {
	c.String(http.StatusOK, readyMessage)
}

func (h *Handler) ListPrinters(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.ListPrinters")
	defer span.End()

	printers, err := h.appService.ListPrinters(ctx, claimsFrom(c))
	if err != nil {
		var denied *printing.DeniedError
		if errors.As(err, &denied) {
			span.SetAttributes(attribute.String("authz.reason", denied.Reason))
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": denied.Reason})
			return
		}

		tracer.Fail(span, err)
		logger.ErrorContext(ctx, "failed to list printers", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to list printers"})
		return
	}

	c.JSON(http.StatusOK, printers)
}

func (h *Handler) Print(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.Print")
	defer span.End()

	var req printRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil && !errors.Is(err, io.EOF) {
		span.SetAttributes(attribute.Bool("request.malformed", true))
		c.JSON(http.StatusBadRequest, gin.H{"status": "failed", "error": "invalid request body"})
		return
	}

	jobID, err := h.appService.Print(ctx, claimsFrom(c), printing.PrintCommand{
		Data:    req.Data,
		Type:    req.Type,
		Printer: req.Printer,
	})
	if err != nil {
		status, body := printFailure(err)
		if status >= http.StatusInternalServerError {
			tracer.Fail(span, err)
			logger.ErrorContext(ctx, "print failed", slog.String("error", err.Error()))
		} else {
			span.SetAttributes(attribute.Int("print.status", status))
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  "success",
		"jobId":   jobID,
	})
}

// printFailure maps a Print error to its response. Anything that is not a
// request or conversion problem is reported as a printing failure.
func printFailure(err error) (int, gin.H) {
	var denied *printing.DeniedError
	var conversion *printdomain.ConversionError

	switch {
	case errors.Is(err, printing.ErrMissingData):
		return http.StatusBadRequest, gin.H{"status": "failed", "error": err.Error()}
	case errors.As(err, &denied):
		return http.StatusUnauthorized, gin.H{"success": false, "message": denied.Reason}
	case errors.As(err, &conversion):
		return http.StatusInternalServerError, gin.H{
			"status": "failed",
			"error":  "error on converting to " + conversion.To + ": " + conversion.Err.Error(),
		}
	default:
		return http.StatusForbidden, gin.H{"status": "failed", "error": "error on printing: " + err.Error()}
	}
}
