package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/astro-web3/print-gateway/internal/domain/authz"
	"github.com/astro-web3/print-gateway/internal/infra/token"
	httpclient "github.com/astro-web3/print-gateway/pkg/http"
)

type printRequest struct {
	Data    string `json:"data"`
	Type    string `json:"type,omitempty"`
	Printer string `json:"printer,omitempty"`
}

type printResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	JobID   string `json:"jobId"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func main() {
	server := flag.String("server", "http://localhost:3000", "gateway base URL")
	secret := flag.String("secret", os.Getenv("PRINT_GATEWAY_AUTH_SECRET"), "shared token secret")
	printer := flag.String("printer", "", "target printer, empty for the default")
	format := flag.String("type", "PDF", "job format")
	list := flag.Bool("list", false, "list printers instead of printing")
	flag.Parse()

	if *secret == "" {
		log.Fatal("a secret is required (-secret or PRINT_GATEWAY_AUTH_SECRET)")
	}

	client := httpclient.NewClient(
		httpclient.WithBaseURL(*server),
		httpclient.WithTimeout(2*time.Minute),
	)
	signer := token.NewSigner(*secret)
	ctx := context.Background()

	if *list {
		listPrinters(ctx, client, signer)
		return
	}

	if flag.NArg() < 1 {
		log.Fatalf("Usage: %s [flags] <file>", os.Args[0])
	}
	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to read file: %v", err)
	}

	action := string(authz.ActionPrint)
	checkSum := authz.Digest(data)
	claims := authz.Claims{Action: &action, Type: format, CheckSum: &checkSum}
	if *printer != "" {
		claims.Printer = printer
	}

	tok, err := signer.Sign(claims, time.Minute)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	var result printResponse
	resp, err := client.Post(ctx, "/print",
		httpclient.WithHeader("x-access-token", tok),
		httpclient.WithBody(printRequest{
			Data:    base64.StdEncoding.EncodeToString(data),
			Type:    *format,
			Printer: *printer,
		}),
		httpclient.WithResult(&result),
		httpclient.WithError(&result),
	)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}

	if resp.IsSuccess() {
		fmt.Printf("✅ Job accepted: %s\n", result.JobID)
		return
	}

	fmt.Printf("❌ Print rejected\n")
	fmt.Printf("Status: %d\n", resp.StatusCode())
	fmt.Printf("Body: %s\n", string(resp.Body()))
	os.Exit(1)
}

func listPrinters(ctx context.Context, client *httpclient.Client, signer *token.Signer) {
	action := string(authz.ActionGetPrinters)
	tok, err := signer.Sign(authz.Claims{Action: &action}, time.Minute)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	var printers []struct {
		Name      string `json:"name"`
		IsDefault bool   `json:"isDefault"`
	}
	resp, err := client.Get(ctx, "/printers",
		httpclient.WithHeader("x-access-token", tok),
		httpclient.WithResult(&printers),
	)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	if !resp.IsSuccess() {
		log.Fatalf("Listing rejected: %d %s", resp.StatusCode(), string(resp.Body()))
	}

	for _, p := range printers {
		marker := " "
		if p.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, p.Name)
	}
}
