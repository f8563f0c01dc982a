package scanning

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Claude implements the Scanner interface using the Anthropic API.
type Claude struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaude creates a new Claude Scanner instance.
func NewClaude(apiKey string, modelName string) (*Claude, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
	}

	return &Claude{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(modelName),
	}, nil
}

// ScanReceipt analyzes a receipt and extracts its fields.
func (c *Claude) ScanReceipt(imageData []byte, contentType string) (*ReceiptData, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return nil, err
	}
	imageBase64 := base64.StdEncoding.EncodeToString(pngData)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", imageBase64),
				anthropic.NewTextBlock(receiptScanPrompt),
			),
		},
	})
	if err != nil {
		return nil, serviceUnavailable(fmt.Errorf("calling anthropic API: %w", err))
	}

	if len(message.Content) == 0 {
		return nil, serviceUnavailable(fmt.Errorf("empty response from claude"))
	}

	var responseText strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText.WriteString(block.Text)
		}
	}

	return parseReceipt(responseText.String())
}

// Close closes the Claude client (no-op for the HTTP-backed client).
func (c *Claude) Close() error {
	return nil
}
