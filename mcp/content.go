package mcp

import (
	"encoding/base64"
	"fmt"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/hoangvvo/llm-sdk/sdk-go/utils/partutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// convertMCPContentToParts maps MCP content blocks to llmsdk parts.
// A voice reply is built from text, so embedded text resources are kept as
// text. Blocks with no llmsdk counterpart (resource links, binary blobs) are
// dropped so the model still sees partial results.
func convertMCPContentToParts(contents []mcp.Content) ([]llmsdk.Part, error) {
	parts := make([]llmsdk.Part, 0, len(contents))

	for _, content := range contents {
		switch c := content.(type) {
		case *mcp.TextContent:
			parts = append(parts, textPart(c.Text))
		case *mcp.EmbeddedResource:
			if c.Resource != nil && c.Resource.Text != "" {
				parts = append(parts, textPart(c.Resource.Text))
			}
		case *mcp.ImageContent:
			parts = append(parts, llmsdk.Part{ImagePart: &llmsdk.ImagePart{
				MimeType: c.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(c.Data),
			}})
		case *mcp.AudioContent:
			format, err := partutil.MapMimeTypeToAudioFormat(c.MIMEType)
			if err != nil {
				return nil, fmt.Errorf("unsupported MCP audio format %q: %w", c.MIMEType, err)
			}
			parts = append(parts, llmsdk.Part{AudioPart: &llmsdk.AudioPart{
				Data:   base64.StdEncoding.EncodeToString(c.Data),
				Format: format,
			}})
		}
	}

	return parts, nil
}

func textPart(text string) llmsdk.Part {
	return llmsdk.Part{TextPart: &llmsdk.TextPart{Text: text}}
}
