package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"storyreel/config"
)

// OpenAIEditor renders a scene anchored on character reference images
type OpenAIEditor struct {
	client openai.Client
	model  string
	size   string
}

// NewOpenAIEditor returns nil when no API key is available
func NewOpenAIEditor(textCfg config.TextConfig, cfg config.ImageConfig, opts ...option.RequestOption) *OpenAIEditor {
	apiKey := os.Getenv(textCfg.APIKeyEnv)
	if apiKey == "" {
		return nil
	}
	base := []option.RequestOption{option.WithAPIKey(apiKey)}
	if textCfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(textCfg.BaseURL))
	}
	return &OpenAIEditor{
		client: openai.NewClient(append(base, opts...)...),
		model:  cfg.EditModel,
		size:   cfg.EditSize,
	}
}

func (e *OpenAIEditor) EditWithReferences(ctx context.Context, refs []string, prompt, dest string) error {
	if e == nil {
		return fmt.Errorf("reference editor not configured")
	}
	if len(refs) == 0 {
		return fmt.Errorf("no reference images")
	}

	var files []io.Reader
	for _, ref := range refs {
		f, err := os.Open(ref)
		if err != nil {
			closeAll(files)
			return fmt.Errorf("open reference: %w", err)
		}
		files = append(files, f)
	}
	defer closeAll(files)

	image := openai.ImageEditParamsImageUnion{OfFileArray: files}
	if len(files) == 1 {
		image = openai.ImageEditParamsImageUnion{OfFile: files[0]}
	}

	resp, err := e.client.Images.Edit(ctx, openai.ImageEditParams{
		Image:  image,
		Prompt: prompt,
		Model:  openai.ImageModel(e.model),
		Size:   openai.ImageEditParamsSize(e.size),
	})
	if err != nil {
		return fmt.Errorf("OpenAI image edit: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return fmt.Errorf("OpenAI image edit returned no image")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return fmt.Errorf("decode edited image: %w", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return err
	}
	log.Printf("[images] ✅ Reference-anchored image saved: %s (%d refs)", dest, len(refs))
	return nil
}

func closeAll(files []io.Reader) {
	for _, f := range files {
		if c, ok := f.(io.Closer); ok {
			c.Close()
		}
	}
}
