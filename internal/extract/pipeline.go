package extract

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Amrutha-01/swaply-backend/internal/config"
	"github.com/Amrutha-01/swaply-backend/internal/model"
	"github.com/Amrutha-01/swaply-backend/pkg/anthropic"
)

// ErrModelInvocation indicates the external model call itself failed
// (network, quota, auth) as opposed to an unusable response.
var ErrModelInvocation = eris.New("model invocation failed")

// extractFailedMessage is the uniform boundary error. Callers never need to
// distinguish model failure from parse failure; the logs do.
const extractFailedMessage = "Failed to extract data from the document."

const promptTemplate = `You are an advanced document parsing AI engine. Your sole function is to analyze the provided document and extract all promotional coupon offers.

You MUST return the data as a single, valid JSON object that contains one key: "coupons". This key's value must be a JSON array. Each object within the array must conform to the following exact schema:

- "platform": (string) The name of the merchant or platform.
- "category": (string) The type of coupons (example: Shopping, Food, etc)
- "summary": (string) A concise one-sentence description of the offer.
- "coupon_code": (string | null) The coupon code, or null if not present.
- "value": (string) The discount rate or value of the coupon (eg: 100 rupees, 10%%,etc)
- "expiry_date": (string) The expiration date in "YYYY-MM-DD" format.
- "source_document": (string) Must be exactly %q, the name of the file this was extracted from.

If the document contains no coupons, return an empty array: {"coupons": []}.
Only return the raw JSON object without any extra text or markdown formatting.`

// Pipeline orchestrates document extraction: one model call per document,
// response normalization, provenance attachment. The client is injected so
// concurrent pipelines share one rate-limited connection and no global state.
type Pipeline struct {
	client  anthropic.Client
	cfg     config.AnthropicConfig
	limiter *rate.Limiter
}

// NewPipeline creates a Pipeline. requestsPerMin bounds the model call rate;
// zero or negative disables limiting.
func NewPipeline(client anthropic.Client, cfg config.AnthropicConfig, requestsPerMin float64) *Pipeline {
	limit := rate.Inf
	if requestsPerMin > 0 {
		limit = rate.Limit(requestsPerMin / 60)
	}
	return &Pipeline{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Extract analyzes one document and returns the uniform boundary result:
// a coupon array (possibly empty) or an error message, never both.
func (p *Pipeline) Extract(ctx context.Context, document []byte, mimeType, originalName string) model.ExtractionResult {
	coupons, err := p.extract(ctx, document, mimeType, originalName)
	if err != nil {
		switch {
		case eris.Is(err, ErrModelInvocation):
			zap.L().Error("extract: model invocation failed",
				zap.String("document", originalName),
				zap.Error(err),
			)
		case eris.Is(err, ErrParse):
			zap.L().Warn("extract: model response failed validation",
				zap.String("document", originalName),
				zap.Error(err),
			)
		default:
			zap.L().Error("extract: failed",
				zap.String("document", originalName),
				zap.Error(err),
			)
		}
		return model.ExtractionResult{Err: extractFailedMessage}
	}
	return model.ExtractionResult{Coupons: coupons}
}

func (p *Pipeline) extract(ctx context.Context, document []byte, mimeType, originalName string) ([]model.Coupon, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "extract: rate limit wait")
	}

	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokens,
		Messages: []anthropic.Message{
			{
				Role:    "user",
				Content: fmt.Sprintf(promptTemplate, originalName),
				Document: &anthropic.Document{
					MediaType: mimeType,
					Data:      base64.StdEncoding.EncodeToString(document),
				},
			},
		},
	})
	if err != nil {
		return nil, eris.Wrap(ErrModelInvocation, err.Error())
	}
	resp.Usage.LogCost(p.cfg.Model, "extract")

	return Normalize(resp.Text(), originalName)
}
