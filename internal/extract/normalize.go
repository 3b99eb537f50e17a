package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Amrutha-01/swaply-backend/internal/model"
)

// ErrParse indicates the model response could not be turned into a
// schema-conformant coupon set.
var ErrParse = eris.New("extraction response is not schema-conformant")

// couponSchema is the contract every element of the coupons array must meet.
// Presence and type checks only; values stay free-form strings on purpose.
const couponSchema = `{
	"type": "object",
	"required": ["platform", "category", "value", "expiry_date"],
	"properties": {
		"platform":        {"type": "string"},
		"category":        {"type": "string"},
		"summary":         {"type": "string"},
		"coupon_code":     {"type": ["string", "null"]},
		"value":           {"type": "string"},
		"expiry_date":     {"type": "string"},
		"source_document": {"type": "string"}
	}
}`

var compiledCouponSchema = jsonschema.MustCompileString("coupon.schema.json", couponSchema)

// Normalize turns raw model output into validated coupon records. The input
// is untrusted: it may be fenced, wrapped in prose, or not JSON at all. Every
// record's source_document is overridden with the supplied name so provenance
// never depends on what the model inferred. The whole response is rejected if
// any single element fails validation.
func Normalize(rawText, sourceDocument string) ([]model.Coupon, error) {
	parsed, ok := parseFirstCandidate(rawText)
	if !ok {
		return nil, eris.Wrap(ErrParse, "normalize: response is not valid JSON")
	}

	rawCoupons, ok := couponsArray(parsed)
	if !ok {
		return nil, eris.Wrap(ErrParse, "normalize: response has no coupons array")
	}

	coupons := make([]model.Coupon, 0, len(rawCoupons))
	var reasons []string
	for i, raw := range rawCoupons {
		c, reason := validateRecord(raw)
		if reason != "" {
			reasons = append(reasons, fmt.Sprintf("coupons[%d]: %s", i, reason))
			continue
		}
		if sourceDocument != "" {
			c.SourceDocument = sourceDocument
		}
		coupons = append(coupons, c)
	}
	if len(reasons) > 0 {
		return nil, eris.Wrapf(ErrParse, "normalize: %s", strings.Join(reasons, "; "))
	}

	return coupons, nil
}

// parseFirstCandidate tries a sequence of unwrapping rules and returns the
// first candidate that parses as JSON: the raw text, the text with markdown
// fences stripped, then the first-{ to last-} slice.
func parseFirstCandidate(text string) (json.RawMessage, bool) {
	for _, candidate := range unwrapCandidates(text) {
		var parsed json.RawMessage
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return parsed, true
		}
	}
	return nil, false
}

func unwrapCandidates(text string) []string {
	trimmed := strings.TrimSpace(text)
	candidates := []string{trimmed}

	if stripped := stripFences(trimmed); stripped != trimmed {
		candidates = append(candidates, stripped)
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidates = append(candidates, trimmed[start:end+1])
	}

	return candidates
}

func stripFences(text string) string {
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return strings.TrimSpace(text)
}

// couponsArray extracts the coupons array from the parsed envelope.
func couponsArray(parsed json.RawMessage) ([]json.RawMessage, bool) {
	var env struct {
		Coupons *[]json.RawMessage `json:"coupons"`
	}
	if err := json.Unmarshal(parsed, &env); err != nil || env.Coupons == nil {
		return nil, false
	}
	return *env.Coupons, true
}

// validateRecord checks one array element against the coupon schema and
// decodes it. Returns a non-empty reason when the element is invalid.
func validateRecord(raw json.RawMessage) (model.Coupon, string) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.Coupon{}, err.Error()
	}
	if err := compiledCouponSchema.Validate(v); err != nil {
		return model.Coupon{}, schemaReason(err)
	}

	var c model.Coupon
	if err := json.Unmarshal(raw, &c); err != nil {
		return model.Coupon{}, err.Error()
	}
	return c, ""
}

// schemaReason flattens a jsonschema validation error into one line.
func schemaReason(err error) string {
	var ve *jsonschema.ValidationError
	if eris.As(err, &ve) {
		leaf := ve
		for len(leaf.Causes) > 0 {
			leaf = leaf.Causes[0]
		}
		if leaf.InstanceLocation != "" {
			return fmt.Sprintf("%s %s", leaf.InstanceLocation, leaf.Message)
		}
		return leaf.Message
	}
	return err.Error()
}
