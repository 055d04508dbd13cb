package routing

import (
	"log/slog"
	"strings"

	"transforma/internal/config"
	"transforma/internal/fileutil"
	"transforma/internal/logging"
)

// Decision is the routing outcome for one document.
type Decision int

const (
	// DecisionUnknown means the document could not be classified; it is
	// still shown in the reader (fail open).
	DecisionUnknown Decision = iota
	// DecisionInvoice routes the document into the submission pipeline.
	DecisionInvoice
	// DecisionNotInvoice hands the document to the fallback viewer.
	DecisionNotInvoice
)

func (d Decision) String() string {
	switch d {
	case DecisionInvoice:
		return "invoice"
	case DecisionNotInvoice:
		return "not-invoice"
	default:
		return "unknown"
	}
}

// RouteResult describes one routing decision. Values are immutable once
// returned.
type RouteResult struct {
	Decision       Decision
	MatchedPattern string  // which pattern or marker matched, for diagnostics
	ClientHint     string  // detected sender (GTBank, MTN, ...)
	Confidence     float64 // 0.0 - 1.0
}

// TextExtractor supplies a bounded plain-text excerpt of a document's first
// page. Implementations must return an error, not block, when no text is
// obtainable.
type TextExtractor interface {
	ExtractFirstPage(path string, maxChars int) (string, error)
}

// Filename pattern matches win with this fixed confidence.
const filenameMatchConfidence = 0.95

// marker is one weighted content indicator. Marker order is significant:
// the first marker present in the excerpt becomes the diagnostic.
type marker struct {
	text   string
	weight float64
}

var contentMarkers = []marker{
	{"TAX INVOICE", 0.40},
	{"INVOICE", 0.25},
	{"BILL TO", 0.20},
	{"SHIP TO", 0.15},
	{"TIN:", 0.30},
	{"VAT:", 0.20},
	{"TOTAL AMOUNT", 0.15},
	{"SUBTOTAL", 0.15},
	{"DUE DATE", 0.15},
	{"INVOICE NO", 0.30},
	{"INVOICE NUMBER", 0.30},
	{"INV NO", 0.25},
	{"PURCHASE ORDER", 0.20},
	{"ACCOUNT NO", 0.10},
	{"FIRS", 0.25},
}

// Router classifies documents. It holds no mutable state beyond the pattern
// table built at construction, so a single instance is safe for concurrent
// use.
type Router struct {
	patterns  []Pattern
	extractor TextExtractor
	maxChars  int
	threshold float64
	logger    *slog.Logger
}

// NewRouter builds a Router from configuration. Custom patterns are loaded
// best-effort from cfg.Routing.PatternsPath; built-ins always apply.
func NewRouter(cfg *config.Config, extractor TextExtractor, logger *slog.Logger) *Router {
	logger = logging.NewComponentLogger(logger, "routing")

	r := &Router{
		patterns:  builtinPatterns(),
		extractor: extractor,
		maxChars:  cfg.Routing.ExcerptMaxChars,
		threshold: cfg.Routing.ScoreThreshold,
		logger:    logger,
	}
	if path := strings.TrimSpace(cfg.Routing.PatternsPath); path != "" {
		r.patterns = append(r.patterns, loadCustomPatterns(path, logger)...)
	}
	return r
}

// Route produces the routing decision for the document at path.
//
// Tier 1 tests the base filename against the pattern table; the first match
// is final and tier 2 never runs. Tier 2 scores a bounded first-page
// excerpt against the marker table.
func (r *Router) Route(path string) RouteResult {
	filename := fileutil.BaseName(path)

	if result, ok := r.matchFilename(filename); ok {
		r.logger.Debug("routed by filename",
			logging.String("filename", filename),
			logging.String("pattern", result.ClientHint),
			logging.Float64("confidence", result.Confidence))
		return result
	}

	result := r.analyzeContent(path)
	r.logger.Debug("routed by content",
		logging.String("filename", filename),
		logging.String("decision", result.Decision.String()),
		logging.Float64("confidence", result.Confidence))
	return result
}

func (r *Router) matchFilename(filename string) (RouteResult, bool) {
	for _, pattern := range r.patterns {
		if pattern.expr.MatchString(filename) {
			return RouteResult{
				Decision:       DecisionInvoice,
				MatchedPattern: pattern.Description,
				ClientHint:     pattern.Name,
				Confidence:     filenameMatchConfidence,
			}, true
		}
	}
	return RouteResult{}, false
}

func (r *Router) analyzeContent(path string) RouteResult {
	if r.extractor == nil {
		return RouteResult{Decision: DecisionUnknown}
	}

	text, err := r.extractor.ExtractFirstPage(path, r.maxChars)
	if err != nil || text == "" {
		// No readable content: stay viewable rather than rejecting.
		return RouteResult{Decision: DecisionUnknown}
	}

	upper := strings.ToUpper(text)

	score := 0.0
	firstMatch := ""
	for _, m := range contentMarkers {
		if strings.Contains(upper, m.text) {
			score += m.weight
			if firstMatch == "" {
				firstMatch = m.text
			}
		}
	}
	if score > 1.0 {
		score = 1.0
	}

	if score >= r.threshold {
		return RouteResult{
			Decision:       DecisionInvoice,
			MatchedPattern: "Content analysis: " + firstMatch,
			Confidence:     score,
		}
	}
	return RouteResult{
		Decision:   DecisionNotInvoice,
		Confidence: 1.0 - score,
	}
}
