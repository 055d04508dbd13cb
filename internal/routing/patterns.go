package routing

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"regexp"

	"transforma/internal/logging"
)

// Pattern is one filename routing rule. Table order is significant: the
// first matching pattern wins.
type Pattern struct {
	Name        string
	Description string
	expr        *regexp.Regexp
}

func mustPattern(name, expr, description string) Pattern {
	return Pattern{
		Name:        name,
		Description: description,
		expr:        regexp.MustCompile(`(?i)` + expr),
	}
}

func builtinPatterns() []Pattern {
	return []Pattern{
		mustPattern("GTBank", `GT[_\-\s]?(Bank|B).*inv`, "GTBank invoice filenames"),
		mustPattern("MTN", `MTN.*(invoice|bill|statement)`, "MTN billing documents"),
		mustPattern("Airtel", `Airtel.*(invoice|bill|statement)`, "Airtel billing documents"),
		mustPattern("ExecuJet", `WN\d{4,6}\.pdf`, "ExecuJet work order / invoice"),
		mustPattern("Generic", `(INV|INVOICE|BILL|RECEIPT|TAX[_\-\s]?INV)[\-_\s]?\d`, "Generic invoice filenames"),
		mustPattern("FIRS", `(FIRS|TIN|VAT)[\-_\s]`, "FIRS / tax-related documents"),
	}
}

type patternConfig struct {
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Description string `json:"description"`
}

// loadCustomPatterns reads operator-supplied patterns from a JSON file.
// Loading is best-effort: a missing file is normal, a broken file or a bad
// expression costs only a warning.
func loadCustomPatterns(path string, logger *slog.Logger) []Pattern {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("failed to read routing patterns",
				logging.String("path", path),
				logging.Error(err))
		}
		return nil
	}

	var entries []patternConfig
	if err := json.Unmarshal(data, &entries); err != nil {
		logger.Warn("failed to parse routing patterns, using built-ins only",
			logging.String("path", path),
			logging.Error(err))
		return nil
	}

	patterns := make([]Pattern, 0, len(entries))
	for _, entry := range entries {
		expr, err := regexp.Compile(`(?i)` + entry.Pattern)
		if err != nil {
			logger.Warn("skipping invalid routing pattern",
				logging.String("name", entry.Name),
				logging.String("pattern", entry.Pattern),
				logging.Error(err))
			continue
		}
		patterns = append(patterns, Pattern{
			Name:        entry.Name,
			Description: entry.Description,
			expr:        expr,
		})
	}

	if len(patterns) > 0 {
		logger.Debug("loaded custom routing patterns",
			logging.String("path", path),
			logging.Int("count", len(patterns)))
	}
	return patterns
}
