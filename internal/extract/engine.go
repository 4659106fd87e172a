// Package extract turns a document's text into a typed data record by
// selecting a template, running its field patterns, and reconciling line
// items.
package extract

import (
	"github.com/castlemilk/claimflow/internal/template"
	"go.uber.org/zap"
)

// Engine extracts typed records from document text.
type Engine struct {
	registry    *template.Registry
	reconcilers *ReconcilerRegistry
	log         *zap.Logger
}

// NewEngine builds an engine over the loaded templates.
func NewEngine(registry *template.Registry, reconcilers *ReconcilerRegistry, log *zap.Logger) *Engine {
	if reconcilers == nil {
		reconcilers = NewReconcilerRegistry()
	}
	return &Engine{registry: registry, reconcilers: reconcilers, log: log}
}

// Result carries the extracted record together with the normalized text the
// matching template produced, which is persisted for diagnostics.
type Result struct {
	Record         *Record
	NormalizedText string
}

// Extract matches the issuer's templates against the text and evaluates the
// winning template's fields. It returns ErrTemplateNotFound when nothing
// matches and template.AmbiguityError when several templates match.
func (e *Engine) Extract(issuer, text string) (*Result, error) {
	tpl, normalized, err := e.registry.Match(issuer, text)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, templateNotFound(issuer)
	}

	e.log.Info("matched template", zap.String("template_id", tpl.TemplateID))

	rec := &Record{
		Issuer:     tpl.Issuer,
		Kind:       tpl.Kind,
		Name:       tpl.Name,
		TemplateID: tpl.TemplateID,
		Categories: tpl.Categories,
		Values:     make(map[string]any),
	}

	var itemRows []string

	for _, field := range tpl.Fields {
		raws := firstPatternMatches(field, normalized)

		if len(raws) == 0 {
			if tpl.Required(field.Name) {
				return nil, patternMatch(field.Name, "no pattern matched a required field")
			}
			continue
		}

		// items is the sole field that preserves duplicates and order;
		// its reconciliation is deferred until the amount is known.
		if field.Name == "items" {
			itemRows = raws
			continue
		}

		value, err := typeField(field.Name, raws)
		if err != nil {
			return nil, err
		}

		if field.Name == "amount" {
			rec.Amount = value.(float64)
			continue
		}
		rec.Values[field.Name] = value
	}

	if len(itemRows) > 0 {
		items, err := e.reconcilers.For(tpl.TemplateID).Reconcile(itemRows, rec.Amount)
		if err != nil {
			// Items are ancillary: drop them, keep the record.
			e.log.Warn("line items dropped",
				zap.String("template_id", tpl.TemplateID), zap.Error(err))
		} else {
			rec.Items = items
		}
	}

	return &Result{Record: rec, NormalizedText: normalized}, nil
}

// firstPatternMatches evaluates a field's patterns in order and returns the
// captures of the first pattern that matches at all.
func firstPatternMatches(field template.Field, text string) []string {
	for _, re := range field.Patterns {
		matches := re.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}

		raws := make([]string, 0, len(matches))
		for _, m := range matches {
			if len(m) > 1 {
				raws = append(raws, m[1])
			} else {
				raws = append(raws, m[0])
			}
		}
		return raws
	}
	return nil
}
