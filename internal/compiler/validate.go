package compiler

import (
	"fmt"

	"github.com/rakyury/pmu30/internal/blob"
	"github.com/rakyury/pmu30/internal/engine"
)

// Validation error codes (E200-E299)
const (
	ErrDuplicateChannelID = "E201" // channel ID used by more than one record
	ErrBadNodeConfig      = "E202" // node config fails structural checks
	ErrBadOutputIndex     = "E203" // hw index out of range or reused
	ErrBadOutputSource    = "E204" // output source unset
	ErrOverCapacity       = "E205" // more records than the engine's tables hold
)

// ValidationError is one document-level finding.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled document against the engine's table
// shape. It returns all findings rather than failing fast, so a CLI
// run reports every problem in one pass. Compile already validates
// what it emits; Validate also serves records decoded from an existing
// blob.
func Validate(doc *Document) []ValidationError {
	var errs []ValidationError

	seen := make(map[engine.Channel]int)
	usedHW := make(map[int]engine.Channel)
	nodes, links := 0, 0

	for i, rec := range doc.Records {
		field := fmt.Sprintf("records[%d]", i)

		if prev, dup := seen[rec.Channel]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("channel %d already used by records[%d]", rec.Channel, prev),
				Code:    ErrDuplicateChannelID,
			})
		} else {
			seen[rec.Channel] = i
		}

		switch {
		case rec.IsOutput():
			links++
			errs = append(errs, validateOutput(field, rec, usedHW)...)
		default:
			nodes++
			if cfg, err := rec.Config(); err != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: err.Error(),
					Code:    ErrBadNodeConfig,
				})
			} else if err := engine.ValidateConfig(cfg); err != nil {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: err.Error(),
					Code:    ErrBadNodeConfig,
				})
			}
		}
	}

	if nodes > engine.NodeCapacity {
		errs = append(errs, ValidationError{
			Field:   "records",
			Message: fmt.Sprintf("%d nodes exceed the %d-node table", nodes, engine.NodeCapacity),
			Code:    ErrOverCapacity,
		})
	}
	if links > engine.LinkCapacity {
		errs = append(errs, ValidationError{
			Field:   "records",
			Message: fmt.Sprintf("%d output links exceed the %d-link table", links, engine.LinkCapacity),
			Code:    ErrOverCapacity,
		})
	}

	return errs
}

func validateOutput(field string, rec blob.Record, usedHW map[int]engine.Channel) []ValidationError {
	var errs []ValidationError

	hw := int(rec.HWIndex)
	if hw >= engine.OutputCount {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("physical output %d outside 0..%d", hw, engine.OutputCount-1),
			Code:    ErrBadOutputIndex,
		})
	} else if prev, used := usedHW[hw]; used {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("physical output %d already driven by channel %d", hw, prev),
			Code:    ErrBadOutputIndex,
		})
	} else {
		usedHW[hw] = rec.Channel
	}

	if rec.Source == 0 || rec.Source == engine.NoReference {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: "output has no source channel",
			Code:    ErrBadOutputSource,
		})
	}
	return errs
}
