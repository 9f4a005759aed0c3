package core

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	goerrors "github.com/goliatone/go-errors"
)

const (
	fieldChallenge = "challenge"
	fieldGuess     = "guess"
	fieldProfile   = "profile"
	fieldName      = "name"
)

// EntryProcessor validates submitted rows and renders the outbound
// message. Stateless; safe for concurrent use.
type EntryProcessor struct {
	Columns ColumnMap
}

func NewEntryProcessor(columns ColumnMap) *EntryProcessor {
	return &EntryProcessor{Columns: columns}
}

// Evaluate applies the validity rules in fixed order, first failure wins:
// challenge present, guess present, profile present, name resolvable, then
// guess parses to a canonical non-negative decimal.
func (p *EntryProcessor) Evaluate(row Row) ValidationResult {
	entry := p.columns().Project(row)

	if entry.Challenge == "" {
		return missingField(fieldChallenge)
	}
	if entry.Guess.Empty() {
		return missingField(fieldGuess)
	}
	if entry.Profile == "" {
		return missingField(fieldProfile)
	}
	if entry.FullName == "" && (entry.FirstName == "" || entry.LastName == "") {
		return missingField(fieldName)
	}

	guess := ParseGuess(entry.Guess)
	if guess.Kind == GuessKindInvalid {
		return ValidationResult{
			Valid:  false,
			Reason: guess.Reason,
			Field:  fieldGuess,
			Guess:  guess,
		}
	}
	return ValidationResult{
		Valid:  true,
		Reason: ReasonOK,
		Guess:  guess,
	}
}

// Render substitutes the row's named fields plus the status line into the
// template. Pure function of its inputs; fields absent from the row render
// as empty strings.
func (p *EntryProcessor) Render(row Row, result ValidationResult, tmpl string) (Message, error) {
	parsed, err := template.New("entry").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=zero").
		Parse(tmpl)
	if err != nil {
		return Message{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "core: parse message template").
			WithTextCode(RelayErrorBadInput)
	}

	entry := p.columns().Project(row)
	data := map[string]string{
		"challenge": entry.Challenge,
		"fullName":  entry.FullName,
		"firstName": entry.FirstName,
		"lastName":  entry.LastName,
		"name":      entry.Name(),
		"guess":     entry.Guess.Text(),
		"profile":   entry.Profile,
		"status":    StatusLine(result),
		"value":     guessText(result),
	}

	var out strings.Builder
	if err := parsed.Execute(&out, data); err != nil {
		return Message{}, goerrors.Wrap(err, goerrors.CategoryOperation, "core: render message template").
			WithTextCode(RelayErrorOperationFailed)
	}
	return Message{Markdown: out.String()}, nil
}

// StatusLine maps a validation result onto the human-readable status
// string carried by outbound messages. This mapping is the only wire
// contract the relay owns.
func StatusLine(result ValidationResult) string {
	if result.Valid {
		return fmt.Sprintf("**GOOD**: considering %s as the guess", guessText(result))
	}
	return fmt.Sprintf("**INVALID**: %s", invalidExplanation(result))
}

func invalidExplanation(result ValidationResult) string {
	switch result.Reason {
	case ReasonMissingField:
		return fmt.Sprintf("missing required field: %s", result.Field)
	case ReasonNegative:
		return "a negative guess is not allowed"
	case ReasonBadFormat:
		return "the guess does not look like a decimal value"
	default:
		return "the entry could not be validated"
	}
}

func guessText(result ValidationResult) string {
	if result.Guess.Kind == GuessKindInvalid {
		return ""
	}
	return FormatGuess(result.Guess.Value)
}

func (p *EntryProcessor) columns() ColumnMap {
	if p == nil || p.Columns == (ColumnMap{}) {
		return DefaultColumnMap()
	}
	return p.Columns
}

func missingField(field string) ValidationResult {
	return ValidationResult{
		Valid:  false,
		Reason: ReasonMissingField,
		Field:  field,
		Guess:  GuessValue{Kind: GuessKindInvalid, Reason: ReasonMissingField},
	}
}
