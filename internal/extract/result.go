package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spigell/job-board/internal/ai"
	"github.com/spigell/job-board/internal/jobs"
)

// Result is the outcome of parsing one model reply: either Posting is set or
// Reason explains why the reply was rejected.
type Result struct {
	Posting *jobs.Posting
	Reason  string
}

func (r Result) OK() bool {
	return r.Posting != nil
}

func rejected(format string, args ...any) Result {
	return Result{Reason: fmt.Sprintf(format, args...)}
}

// Parse decodes raw as a job posting and validates it against the schema.
func Parse(raw string) Result {
	return parse(raw, newValidator())
}

func parse(raw string, validate *validator.Validate) Result {
	cleaned := ai.ExtractJSON(raw)
	if cleaned == "" {
		return rejected("empty model output")
	}

	trimmed := bytes.TrimSpace([]byte(cleaned))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return rejected("model output is not a JSON object")
	}

	var posting jobs.Posting
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&posting); err != nil {
		return rejected("invalid JSON: %v", err)
	}
	if dec.More() {
		return rejected("invalid JSON: trailing data after object")
	}

	posting.Trim()

	if err := validate.Struct(&posting); err != nil {
		return rejected("schema violation: %s", describe(err))
	}

	return Result{Posting: &posting}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, ", ")
}
