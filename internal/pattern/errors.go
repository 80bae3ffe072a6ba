package pattern

import (
	"fmt"
	"strings"

	"github.com/Veraticus/rename-agent/internal/common"
	"github.com/Veraticus/rename-agent/internal/model"
)

// NoSuitablePatternError is returned when no active rule can render the
// supplied fields. ClosestID names the rule that came nearest and Missing the
// fields it still needs.
type NoSuitablePatternError struct {
	DocumentType model.DocumentType
	ClosestID    string
	Missing      []model.FieldName
}

func (e *NoSuitablePatternError) Error() string {
	if e.ClosestID == "" {
		return fmt.Sprintf("no suitable pattern for %s: no active patterns", e.DocumentType)
	}
	if len(e.Missing) == 0 {
		return fmt.Sprintf("no suitable pattern for %s: closest %s does not match the document", e.DocumentType, e.ClosestID)
	}
	missing := make([]string, len(e.Missing))
	for i, name := range e.Missing {
		missing[i] = string(name)
	}
	return fmt.Sprintf("no suitable pattern for %s: closest %s needs %s",
		e.DocumentType, e.ClosestID, strings.Join(missing, ", "))
}

// Is matches common.ErrNoSuitablePattern.
func (e *NoSuitablePatternError) Is(target error) bool {
	return target == common.ErrNoSuitablePattern
}
