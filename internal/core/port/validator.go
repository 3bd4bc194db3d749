package port

import "github.com/guillermoBallester/sqlgate/internal/core/domain"

// QueryValidator classifies query text before any execution.
type QueryValidator interface {
	Validate(sql string) domain.ValidationOutcome
}
