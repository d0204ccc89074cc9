/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Most endpoints accept the books input types directly (books.SaleInput,
  books.ExpenseInput, ...) and return the stored records. The types here
  cover what has no domain counterpart: error bodies, audit fix requests
  and results, quick-add requests, profit split requests and scenarios.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

JSON:
  camelCase throughout, matching the stored records.

SEE ALSO:
  - handlers.go: Uses these types
  - books/inputs.go: Validated request bodies
*/
package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"github.com/warp/bookkeeper/audit"
	"github.com/warp/bookkeeper/generic"
	"github.com/warp/bookkeeper/report"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// QuickAddRequest creates a customer, item or worker from a name alone.
type QuickAddRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// RestoredDTO is a record put back from the trash.
type RestoredDTO struct {
	ID     string          `json:"id"`
	Record json.RawMessage `json:"record"`
}

// =============================================================================
// AUDIT
// =============================================================================

// FixRequest selects discrepancies by key. No keys fixes everything.
type FixRequest struct {
	Keys []string `json:"keys"`
}

// FixResultDTO is one fix attempt.
type FixResultDTO struct {
	Key   string `json:"key"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// FixOutcomeDTO is the response to POST /api/audit/fix.
type FixOutcomeDTO struct {
	Results   []FixResultDTO      `json:"results"`
	Remaining []audit.Discrepancy `json:"remaining"`
	Converged bool                `json:"converged"`
	Run       audit.Run           `json:"run"`
}

func toFixOutcomeDTO(o *audit.FixOutcome) FixOutcomeDTO {
	dto := FixOutcomeDTO{
		Results:   make([]FixResultDTO, len(o.Results)),
		Remaining: o.Remaining,
		Converged: len(o.Remaining) == 0,
		Run:       o.Run,
	}
	if dto.Remaining == nil {
		dto.Remaining = []audit.Discrepancy{}
	}
	for i, r := range o.Results {
		dto.Results[i] = FixResultDTO{Key: r.Key, OK: r.OK()}
		if r.Err != nil {
			dto.Results[i].Error = r.Err.Error()
		}
	}
	return dto
}

// =============================================================================
// REPORTS
// =============================================================================

// SplitRequest divides a net profit among partners. Without NetProfit the
// net profit of [From, To] is used.
type SplitRequest struct {
	NetProfit *decimal.Decimal   `json:"netProfit,omitempty"`
	From      *generic.TimePoint `json:"from,omitempty"`
	To        *generic.TimePoint `json:"to,omitempty"`
	Shares    []report.Share     `json:"shares"`
}

// SplitDTO is the response to POST /api/reports/profit-split.
type SplitDTO struct {
	NetProfit   decimal.Decimal     `json:"netProfit"`
	Allocations []report.Allocation `json:"allocations"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest names the scenario to load into the current profile.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenarioId"`
}
