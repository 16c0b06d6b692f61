package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"incasso-core/internal/domain"
	"incasso-core/internal/repository"
	"incasso-core/internal/service"
)

func domainStage(s string) *domain.Stage {
	stage := domain.Stage(s)
	if !stage.Valid() {
		return nil
	}
	return &stage
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func toStringPtr(v interface{}) (*string, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		return &t, nil
	case json.Number:
		s := t.String()
		return &s, nil
	case float64:
		s := strconv.FormatInt(int64(t), 10)
		return &s, nil
	default:
		return nil, &ValidationError{Message: "invalid type for string field"}
	}
}

func toInt64Ptr(v interface{}) (*int64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		i, err := strconv.ParseInt(t.String(), 10, 64)
		if err != nil {
			return nil, err
		}
		return &i, nil
	case float64:
		i := int64(t)
		return &i, nil
	case string:
		if t == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return nil, err
		}
		return &i, nil
	default:
		return nil, &ValidationError{Message: "invalid type for int field"}
	}
}

func toDatePtr(v interface{}) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" {
			return nil, nil
		}
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			return nil, err
		}
		return &parsed, nil
	default:
		return nil, &ValidationError{Message: "invalid type for date field"}
	}
}

// toDecimal accepts both JSON numbers and strings so money never rides
// through a float64 supplied by the client.
func toDecimal(v interface{}, field string) (decimal.Decimal, error) {
	switch t := v.(type) {
	case string:
		d, err := decimal.NewFromString(t)
		if err != nil {
			return decimal.Zero, &ValidationError{Field: field, Message: field + " must be a decimal number"}
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, &ValidationError{Field: field, Message: field + " must be a decimal number"}
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(t), nil
	default:
		return decimal.Zero, &ValidationError{Field: field, Message: field + " is required"}
	}
}

func toDate(v interface{}, field string) (time.Time, error) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, &ValidationError{Field: field, Message: field + " must be YYYY-MM-DD"}
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: field, Message: field + " must be YYYY-MM-DD"}
	}
	return parsed, nil
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return err
	}
	return nil
}

type rawCreateCaseRequest struct {
	DebtorID        interface{} `json:"debtor_id"`
	ReferenceNumber interface{} `json:"reference_number"`
	Principal       interface{} `json:"principal"`
	IssueDate       interface{} `json:"issue_date"`
}

func ValidateCreateCaseRequest(r *http.Request) (*service.CreateCaseInput, error) {
	var raw rawCreateCaseRequest
	if err := decodeBody(r, &raw); err != nil {
		return nil, err
	}

	debtorID, err := toInt64Ptr(raw.DebtorID)
	if err != nil || debtorID == nil {
		return nil, &ValidationError{Field: "debtor_id", Message: "debtor_id is required"}
	}

	ref, err := toStringPtr(raw.ReferenceNumber)
	if err != nil || ref == nil {
		return nil, &ValidationError{Field: "reference_number", Message: "reference_number is required"}
	}

	principal, err := toDecimal(raw.Principal, "principal")
	if err != nil {
		return nil, err
	}

	issueDate, err := toDate(raw.IssueDate, "issue_date")
	if err != nil {
		return nil, err
	}

	return &service.CreateCaseInput{
		DebtorID:        *debtorID,
		ReferenceNumber: *ref,
		Principal:       principal,
		IssueDate:       issueDate,
	}, nil
}

type rawPaymentRequest struct {
	Amount interface{} `json:"amount"`
}

func ValidatePaymentRequest(r *http.Request) (decimal.Decimal, error) {
	var raw rawPaymentRequest
	if err := decodeBody(r, &raw); err != nil {
		return decimal.Zero, err
	}
	return toDecimal(raw.Amount, "amount")
}

type rawJudgmentRequest struct {
	CaseID         interface{} `json:"case_id"`
	InterestTypeID interface{} `json:"interest_type_id"`
	Principal      interface{} `json:"principal"`
	PeriodStart    interface{} `json:"period_start"`
	PeriodEnd      interface{} `json:"period_end"`
}

func ValidateJudgmentRequest(r *http.Request, requireCase bool) (*service.JudgmentInput, error) {
	var raw rawJudgmentRequest
	if err := decodeBody(r, &raw); err != nil {
		return nil, err
	}

	in := &service.JudgmentInput{}

	caseID, err := toInt64Ptr(raw.CaseID)
	if err != nil {
		return nil, &ValidationError{Field: "case_id", Message: "case_id must be integer"}
	}
	if requireCase && caseID == nil {
		return nil, &ValidationError{Field: "case_id", Message: "case_id is required"}
	}
	if caseID != nil {
		in.CaseID = *caseID
	}

	interestTypeID, err := toInt64Ptr(raw.InterestTypeID)
	if err != nil || interestTypeID == nil {
		return nil, &ValidationError{Field: "interest_type_id", Message: "interest_type_id is required"}
	}
	in.InterestTypeID = *interestTypeID

	in.Principal, err = toDecimal(raw.Principal, "principal")
	if err != nil {
		return nil, err
	}

	in.PeriodStart, err = toDate(raw.PeriodStart, "period_start")
	if err != nil {
		return nil, err
	}

	in.PeriodEnd, err = toDate(raw.PeriodEnd, "period_end")
	if err != nil {
		return nil, err
	}

	return in, nil
}

type rawCasesExportRequest struct {
	Fields      []string    `json:"fields"`
	Stage       interface{} `json:"stage"`
	DebtorID    interface{} `json:"debtor_id"`
	OverdueOnly interface{} `json:"overdue_only"`
	IssuedFrom  interface{} `json:"issued_from"`
	IssuedTo    interface{} `json:"issued_to"`
}

type CasesExportRequest struct {
	Fields []string
	Filter repository.CasesFilter
}

func ValidateCasesExportRequest(r *http.Request) (*CasesExportRequest, error) {
	var raw rawCasesExportRequest
	if err := decodeBody(r, &raw); err != nil {
		return nil, err
	}

	if len(raw.Fields) == 0 {
		return nil, &ValidationError{Field: "fields", Message: "fields is required and must be an array"}
	}

	req := &CasesExportRequest{Fields: raw.Fields}

	stage, err := toStringPtr(raw.Stage)
	if err != nil {
		return nil, &ValidationError{Field: "stage", Message: "stage must be string or empty"}
	}
	if stage != nil {
		s := domainStage(*stage)
		if s == nil {
			return nil, &ValidationError{Field: "stage", Message: "unknown stage"}
		}
		req.Filter.Stage = s
	}

	req.Filter.DebtorID, err = toInt64Ptr(raw.DebtorID)
	if err != nil {
		return nil, &ValidationError{Field: "debtor_id", Message: "debtor_id must be integer or empty"}
	}

	if b, ok := raw.OverdueOnly.(bool); ok {
		req.Filter.OverdueOnly = b
	}

	req.Filter.IssuedFrom, err = toDatePtr(raw.IssuedFrom)
	if err != nil {
		return nil, &ValidationError{Field: "issued_from", Message: "issued_from must be YYYY-MM-DD or empty"}
	}

	req.Filter.IssuedTo, err = toDatePtr(raw.IssuedTo)
	if err != nil {
		return nil, &ValidationError{Field: "issued_to", Message: "issued_to must be YYYY-MM-DD or empty"}
	}

	return req, nil
}
