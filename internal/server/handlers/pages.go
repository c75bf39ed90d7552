package handlers

import (
	"github.com/mamadbah2/farmdiary/internal/domain/models"
	"github.com/mamadbah2/farmdiary/internal/service/diary"
)

type formPage struct {
	Lang    models.Language
	Columns []string
	Form    diary.Form
	Errors  diary.FieldErrors
	Status  diary.Status
	Reason  string
}

type fieldError struct {
	Lang    models.Language
	Message string
}

// FieldError is called from the form template for each input.
func (p formPage) FieldError(field string) fieldError {
	return fieldError{Lang: p.Lang, Message: p.Errors[field]}
}

type recordsPage struct {
	Lang    models.Language
	Columns []string
	Rows    [][]string
	Summary *models.MonthlySummary
	Error   string
}

type unavailablePage struct {
	Lang  models.Language
	Error string
}
