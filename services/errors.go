package services

import (
	"errors"
	"fmt"
	"strings"

	"bominventory-backend/utils"
)

// ErrResourceBusy возвращается, когда распределенная блокировка занята другим запросом
var ErrResourceBusy = errors.New("resource is busy, try again")

// ValidationError некорректные входные данные; состояние не менялось
type ValidationError struct {
	Fields  []utils.FieldError
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" failed '"+f.Tag+"'")
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// NotFoundError запрошенная деталь или площадка не существует
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// InsufficientStockError на основном складе не хватает детали для отправки комплектов
type InsufficientStockError struct {
	PartNumber string
	Required   string
	Available  string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for part %s: required %s, available %s", e.PartNumber, e.Required, e.Available)
}

// InsufficientOnSiteError на площадке не хватает детали для завершения составов
type InsufficientOnSiteError struct {
	PartNumber string
	Required   string
	Remaining  string
}

func (e *InsufficientOnSiteError) Error() string {
	return fmt.Sprintf("insufficient on-site quantity for part %s: required %s, remaining %s", e.PartNumber, e.Required, e.Remaining)
}

// DuplicateError запись с таким ключом уже существует
type DuplicateError struct {
	Kind string
	Key  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Kind, e.Key)
}

// PersistenceError сбой транзакции; все записи операции откатаны
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failure: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ValidateInput проверяет структуру запроса и возвращает ValidationError
func ValidateInput(input interface{}) error {
	if fields := utils.ValidateStruct(input); len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// wrapPersistence оставляет доменные ошибки как есть, остальные оборачивает в PersistenceError
func wrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		stockErr      *InsufficientStockError
		onSiteErr     *InsufficientOnSiteError
		duplicateErr  *DuplicateError
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &notFoundErr), errors.As(err, &stockErr),
		errors.As(err, &onSiteErr), errors.As(err, &duplicateErr), errors.Is(err, ErrResourceBusy):
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
