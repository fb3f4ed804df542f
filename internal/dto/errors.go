package dto

// BaseError универсальный корневой формат ошибки
// Code: машинно-ориентированный код (snake_case)
// Message: краткое человеко-читаемое описание
// Details: дополнительная строка (пояснение / fragment)
// Fields: для валидационных ошибок (имя поля + текст)
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError отдельная ошибка по конкретному полю
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// ValidationErrorResponse 400
// Пример: quantity <= 0 или неизвестный pick_type
type ValidationErrorResponse BaseError

// ConflictErrorResponse 409
// Пример: пик-лист уже завершён, партия в терминальном статусе
type ConflictErrorResponse BaseError

// UnauthorizedErrorResponse 401
// Пример: нет X-User-ID там, где нужен оператор
type UnauthorizedErrorResponse BaseError

// ForbiddenErrorResponse 403
// Пример: запись пика не назначенным сборщиком
type ForbiddenErrorResponse BaseError

// NotFoundErrorResponse 404
type NotFoundErrorResponse BaseError

// UnprocessableErrorResponse 422
// Пример: ни одна позиция не подходит под фильтры пик-листа
type UnprocessableErrorResponse BaseError

// InternalErrorResponse 500
type InternalErrorResponse BaseError

func NewValidationError(msg string, fields []FieldError) ValidationErrorResponse {
	return ValidationErrorResponse(BaseError{Code: "validation_error", Message: msg, Fields: fields})
}
func NewConflictError(msg string) ConflictErrorResponse {
	return ConflictErrorResponse(BaseError{Code: "conflict", Message: msg})
}
func NewUnauthorizedError(msg string) UnauthorizedErrorResponse {
	return UnauthorizedErrorResponse(BaseError{Code: "unauthorized", Message: msg})
}
func NewForbiddenError(msg string) ForbiddenErrorResponse {
	return ForbiddenErrorResponse(BaseError{Code: "forbidden", Message: msg})
}
func NewNotFoundError(msg string) NotFoundErrorResponse {
	return NotFoundErrorResponse(BaseError{Code: "not_found", Message: msg})
}
func NewUnprocessableError(msg string) UnprocessableErrorResponse {
	return UnprocessableErrorResponse(BaseError{Code: "unprocessable", Message: msg})
}
func NewInternalError(details string) InternalErrorResponse {
	return InternalErrorResponse(BaseError{Code: "internal_error", Message: "internal server error", Details: details})
}
