package domain

import (
	"errors"
	"strings"
)

// Errores de dominio (sin dependencias externas).
// Las violaciones de reglas de negocio se retornan tipadas al caller, nunca
// como fallas genéricas; solo errores de infraestructura se propagan envueltos.
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrInvalidQuantity     = errors.New("la cantidad debe ser un entero positivo")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrInvalidAdjustment   = errors.New("ajuste inválido: el stock resultante sería negativo")
	ErrInvalidTransition   = errors.New("transición de estado no permitida")
	ErrAlreadyReversed     = errors.New("el movimiento ya fue revertido")
	ErrExternalPosting     = errors.New("el colaborador contable falló o no está disponible")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia, reintentar la operación")
)

// FieldError error de validación asociado a un campo puntual.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError agrupa errores de validación recuperables por el caller.
// No es una falla: el caller corrige la entrada y reintenta.
type ValidationError struct {
	Fields []FieldError
}

// Error implementa error con el resumen de los campos inválidos.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validación fallida"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validación fallida: " + strings.Join(parts, "; ")
}

// Add agrega un error de campo.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors indica si se acumuló al menos un error.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}
