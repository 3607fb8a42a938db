package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
)

// Condiciones de negocio del motor de stock. ErrStock es el sentinel amplio:
// errors.Is(err, ErrStock) captura cualquier condición de stock; los dos
// siguientes son los estrechos por tipo.
var (
	ErrStock           = errors.New("condición de stock")
	ErrNotEnoughStock  = errors.New("stock insuficiente para la cantidad solicitada")
	ErrNoLotsAvailable = errors.New("no hay lotes disponibles para el producto")
)
