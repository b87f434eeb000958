package products

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("Product not found")
	ErrInvalidQuantity = errors.New("Quantity must be greater than 0")
)

// InsufficientStockError: stok kurang dari yang diminta. Available adalah
// stok yang terbaca saat guard gagal (bisa stale di fast-fail check,
// akurat di conditional update).
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Available: %d, Requested: %d", e.Available, e.Requested)
}
