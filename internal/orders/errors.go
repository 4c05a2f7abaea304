package orders

import "fmt"

// Les erreurs du workflow commande sont typées : les handlers les
// traduisent en codes HTTP avec errors.As, sans inspecter les messages.

// ValidationError : requête malformée (panier vide, quantité nulle...).
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError : produit ou commande absent.
type NotFoundError struct {
	Resource string
	Ref      string
}

func (e *NotFoundError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.Ref)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// InsufficientStockError : stock trop bas pour la quantité demandée.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Not enough %s in stock", e.ProductName)
}

// AuthorizationError : le demandeur n'est ni propriétaire ni admin.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

// InvalidStateError : transition de statut interdite.
type InvalidStateError struct {
	Msg string
}

func (e *InvalidStateError) Error() string { return e.Msg }
