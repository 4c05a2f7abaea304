package order

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"libris_back_end/internal/orders"
)

func respondStatus(t *testing.T, err error) int {
	t.Helper()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondError(c, err)
	return w.Code
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &orders.ValidationError{Msg: "No order items"}, http.StatusBadRequest},
		{"stock insuffisant", &orders.InsufficientStockError{ProductName: "Germinal"}, http.StatusBadRequest},
		{"état invalide", &orders.InvalidStateError{Msg: "Order cannot be cancelled at this stage"}, http.StatusBadRequest},
		{"introuvable", &orders.NotFoundError{Resource: "Order"}, http.StatusNotFound},
		{"non autorisé", &orders.AuthorizationError{Msg: "Not authorized to cancel this order"}, http.StatusForbidden},
		{"erreur interne", errors.New("scylla timeout"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, respondStatus(t, tt.err))
		})
	}
}

func TestRespondErrorWrapped(t *testing.T) {
	// Les erreurs typées restent reconnues même enveloppées
	wrapped := &orders.NotFoundError{Resource: "Product", Ref: "p-1"}
	code := respondStatus(t, errWrap{wrapped})
	assert.Equal(t, http.StatusNotFound, code)
}

type errWrap struct{ inner error }

func (e errWrap) Error() string { return "wrapped: " + e.inner.Error() }
func (e errWrap) Unwrap() error { return e.inner }
