package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris_back_end/internal/models"
	"libris_back_end/internal/store"
)

type fakeCartStore struct {
	carts map[string]*models.Cart
	saved int
}

func (f *fakeCartStore) GetByUser(_ context.Context, userID string) (*models.Cart, error) {
	if cart, ok := f.carts[userID]; ok {
		return cart, nil
	}
	return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
}

func (f *fakeCartStore) Save(_ context.Context, cart *models.Cart) error {
	f.carts[cart.UserID] = cart
	f.saved++
	return nil
}

func (f *fakeCartStore) Clear(_ context.Context, userID string) error {
	delete(f.carts, userID)
	return nil
}

type fakeCatalogue struct {
	products map[string]*models.Product
}

func (f *fakeCatalogue) Get(_ context.Context, id string) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeCatalogue) Save(_ context.Context, _ *models.Product) error { return nil }

func (f *fakeCatalogue) DecrementStock(_ context.Context, _ string, _ int) error { return nil }

func (f *fakeCatalogue) IncrementStock(_ context.Context, _ string, _ int) error { return nil }

func setupCartFakes(t *testing.T, carts *fakeCartStore, catalogue *fakeCatalogue) {
	t.Helper()

	prevStore, prevCatalogue := cartStore, cartCatalogue
	cartStore, cartCatalogue = carts, catalogue
	t.Cleanup(func() {
		cartStore, cartCatalogue = prevStore, prevCatalogue
	})
}

func cartRequest(t *testing.T, userID, productID string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	c.Request = httptest.NewRequest(http.MethodPost, "/api/carts", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set("user_id", userID)
	if productID != "" {
		c.Params = gin.Params{{Key: "productId", Value: productID}}
	}
	return c, w
}

func TestAddToCartStockInsuffisant(t *testing.T) {
	carts := &fakeCartStore{carts: map[string]*models.Cart{}}
	catalogue := &fakeCatalogue{products: map[string]*models.Product{
		"p-1": {Name: "Germinal", Price: 9.5, Stock: 2},
	}}
	setupCartFakes(t, carts, catalogue)

	c, w := cartRequest(t, "u-1", "", gin.H{"productId": "p-1", "quantity": 3})
	AddToCart(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Pas assez de stock disponible")
	assert.Zero(t, carts.saved)
}

func TestAddToCartCumulPlafonneAuStock(t *testing.T) {
	carts := &fakeCartStore{carts: map[string]*models.Cart{
		"u-1": {UserID: "u-1", Items: []models.CartItem{
			{ProductID: "p-1", Name: "Germinal", Price: 9.5, Quantity: 2},
		}},
	}}
	catalogue := &fakeCatalogue{products: map[string]*models.Product{
		"p-1": {Name: "Germinal", Price: 9.5, Stock: 3},
	}}
	setupCartFakes(t, carts, catalogue)

	// 2 déjà au panier + 2 demandés > 3 en stock
	c, w := cartRequest(t, "u-1", "", gin.H{"productId": "p-1", "quantity": 2})
	AddToCart(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 2, carts.carts["u-1"].Items[0].Quantity)
}

func TestAddToCartFusionneLesLignes(t *testing.T) {
	carts := &fakeCartStore{carts: map[string]*models.Cart{
		"u-1": {UserID: "u-1", Items: []models.CartItem{
			{ProductID: "p-1", Name: "Germinal", Price: 9.5, Quantity: 1},
		}},
	}}
	catalogue := &fakeCatalogue{products: map[string]*models.Product{
		"p-1": {Name: "Germinal", Price: 9.5, Stock: 5},
	}}
	setupCartFakes(t, carts, catalogue)

	c, w := cartRequest(t, "u-1", "", gin.H{"productId": "p-1", "quantity": 2})
	AddToCart(c)

	require.Equal(t, http.StatusOK, w.Code)
	saved := carts.carts["u-1"]
	require.Len(t, saved.Items, 1)
	assert.Equal(t, 3, saved.Items[0].Quantity)
	assert.Equal(t, 9.5, saved.Items[0].Price)
}

func TestAddToCartLivreInconnu(t *testing.T) {
	carts := &fakeCartStore{carts: map[string]*models.Cart{}}
	catalogue := &fakeCatalogue{products: map[string]*models.Product{}}
	setupCartFakes(t, carts, catalogue)

	c, w := cartRequest(t, "u-1", "", gin.H{"productId": "absent", "quantity": 1})
	AddToCart(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCartItemStockInsuffisant(t *testing.T) {
	carts := &fakeCartStore{carts: map[string]*models.Cart{
		"u-1": {UserID: "u-1", Items: []models.CartItem{
			{ProductID: "p-1", Name: "Germinal", Price: 9.5, Quantity: 1},
		}},
	}}
	catalogue := &fakeCatalogue{products: map[string]*models.Product{
		"p-1": {Name: "Germinal", Price: 9.5, Stock: 4},
	}}
	setupCartFakes(t, carts, catalogue)

	c, w := cartRequest(t, "u-1", "p-1", gin.H{"quantity": 10})
	UpdateCartItem(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Pas assez de stock disponible")
	assert.Equal(t, 1, carts.carts["u-1"].Items[0].Quantity)
}

func TestUpdateCartItemQuantiteNulleRetire(t *testing.T) {
	carts := &fakeCartStore{carts: map[string]*models.Cart{
		"u-1": {UserID: "u-1", Items: []models.CartItem{
			{ProductID: "p-1", Name: "Germinal", Price: 9.5, Quantity: 2},
			{ProductID: "p-2", Name: "Candide", Price: 5, Quantity: 1},
		}},
	}}
	catalogue := &fakeCatalogue{products: map[string]*models.Product{}}
	setupCartFakes(t, carts, catalogue)

	c, w := cartRequest(t, "u-1", "p-1", gin.H{"quantity": 0})
	UpdateCartItem(c)

	require.Equal(t, http.StatusOK, w.Code)
	saved := carts.carts["u-1"]
	require.Len(t, saved.Items, 1)
	assert.Equal(t, "p-2", saved.Items[0].ProductID)
}

func TestUpdateCartItemQuantiteNegativeRetire(t *testing.T) {
	carts := &fakeCartStore{carts: map[string]*models.Cart{
		"u-1": {UserID: "u-1", Items: []models.CartItem{
			{ProductID: "p-1", Name: "Germinal", Price: 9.5, Quantity: 2},
		}},
	}}
	catalogue := &fakeCatalogue{products: map[string]*models.Product{}}
	setupCartFakes(t, carts, catalogue)

	// Toute quantité <= 0 vaut retrait, jamais une erreur
	c, w := cartRequest(t, "u-1", "p-1", gin.H{"quantity": -3})
	UpdateCartItem(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, carts.carts["u-1"].Items)
}

func TestUpdateCartItemDansLaLimiteDuStock(t *testing.T) {
	carts := &fakeCartStore{carts: map[string]*models.Cart{
		"u-1": {UserID: "u-1", Items: []models.CartItem{
			{ProductID: "p-1", Name: "Germinal", Price: 9.5, Quantity: 1},
		}},
	}}
	catalogue := &fakeCatalogue{products: map[string]*models.Product{
		"p-1": {Name: "Germinal", Price: 9.5, Stock: 4},
	}}
	setupCartFakes(t, carts, catalogue)

	c, w := cartRequest(t, "u-1", "p-1", gin.H{"quantity": 4})
	UpdateCartItem(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 4, carts.carts["u-1"].Items[0].Quantity)
}
