package orders

import (
	"context"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libris_back_end/internal/models"
	"libris_back_end/internal/store"
)

// --- fakes en mémoire pour les trois stores ---

type fakeProductStore struct {
	products map[string]*models.Product
	// force une erreur sur DecrementStock pour simuler une course perdue
	decrementErr map[string]error
}

func newFakeProductStore(products ...*models.Product) *fakeProductStore {
	f := &fakeProductStore{
		products:     make(map[string]*models.Product),
		decrementErr: make(map[string]error),
	}
	for _, p := range products {
		f.products[p.ID.String()] = p
	}
	return f
}

func (f *fakeProductStore) Get(_ context.Context, id string) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductStore) Save(_ context.Context, p *models.Product) error {
	f.products[p.ID.String()] = p
	return nil
}

func (f *fakeProductStore) DecrementStock(_ context.Context, id string, qty int) error {
	if err, ok := f.decrementErr[id]; ok {
		return err
	}
	p, ok := f.products[id]
	if !ok {
		return store.ErrNotFound
	}
	if p.Stock < qty {
		return store.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (f *fakeProductStore) IncrementStock(_ context.Context, id string, qty int) error {
	p, ok := f.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Stock += qty
	return nil
}

func (f *fakeProductStore) stockOf(id string) int {
	return f.products[id].Stock
}

type fakeCartStore struct {
	carts    map[string]*models.Cart
	clearErr error
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: make(map[string]*models.Cart)}
}

func (f *fakeCartStore) GetByUser(_ context.Context, userID string) (*models.Cart, error) {
	if cart, ok := f.carts[userID]; ok {
		return cart, nil
	}
	return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
}

func (f *fakeCartStore) Save(_ context.Context, cart *models.Cart) error {
	f.carts[cart.UserID] = cart
	return nil
}

func (f *fakeCartStore) Clear(_ context.Context, userID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.carts[userID] = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	return nil
}

type fakeOrderStore struct {
	orders    map[string]*models.Order
	createErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: make(map[string]*models.Order)}
}

func (f *fakeOrderStore) Create(_ context.Context, o *models.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *o
	f.orders[o.ID.String()] = &cp
	return nil
}

func (f *fakeOrderStore) Get(_ context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) Save(_ context.Context, o *models.Order) error {
	cp := *o
	f.orders[o.ID.String()] = &cp
	return nil
}

func (f *fakeOrderStore) ListByUser(_ context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) List(_ context.Context, page, limit int) ([]models.Order, int, error) {
	var out []models.Order
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, len(out), nil
}

// --- helpers ---

func newProduct(name string, price float64, stock int) *models.Product {
	return &models.Product{
		ID:        gocql.TimeUUID(),
		Name:      name,
		Price:     price,
		Stock:     stock,
		CreatedAt: time.Now(),
	}
}

func setup(products ...*models.Product) (*Service, *fakeProductStore, *fakeCartStore, *fakeOrderStore) {
	ps := newFakeProductStore(products...)
	cs := newFakeCartStore()
	os := newFakeOrderStore()
	return NewService(ps, cs, os), ps, cs, os
}

// --- création ---

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	book := newProduct("Le Comte de Monte-Cristo", 10.00, 5)
	svc, ps, cs, _ := setup(book)

	cs.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items:  []models.CartItem{{ProductID: book.ID.String(), Name: book.Name, Price: 10.00, Quantity: 3}},
	})

	order, err := svc.Create(ctx, CreateRequest{
		UserID:        "user-1",
		Items:         []LineItemRequest{{ProductID: book.ID.String(), Quantity: 3}},
		PaymentMethod: "card",
		ShippingAddress: models.ShippingAddress{
			Street: "12 rue des Livres", City: "Bruxelles", PostalCode: "1000", Country: "BE",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.False(t, order.IsPaid)
	assert.False(t, order.IsDelivered)
	assert.InDelta(t, 30.00, order.TotalPrice, 1e-9)
	assert.Equal(t, 2, ps.stockOf(book.ID.String()))

	cart, err := cs.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items, "le panier doit être vidé après la commande")
}

func TestCreateOrderTotalPrice(t *testing.T) {
	ctx := context.Background()
	b1 := newProduct("Germinal", 8.50, 10)
	b2 := newProduct("Bel-Ami", 6.20, 10)
	svc, _, _, _ := setup(b1, b2)

	order, err := svc.Create(ctx, CreateRequest{
		UserID: "user-1",
		Items: []LineItemRequest{
			{ProductID: b1.ID.String(), Quantity: 2},
			{ProductID: b2.ID.String(), Quantity: 3},
		},
	})
	require.NoError(t, err)

	want := 8.50*2 + 6.20*3
	assert.InDelta(t, want, order.TotalPrice, 1e-9)

	// Le prix des lignes vient du catalogue
	assert.InDelta(t, 8.50, order.Items[0].Price, 1e-9)
	assert.InDelta(t, 6.20, order.Items[1].Price, 1e-9)
}

func TestCreateOrderEmptyItems(t *testing.T) {
	svc, _, _, _ := setup()

	_, err := svc.Create(context.Background(), CreateRequest{UserID: "user-1"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateOrderInvalidQuantity(t *testing.T) {
	book := newProduct("Candide", 5.00, 5)
	svc, ps, _, _ := setup(book)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1",
		Items:  []LineItemRequest{{ProductID: book.ID.String(), Quantity: 0}},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 5, ps.stockOf(book.ID.String()))
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	svc, _, _, _ := setup()
	ref := gocql.TimeUUID().String()

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1",
		Items:  []LineItemRequest{{ProductID: ref, Quantity: 1}},
	})

	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
	assert.Equal(t, "Product not found: "+ref, nferr.Error())
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	book := newProduct("Les Misérables", 12.00, 2)
	svc, ps, _, _ := setup(book)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1",
		Items:  []LineItemRequest{{ProductID: book.ID.String(), Quantity: 3}},
	})

	var iserr *InsufficientStockError
	require.ErrorAs(t, err, &iserr)
	assert.Equal(t, "Not enough Les Misérables in stock", iserr.Error())
	assert.Equal(t, 2, ps.stockOf(book.ID.String()), "le stock ne doit pas bouger")
}

// Une ligne en rupture plus loin dans la requête ne doit entraîner aucun
// décrément : la validation se fait avant toute écriture.
func TestCreateOrderNoPartialDecrement(t *testing.T) {
	b1 := newProduct("L'Étranger", 7.00, 10)
	b2 := newProduct("La Peste", 9.00, 1)
	svc, ps, _, _ := setup(b1, b2)

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1",
		Items: []LineItemRequest{
			{ProductID: b1.ID.String(), Quantity: 2},
			{ProductID: b2.ID.String(), Quantity: 5},
		},
	})

	var iserr *InsufficientStockError
	require.ErrorAs(t, err, &iserr)
	assert.Equal(t, 10, ps.stockOf(b1.ID.String()))
	assert.Equal(t, 1, ps.stockOf(b2.ID.String()))
}

// Course perdue pendant la phase de commit : les décréments déjà
// appliqués sont restitués.
func TestCreateOrderRollbackOnLostRace(t *testing.T) {
	b1 := newProduct("Notre-Dame de Paris", 11.00, 4)
	b2 := newProduct("Madame Bovary", 6.50, 4)
	svc, ps, _, _ := setup(b1, b2)

	ps.decrementErr[b2.ID.String()] = store.ErrInsufficientStock

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1",
		Items: []LineItemRequest{
			{ProductID: b1.ID.String(), Quantity: 2},
			{ProductID: b2.ID.String(), Quantity: 2},
		},
	})

	var iserr *InsufficientStockError
	require.ErrorAs(t, err, &iserr)
	assert.Equal(t, 4, ps.stockOf(b1.ID.String()), "le décrément de la première ligne doit être restitué")
}

func TestCreateOrderRollbackOnPersistFailure(t *testing.T) {
	book := newProduct("Voyage au bout de la nuit", 9.90, 6)
	svc, ps, _, os := setup(book)
	os.createErr = assert.AnError

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1",
		Items:  []LineItemRequest{{ProductID: book.ID.String(), Quantity: 4}},
	})

	require.Error(t, err)
	assert.Equal(t, 6, ps.stockOf(book.ID.String()))
}

func TestCreateOrderCartClearIsBestEffort(t *testing.T) {
	book := newProduct("Thérèse Raquin", 4.00, 3)
	svc, _, cs, _ := setup(book)
	cs.clearErr = assert.AnError

	order, err := svc.Create(context.Background(), CreateRequest{
		UserID: "user-1",
		Items:  []LineItemRequest{{ProductID: book.ID.String(), Quantity: 1}},
	})

	require.NoError(t, err, "l'échec du vidage du panier ne doit pas faire échouer la commande")
	assert.Equal(t, models.OrderStatusPending, order.Status)
}

// --- annulation ---

func createOrder(t *testing.T, svc *Service, userID string, items ...LineItemRequest) *models.Order {
	t.Helper()
	order, err := svc.Create(context.Background(), CreateRequest{UserID: userID, Items: items})
	require.NoError(t, err)
	return order
}

func TestCancelOrderRestoresStock(t *testing.T) {
	ctx := context.Background()
	book := newProduct("Le Rouge et le Noir", 10.00, 5)
	svc, ps, _, _ := setup(book)

	order := createOrder(t, svc, "user-1", LineItemRequest{ProductID: book.ID.String(), Quantity: 3})
	require.Equal(t, 2, ps.stockOf(book.ID.String()))

	cancelled, err := svc.Cancel(ctx, order.ID.String(), Requester{UserID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, ps.stockOf(book.ID.String()))
}

func TestCancelOrderNotFound(t *testing.T) {
	svc, _, _, _ := setup()

	_, err := svc.Cancel(context.Background(), gocql.TimeUUID().String(), Requester{UserID: "user-1"})

	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestCancelOrderAuthorization(t *testing.T) {
	ctx := context.Background()
	book := newProduct("Eugénie Grandet", 5.00, 5)
	svc, ps, _, _ := setup(book)

	order := createOrder(t, svc, "user-1", LineItemRequest{ProductID: book.ID.String(), Quantity: 1})

	// Un autre utilisateur non admin est refusé
	_, err := svc.Cancel(ctx, order.ID.String(), Requester{UserID: "user-2"})
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 4, ps.stockOf(book.ID.String()), "pas de restock sur refus")

	// Un admin peut annuler la commande d'un autre
	_, err = svc.Cancel(ctx, order.ID.String(), Requester{UserID: "user-2", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, 5, ps.stockOf(book.ID.String()))
}

func TestCancelOrderInvalidState(t *testing.T) {
	ctx := context.Background()

	for _, status := range []string{models.OrderStatusDelivered, models.OrderStatusCancelled} {
		t.Run(status, func(t *testing.T) {
			book := newProduct("Nana", 8.00, 5)
			svc, ps, _, _ := setup(book)

			order := createOrder(t, svc, "user-1", LineItemRequest{ProductID: book.ID.String(), Quantity: 2})

			_, err := svc.UpdateStatus(ctx, order.ID.String(), status)
			require.NoError(t, err)

			_, err = svc.Cancel(ctx, order.ID.String(), Requester{UserID: "user-1"})

			var serr *InvalidStateError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, "Order cannot be cancelled at this stage", serr.Error())
			assert.Equal(t, 3, ps.stockOf(book.ID.String()), "pas de restock sur état invalide")
		})
	}
}

func TestCancelProcessingOrder(t *testing.T) {
	ctx := context.Background()
	book := newProduct("Une vie", 6.00, 5)
	svc, ps, _, _ := setup(book)

	order := createOrder(t, svc, "user-1", LineItemRequest{ProductID: book.ID.String(), Quantity: 2})

	_, err := svc.UpdateStatus(ctx, order.ID.String(), models.OrderStatusProcessing)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, order.ID.String(), Requester{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, ps.stockOf(book.ID.String()))
}

func TestCancelOrderSkipsMissingProducts(t *testing.T) {
	ctx := context.Background()
	b1 := newProduct("Pierre et Jean", 5.00, 5)
	b2 := newProduct("Fort comme la mort", 7.00, 5)
	svc, ps, _, _ := setup(b1, b2)

	order := createOrder(t, svc, "user-1",
		LineItemRequest{ProductID: b1.ID.String(), Quantity: 1},
		LineItemRequest{ProductID: b2.ID.String(), Quantity: 2},
	)

	// b2 disparaît du catalogue avant l'annulation
	delete(ps.products, b2.ID.String())

	cancelled, err := svc.Cancel(ctx, order.ID.String(), Requester{UserID: "user-1"})
	require.NoError(t, err, "un produit manquant ne doit pas faire échouer l'annulation")
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, ps.stockOf(b1.ID.String()))
}

// --- statut / paiement ---

func TestUpdateStatusDelivered(t *testing.T) {
	ctx := context.Background()
	book := newProduct("La Bête humaine", 9.00, 5)
	svc, _, _, _ := setup(book)

	order := createOrder(t, svc, "user-1", LineItemRequest{ProductID: book.ID.String(), Quantity: 1})

	updated, err := svc.UpdateStatus(ctx, order.ID.String(), models.OrderStatusDelivered)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusDelivered, updated.Status)
	assert.True(t, updated.IsDelivered)
	require.NotNil(t, updated.DeliveredAt)
	assert.WithinDuration(t, time.Now(), *updated.DeliveredAt, time.Minute)
}

func TestUpdateStatusNotFound(t *testing.T) {
	svc, _, _, _ := setup()

	_, err := svc.UpdateStatus(context.Background(), gocql.TimeUUID().String(), models.OrderStatusProcessing)

	var nferr *NotFoundError
	require.ErrorAs(t, err, &nferr)
}

func TestMarkPaid(t *testing.T) {
	ctx := context.Background()
	book := newProduct("Au Bonheur des Dames", 10.00, 5)
	svc, _, _, _ := setup(book)

	order := createOrder(t, svc, "user-1", LineItemRequest{ProductID: book.ID.String(), Quantity: 1})

	result := models.PaymentResult{ID: "pi_123", Status: "succeeded", EmailAddress: "client@example.com"}
	paid, err := svc.MarkPaid(ctx, order.ID.String(), result)
	require.NoError(t, err)

	assert.True(t, paid.IsPaid)
	require.NotNil(t, paid.PaidAt)
	require.NotNil(t, paid.PaymentResult)
	assert.Equal(t, result, *paid.PaymentResult)
}

// --- consultation ---

func TestGetOrderOwnership(t *testing.T) {
	ctx := context.Background()
	book := newProduct("La Curée", 7.50, 5)
	svc, _, _, _ := setup(book)

	order := createOrder(t, svc, "user-1", LineItemRequest{ProductID: book.ID.String(), Quantity: 1})

	_, err := svc.Get(ctx, order.ID.String(), Requester{UserID: "user-1"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, order.ID.String(), Requester{UserID: "user-2", Role: "admin"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, order.ID.String(), Requester{UserID: "user-2"})
	var aerr *AuthorizationError
	require.ErrorAs(t, err, &aerr)
}

// Scénario complet du cycle commande/annulation : stock 5, commande de 3,
// total 30, puis annulation qui restitue les 5 exemplaires.
func TestOrderLifecycleScenario(t *testing.T) {
	ctx := context.Background()
	book := newProduct("Le Père Goriot", 10.00, 5)
	svc, ps, cs, _ := setup(book)

	cs.Save(ctx, &models.Cart{
		UserID: "user-1",
		Items:  []models.CartItem{{ProductID: book.ID.String(), Name: book.Name, Price: 10.00, Quantity: 3}},
	})

	order, err := svc.Create(ctx, CreateRequest{
		UserID: "user-1",
		Items:  []LineItemRequest{{ProductID: book.ID.String(), Quantity: 3}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 30.00, order.TotalPrice, 1e-9)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 2, ps.stockOf(book.ID.String()))

	cart, _ := cs.GetByUser(ctx, "user-1")
	assert.Empty(t, cart.Items)

	cancelled, err := svc.Cancel(ctx, order.ID.String(), Requester{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, ps.stockOf(book.ID.String()))
}
