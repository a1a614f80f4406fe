package services

import (
	"context"
	"testing"

	"github.com/kendall-kelly/erp-orders-api/models"
	"github.com/kendall-kelly/erp-orders-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type customerFixture struct {
	svc        *CustomerService
	sales      Actor
	otherSales Actor
	manager    Actor
	inventory  Actor
}

func newCustomerFixture(t *testing.T) *customerFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	return &customerFixture{
		svc:        NewCustomerService(db, NewPolicy(DefaultPolicyTable()), zap.NewNop()),
		sales:      actorOf(testutil.CreateUser(t, db, models.RoleSales)),
		otherSales: actorOf(testutil.CreateUser(t, db, models.RoleSales)),
		manager:    actorOf(testutil.CreateUser(t, db, models.RoleSalesManager)),
		inventory:  actorOf(testutil.CreateUser(t, db, models.RoleInventory)),
	}
}

func TestCustomerService_Create(t *testing.T) {
	f := newCustomerFixture(t)
	ctx := context.Background()

	customer, err := f.svc.Create(ctx, CustomerInput{Name: "Acme", Email: "Buyer@Acme.test", Phone: "555"}, f.sales)
	require.NoError(t, err)
	assert.Equal(t, "buyer@acme.test", customer.Email)
	assert.Equal(t, f.sales.ID, customer.UserID)
	require.NotNil(t, customer.User)
	assert.Equal(t, f.sales.ID, customer.User.ID)

	_, err = f.svc.Create(ctx, CustomerInput{Name: "Acme 2", Email: "buyer@acme.test"}, f.otherSales)
	assert.True(t, IsKind(err, KindConflict))

	_, err = f.svc.Create(ctx, CustomerInput{Name: "Bad", Email: "not-an-email"}, f.sales)
	assert.True(t, IsKind(err, KindValidation))

	_, err = f.svc.Create(ctx, CustomerInput{Name: "Acme", Email: "x@acme.test"}, f.inventory)
	assert.True(t, IsKind(err, KindAuthorization))
}

func TestCustomerService_SalesSeeOnlyTheirOwn(t *testing.T) {
	f := newCustomerFixture(t)
	ctx := context.Background()

	mine, err := f.svc.Create(ctx, CustomerInput{Name: "Mine", Email: "mine@example.test"}, f.sales)
	require.NoError(t, err)
	theirs, err := f.svc.Create(ctx, CustomerInput{Name: "Theirs", Email: "theirs@example.test"}, f.otherSales)
	require.NoError(t, err)

	list, err := f.svc.List(ctx, f.sales)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	all, err := f.svc.List(ctx, f.manager)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.Get(ctx, theirs.ID, f.sales)
	assert.True(t, IsKind(err, KindAuthorization))

	name := "Stolen"
	_, err = f.svc.Update(ctx, theirs.ID, CustomerPatch{Name: &name}, f.sales)
	assert.True(t, IsKind(err, KindAuthorization))

	updated, err := f.svc.Update(ctx, theirs.ID, CustomerPatch{Name: &name}, f.manager)
	require.NoError(t, err)
	assert.Equal(t, "Stolen", updated.Name)
}

func TestCustomerService_UpdateEmail(t *testing.T) {
	f := newCustomerFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, CustomerInput{Name: "A", Email: "a@example.test"}, f.sales)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, CustomerInput{Name: "B", Email: "b@example.test"}, f.sales)
	require.NoError(t, err)

	taken := "b@example.test"
	_, err = f.svc.Update(ctx, a.ID, CustomerPatch{Email: &taken}, f.sales)
	assert.True(t, IsKind(err, KindConflict))

	same := "a@example.test"
	_, err = f.svc.Update(ctx, a.ID, CustomerPatch{Email: &same}, f.sales)
	assert.NoError(t, err)

	fresh := "c@example.test"
	updated, err := f.svc.Update(ctx, a.ID, CustomerPatch{Email: &fresh}, f.sales)
	require.NoError(t, err)
	assert.Equal(t, "c@example.test", updated.Email)
}

func TestCustomerService_Delete(t *testing.T) {
	f := newCustomerFixture(t)
	ctx := context.Background()

	customer, err := f.svc.Create(ctx, CustomerInput{Name: "Gone", Email: "gone@example.test"}, f.sales)
	require.NoError(t, err)

	err = f.svc.Delete(ctx, customer.ID, f.sales)
	assert.True(t, IsKind(err, KindAuthorization))

	require.NoError(t, f.svc.Delete(ctx, customer.ID, f.manager))

	_, err = f.svc.Get(ctx, customer.ID, f.manager)
	assert.True(t, IsKind(err, KindNotFound))

	err = f.svc.Delete(ctx, customer.ID, f.manager)
	assert.True(t, IsKind(err, KindNotFound))

	_, err = f.svc.Create(ctx, CustomerInput{Name: "Again", Email: "gone@example.test"}, f.sales)
	assert.True(t, IsKind(err, KindConflict))
}
