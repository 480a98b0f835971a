package deliveries

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/farmlink/farmlink-backend/internal/users"
	"github.com/farmlink/farmlink-backend/pkg/db"
	"github.com/farmlink/farmlink-backend/pkg/db/dbtest"
	"github.com/farmlink/farmlink-backend/pkg/db/models"
	"github.com/farmlink/farmlink-backend/pkg/enums"
	pkgerrors "github.com/farmlink/farmlink-backend/pkg/errors"
	"github.com/farmlink/farmlink-backend/pkg/logger"
	"github.com/farmlink/farmlink-backend/pkg/outbox"
)

type fixture struct {
	client *db.Client
	svc    Service
	users  *users.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	client := dbtest.NewClient(t)
	conn := client.DB()
	userRepo := users.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), userRepo, client, outbox.NewService(outbox.NewRepository(conn), logger.Nop()))
	require.NoError(t, err)
	return fixture{client: client, svc: svc, users: userRepo}
}

func (f fixture) createUser(t *testing.T, role enums.UserRole) *models.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), users.CreateUserDTO{
		Email:        uuid.NewString() + "@farm.test",
		PasswordHash: "hash",
		Name:         "Test " + string(role),
		Role:         role,
	})
	require.NoError(t, err)
	return user
}

func (f fixture) createDelivery(t *testing.T, customerID uuid.UUID) *models.Delivery {
	t.Helper()
	address := " 12 Market Road "
	order := &models.Order{
		ID:              uuid.New(),
		CustomerID:      customerID,
		ContactName:     "Ada",
		ContactPhone:    "0700",
		DeliveryAddress: &address,
	}
	var delivery *models.Delivery
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		delivery, err = f.svc.CreateForOrder(context.Background(), tx, order)
		return err
	})
	require.NoError(t, err)
	return delivery
}

func TestCreateForOrderSeedsPendingHistory(t *testing.T) {
	f := newFixture(t)
	buyer := uuid.New()
	delivery := f.createDelivery(t, buyer)

	got, err := f.svc.Get(context.Background(), delivery.ID, buyer, enums.RoleBuyer)
	require.NoError(t, err)
	require.Equal(t, enums.DeliveryStatusPending, got.Status)
	require.Equal(t, "12 Market Road", got.Address)
	require.Len(t, got.History, 1)
	require.Equal(t, enums.DeliveryStatusPending, got.History[0].Status)

	_, err = f.svc.Get(context.Background(), delivery.ID, uuid.New(), enums.RoleBuyer)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestAssignAndDriverProgression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.createUser(t, enums.RoleAdmin)
	driver := f.createUser(t, enums.RoleDriver)
	delivery := f.createDelivery(t, uuid.New())

	assigned, err := f.svc.Assign(ctx, AssignInput{DeliveryID: delivery.ID, DriverID: driver.ID, ActorID: admin.ID, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, enums.DeliveryStatusAssigned, assigned.Status)
	require.Equal(t, driver.ID, *assigned.DriverID)
	require.NotNil(t, assigned.AssignedAt)

	note := "collected at gate"
	for _, status := range []string{"PICKED_UP", "IN_TRANSIT", "DELIVERED"} {
		_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{DeliveryID: delivery.ID, Status: status, Note: &note, ActorID: driver.ID, ActorRole: enums.RoleDriver})
		require.NoError(t, err)
	}

	got, err := f.svc.Get(ctx, delivery.ID, driver.ID, enums.RoleDriver)
	require.NoError(t, err)
	require.Equal(t, enums.DeliveryStatusDelivered, got.Status)
	require.Len(t, got.History, 5)
	require.Equal(t, got.Status, got.History[len(got.History)-1].Status)

	mine, err := f.svc.ListForDriver(ctx, driver.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	var events int64
	require.NoError(t, f.client.DB().Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventDeliveryStatusChanged).Count(&events).Error)
	require.EqualValues(t, 4, events)
}

func TestAssignRejectsNonDrivers(t *testing.T) {
	f := newFixture(t)
	buyer := f.createUser(t, enums.RoleBuyer)
	delivery := f.createDelivery(t, buyer.ID)

	_, err := f.svc.Assign(context.Background(), AssignInput{DeliveryID: delivery.ID, DriverID: buyer.ID, ActorRole: enums.RoleAdmin})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	_, err = f.svc.Assign(context.Background(), AssignInput{DeliveryID: delivery.ID, DriverID: buyer.ID, ActorRole: enums.RoleBuyer})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Assign(context.Background(), AssignInput{DeliveryID: delivery.ID, DriverID: uuid.New(), ActorRole: enums.RoleAdmin})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateStatusEnforcesTransitionsAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.createUser(t, enums.RoleDriver)
	other := f.createUser(t, enums.RoleDriver)
	delivery := f.createDelivery(t, uuid.New())

	_, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{DeliveryID: delivery.ID, Status: "DELIVERED", ActorRole: enums.RoleAdmin})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))
	require.Equal(t, map[string]string{"from": "PENDING", "to": "DELIVERED"}, pkgerrors.As(err).Details())

	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{DeliveryID: delivery.ID, Status: "LOST", ActorRole: enums.RoleAdmin})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBadRequest))

	_, err = f.svc.Assign(ctx, AssignInput{DeliveryID: delivery.ID, DriverID: driver.ID, ActorRole: enums.RoleAdmin})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{DeliveryID: delivery.ID, Status: "PICKED_UP", ActorID: other.ID, ActorRole: enums.RoleDriver})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCancelIsNoopForTerminalDeliveries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	delivery := f.createDelivery(t, uuid.New())
	actor := uuid.New()

	cancel := func() error {
		return f.client.WithTx(ctx, func(tx *gorm.DB) error {
			return f.svc.Cancel(ctx, tx, delivery.ID, actor, "order cancelled")
		})
	}
	require.NoError(t, cancel())
	require.NoError(t, cancel())

	got, err := f.svc.Get(ctx, delivery.ID, uuid.Nil, enums.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, enums.DeliveryStatusCancelled, got.Status)
	require.Len(t, got.History, 2)
	require.Equal(t, "order cancelled", *got.History[1].Note)
}

func TestCancelStopsDeliveriesAlreadyOnTheRoad(t *testing.T) {
	for _, stage := range [][]string{{"PICKED_UP"}, {"PICKED_UP", "IN_TRANSIT"}} {
		t.Run(stage[len(stage)-1], func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			driver := f.createUser(t, enums.RoleDriver)
			delivery := f.createDelivery(t, uuid.New())

			_, err := f.svc.Assign(ctx, AssignInput{DeliveryID: delivery.ID, DriverID: driver.ID, ActorRole: enums.RoleAdmin})
			require.NoError(t, err)
			for _, status := range stage {
				_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{DeliveryID: delivery.ID, Status: status, ActorID: driver.ID, ActorRole: enums.RoleDriver})
				require.NoError(t, err)
			}

			err = f.client.WithTx(ctx, func(tx *gorm.DB) error {
				return f.svc.Cancel(ctx, tx, delivery.ID, uuid.New(), "order cancelled")
			})
			require.NoError(t, err)

			got, err := f.svc.Get(ctx, delivery.ID, uuid.Nil, enums.RoleAdmin)
			require.NoError(t, err)
			require.Equal(t, enums.DeliveryStatusCancelled, got.Status)
			require.Equal(t, enums.DeliveryStatusCancelled, got.History[len(got.History)-1].Status)
		})
	}
}
