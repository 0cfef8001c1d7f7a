package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type OrderRepoTestSuite struct {
	suite.Suite
	db        *gorm.DB
	orderRepo *OrderRepo
}

func (suite *OrderRepoTestSuite) SetupSuite() {
	db, err := GetDbConn(ConnOpts{
		DbName: "lab_shopcore", Host: "localhost", Port: "5432",
		User: "royce", Password: "password",
	})
	require.NoError(suite.T(), err)
	dbDao := NewDbDao(db)
	require.NoError(suite.T(), dbDao.InitMigrate())

	suite.db = db
	suite.orderRepo = NewOrderRepo(dbDao)
}

func (suite *OrderRepoTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM order_items")
	suite.db.Exec("DELETE FROM orders")
}

func (suite *OrderRepoTestSuite) TearDownSuite() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *OrderRepoTestSuite) createTestOrder(userID int, number string) *model.Order {
	order := &model.Order{
		OrderID:   uuid.NewString(),
		Number:    number,
		UserID:    userID,
		Status:    model.OrderStatusPending,
		Amount:    decimal.NewFromInt(100),
		OrderDate: time.Now(),
		OrderItems: []model.OrderItem{
			{ProductID: "PROD-1", Quantity: 2, UnitPrice: decimal.NewFromInt(50)},
		},
	}
	order.OrderItems[0].OrderID = order.OrderID
	require.NoError(suite.T(), suite.orderRepo.CreateOrder(context.Background(), order))
	return order
}

func (suite *OrderRepoTestSuite) TestCreateOrder_WritesItems() {
	order := suite.createTestOrder(7, "GB-TEST0001")

	got, err := suite.orderRepo.GetOrderByID(context.Background(), order.OrderID)
	require.NoError(suite.T(), err)
	suite.Len(got.OrderItems, 1)
	suite.Equal(2, got.OrderItems[0].Quantity)
	suite.False(got.CreatedAt.IsZero())
}

func (suite *OrderRepoTestSuite) TestGetOrderByID_NotFound() {
	_, err := suite.orderRepo.GetOrderByID(context.Background(), uuid.NewString())
	require.ErrorIs(suite.T(), err, ErrOrderNotFound)
}

func (suite *OrderRepoTestSuite) TestGetOrderByNumber() {
	order := suite.createTestOrder(7, "GB-TEST0001")

	got, err := suite.orderRepo.GetOrderByNumber(context.Background(), "GB-TEST0001")
	require.NoError(suite.T(), err)
	suite.Equal(order.OrderID, got.OrderID)

	_, err = suite.orderRepo.GetOrderByNumber(context.Background(), "GB-NOPE")
	require.ErrorIs(suite.T(), err, ErrOrderNotFound)
}

func (suite *OrderRepoTestSuite) TestGetOrdersByUserID() {
	suite.createTestOrder(7, "GB-TEST0001")
	suite.createTestOrder(7, "GB-TEST0002")
	suite.createTestOrder(8, "GB-TEST0003")

	orders, err := suite.orderRepo.GetOrdersByUserID(context.Background(), 7)
	require.NoError(suite.T(), err)
	suite.Len(orders, 2)
}

func (suite *OrderRepoTestSuite) TestGetOrdersPaginated() {
	for i := 0; i < 5; i++ {
		suite.createTestOrder(7, fmt.Sprintf("GB-TEST%04d", i))
	}

	orders, total, err := suite.orderRepo.GetOrdersPaginated(context.Background(), 1, 2)
	require.NoError(suite.T(), err)
	suite.Equal(int64(5), total)
	suite.Len(orders, 2)

	orders, total, err = suite.orderRepo.GetOrdersPaginated(context.Background(), 3, 2)
	require.NoError(suite.T(), err)
	suite.Equal(int64(5), total)
	suite.Len(orders, 1)
}

func (suite *OrderRepoTestSuite) TestUpdateOrder_StatusTransition() {
	order := suite.createTestOrder(7, "GB-TEST0001")
	order.MarkPaid()
	require.NoError(suite.T(), suite.orderRepo.UpdateOrder(context.Background(), order))

	got, err := suite.orderRepo.GetOrderByID(context.Background(), order.OrderID)
	require.NoError(suite.T(), err)
	suite.Equal(model.OrderStatusPaid, got.Status)
}

func (suite *OrderRepoTestSuite) TestGetOrderItems() {
	order := suite.createTestOrder(7, "GB-TEST0001")

	items, err := suite.orderRepo.GetOrderItems(context.Background(), order.OrderID)
	require.NoError(suite.T(), err)
	suite.Len(items, 1)
	suite.Equal("PROD-1", items[0].ProductID)
}

func TestOrderRepoTestSuite(t *testing.T) {
	suite.Run(t, new(OrderRepoTestSuite))
}
