package db

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/RoyceAzure/lab/shopcore/internal/domain/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type InventoryRepoTestSuite struct {
	suite.Suite
	db            *gorm.DB
	inventoryRepo *InventoryRepo
	productRepo   *ProductRepo
}

// SetupSuite 在測試套件開始前執行
func (suite *InventoryRepoTestSuite) SetupSuite() {
	db, err := GetDbConn(ConnOpts{
		DbName: "lab_shopcore", Host: "localhost", Port: "5432",
		User: "royce", Password: "password",
	})
	require.NoError(suite.T(), err)
	dbDao := NewDbDao(db)
	require.NoError(suite.T(), dbDao.InitMigrate())

	suite.db = db
	suite.inventoryRepo = NewInventoryRepo(dbDao)
	suite.productRepo = NewProductRepo(dbDao)
}

// SetupTest 在每個測試前執行
func (suite *InventoryRepoTestSuite) SetupTest() {
	// 清空資料表
	suite.db.Exec("DELETE FROM inventory_records")
	suite.db.Exec("DELETE FROM products")
}

// TearDownSuite 在測試套件結束後執行
func (suite *InventoryRepoTestSuite) TearDownSuite() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

// 創建測試用的商品與庫存
func (suite *InventoryRepoTestSuite) createTestProduct(productID string, stock int) *model.Product {
	product := &model.Product{
		ProductID: productID,
		Code:      fmt.Sprintf("CODE-%s", productID),
		Name:      fmt.Sprintf("Test Product %s", productID),
		Price:     decimal.NewFromInt(100),
		Active:    true,
	}
	err := suite.productRepo.CreateProduct(context.Background(), product)
	require.NoError(suite.T(), err)

	if stock > 0 {
		_, err = suite.inventoryRepo.AddStock(context.Background(), productID, stock)
		require.NoError(suite.T(), err)
	}
	return product
}

func (suite *InventoryRepoTestSuite) getRecord(productID string) *model.InventoryRecord {
	record, err := suite.inventoryRepo.GetByProductID(context.Background(), productID)
	require.NoError(suite.T(), err)
	return record
}

func (suite *InventoryRepoTestSuite) TestReserve() {
	suite.createTestProduct("PROD-1", 10)

	err := suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 4)

	require.NoError(suite.T(), err)
	record := suite.getRecord("PROD-1")
	suite.Equal(10, record.Stock)
	suite.Equal(4, record.Reserved)
	suite.Equal(6, record.Available())
}

func (suite *InventoryRepoTestSuite) TestReserve_InsufficientStock() {
	suite.createTestProduct("PROD-1", 3)

	err := suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 4)

	require.ErrorIs(suite.T(), err, ErrInsufficientStock)
	record := suite.getRecord("PROD-1")
	suite.Equal(0, record.Reserved)
}

func (suite *InventoryRepoTestSuite) TestReserve_ZeroIsNoop() {
	suite.createTestProduct("PROD-1", 3)

	require.NoError(suite.T(), suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 0))
	require.NoError(suite.T(), suite.inventoryRepo.Reserve(context.Background(), "PROD-1", -1))

	record := suite.getRecord("PROD-1")
	suite.Equal(0, record.Reserved)
}

func (suite *InventoryRepoTestSuite) TestReserve_NotFound() {
	err := suite.inventoryRepo.Reserve(context.Background(), "NON-EXISTENT", 1)
	require.ErrorIs(suite.T(), err, ErrInventoryNotFound)
}

func (suite *InventoryRepoTestSuite) TestReleaseRestoresAvailable() {
	suite.createTestProduct("PROD-1", 10)
	require.NoError(suite.T(), suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 4))

	err := suite.inventoryRepo.Release(context.Background(), "PROD-1", 4)

	require.NoError(suite.T(), err)
	record := suite.getRecord("PROD-1")
	suite.Equal(10, record.Stock)
	suite.Equal(0, record.Reserved)
}

func (suite *InventoryRepoTestSuite) TestRelease_ClampsAtZero() {
	suite.createTestProduct("PROD-1", 10)
	require.NoError(suite.T(), suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 2))

	// 釋放超過已預留量，reserved停在0而不是變負數
	err := suite.inventoryRepo.Release(context.Background(), "PROD-1", 5)

	require.NoError(suite.T(), err)
	record := suite.getRecord("PROD-1")
	suite.Equal(0, record.Reserved)
	suite.Equal(10, record.Stock)
}

func (suite *InventoryRepoTestSuite) TestCommit() {
	suite.createTestProduct("PROD-1", 10)
	require.NoError(suite.T(), suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 4))

	err := suite.inventoryRepo.Commit(context.Background(), "PROD-1", 4)

	require.NoError(suite.T(), err)
	record := suite.getRecord("PROD-1")
	suite.Equal(6, record.Stock)
	suite.Equal(0, record.Reserved)
	suite.Equal(6, record.Available())
}

func (suite *InventoryRepoTestSuite) TestCommit_FallbackWithoutReservation() {
	suite.createTestProduct("PROD-1", 10)

	// 沒有預留直接扣庫存，模擬跳過AUTHORIZED的回報
	err := suite.inventoryRepo.Commit(context.Background(), "PROD-1", 3)

	require.NoError(suite.T(), err)
	record := suite.getRecord("PROD-1")
	suite.Equal(7, record.Stock)
	suite.Equal(0, record.Reserved)
}

// 預留不足的捕獲: 扣庫存之外reserved也要夾到0，不能留下reserved > stock
func (suite *InventoryRepoTestSuite) TestCommit_FallbackClampsReserved() {
	suite.createTestProduct("PROD-1", 5)
	require.NoError(suite.T(), suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 3))

	err := suite.inventoryRepo.Commit(context.Background(), "PROD-1", 4)

	require.NoError(suite.T(), err)
	record := suite.getRecord("PROD-1")
	suite.Equal(1, record.Stock)
	suite.Equal(0, record.Reserved)
	suite.LessOrEqual(record.Reserved, record.Stock)
}

func (suite *InventoryRepoTestSuite) TestCommit_FallbackInsufficientStock() {
	suite.createTestProduct("PROD-1", 2)

	err := suite.inventoryRepo.Commit(context.Background(), "PROD-1", 3)

	require.ErrorIs(suite.T(), err, ErrInsufficientStock)
	record := suite.getRecord("PROD-1")
	suite.Equal(2, record.Stock)
}

func (suite *InventoryRepoTestSuite) TestAddStock() {
	suite.createTestProduct("PROD-1", 0)

	stock, err := suite.inventoryRepo.AddStock(context.Background(), "PROD-1", 5)
	require.NoError(suite.T(), err)
	suite.Equal(5, stock)

	stock, err = suite.inventoryRepo.AddStock(context.Background(), "PROD-1", 3)
	require.NoError(suite.T(), err)
	suite.Equal(8, stock)
}

func (suite *InventoryRepoTestSuite) TestAvailable() {
	suite.createTestProduct("PROD-1", 10)
	require.NoError(suite.T(), suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 3))

	available, err := suite.inventoryRepo.Available(context.Background(), "PROD-1")

	require.NoError(suite.T(), err)
	suite.Equal(7, available)
}

// 併發預留只允許湊滿可售量的請求成功，reserved不會超過stock
func (suite *InventoryRepoTestSuite) TestReserve_Concurrent() {
	suite.createTestProduct("PROD-1", 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := suite.inventoryRepo.Reserve(context.Background(), "PROD-1", 1); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	suite.Equal(10, successCount)
	record := suite.getRecord("PROD-1")
	suite.Equal(10, record.Reserved)
	suite.Equal(10, record.Stock)
}

func TestInventoryRepoTestSuite(t *testing.T) {
	suite.Run(t, new(InventoryRepoTestSuite))
}
