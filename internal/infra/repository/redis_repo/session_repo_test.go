package redis_repo

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

const (
	testRedisAddr     = "localhost:6379"
	testRedisPassword = "password"
)

type SessionRepoTestSuite struct {
	suite.Suite
	sessionRepo *SessionRepo
}

func setupTestRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     testRedisAddr,
		Password: testRedisPassword,
		DB:       1, // 用測試DB
	})
}

func (suite *SessionRepoTestSuite) SetupTest() {
	rdb := setupTestRedis()
	rdb.FlushDB(context.Background())
	suite.sessionRepo = NewSessionRepo(rdb, time.Hour)
}

func TestSessionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(SessionRepoTestSuite))
}

func (suite *SessionRepoTestSuite) TestSetAndGetCartID() {
	ctx := context.Background()

	err := suite.sessionRepo.SetCartID(ctx, "sess-1", "cart-123")
	assert.NoError(suite.T(), err)

	cartID, err := suite.sessionRepo.GetCartID(ctx, "sess-1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "cart-123", cartID)
}

func (suite *SessionRepoTestSuite) TestGetCartID_NotFound() {
	cartID, err := suite.sessionRepo.GetCartID(context.Background(), "no-such-session")
	assert.ErrorIs(suite.T(), err, ErrSessionCartNotFound)
	assert.Empty(suite.T(), cartID)
}

func (suite *SessionRepoTestSuite) TestSetCartID_Overwrite() {
	ctx := context.Background()

	suite.sessionRepo.SetCartID(ctx, "sess-1", "cart-123")
	suite.sessionRepo.SetCartID(ctx, "sess-1", "cart-456")

	cartID, err := suite.sessionRepo.GetCartID(ctx, "sess-1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "cart-456", cartID)
}

func (suite *SessionRepoTestSuite) TestClearCartID() {
	ctx := context.Background()

	suite.sessionRepo.SetCartID(ctx, "sess-1", "cart-123")
	err := suite.sessionRepo.ClearCartID(ctx, "sess-1")
	assert.NoError(suite.T(), err)

	_, err = suite.sessionRepo.GetCartID(ctx, "sess-1")
	assert.ErrorIs(suite.T(), err, ErrSessionCartNotFound)

	// 清不存在的key也不報錯
	assert.NoError(suite.T(), suite.sessionRepo.ClearCartID(ctx, "sess-1"))
}
