package redis_repo

import (
	"context"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type AddressRepoTestSuite struct {
	suite.Suite
	mr          *miniredis.Miniredis
	rdb         *redis.Client
	addressRepo *AddressRedisRepo
}

func (suite *AddressRepoTestSuite) SetupTest() {
	suite.mr = miniredis.RunT(suite.T())
	suite.rdb = redis.NewClient(&redis.Options{Addr: suite.mr.Addr()})
	suite.addressRepo = NewAddressRedisRepo(suite.rdb)
}

func (suite *AddressRepoTestSuite) TearDownTest() {
	suite.rdb.Close()
}

func TestAddressRepoTestSuite(t *testing.T) {
	suite.Run(t, new(AddressRepoTestSuite))
}

func (suite *AddressRepoTestSuite) TestSetGetDelete() {
	ctx := context.Background()
	addr := model.Address{ID: "addr-1", UserID: "user-1", Street: "12 Le Loi", City: "HCMC"}

	err := suite.addressRepo.SetAddress(ctx, "user-1", addr, time.Minute)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), suite.mr.Exists("address:user-1:addr-1"))
	assert.Equal(suite.T(), time.Minute, suite.mr.TTL("address:user-1:addr-1"))

	got, err := suite.addressRepo.GetAddress(ctx, "user-1", "addr-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), addr, *got)

	// 其他使用者讀不到
	_, err = suite.addressRepo.GetAddress(ctx, "user-2", "addr-1")
	assert.ErrorIs(suite.T(), err, ErrAddressCacheMiss)

	require.NoError(suite.T(), suite.addressRepo.DeleteAddress(ctx, "user-1", "addr-1"))
	_, err = suite.addressRepo.GetAddress(ctx, "user-1", "addr-1")
	assert.ErrorIs(suite.T(), err, ErrAddressCacheMiss)
}

func (suite *AddressRepoTestSuite) TestExpiry() {
	ctx := context.Background()
	addr := model.Address{ID: "addr-1", Street: "12 Le Loi"}
	require.NoError(suite.T(), suite.addressRepo.SetAddress(ctx, "user-1", addr, time.Minute))

	suite.mr.FastForward(2 * time.Minute)
	_, err := suite.addressRepo.GetAddress(ctx, "user-1", "addr-1")
	assert.ErrorIs(suite.T(), err, ErrAddressCacheMiss)
}

func (suite *AddressRepoTestSuite) TestSetWithoutID() {
	err := suite.addressRepo.SetAddress(context.Background(), "user-1", model.Address{Street: "x"}, time.Minute)
	assert.Error(suite.T(), err)
}

func (suite *AddressRepoTestSuite) TestCorruptedValue() {
	require.NoError(suite.T(), suite.mr.Set("address:user-1:addr-1", "{not json"))
	_, err := suite.addressRepo.GetAddress(context.Background(), "user-1", "addr-1")
	assert.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, ErrAddressCacheMiss)
}
