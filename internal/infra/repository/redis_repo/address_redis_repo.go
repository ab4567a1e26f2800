package redis_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/redis/go-redis/v9"
)

// IAddressRedisRepository 已驗證地址快照的快取
type IAddressRedisRepository interface {
	// GetAddress 取得快取，不存在時回傳 ErrAddressCacheMiss
	GetAddress(ctx context.Context, userID, addressID string) (*model.Address, error)

	// SetAddress 寫入快取並設定存活時間
	SetAddress(ctx context.Context, userID string, addr model.Address, ttl time.Duration) error

	// DeleteAddress 移除快取
	DeleteAddress(ctx context.Context, userID, addressID string) error
}

var ErrAddressCacheMiss = errors.New("address cache miss")

/*	redis 只存已驗證過擁有者的地址
	key 帶上 userID，不同使用者不會共用同一份快取
	結構:
	address:{userID}:{addressID} -> json
*/

type AddressRedisRepo struct {
	addressCache *redis.Client
}

func NewAddressRedisRepo(addressCache *redis.Client) *AddressRedisRepo {
	return &AddressRedisRepo{addressCache: addressCache}
}

func generateAddressKey(userID, addressID string) string {
	return fmt.Sprintf("address:%s:%s", userID, addressID)
}

func (s *AddressRedisRepo) GetAddress(ctx context.Context, userID, addressID string) (*model.Address, error) {
	raw, err := s.addressCache.Get(ctx, generateAddressKey(userID, addressID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrAddressCacheMiss
		}
		return nil, err
	}

	var addr model.Address
	if err := json.Unmarshal(raw, &addr); err != nil {
		return nil, fmt.Errorf("decode cached address: %w", err)
	}
	return &addr, nil
}

func (s *AddressRedisRepo) SetAddress(ctx context.Context, userID string, addr model.Address, ttl time.Duration) error {
	if addr.ID == "" {
		return errors.New("cache address: address id is empty")
	}
	raw, err := json.Marshal(addr)
	if err != nil {
		return err
	}
	return s.addressCache.Set(ctx, generateAddressKey(userID, addr.ID), raw, ttl).Err()
}

func (s *AddressRedisRepo) DeleteAddress(ctx context.Context, userID, addressID string) error {
	return s.addressCache.Del(ctx, generateAddressKey(userID, addressID)).Err()
}
