package redis_decorator

import (
	"context"
	"errors"
	"time"

	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/RoyceAzure/lab/foodorder/internal/infra/repository/redis_repo"
	"github.com/rs/zerolog"
)

type AddressResolver interface {
	Resolve(ctx context.Context, addressID string, caller model.CallerAuth) (*model.Address, error)
}

/*
地址查詢加上 redis cache-aside
只快取查詢成功且擁有者相符的結果，not found / forbidden 不快取
redis 故障時直接走遠端查詢，不影響結帳
命中快取時不會再向地址服務確認，已刪除或換主的地址最多在 ttl 內仍可使用
*/
type CacheAsideAddressResolver struct {
	AddressResolver
	redis  redis_repo.IAddressRedisRepository
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewCacheAsideAddressResolver(next AddressResolver, redis redis_repo.IAddressRedisRepository, ttl time.Duration, logger *zerolog.Logger) *CacheAsideAddressResolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CacheAsideAddressResolver{AddressResolver: next, redis: redis, ttl: ttl, logger: logger}
}

func (r *CacheAsideAddressResolver) Resolve(ctx context.Context, addressID string, caller model.CallerAuth) (*model.Address, error) {
	cached, err := r.redis.GetAddress(ctx, caller.UserID, addressID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis_repo.ErrAddressCacheMiss) {
		r.logger.Warn().Err(err).Str("address_id", addressID).Msg("address cache read failed")
	}

	addr, err := r.AddressResolver.Resolve(ctx, addressID, caller)
	if err != nil || addr == nil {
		return addr, err
	}

	toCache := *addr
	if toCache.ID == "" {
		toCache.ID = addressID
	}
	if err := r.redis.SetAddress(ctx, caller.UserID, toCache, r.ttl); err != nil {
		r.logger.Warn().Err(err).Str("address_id", addressID).Msg("address cache write failed")
	}
	return addr, nil
}
