package service

import (
	"github.com/RoyceAzure/lab/foodorder/internal/domain/model"
	"github.com/shopspring/decimal"
)

/*
AllocateAmount 將一筆總金額(運費或折扣)分攤到 parts 張訂單
以分為單位做整數運算，base = floor(cents / parts)
餘下的分從第一張訂單開始逐張加 1，所以各份加總必定等於原金額
金額最多到分(小數兩位)，更細的金額無法整除分攤，直接拒絕
*/
func AllocateAmount(amount decimal.Decimal, parts int) ([]decimal.Decimal, error) {
	if parts <= 0 {
		return nil, model.NewValidationError("parts", "must be greater than 0")
	}
	if amount.IsNegative() {
		return nil, model.NewValidationError("amount", "must be greater than or equal to 0")
	}
	if !HasCentPrecision(amount) {
		return nil, model.NewValidationError("amount", "must not have more than 2 decimal places")
	}
	if parts == 1 {
		return []decimal.Decimal{amount}, nil
	}

	totalCents := amount.Shift(2).IntPart()
	n := int64(parts)
	base := totalCents / n
	remainder := totalCents - base*n

	shares := make([]decimal.Decimal, parts)
	for i := range shares {
		cents := base
		if int64(i) < remainder {
			cents++
		}
		shares[i] = decimal.New(cents, -2)
	}
	return shares, nil
}

// HasCentPrecision 10.50 與 10.500 都算，10.005 不算
func HasCentPrecision(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(2))
}
