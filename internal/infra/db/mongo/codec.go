package mongo

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"acropolis/internal/domain/shared/money"
)

// Amounts are stored as Decimal128 so aggregations stay exact.

type moneyDocument struct {
	Amount   primitive.Decimal128 `bson:"amount"`
	Currency string               `bson:"currency"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	out, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return out
}

func fromDecimal128(d primitive.Decimal128) decimal.Decimal {
	out, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return out
}

func newMoneyDocument(m money.Money) moneyDocument {
	return moneyDocument{Amount: toDecimal128(m.Amount), Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: fromDecimal128(d.Amount).Round(money.Places), Currency: d.Currency}
}

func utc(t time.Time) time.Time {
	return t.UTC()
}
