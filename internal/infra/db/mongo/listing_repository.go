package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
)

type ListingRepository struct {
	listings  *mongo.Collection
	overrides *mongo.Collection
	seasons   *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	r := &ListingRepository{
		listings:  db.Collection("listings"),
		overrides: db.Collection("listing_price_overrides"),
		seasons:   db.Collection("listing_seasonal_prices"),
	}
	ctx := context.Background()
	_, _ = r.overrides.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = r.seasons.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "start_date", Value: 1}},
	})
	return r
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.listings.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("listing %s: %w", id, domainerr.ErrNotFound)
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlistings.Listing) error {
	doc := newListingDocument(l)
	_, err := r.listings.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

// Lock bumps a counter on the listing document. Concurrent transactions that
// lock the same listing hit a write conflict, so one of them retries or fails.
func (r *ListingRepository) Lock(ctx context.Context, id domainlistings.ListingID) error {
	res, err := r.listings.UpdateByID(ctx, string(id), bson.M{"$inc": bson.M{"lock_seq": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("listing %s: %w", id, domainerr.ErrNotFound)
	}
	return nil
}

func (r *ListingRepository) Overrides(ctx context.Context, id domainlistings.ListingID, dr daterange.DateRange) ([]domainlistings.PriceOverride, error) {
	filter := bson.M{
		"listing_id": string(id),
		"date":       bson.M{"$gte": dr.CheckIn, "$lt": dr.CheckOut},
	}
	cur, err := r.overrides.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []overrideDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainlistings.PriceOverride, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainlistings.PriceOverride{
			ListingID: domainlistings.ListingID(d.ListingID),
			Date:      utc(d.Date),
			Price:     d.Price.toMoney(),
		})
	}
	return out, nil
}

func (r *ListingRepository) Seasons(ctx context.Context, id domainlistings.ListingID, dr daterange.DateRange) ([]domainlistings.SeasonalPrice, error) {
	filter := bson.M{
		"listing_id": string(id),
		"start_date": bson.M{"$lt": dr.CheckOut},
		"end_date":   bson.M{"$gt": dr.CheckIn},
	}
	cur, err := r.seasons.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []seasonDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainlistings.SeasonalPrice, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainlistings.SeasonalPrice{
			ID:        d.ID,
			ListingID: domainlistings.ListingID(d.ListingID),
			StartDate: utc(d.StartDate),
			EndDate:   utc(d.EndDate),
			Price:     d.Price.toMoney(),
			CreatedAt: utc(d.CreatedAt),
		})
	}
	domainlistings.OrderSeasons(out)
	return out, nil
}

func (r *ListingRepository) SaveOverride(ctx context.Context, o domainlistings.PriceOverride) error {
	filter := bson.M{"listing_id": string(o.ListingID), "date": o.Date}
	update := bson.M{"$set": bson.M{"price": newMoneyDocument(o.Price)}}
	_, err := r.overrides.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *ListingRepository) SaveSeason(ctx context.Context, s domainlistings.SeasonalPrice) error {
	doc := seasonDocument{
		ID:        s.ID,
		ListingID: string(s.ListingID),
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
		Price:     newMoneyDocument(s.Price),
		CreatedAt: s.CreatedAt,
	}
	_, err := r.seasons.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type listingDocument struct {
	ID                       string               `bson:"_id"`
	Title                    string               `bson:"title"`
	Currency                 string               `bson:"currency"`
	NightlyPrice             moneyDocument        `bson:"nightly_price"`
	VATRate                  primitive.Decimal128 `bson:"vat_rate"`
	MunicipalityTaxRate      primitive.Decimal128 `bson:"municipality_tax_rate"`
	ClimateCrisisFeePerNight moneyDocument        `bson:"climate_crisis_fee_per_night"`
	CleaningFee              moneyDocument        `bson:"cleaning_fee"`
	ServiceFeeRate           primitive.Decimal128 `bson:"service_fee_rate"`
	MaxGuests                int                  `bson:"max_guests"`
	MaxAdults                int                  `bson:"max_adults"`
	MaxChildren              int                  `bson:"max_children"`
	CreatedAt                time.Time            `bson:"created_at"`
	UpdatedAt                time.Time            `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:                       string(l.ID),
		Title:                    l.Title,
		Currency:                 l.Currency,
		NightlyPrice:             newMoneyDocument(l.NightlyPrice),
		VATRate:                  toDecimal128(l.VATRate),
		MunicipalityTaxRate:      toDecimal128(l.MunicipalityTaxRate),
		ClimateCrisisFeePerNight: newMoneyDocument(l.ClimateCrisisFeePerNight),
		CleaningFee:              newMoneyDocument(l.CleaningFee),
		ServiceFeeRate:           toDecimal128(l.ServiceFeeRate),
		MaxGuests:                l.MaxGuests,
		MaxAdults:                l.MaxAdults,
		MaxChildren:              l.MaxChildren,
		CreatedAt:                l.CreatedAt,
		UpdatedAt:                l.UpdatedAt,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:                       domainlistings.ListingID(d.ID),
		Title:                    d.Title,
		Currency:                 d.Currency,
		NightlyPrice:             d.NightlyPrice.toMoney(),
		VATRate:                  fromDecimal128(d.VATRate),
		MunicipalityTaxRate:      fromDecimal128(d.MunicipalityTaxRate),
		ClimateCrisisFeePerNight: d.ClimateCrisisFeePerNight.toMoney(),
		CleaningFee:              d.CleaningFee.toMoney(),
		ServiceFeeRate:           fromDecimal128(d.ServiceFeeRate),
		MaxGuests:                d.MaxGuests,
		MaxAdults:                d.MaxAdults,
		MaxChildren:              d.MaxChildren,
		CreatedAt:                utc(d.CreatedAt),
		UpdatedAt:                utc(d.UpdatedAt),
	}
}

type overrideDocument struct {
	ListingID string        `bson:"listing_id"`
	Date      time.Time     `bson:"date"`
	Price     moneyDocument `bson:"price"`
}

type seasonDocument struct {
	ID        string        `bson:"_id"`
	ListingID string        `bson:"listing_id"`
	StartDate time.Time     `bson:"start_date"`
	EndDate   time.Time     `bson:"end_date"`
	Price     moneyDocument `bson:"price"`
	CreatedAt time.Time     `bson:"created_at"`
}

var _ domainlistings.Repository = (*ListingRepository)(nil)
