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

	domainbooking "acropolis/internal/domain/booking"
	"acropolis/internal/domain/listings"
	domainpricing "acropolis/internal/domain/pricing"
	"acropolis/internal/domain/shared/daterange"
	"acropolis/internal/domain/shared/domainerr"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("bookings")
	ctx := context.Background()
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "check_in", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("booking %s: %w", id, domainerr.ErrNotFound)
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	if doc.Discount == nil {
		update["$unset"] = bson.M{"discount": ""}
	}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id domainbooking.BookingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("booking %s: %w", id, domainerr.ErrNotFound)
	}
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	query := bson.M{}
	if filter.ListingID != "" {
		query["listing_id"] = string(filter.ListingID)
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return r.find(ctx, query, opts)
}

func (r *BookingRepository) Overlapping(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange, exclude domainbooking.BookingID) ([]*domainbooking.Booking, error) {
	query := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"check_in":   bson.M{"$lt": dr.CheckOut},
		"check_out":  bson.M{"$gt": dr.CheckIn},
	}
	if exclude != "" {
		query["_id"] = bson.M{"$ne": string(exclude)}
	}
	return r.find(ctx, query, options.Find())
}

func (r *BookingRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"reference": reference}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *BookingRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type bookingDocument struct {
	ID        string            `bson:"_id"`
	Reference string            `bson:"reference"`
	ListingID string            `bson:"listing_id"`
	Guest     guestDocument     `bson:"guest"`
	CheckIn   time.Time         `bson:"check_in"`
	CheckOut  time.Time         `bson:"check_out"`
	Adults    int               `bson:"adults"`
	Children  int               `bson:"children"`
	Status    string            `bson:"status"`
	Pricing   string            `bson:"pricing_state"`
	Price     breakdownDocument `bson:"price"`
	Discount  *discountDocument `bson:"discount,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
	Version   int64             `bson:"version"`
}

type guestDocument struct {
	FirstName   string `bson:"first_name"`
	LastName    string `bson:"last_name"`
	Email       string `bson:"email"`
	PhoneNumber string `bson:"phone_number,omitempty"`
	Message     string `bson:"message,omitempty"`
	Language    string `bson:"language"`
}

type breakdownDocument struct {
	Nights              int                  `bson:"nights"`
	Subtotal            moneyDocument        `bson:"subtotal"`
	DiscountAmount      moneyDocument        `bson:"discount_amount"`
	VAT                 moneyDocument        `bson:"vat"`
	MunicipalityTax     moneyDocument        `bson:"municipality_tax"`
	ClimateCrisisFee    moneyDocument        `bson:"climate_crisis_fee"`
	CleaningFee         moneyDocument        `bson:"cleaning_fee"`
	ServiceFee          moneyDocument        `bson:"service_fee"`
	Total               moneyDocument        `bson:"total"`
	VATRate             primitive.Decimal128 `bson:"vat_rate"`
	MunicipalityTaxRate primitive.Decimal128 `bson:"municipality_tax_rate"`
	ServiceFeeRate      primitive.Decimal128 `bson:"service_fee_rate"`
	Nightly             []nightlyDocument    `bson:"nightly"`
}

type nightlyDocument struct {
	Date  time.Time     `bson:"date"`
	Price moneyDocument `bson:"price"`
}

type discountDocument struct {
	Type      string               `bson:"type"`
	Value     primitive.Decimal128 `bson:"value"`
	Amount    moneyDocument        `bson:"amount"`
	Reason    string               `bson:"reason,omitempty"`
	AppliedBy string               `bson:"applied_by"`
	AppliedAt time.Time            `bson:"applied_at"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	doc := bookingDocument{
		ID:        string(b.ID),
		Reference: b.Reference,
		ListingID: string(b.ListingID),
		Guest: guestDocument{
			FirstName:   b.Guest.FirstName,
			LastName:    b.Guest.LastName,
			Email:       b.Guest.Email,
			PhoneNumber: b.Guest.PhoneNumber,
			Message:     b.Guest.Message,
			Language:    string(b.Guest.Language),
		},
		CheckIn:   b.Range.CheckIn,
		CheckOut:  b.Range.CheckOut,
		Adults:    b.Adults,
		Children:  b.Children,
		Status:    string(b.Status),
		Pricing:   string(b.Pricing),
		Price:     newBreakdownDocument(b.Price),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
		Version:   b.Version,
	}
	if b.Discount != nil {
		doc.Discount = &discountDocument{
			Type:      string(b.Discount.Type),
			Value:     toDecimal128(b.Discount.Value),
			Amount:    newMoneyDocument(b.Discount.Amount),
			Reason:    b.Discount.Reason,
			AppliedBy: b.Discount.AppliedBy,
			AppliedAt: b.Discount.AppliedAt,
		}
	}
	return doc
}

func newBreakdownDocument(p domainpricing.PriceBreakdown) breakdownDocument {
	doc := breakdownDocument{
		Nights:              p.Nights,
		Subtotal:            newMoneyDocument(p.Subtotal),
		DiscountAmount:      newMoneyDocument(p.DiscountAmount),
		VAT:                 newMoneyDocument(p.VAT),
		MunicipalityTax:     newMoneyDocument(p.MunicipalityTax),
		ClimateCrisisFee:    newMoneyDocument(p.ClimateCrisisFee),
		CleaningFee:         newMoneyDocument(p.CleaningFee),
		ServiceFee:          newMoneyDocument(p.ServiceFee),
		Total:               newMoneyDocument(p.Total),
		VATRate:             toDecimal128(p.Rates.VATRate),
		MunicipalityTaxRate: toDecimal128(p.Rates.MunicipalityTaxRate),
		ServiceFeeRate:      toDecimal128(p.Rates.ServiceFeeRate),
		Nightly:             make([]nightlyDocument, 0, len(p.Nightly)),
	}
	for _, n := range p.Nightly {
		doc.Nightly = append(doc.Nightly, nightlyDocument{Date: n.Date, Price: newMoneyDocument(n.Price)})
	}
	return doc
}

func (d breakdownDocument) toBreakdown() domainpricing.PriceBreakdown {
	p := domainpricing.PriceBreakdown{
		Nights:           d.Nights,
		Subtotal:         d.Subtotal.toMoney(),
		DiscountAmount:   d.DiscountAmount.toMoney(),
		VAT:              d.VAT.toMoney(),
		MunicipalityTax:  d.MunicipalityTax.toMoney(),
		ClimateCrisisFee: d.ClimateCrisisFee.toMoney(),
		CleaningFee:      d.CleaningFee.toMoney(),
		ServiceFee:       d.ServiceFee.toMoney(),
		Total:            d.Total.toMoney(),
		Rates: domainpricing.Rates{
			VATRate:             fromDecimal128(d.VATRate),
			MunicipalityTaxRate: fromDecimal128(d.MunicipalityTaxRate),
			ServiceFeeRate:      fromDecimal128(d.ServiceFeeRate),
		},
	}
	for _, n := range d.Nightly {
		p.Nightly = append(p.Nightly, domainpricing.NightlyRate{Date: utc(n.Date), Price: n.Price.toMoney()})
	}
	return p
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	agg := &domainbooking.Booking{
		ID:        domainbooking.BookingID(d.ID),
		Reference: d.Reference,
		ListingID: listings.ListingID(d.ListingID),
		Guest: domainbooking.Guest{
			FirstName:   d.Guest.FirstName,
			LastName:    d.Guest.LastName,
			Email:       d.Guest.Email,
			PhoneNumber: d.Guest.PhoneNumber,
			Message:     d.Guest.Message,
			Language:    domainbooking.Language(d.Guest.Language),
		},
		Range:     daterange.Between(d.CheckIn, d.CheckOut),
		Adults:    d.Adults,
		Children:  d.Children,
		Status:    domainbooking.Status(d.Status),
		Pricing:   domainbooking.PricingState(d.Pricing),
		Price:     d.Price.toBreakdown(),
		CreatedAt: utc(d.CreatedAt),
		UpdatedAt: utc(d.UpdatedAt),
		Version:   d.Version,
	}
	if d.Discount != nil {
		agg.Discount = &domainpricing.Discount{
			Type:      domainpricing.DiscountType(d.Discount.Type),
			Value:     fromDecimal128(d.Discount.Value),
			Amount:    d.Discount.Amount.toMoney(),
			Reason:    d.Discount.Reason,
			AppliedBy: d.Discount.AppliedBy,
			AppliedAt: utc(d.Discount.AppliedAt),
		}
	}
	return agg
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
