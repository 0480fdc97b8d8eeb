package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "acropolis/internal/domain/booking"
	"acropolis/internal/domain/listings"
	"acropolis/internal/domain/shared/daterange"
)

// NightRepository stores one document per booked night. Cancelled bookings
// keep their rows; readers filter them through the bookings collection.
type NightRepository struct {
	nights   *mongo.Collection
	bookings *mongo.Collection
}

func NewNightRepository(db *mongo.Database) *NightRepository {
	col := db.Collection("booking_nights")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "date", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "date", Value: 1}}},
	})
	return &NightRepository{nights: col, bookings: db.Collection("bookings")}
}

func (r *NightRepository) ReplaceForBooking(ctx context.Context, id domainbooking.BookingID, nights []domainbooking.Night) error {
	if err := r.DeleteForBooking(ctx, id); err != nil {
		return err
	}
	if len(nights) == 0 {
		return nil
	}
	docs := make([]any, 0, len(nights))
	for _, n := range nights {
		docs = append(docs, nightDocument{
			BookingID: string(n.BookingID),
			ListingID: string(n.ListingID),
			Date:      n.Date,
			Price:     newMoneyDocument(n.Price),
		})
	}
	_, err := r.nights.InsertMany(ctx, docs)
	return err
}

func (r *NightRepository) DeleteForBooking(ctx context.Context, id domainbooking.BookingID) error {
	_, err := r.nights.DeleteMany(ctx, bson.M{"booking_id": string(id)})
	return err
}

func (r *NightRepository) ForBooking(ctx context.Context, id domainbooking.BookingID) ([]domainbooking.Night, error) {
	cur, err := r.nights.Find(ctx, bson.M{"booking_id": string(id)}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []nightDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainbooking.Night, 0, len(docs))
	for _, d := range docs {
		out = append(out, domainbooking.Night{
			BookingID: domainbooking.BookingID(d.BookingID),
			ListingID: listings.ListingID(d.ListingID),
			Date:      utc(d.Date),
			Price:     d.Price.toMoney(),
		})
	}
	return out, nil
}

func (r *NightRepository) BookedDates(ctx context.Context, listingID listings.ListingID, dr daterange.DateRange) ([]time.Time, error) {
	return r.booked(ctx, listingID, bson.M{"$gte": dr.CheckIn, "$lt": dr.CheckOut})
}

func (r *NightRepository) AllBookedDates(ctx context.Context, listingID listings.ListingID) ([]time.Time, error) {
	return r.booked(ctx, listingID, nil)
}

func (r *NightRepository) booked(ctx context.Context, listingID listings.ListingID, dates bson.M) ([]time.Time, error) {
	ids, err := r.bookings.Distinct(ctx, "_id", bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$ne": string(domainbooking.StatusCancelled)},
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []time.Time{}, nil
	}
	filter := bson.M{"booking_id": bson.M{"$in": ids}}
	if dates != nil {
		filter["date"] = dates
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}}).SetProjection(bson.M{"date": 1})
	cur, err := r.nights.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []nightDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(docs))
	for _, d := range docs {
		out = append(out, utc(d.Date))
	}
	return out, nil
}

type nightDocument struct {
	BookingID string        `bson:"booking_id"`
	ListingID string        `bson:"listing_id"`
	Date      time.Time     `bson:"date"`
	Price     moneyDocument `bson:"price"`
}

var _ domainbooking.NightRepository = (*NightRepository)(nil)
