package accounts

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campus-transit/internal"
)

// searchLimit caps the admin search so a short prefix cannot pull the
// whole directory.
const searchLimit = 10

// searchFilter matches a case-insensitive prefix of the first name, last
// name, "first last" concatenation or passenger type, plus exact id-number
// equality when the term is numeric.
func searchFilter(term string) bson.M {
	prefix := "^" + regexp.QuoteMeta(term)

	or := []bson.M{
		{"firstName": bson.M{"$regex": prefix, "$options": "i"}},
		{"lastName": bson.M{"$regex": prefix, "$options": "i"}},
		{"passengerType": bson.M{"$regex": prefix, "$options": "i"}},
		{"$expr": bson.M{"$regexMatch": bson.M{
			"input":   bson.M{"$concat": bson.A{"$firstName", " ", "$lastName"}},
			"regex":   prefix,
			"options": "i",
		}}},
	}

	if _, err := strconv.Atoi(term); err == nil {
		or = append(or, bson.M{"idNumber": term})
	}

	return bson.M{"$or": or}
}

// Search runs the admin directory lookup. Results carry no secret fields
// and come back in id-number order so equal-relevance hits stay stable.
func Search(term string, db *mongo.Database) ([]Account, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}

	opts := options.Find().
		SetProjection(secretless).
		SetSort(bson.D{{Key: "idNumber", Value: 1}}).
		SetLimit(searchLimit)

	cursor, err := db.Collection("accounts").Find(context.TODO(), searchFilter(term), opts)
	if err != nil {
		return nil, internal.StoreFailure(err)
	}

	var matches []Account
	for cursor.Next(context.Background()) {
		var account Account
		if err := cursor.Decode(&account); err != nil {
			return nil, err
		}
		matches = append(matches, account)
	}

	if err := cursor.Err(); err != nil {
		return nil, internal.StoreFailure(err)
	}

	return matches, nil
}
