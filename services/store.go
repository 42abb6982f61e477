package services

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func optionsFindSort(sort bson.D) *options.FindOptions {
	return options.Find().SetSort(sort)
}
