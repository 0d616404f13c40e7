package internal

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DatabaseConnection is the process-wide store handle. It is constructed
// once in main and handed to the router; nothing lazily connects.
type DatabaseConnection struct {
	URI         string
	DB          string
	MongoDB     *mongo.Database
	MongoClient *mongo.Client
	Logger      *logrus.Logger
}

func (d *DatabaseConnection) Connect() {
	var err error
	session := options.Client().ApplyURI(d.URI)
	d.MongoClient, err = mongo.Connect(context.TODO(), session)
	if err != nil {
		d.Logger.Fatal(err)
	}
	d.MongoDB = d.MongoClient.Database(d.DB)
	d.Logger.Infof("Successfully connected to database: %s", d.DB)
}

func (d *DatabaseConnection) Disconnect() {
	if d.MongoClient == nil {
		return
	}
	if err := d.MongoClient.Disconnect(context.TODO()); err != nil {
		d.Logger.Error(err)
	}
}
