package ddb

import (
	"context"
	"errors"
	"fmt"
	"fqlrun/internal/types"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	log "github.com/sirupsen/logrus"
)

const (
	SSettings = "SETTINGS"
	SKey      = "KEY"
)

func pkSettings(profile string) string { return fmt.Sprintf("%s#%s", SSettings, profile) }
func skKey(key string) string          { return fmt.Sprintf("%s#%s", SKey, key) }

func parseKey(sk string) (string, error) {
	key, ok := strings.CutPrefix(sk, SKey+"#")
	if !ok || key == "" {
		return "", types.Err(types.ErrSettingsAccess, nil, "malformed sort key %q", sk)
	}
	return key, nil
}

// createTableIfNotExists ignores the error if the table already exists.
func createTableIfNotExists(ctx context.Context, client API, table string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: &table,
		AttributeDefinitions: []ddbTypes.AttributeDefinition{
			{AttributeName: aws.String("PK"), AttributeType: ddbTypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("SK"), AttributeType: ddbTypes.ScalarAttributeTypeS},
		},
		KeySchema: []ddbTypes.KeySchemaElement{
			{AttributeName: aws.String("PK"), KeyType: ddbTypes.KeyTypeHash},
			{AttributeName: aws.String("SK"), KeyType: ddbTypes.KeyTypeRange},
		},
		BillingMode: ddbTypes.BillingModePayPerRequest,
	})
	var re *ddbTypes.ResourceInUseException
	if err != nil && !errors.As(err, &re) {
		log.WithError(err).WithField("table", table).Error("failed to create table")
		return types.Err(types.ErrSettingsAccess, err, "create table %s", table)
	}
	return nil
}
