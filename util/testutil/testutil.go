package testutil

import (
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/icrowley/fake"
	"github.com/nsqio/go-nsq"
)

// MakeDatasetVersion returns citation metadata with a random title and
// author, enough for Dataverse to accept a new dataset.
func MakeDatasetVersion() *models.DatasetVersion {
	return &models.DatasetVersion{
		License: &models.License{
			Name: "CC0 1.0",
			Uri:  "http://creativecommons.org/publicdomain/zero/1.0",
		},
		MetadataBlocks: map[string]*models.MetadataBlock{
			"citation": {
				DisplayName: "Citation Metadata",
				Fields: []*models.MetadataField{
					MakePrimitiveField("title", fake.Sentence()),
					{
						TypeName:  "author",
						TypeClass: "compound",
						Multiple:  true,
						Value: []interface{}{
							map[string]interface{}{
								"authorName": MakePrimitiveField("authorName", fake.MaleFullName()),
							},
						},
					},
				},
			},
		},
	}
}

// MakeDataset wraps MakeDatasetVersion in a dataset.
func MakeDataset() *models.Dataset {
	return &models.Dataset{DatasetVersion: MakeDatasetVersion()}
}

func MakePrimitiveField(typeName, value string) *models.MetadataField {
	return &models.MetadataField{
		TypeName:  typeName,
		TypeClass: "primitive",
		Value:     value,
	}
}

// MakeRoleAssignment returns an assignment of role to a random user.
func MakeRoleAssignment(role string) *models.RoleAssignment {
	return &models.RoleAssignment{
		Assignee: "@" + fake.Word(),
		Role:     role,
	}
}

// MakeNsqMessage returns an NSQ message with the given body, with a
// delegate that records what the handler does with it.
func MakeNsqMessage(body string) (*nsq.Message, *NSQTestDelegate) {
	var id nsq.MessageID
	copy(id[:], fake.CharactersN(nsq.MsgIDLength))
	message := nsq.NewMessage(id, []byte(body))
	message.Attempts = 1
	delegate := NewNSQTestDelegate()
	message.Delegate = delegate
	return message, delegate
}
